package decompiler

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRunSimpleArithmetic(t *testing.T) {
	// PUSH1 0x01 PUSH1 0x02 ADD STOP
	result, err := Run(context.Background(), decodeHex(t, "600160020100"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.VarFlow.MainFunction() == nil {
		t.Fatal("expected a main function")
	}
	if !strings.Contains(result.Rendered, "function main") {
		t.Fatalf("expected rendered output to contain a main function, got:\n%s", result.Rendered)
	}
}

func TestRunHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, decodeHex(t, "600160020100"))
	if err == nil {
		t.Fatal("expected Run to fail on an already-canceled context")
	}
}

func TestRunDecodesTrailingMetadata(t *testing.T) {
	// A single STOP instruction, followed by a one-entry CBOR map
	// {"solc": 8} and the trailing big-endian uint16 trailer length the
	// metadata-splitting logic expects.
	code := decodeHex(t, "00")
	cbor := decodeHex(t, "a1")                 // map(1)
	cbor = append(cbor, decodeHex(t, "64")...) // text(4)
	cbor = append(cbor, []byte("solc")...)
	cbor = append(cbor, decodeHex(t, "08")...) // unsigned(8)

	length := len(cbor)
	raw := append(append([]byte{}, code...), cbor...)
	raw = append(raw, byte(length>>8), byte(length))

	result, err := Run(context.Background(), raw)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Metadata) != 1 || result.Metadata[0].Key != "solc" {
		t.Fatalf("expected one decoded solc metadata entry, got %+v", result.Metadata)
	}
}
