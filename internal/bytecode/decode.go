package bytecode

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/meppent/evmdecomp/internal/opcode"
)

// Decode walks raw (instruction-stream) bytes left to right and produces
// the corresponding []Vopcode. PUSHn consumes the following n bytes as
// its literal, zero-padded on the left if the stream is truncated (a
// contract whose bytecode was cut short mid-PUSH, which does happen with
// some deliberately malformed bytecode); every other opcode occupies a
// single byte. The metadata trailer, if any, must be stripped by the
// caller via SplitMetadata before calling Decode -- Decode treats its
// whole input as instructions.
func Decode(code []byte) []Vopcode {
	out := make([]Vopcode, 0, len(code))
	i := 0
	for i < len(code) {
		pc := i
		op := opcode.OpCode(code[i])
		i++

		var value *uint256.Int
		if size := opcode.PushSize(op); size > 0 {
			end := i + size
			if end > len(code) {
				end = len(code)
			}
			value = new(uint256.Int).SetBytes(code[i:end])
			i = end
		}

		out = append(out, Vopcode{Opcode: op, Value: value, PC: pc})
	}
	if len(out) > 0 {
		out[len(out)-1].IsLast = true
	}
	return out
}

// DecodeHex is a convenience wrapper accepting a hex string (with or
// without a leading "0x"), the form most bytecode test fixtures and
// block explorers use.
func DecodeHex(s string) ([]Vopcode, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bytecode: invalid hex: %w", err)
	}
	return Decode(raw), nil
}

// HexOrRawToBytes turns file contents into instruction-stream bytes,
// accepting either a hex string (the form solc and most block
// explorers emit, with or without a leading "0x") or raw binary
// bytecode. A CLI reading an arbitrary bytecode file off disk cannot
// know up front which of the two it has; hex decoding is tried first
// since it is by far the more common form for this tool's input, and
// raw bytes are used as a fallback rather than an error.
func HexOrRawToBytes(contents []byte) []byte {
	s := strings.TrimPrefix(strings.TrimSpace(string(contents)), "0x")
	if raw, err := hex.DecodeString(s); err == nil {
		return raw
	}
	return contents
}
