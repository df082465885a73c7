package printer

import (
	"strings"
	"testing"

	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/opcodeflow"
	"github.com/meppent/evmdecomp/internal/varflow"
)

func TestRenderOrdersMainFirstThenFunctionsByLabel(t *testing.T) {
	flow := &varflow.Flow{Functions: map[uint64]*varflow.Function{
		opcodeflow.MainLabel: {Label: opcodeflow.MainLabel},
		7:                    {Label: 7, Content: []varflow.VarScope{{Kind: varflow.VarScopePanic}}},
		2:                    {Label: 2, Content: []varflow.VarScope{{Kind: varflow.VarScopePanic}}},
	}}

	out := Render(flow, nil)

	mainIdx := strings.Index(out, "function main")
	fn2Idx := strings.Index(out, "fn_0x2")
	fn7Idx := strings.Index(out, "fn_0x7")
	if mainIdx < 0 || fn2Idx < 0 || fn7Idx < 0 {
		t.Fatalf("expected main, fn_0x2 and fn_0x7 all present, got:\n%s", out)
	}
	if !(mainIdx < fn2Idx && fn2Idx < fn7Idx) {
		t.Fatalf("expected main before fn_0x2 before fn_0x7, got:\n%s", out)
	}
}

func TestRenderPrefixesMetadataAsComments(t *testing.T) {
	flow := &varflow.Flow{Functions: map[uint64]*varflow.Function{
		opcodeflow.MainLabel: {Label: opcodeflow.MainLabel},
	}}
	metadata := []bytecode.Metadata{{Key: "solc", Bytes: []byte{0, 8, 20}}}

	out := Render(flow, metadata)
	if !strings.HasPrefix(out, "// Solc 0.8.20\n") {
		t.Fatalf("expected a leading metadata comment, got:\n%s", out)
	}
}
