package symbolic

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/meppent/evmdecomp/internal/bytecode"
)

func newU256(v uint64) *uint256.Int { return uint256.NewInt(v) }

func decode(t *testing.T, hexStr string) []bytecode.Vopcode {
	t.Helper()
	vs, err := bytecode.DecodeHex(hexStr)
	if err != nil {
		t.Fatal(err)
	}
	return vs
}

// TestApplyAdd checks ADD's stack effect, spec.md scenario S1.
func TestApplyAdd(t *testing.T) {
	b := FromVopcodes(decode(t, "01"))
	if b.NOutputs() != 1 {
		t.Fatalf("n_outputs = %d, want 1", b.NOutputs())
	}
	if b.Delta() != -1 {
		t.Fatalf("delta = %d, want -1", b.Delta())
	}
	if b.NArgs != 2 {
		t.Fatalf("n_args = %d, want 2", b.NArgs)
	}
	if len(b.Effects) != 0 {
		t.Fatalf("effects = %v, want none", b.Effects)
	}
	if b.FinalEffect() != nil {
		t.Fatal("final effect should be nil for ADD")
	}
	top := b.Peek()
	if top.Kind != KindCompose || len(top.Args) != 2 {
		t.Fatalf("top = %+v, want Compose(ADD, [Arg(1), Arg(2)])", top)
	}
	if !top.Args[0].Equal(NewArg(1)) || !top.Args[1].Equal(NewArg(2)) {
		t.Fatalf("top args = %+v, want [Arg(1), Arg(2)]", top.Args)
	}
	if top.Origin != nil {
		t.Fatal("ADD has no external effect, origin should be nil")
	}
}

// TestApplySwap4 mirrors test_apply_swap4: positions 1 and 5 (1-indexed
// from the top) are exchanged, everything else keeps its place.
func TestApplySwap4(t *testing.T) {
	b := FromVopcodes(decode(t, "93")) // SWAP4
	if b.NOutputs() != 5 || b.Delta() != 0 || b.NArgs != 5 {
		t.Fatalf("got n_outputs=%d delta=%d n_args=%d", b.NOutputs(), b.Delta(), b.NArgs)
	}
	want := []int{5, 2, 3, 4, 1} // popped from the top, in order
	for i, w := range want {
		got := b.pop()
		if !got.Equal(NewArg(w)) {
			t.Fatalf("pop #%d = %+v, want Arg(%d)", i, got, w)
		}
	}
}

// TestApplyDup4 mirrors test_apply_dup4.
func TestApplyDup4(t *testing.T) {
	b := FromVopcodes(decode(t, "83")) // DUP4
	if b.NOutputs() != 5 || b.Delta() != 1 || b.NArgs != 4 {
		t.Fatalf("got n_outputs=%d delta=%d n_args=%d", b.NOutputs(), b.Delta(), b.NArgs)
	}
	want := []int{4, 1, 2, 3, 4}
	for i, w := range want {
		got := b.pop()
		if !got.Equal(NewArg(w)) {
			t.Fatalf("pop #%d = %+v, want Arg(%d)", i, got, w)
		}
	}
}

// TestApplyCallReference mirrors test_apply_call_reference: CALL reads
// 7 stack inputs and its result expression's Origin points back at the
// Effect it produced.
func TestApplyCallReference(t *testing.T) {
	b := FromVopcodes(decode(t, "f1")) // CALL
	if b.NOutputs() != 1 || b.Delta() != -6 || b.NArgs != 7 {
		t.Fatalf("got n_outputs=%d delta=%d n_args=%d", b.NOutputs(), b.Delta(), b.NArgs)
	}
	if b.FinalEffect() != nil {
		t.Fatal("CALL is not a jump/exit, final effect should be nil")
	}
	top := b.Peek()
	if top.Origin != b.Effects[0] {
		t.Fatal("CALL result's Origin should point at effects[0]")
	}
}

// TestApplyRevert mirrors test_apply_revert.
func TestApplyRevert(t *testing.T) {
	b := FromVopcodes(decode(t, "fd")) // REVERT
	if b.NOutputs() != 0 || b.Delta() != -2 || b.NArgs != 2 {
		t.Fatalf("got n_outputs=%d delta=%d n_args=%d", b.NOutputs(), b.Delta(), b.NArgs)
	}
	fe := b.FinalEffect()
	if fe == nil || fe != b.Effects[0] {
		t.Fatal("REVERT should be its own final effect")
	}
}

// TestApplyMstore mirrors test_apply_mstore and spec.md scenario S3.
func TestApplyMstore(t *testing.T) {
	b := FromVopcodes(decode(t, "52")) // MSTORE
	if b.NOutputs() != 0 || b.Delta() != -2 || b.NArgs != 2 {
		t.Fatalf("got n_outputs=%d delta=%d n_args=%d", b.NOutputs(), b.Delta(), b.NArgs)
	}
	if b.FinalEffect() != nil {
		t.Fatal("MSTORE is not a jump/exit, final effect should be nil")
	}
	if len(b.Effects) != 1 {
		t.Fatalf("effects = %v, want exactly 1", b.Effects)
	}
	eff := b.Effects[0]
	if !eff.Args[0].Equal(NewArg(1)) || !eff.Args[1].Equal(NewArg(2)) {
		t.Fatalf("MSTORE args = %+v, want [Arg(1), Arg(2)]", eff.Args)
	}
}

// TestFillPlaceholdersWithExistingValue mirrors
// test_fill_stack_with_place_holders2: an already-present literal is not
// disturbed, and placeholders fill in below it.
func TestFillPlaceholdersWithExistingValue(t *testing.T) {
	b := NewBlock()
	b.push(NewBytes(newU256(5)))
	b.fillPlaceholders(3)
	if b.NArgs != 2 || len(b.Stack) != 3 {
		t.Fatalf("n_args=%d stack_len=%d, want 2/3", b.NArgs, len(b.Stack))
	}
	if !b.pop().Equal(NewBytes(newU256(5))) {
		t.Fatal("top should still be the literal 5")
	}
	if !b.pop().Equal(NewArg(1)) || !b.pop().Equal(NewArg(2)) {
		t.Fatal("placeholders should be Arg(1) then Arg(2) below the literal")
	}
}

// TestApplyMultipleNoEffect mirrors test_apply_multiple_no_effect:
// ADD ADD ADD POP consumes 4 args and leaves nothing behind.
func TestApplyMultipleNoEffect(t *testing.T) {
	b := FromVopcodes(decode(t, "01010150"))
	if b.NOutputs() != 0 || b.Delta() != -4 || b.NArgs != 4 {
		t.Fatalf("got n_outputs=%d delta=%d n_args=%d", b.NOutputs(), b.Delta(), b.NArgs)
	}
	if len(b.Effects) != 0 {
		t.Fatalf("effects = %v, want none", b.Effects)
	}
}
