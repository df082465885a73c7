package opcodeflow

import (
	"testing"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/internal/loops"
	"github.com/meppent/evmdecomp/internal/skeleton"
)

func TestAggregateNStackInputsAndOutputs(t *testing.T) {
	cases := []struct {
		in0, out0, in1, out1 int
		wantIn, wantOut       int
	}{
		{10, 8, 7, 4, 10, 5},
		{10, 15, 6, 7, 10, 16},
		{10, 5, 15, 1, 20, 1},
		{10, 5, 15, 12, 20, 12},
		{10, 5, 15, 100, 20, 100},
	}
	for _, c := range cases {
		gotIn, gotOut := aggregateNStackInputsAndOutputs(c.in0, c.out0, c.in1, c.out1)
		if gotIn != c.wantIn || gotOut != c.wantOut {
			t.Errorf("aggregate(%d,%d,%d,%d) = (%d,%d), want (%d,%d)",
				c.in0, c.out0, c.in1, c.out1, gotIn, gotOut, c.wantIn, c.wantOut)
		}
	}
}

func subroutineSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	vs, err := bytecode.DecodeHex("6001600a5760126010565b60146010565b565b005b00")
	if err != nil {
		t.Fatal(err)
	}
	blocks := block.ByPCStart(block.Partition(vs))
	g := cfg.Build(blocks)
	ag := loops.Reduce(g)
	if ag.VerificationErr != nil {
		t.Fatalf("graph should verify acyclic, got: %v", ag.VerificationErr)
	}
	return skeleton.Build(ag)
}

func TestBuildSharedSubroutine(t *testing.T) {
	sk := subroutineSkeleton(t)
	flow := Build(sk)

	if len(flow.Functions) != 2 {
		t.Fatalf("expected main plus one detected function, got %d: %+v", len(flow.Functions), flow.Functions)
	}

	var secondary *Function
	for label, fn := range flow.Functions {
		if label != MainLabel {
			secondary = fn
		}
	}
	if secondary == nil {
		t.Fatal("expected a non-main function in the table")
	}

	if secondary.NInputs != 1 {
		t.Fatalf("expected the shared subroutine to present 1 input (the return address), got %d", secondary.NInputs)
	}
	if secondary.NOutputs == nil || *secondary.NOutputs != 0 {
		t.Fatalf("expected the shared subroutine to present 0 outputs, got %v", secondary.NOutputs)
	}
	if len(secondary.Content) == 0 || secondary.Content[len(secondary.Content)-1].Kind != ScopeFunctionReturn {
		t.Fatalf("expected the shared subroutine's body to end in a FunctionReturn, got %+v", secondary.Content)
	}

	main := flow.Functions[MainLabel]
	if len(main.Content) != 2 {
		t.Fatalf("expected main to hold the init block plus the condition, got %d: %+v", len(main.Content), main.Content)
	}
	if main.Content[0].Kind != ScopeInstructions {
		t.Fatalf("expected main's first scope to be the aggregated init block, got %+v", main.Content[0])
	}
	if main.Content[1].Kind != ScopeCondition {
		t.Fatalf("expected main's second scope to be the call sites' condition, got %+v", main.Content[1])
	}

	for _, arm := range [][]Scope{main.Content[1].InstructionsIfTrue, main.Content[1].InstructionsIfFalse} {
		foundCall := false
		for _, s := range arm {
			if s.Kind == ScopeFunctionCall {
				foundCall = true
				if s.CallLabel != secondary.Label {
					t.Fatalf("expected both call sites to reference the same function label, got %#x want %#x", s.CallLabel, secondary.Label)
				}
			}
		}
		if !foundCall {
			t.Fatalf("expected each branch to call the shared subroutine, got %+v", arm)
		}
	}
}

func TestRemoveSecondaryFunctionsContainingLoops(t *testing.T) {
	const loopyLabel = uint64(42)
	loopyContent := []Scope{
		{Kind: ScopeLoop, LoopLabel: 0},
		{Kind: ScopeLoopContinue, LoopLabel: 0},
	}
	flow := &Flow{Functions: map[uint64]*Function{
		MainLabel: {Label: MainLabel, Content: []Scope{
			{Kind: ScopeFunctionCall, CallLabel: loopyLabel},
			{Kind: ScopeInstructions},
		}},
		loopyLabel: {Label: loopyLabel, Content: loopyContent},
	}}

	removeSecondaryFunctionsContainingLoops(flow)

	if _, ok := flow.Functions[loopyLabel]; ok {
		t.Fatal("expected the loop-containing secondary function to be removed from the table")
	}
	main := flow.Functions[MainLabel]
	if len(main.Content) != 3 {
		t.Fatalf("expected the call site replaced by the callee's 2 scopes plus the trailing instructions, got %d: %+v", len(main.Content), main.Content)
	}
	if main.Content[0].Kind != ScopeLoop || main.Content[1].Kind != ScopeLoopContinue {
		t.Fatalf("expected the callee's loop scopes spliced in place of the call, got %+v", main.Content[:2])
	}
	if main.Content[2].Kind != ScopeInstructions {
		t.Fatalf("expected the instructions scope that followed the call to survive untouched, got %+v", main.Content[2])
	}
}
