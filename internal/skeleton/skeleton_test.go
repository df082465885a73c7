package skeleton

import (
	"testing"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/internal/loops"
)

// loopGraph builds the CFG for:
//
//	pc0  PUSH1 0x2a        ; unrelated init value, falls through to pc2
//	pc2  JUMPDEST          ; loop header H
//	pc3  PUSH1 0x01        ; cond = true
//	pc5  PUSH1 0x0b        ; dest = 11 (exit)
//	pc7  JUMPI
//	pc8  PUSH1 0x02        ; dest = 2 (back to H)
//	pc10 JUMP
//	pc11 JUMPDEST          ; exit
//	pc12 STOP
//
// the same shape internal/loops tests against, reused here since it is
// the minimal contract with a genuine Loop/LoopContinue pair to walk.
func loopAcyclicGraph(t *testing.T) *loops.AcyclicGraph {
	t.Helper()
	vs, err := bytecode.DecodeHex("602a5b6001600b576002565b00")
	if err != nil {
		t.Fatal(err)
	}
	blocks := block.ByPCStart(block.Partition(vs))
	g := cfg.Build(blocks)
	return loops.Reduce(g)
}

func TestBuildSimpleLoop(t *testing.T) {
	ag := loopAcyclicGraph(t)
	if ag.VerificationErr != nil {
		t.Fatalf("graph should verify acyclic, got: %v", ag.VerificationErr)
	}

	sk := Build(ag)
	if len(sk.Functions) != 0 {
		t.Fatalf("this contract has no call sites, expected no detected functions, got %v", sk.Functions)
	}
	if len(sk.Junctions) != 0 {
		t.Fatalf("expected no junctions, got %v", sk.Junctions)
	}

	main := sk.Main
	if len(main) != 4 {
		t.Fatalf("expected 4 top-level scopes (init block, loop start, header block, branch), got %d: %+v", len(main), main)
	}

	if main[0].Kind != ScopeBlock || main[0].Block.PCStart() != 0 {
		t.Fatalf("expected the first scope to be the init block at pc 0, got %+v", main[0])
	}
	if main[1].Kind != ScopeLoop {
		t.Fatalf("expected a Loop scope next, got %+v", main[1])
	}
	loopLabel := main[1].LoopLabel
	if main[2].Kind != ScopeBlock || main[2].Block.PCStart() != 2 {
		t.Fatalf("expected the loop header block at pc 2 next, got %+v", main[2])
	}
	if main[3].Kind != ScopeIf {
		t.Fatalf("expected an If scope for the header's branch, got %+v", main[3])
	}

	ifScope := main[3].If
	if len(ifScope.True) != 1 || ifScope.True[0].Kind != ScopeBlock || ifScope.True[0].Block.PCStart() != 11 {
		t.Fatalf("expected the true arm to be the exit block at pc 11, got %+v", ifScope.True)
	}
	if len(ifScope.False) != 2 {
		t.Fatalf("expected the false arm to hold the loop body block plus a continue, got %+v", ifScope.False)
	}
	if ifScope.False[0].Kind != ScopeBlock || ifScope.False[0].Block.PCStart() != 8 {
		t.Fatalf("expected the false arm's first scope to be the body block at pc 8, got %+v", ifScope.False[0])
	}
	if ifScope.False[1].Kind != ScopeLoopContinue || ifScope.False[1].LoopLabel != loopLabel {
		t.Fatalf("expected the false arm to end in a LoopContinue for label %d, got %+v", loopLabel, ifScope.False[1])
	}
}

func TestBuildDetectsSharedSubroutineAsFunction(t *testing.T) {
	// pc0 PUSH1 1; pc2 PUSH1 10; pc4 JUMPI -> {pc5: A, pc10: B}
	// pc5 A: PUSH1 18; pc7 PUSH1 16; pc9 JUMP -> F
	// pc10 B: JUMPDEST; pc11 PUSH1 20; pc13 PUSH1 16; pc15 JUMP -> F
	// pc16 F: JUMPDEST; pc17 JUMP (pops the return address)
	// pc18 X1: JUMPDEST; pc19 STOP
	// pc20 X2: JUMPDEST; pc21 STOP
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

	sk := Build(ag)
	if len(sk.Functions) != 1 {
		t.Fatalf("expected exactly one detected function, got %v", sk.Functions)
	}
	var fn *Function
	for _, f := range sk.Functions {
		fn = f
	}
	if fn.Info.Candidate.Start.PCStart() != 16 {
		t.Fatalf("expected the detected function to start at pc 16, got %d", fn.Info.Candidate.Start.PCStart())
	}
	if len(fn.Instructions) == 0 {
		t.Fatal("expected the function's body to have been built")
	}
	if fn.Instructions[0].Kind != ScopeBlock || fn.Instructions[0].Block.PCStart() != 16 {
		t.Fatalf("expected the function body to start with its own block, got %+v", fn.Instructions[0])
	}
}
