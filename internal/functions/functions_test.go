package functions

import (
	"testing"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/internal/loops"
)

// subroutineGraph builds the CFG for a classic push-return-address-then-
// jump subroutine call, made from two call sites:
//
//	pc0  PUSH1 0x01         ; branch condition
//	pc2  PUSH1 0x0a         ; dest = 10 (call site B)
//	pc4  JUMPI              ; taken -> B, fallthrough -> call site A
//	pc5  PUSH1 0x12         ; A: push return address (pc 18)
//	pc7  PUSH1 0x10         ; A: push F's address (pc 16)
//	pc9  JUMP               ; A -> F
//	pc10 JUMPDEST           ; B
//	pc11 PUSH1 0x14         ; B: push return address (pc 20)
//	pc13 PUSH1 0x10         ; B: push F's address (pc 16)
//	pc15 JUMP               ; B -> F
//	pc16 JUMPDEST           ; F: pops the return address straight off the
//	pc17 JUMP               ;    stack and jumps to it
//	pc18 JUMPDEST           ; X1 (A's return site)
//	pc19 STOP
//	pc20 JUMPDEST           ; X2 (B's return site)
//	pc21 STOP
//
// F is reached from A and B with different abstract stacks (the two
// return addresses are different literals), so it is represented by two
// distinct nodes -- exactly the shape detectCandidates looks for.
func subroutineGraph(t *testing.T) *loops.AcyclicGraph {
	t.Helper()
	vs, err := bytecode.DecodeHex("6001600a5760126010565b60146010565b565b005b00")
	if err != nil {
		t.Fatal(err)
	}
	blocks := block.ByPCStart(block.Partition(vs))
	g := cfg.Build(blocks)
	return loops.Reduce(g)
}

func blockAtPC(idx *blockIndex, pcStart int) *block.Block {
	for _, b := range idx.AllBlocks() {
		if b.PCStart() == pcStart {
			return b
		}
	}
	return nil
}

func TestDetectFunctionsFindsSharedSubroutine(t *testing.T) {
	ag := subroutineGraph(t)
	if ag.VerificationErr != nil {
		t.Fatalf("graph should already be acyclic, got: %v", ag.VerificationErr)
	}

	idxBefore := newBlockIndex(ag.Graph)
	nBlocksBefore := len(idxBefore.AllBlocks())

	fBlock := blockAtPC(idxBefore, 16)
	aBlock := blockAtPC(idxBefore, 5)
	bBlock := blockAtPC(idxBefore, 10)
	x1Block := blockAtPC(idxBefore, 18)
	x2Block := blockAtPC(idxBefore, 20)
	if fBlock == nil || aBlock == nil || bBlock == nil || x1Block == nil || x2Block == nil {
		t.Fatal("expected blocks at pc 5, 10, 16, 18, 20")
	}

	functions := DetectFunctionsAndDuplicateOddities(ag)

	fn, ok := functions[fBlock]
	if !ok {
		t.Fatalf("expected a detected function starting at pc 16, got %v", functions)
	}

	accepted := fn.AcceptableInputs()
	if !accepted[aBlock] || !accepted[bBlock] {
		t.Fatalf("expected both call sites to be acceptable (deterministic) inputs, got %v", accepted)
	}

	outA := fn.Output(aBlock)
	if outA.Kind != SingleBlock || outA.Block != x1Block {
		t.Fatalf("call site A should return deterministically to pc 18, got kind=%v block=%v", outA.Kind, outA.Block)
	}
	outB := fn.Output(bBlock)
	if outB.Kind != SingleBlock || outB.Block != x2Block {
		t.Fatalf("call site B should return deterministically to pc 20, got kind=%v block=%v", outB.Kind, outB.Block)
	}

	idxAfter := newBlockIndex(ag.Graph)
	if len(idxAfter.AllBlocks()) != nBlocksBefore {
		t.Fatalf("no call site is ambiguous here, so no duplication should have occurred: had %d blocks, now %d", nBlocksBefore, len(idxAfter.AllBlocks()))
	}
}

// TestDivergencesAreSymmetric checks that computeDivergences treats a
// pair of nodes sharing a block symmetrically: Get(n0, n1) and
// Get(n1, n0) must name the same set of divergence blocks, mirroring
// divergences.rs's test_divergence_symetry. fBlock at pc 16 is
// instantiated by two distinct nodes here (one reached from call site A,
// one from call site B), giving a real same-block pair to check.
func TestDivergencesAreSymmetric(t *testing.T) {
	ag := subroutineGraph(t)
	idx := newBlockIndex(ag.Graph)
	fBlock := blockAtPC(idx, 16)
	if fBlock == nil {
		t.Fatal("expected a block at pc 16")
	}
	nodes := idx.NodesOf(fBlock)
	if len(nodes) != 2 {
		t.Fatalf("expected two distinct node instances of the pc-16 block, got %d", len(nodes))
	}

	d := computeDivergences(idx)
	for _, n0 := range nodes {
		for _, n1 := range nodes {
			fwd := d.Get(n0, n1)
			rev := d.Get(n1, n0)
			if len(fwd) != len(rev) {
				t.Fatalf("Get(n0, n1) and Get(n1, n0) disagree in size: %v vs %v", fwd, rev)
			}
			for b := range fwd {
				if !rev[b] {
					t.Fatalf("divergence block %v present in Get(n0, n1) but not Get(n1, n0)", b)
				}
			}
		}
	}
}

func TestCandidateIntermediateBlocksIncludesStart(t *testing.T) {
	ag := subroutineGraph(t)
	idx := newBlockIndex(ag.Graph)
	fBlock := blockAtPC(idx, 16)
	if fBlock == nil {
		t.Fatal("expected a block at pc 16")
	}
	c := &Candidate{Start: fBlock, Ends: map[*block.Block]bool{fBlock: true}}
	inter := c.IntermediateBlocks(idx)
	if !inter[fBlock] || len(inter) != 1 {
		t.Fatalf("expected exactly {F} as the intermediate set, got %v", inter)
	}
}
