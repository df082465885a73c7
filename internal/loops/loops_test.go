package loops

import (
	"testing"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/cfg"
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
// The loop body (pc8) re-enters the header with an abstract stack
// identical to the header's own initial one, so the back edge re-interns
// onto the very same node -- the ordinary shape a real loop takes once
// the coarse abstraction stabilizes, as opposed to the degenerate direct
// self-loop internal/cfg.dropDirectSelfLoops already removes.
func loopGraph(t *testing.T) *cfg.Graph {
	t.Helper()
	vs, err := bytecode.DecodeHex("602a5b6001600b576002565b00")
	if err != nil {
		t.Fatal(err)
	}
	blocks := block.ByPCStart(block.Partition(vs))
	return cfg.Build(blocks)
}

func nodeAtPC(g *cfg.Graph, pcStart int) *cfg.Node {
	for _, n := range g.Nodes() {
		if n.Block.PCStart() == pcStart {
			return n
		}
	}
	return nil
}

func TestFindNodeLoopsDetectsBackEdge(t *testing.T) {
	g := loopGraph(t)
	nl := FindNodeLoops(g)

	header := nodeAtPC(g, 2)
	body := nodeAtPC(g, 8)
	exit := nodeAtPC(g, 11)
	init := nodeAtPC(g, 0)
	if header == nil || body == nil || exit == nil || init == nil {
		t.Fatal("expected nodes at pc 0, 2, 8, 11")
	}

	if len(nl.Labels[header]) != 1 {
		t.Fatalf("header should carry exactly one loop label, got %v", nl.Labels[header])
	}
	if len(nl.Labels[body]) != 1 {
		t.Fatalf("loop body should carry exactly one loop label, got %v", nl.Labels[body])
	}
	for label := range nl.Labels[header] {
		if !nl.Labels[body][label] {
			t.Fatalf("body does not share header's label %d", label)
		}
		if nl.LoopEntries[label] != header {
			t.Fatal("loop entry should be the header node")
		}
	}
	if len(nl.Labels[exit]) != 0 {
		t.Fatalf("exit block should carry no loop label, got %v", nl.Labels[exit])
	}
	if len(nl.Labels[init]) != 0 {
		t.Fatalf("init block should carry no loop label, got %v", nl.Labels[init])
	}
}

func TestFindBlockLoopsProjectsAndIdentifiesEntry(t *testing.T) {
	g := loopGraph(t)
	bl, _ := FindBlockLoops(g)

	if !bl.HasLoopStartingAt(2) {
		t.Fatal("pc 2 (header) should be a loop entry")
	}
	if bl.HasLoopStartingAt(8) {
		t.Fatal("pc 8 (body) should not itself be a loop entry")
	}
	label, ok := bl.LabelOfEntry(2)
	if !ok {
		t.Fatal("expected a label for the entry at pc 2")
	}
	if bl.PCStartEntryForLabel(label) != 2 {
		t.Fatalf("entry pc for label %d should be 2, got %d", label, bl.PCStartEntryForLabel(label))
	}
	if !bl.BlockIsInLoop(2, label) || !bl.BlockIsInLoop(8, label) {
		t.Fatal("both header and body should be marked as in the loop")
	}
	if bl.BlockIsInLoop(0, label) || bl.BlockIsInLoop(11, label) {
		t.Fatal("init and exit blocks should not be marked as in the loop")
	}
	if len(bl.Labels()) != 1 {
		t.Fatalf("expected exactly one loop label, got %v", bl.Labels())
	}
}

func TestReduceCutsBackEdgeAndVerifiesAcyclic(t *testing.T) {
	g := loopGraph(t)
	ag := Reduce(g)

	if ag.VerificationErr != nil {
		t.Fatalf("reduced graph should verify acyclic, got error: %v", ag.VerificationErr)
	}

	label, ok := ag.Loops.LabelOfEntry(2)
	if !ok {
		t.Fatal("expected a loop entry at pc 2")
	}
	if got, ok := ag.DisconnectedAt[8]; !ok || got != label {
		t.Fatalf("expected the back edge at pc 8 to be recorded as cut for label %d, got %v (ok=%v)", label, got, ok)
	}

	body := nodeAtPC(g, 8)
	header := nodeAtPC(g, 2)
	for _, c := range body.Children {
		if c == header {
			t.Fatal("back edge from body to header should have been removed")
		}
	}
	// the forward edges must survive untouched.
	if len(header.Children) != 2 {
		t.Fatalf("header should still have 2 forward children, got %d", len(header.Children))
	}
}
