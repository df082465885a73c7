package block

import (
	"testing"

	"github.com/meppent/evmdecomp/internal/bytecode"
)

func decode(t *testing.T, hexStr string) []bytecode.Vopcode {
	t.Helper()
	vs, err := bytecode.DecodeHex(hexStr)
	if err != nil {
		t.Fatal(err)
	}
	return vs
}

// TestPartitionSplitsAtJumpAndJumpdest mirrors spec.md scenario S5:
// PUSH1 0x05, JUMP, JUMPDEST, STOP should split into two blocks, one
// ending at the JUMP and one starting at the JUMPDEST.
func TestPartitionSplitsAtJumpAndJumpdest(t *testing.T) {
	code := decode(t, "6005565b00")
	blocks := Partition(code)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].PCStart() != 0 || blocks[0].PCEnd() != 2 {
		t.Fatalf("block 0 = [%d,%d], want [0,2]", blocks[0].PCStart(), blocks[0].PCEnd())
	}
	if blocks[1].PCStart() != 3 || blocks[1].PCEnd() != 4 {
		t.Fatalf("block 1 = [%d,%d], want [3,4]", blocks[1].PCStart(), blocks[1].PCEnd())
	}
}

func TestPartitionSingleFallthroughBlock(t *testing.T) {
	code := decode(t, "0101") // ADD ADD, no jumps
	blocks := Partition(code)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].PCStart() != 0 || blocks[0].PCEnd() != 1 {
		t.Fatalf("block = [%d,%d], want [0,1]", blocks[0].PCStart(), blocks[0].PCEnd())
	}
}

func TestHasDeterministicEndLiteralJump(t *testing.T) {
	code := decode(t, "600556") // PUSH1 0x05, JUMP
	blocks := Partition(code)
	if len(blocks) != 1 {
		t.Fatal("expected a single block")
	}
	if !blocks[0].HasDeterministicEnd() {
		t.Fatal("PUSH1 dest; JUMP should be a deterministic end")
	}
}

// TestPartitionSkipsFillerAfterExitingOpcode covers STOP, PUSH1 0x00,
// JUMPDEST, STOP: the PUSH1 sits between an exiting STOP and the next
// JUMPDEST, so it is unreachable filler that must not become its own
// block (it starts neither at program start, a JUMPDEST, nor right after
// a JUMPI).
func TestPartitionSkipsFillerAfterExitingOpcode(t *testing.T) {
	code := decode(t, "0060005b00")
	blocks := Partition(code)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (no block for the filler PUSH1): %+v", len(blocks), blocks)
	}
	if blocks[0].PCStart() != 0 || blocks[0].PCEnd() != 0 {
		t.Fatalf("block 0 = [%d,%d], want [0,0] (the leading STOP)", blocks[0].PCStart(), blocks[0].PCEnd())
	}
	if blocks[1].PCStart() != 3 || blocks[1].PCEnd() != 4 {
		t.Fatalf("block 1 = [%d,%d], want [3,4] (JUMPDEST, STOP)", blocks[1].PCStart(), blocks[1].PCEnd())
	}
}

func TestByPCStartIndexesByStartingPC(t *testing.T) {
	code := decode(t, "6005565b00")
	blocks := Partition(code)
	idx := ByPCStart(blocks)
	if idx[0] != blocks[0] || idx[3] != blocks[1] {
		t.Fatal("ByPCStart index does not map pcStart to the right block")
	}
}
