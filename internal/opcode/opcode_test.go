package opcode

import (
	"testing"

	vm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

func TestFixedArity(t *testing.T) {
	cases := []struct {
		op       OpCode
		in, out  int
		effect   bool
	}{
		{vm.ADD, 2, 1, false},
		{vm.MSTORE, 2, 0, true},
		{vm.REVERT, 2, 0, true},
		{vm.CALL, 7, 1, true},
		{vm.JUMPI, 2, 0, true},
		{vm.JUMPDEST, 0, 0, false},
	}
	for _, c := range cases {
		info := InfoOf(c.op)
		if info.StackInput != c.in || info.StackOutput != c.out || info.ExternalEffect != c.effect {
			t.Errorf("%s: got (%d,%d,%v), want (%d,%d,%v)", c.op, info.StackInput, info.StackOutput, info.ExternalEffect, c.in, c.out, c.effect)
		}
	}
}

func TestDupSwapLogArity(t *testing.T) {
	info := InfoOf(vm.DUP4)
	if info.StackInput != 4 || info.StackOutput != 5 {
		t.Fatalf("DUP4 arity = (%d,%d), want (4,5)", info.StackInput, info.StackOutput)
	}
	info = InfoOf(vm.SWAP4)
	if info.StackInput != 5 || info.StackOutput != 5 {
		t.Fatalf("SWAP4 arity = (%d,%d), want (5,5)", info.StackInput, info.StackOutput)
	}
	info = InfoOf(vm.LOG2)
	if info.StackInput != 4 || info.StackOutput != 0 || !info.ExternalEffect {
		t.Fatalf("LOG2 = %+v, want in=4 out=0 effect=true", info)
	}
}

func TestOrXorDistinctCodes(t *testing.T) {
	if vm.OR == vm.XOR {
		t.Fatal("OR and XOR must be distinct opcodes (0x17 vs 0x18)")
	}
	if vm.OR != 0x17 || vm.XOR != 0x18 {
		t.Fatalf("OR=%x XOR=%x, want 17/18", byte(vm.OR), byte(vm.XOR))
	}
}

func TestFoldLtGtUseBothOperands(t *testing.T) {
	a := uint256.NewInt(3)
	b := uint256.NewInt(5)
	lt, ok := Fold(vm.LT, []*uint256.Int{a, b})
	if !ok || lt.Uint64() != 1 {
		t.Fatalf("3 < 5 should fold to 1, got %v ok=%v", lt, ok)
	}
	gt, ok := Fold(vm.GT, []*uint256.Int{a, b})
	if !ok || gt.Uint64() != 0 {
		t.Fatalf("3 > 5 should fold to 0, got %v ok=%v", gt, ok)
	}
}

func TestFoldAdd(t *testing.T) {
	a := uint256.NewInt(2)
	b := uint256.NewInt(40)
	sum, ok := Fold(vm.ADD, []*uint256.Int{a, b})
	if !ok || sum.Uint64() != 42 {
		t.Fatalf("2+40 should fold to 42, got %v ok=%v", sum, ok)
	}
}
