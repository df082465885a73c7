// Package block implements spec.md component B: partitioning a decoded
// vopcode stream into straight-line blocks at jump/exit/JUMPDEST
// boundaries, and attaching each block's symbolic.Block summary.
package block

import (
	vm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/opcode"
	"github.com/meppent/evmdecomp/internal/symbolic"
)

// Block is one straight-line run of vopcodes together with the symbolic
// summary of its stack effect. Blocks are immutable and safe to share by
// pointer; internal/cfg builds the node graph on top of them, duplicating
// a Block's DuplicationInfo chain rather than ever mutating Code.
type Block struct {
	Code           []bytecode.Vopcode
	Symbolic       *symbolic.Block
	DuplicationInfo *DuplicationInfo
}

// DuplicationInfo records that this Block is the Nth copy produced by
// internal/functions duplicating an ancestor block's code to give a
// candidate function a private, context-free instance of its body.
type DuplicationInfo struct {
	Index    int
	Ancestor *Block
}

func newBlock(code []bytecode.Vopcode, dup *DuplicationInfo) *Block {
	return &Block{
		Code:            code,
		Symbolic:        symbolic.FromVopcodes(code),
		DuplicationInfo: dup,
	}
}

// Duplicate returns a fresh Block over the same code, stamped as the
// index'th duplicate of ancestor. Used by internal/functions when it
// gives a detected function candidate a private copy of a shared block.
func (b *Block) Duplicate(index int, ancestor *Block) *Block {
	return newBlock(b.Code, &DuplicationInfo{Index: index, Ancestor: ancestor})
}

func (b *Block) PCStart() int { return b.Code[0].PC }
func (b *Block) PCEnd() int   { return b.Code[len(b.Code)-1].PC }

// NextPCStart is the program counter immediately following this block's
// last instruction -- the fall-through successor for every block that
// does not end in an unconditional JUMP or an exiting opcode.
func (b *Block) NextPCStart() int {
	last := b.Code[len(b.Code)-1]
	next, ok := last.NextPC()
	if !ok {
		return last.PC
	}
	return next
}

func (b *Block) NArgs() int { return b.Symbolic.NArgs }

// FinalEffect is the block's last Effect, if that effect is a jump or an
// exiting opcode -- i.e. the effect that determines what happens after
// this block, if anything does.
func (b *Block) FinalEffect() *symbolic.Effect { return b.Symbolic.FinalEffect() }

// HasDeterministicEnd reports whether this block's last instruction
// resolves to a statically known set of successors: anything that is not
// a JUMP/JUMPI (falls through, or exits), or a JUMP/JUMPI whose
// destination is a literal or a foldable compose expression.
func (b *Block) HasDeterministicEnd() bool {
	last := b.Code[len(b.Code)-1]
	if !opcode.IsJump(last.Opcode) {
		return true
	}
	fe := b.FinalEffect()
	if fe == nil || len(fe.Args) == 0 {
		return false
	}
	_, ok := fe.Args[0].ComputeValue()
	return ok
}

// Partition splits a decoded vopcode stream into blocks. A block may only
// start at program start, at a JUMPDEST, or immediately after a JUMPI
// (JUMPI's fall-through side). Once a block ends via an exiting opcode or
// an unconditional JUMP, the bytes up to the next JUMPDEST are
// unreachable filler and form no block at all; they are skipped rather
// than opened into a spurious block.
func Partition(code []bytecode.Vopcode) []*Block {
	var blocks []*Block
	start := 0
	open := true
	for i, v := range code {
		if !open {
			if v.Opcode != vm.JUMPDEST {
				continue
			}
			open = true
			start = i
		}

		isJumpi := v.Opcode == vm.JUMPI
		boundary := v.Opcode == vm.JUMP || opcode.IsExiting(v.Opcode)
		nextIsJumpdest := i+1 < len(code) && code[i+1].Opcode == vm.JUMPDEST
		endsHere := boundary || v.IsLast || isJumpi || nextIsJumpdest

		if endsHere {
			blocks = append(blocks, newBlock(code[start:i+1], nil))
			start = i + 1
			open = isJumpi
		}
	}
	if open && start < len(code) {
		blocks = append(blocks, newBlock(code[start:], nil))
	}
	return blocks
}

// ByPCStart indexes a block slice by its starting program counter, the
// key internal/cfg uses to find the block a jump destination lands in.
func ByPCStart(blocks []*Block) map[int]*Block {
	m := make(map[int]*Block, len(blocks))
	for _, b := range blocks {
		m[b.PCStart()] = b
	}
	return m
}
