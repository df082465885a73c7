package symbolic

import (
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/opcode"
)

// Block is the symbolic summary of one straight-line vopcode sequence:
// the stack it leaves behind (expressed in terms of the caller-supplied
// Arg placeholders and the values it read from the block's own PUSHes
// and computations), the ordered list of external Effects it produced,
// and how many values it needed the caller to have already pushed
// (NArgs).
type Block struct {
	Stack   []*Expression // index 0 = bottom of stack, last index = top
	Effects []*Effect
	NArgs   int
}

func NewBlock() *Block { return &Block{} }

// NOutputs is the number of values this block leaves on the stack.
func (b *Block) NOutputs() int { return len(b.Stack) }

// Delta is the net stack height change: NOutputs - NArgs.
func (b *Block) Delta() int { return len(b.Stack) - b.NArgs }

// FinalEffect returns the block's last Effect, but only if that effect's
// opcode is a jump or an exit -- i.e. only if it actually determines
// where control goes next. Everything else (MSTORE, LOG, ...) never
// changes control flow, so it is not a "final" effect even if it
// happens to be last in program order (which it always is, since
// jump/exit opcodes always end their block).
func (b *Block) FinalEffect() *Effect {
	if len(b.Effects) == 0 {
		return nil
	}
	last := b.Effects[len(b.Effects)-1]
	if opcode.IsExiting(last.Op) || opcode.IsJump(last.Op) {
		return last
	}
	return nil
}

// fillPlaceholders grows the stack, by pushing fresh Arg placeholders at
// the *bottom*, until it has at least n elements. Each placeholder
// pushed represents one more value this block must read from whatever
// pushed values its caller already has on the stack.
func (b *Block) fillPlaceholders(n int) {
	for len(b.Stack) < n {
		b.NArgs++
		b.Stack = append([]*Expression{NewArg(b.NArgs)}, b.Stack...)
	}
}

func (b *Block) pop() *Expression {
	n := len(b.Stack)
	e := b.Stack[n-1]
	b.Stack = b.Stack[:n-1]
	return e
}

func (b *Block) push(e *Expression) { b.Stack = append(b.Stack, e) }

// Peek returns the current top of stack without popping it.
func (b *Block) Peek() *Expression { return b.Stack[len(b.Stack)-1] }

// dup duplicates the element `depth` positions from the top (1-indexed,
// so depth=1 duplicates the top itself), pushing a new reference to the
// same shared Expression.
func (b *Block) dup(depth int) {
	b.fillPlaceholders(depth)
	n := len(b.Stack)
	b.push(b.Stack[n-depth])
}

// swap exchanges the top of stack with the element `depth+1` positions
// from the top.
func (b *Block) swap(depth int) {
	b.fillPlaceholders(depth + 1)
	n := len(b.Stack)
	b.Stack[n-1], b.Stack[n-1-depth] = b.Stack[n-1-depth], b.Stack[n-1]
}

// Apply executes one vopcode against the block's working stack,
// updating Stack, Effects and NArgs in place. This is spec.md section
// 4.2's core algorithm.
func (b *Block) Apply(v bytecode.Vopcode) {
	op := v.Opcode
	b.fillPlaceholders(opcode.StackInput(op))

	switch {
	case opcode.IsPush(op):
		b.push(NewBytes(v.Value))
	case opcode.IsDup(op):
		b.dup(opcode.DupDepth(op))
	case opcode.IsSwap(op):
		b.swap(opcode.SwapDepth(op))
	case opcode.IsPop(op):
		b.pop()
	default:
		n := opcode.StackInput(op)
		args := make([]*Expression, n)
		for i := 0; i < n; i++ {
			args[i] = b.pop()
		}

		var origin *Effect
		if opcode.HasExternalEffect(op) {
			eff := &Effect{Op: op, Args: args}
			b.Effects = append(b.Effects, eff)
			origin = eff
		}

		if out := opcode.StackOutput(op); out > 0 {
			b.push(NewCompose(op, args, origin))
		}
	}
}

// FromVopcodes builds the symbolic summary of an entire block in one
// pass, starting from an empty working stack.
func FromVopcodes(vs []bytecode.Vopcode) *Block {
	b := NewBlock()
	for _, v := range vs {
		b.Apply(v)
	}
	return b
}
