// Package cfg implements spec.md component D: building the control-flow
// graph by symbolically executing each block over a coarse stack
// abstraction (SimpleValue), interning nodes by (pcStart, context hash) so
// that two paths reaching the same block with the same abstract stack
// share a node, and resolving jump destinations down to concrete program
// counters wherever the destination expression can be folded to a
// constant.
package cfg

import (
	"github.com/holiman/uint256"

	vm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/opcode"
	"github.com/meppent/evmdecomp/internal/symbolic"
)

// SimpleValue is the coarse stack abstraction used for node identity:
// a block's output stack is compared value-by-value, but only literal
// bytes are distinguished from each other -- anything computed from a
// non-literal input collapses to Other.
type SimpleValue struct {
	IsBytes bool
	Bytes   *uint256.Int
}

func BytesValue(v *uint256.Int) SimpleValue { return SimpleValue{IsBytes: true, Bytes: v} }
func OtherValue() SimpleValue               { return SimpleValue{} }

func (v SimpleValue) Equal(o SimpleValue) bool {
	if v.IsBytes != o.IsBytes {
		return false
	}
	if !v.IsBytes {
		return true
	}
	return v.Bytes.Eq(o.Bytes)
}

// StateKind is what a block does after it finishes running.
type StateKind int

const (
	Running StateKind = iota
	Stopped
	Jumping
)

// Context is the abstract machine state threaded between nodes: the
// coarse stack plus what happens next (fall through, halt, or jump to one
// or more destinations -- JUMPI lists its fall-through successor, plus
// its jump target when that target resolves to a constant).
type Context struct {
	Stack        []SimpleValue
	Kind         StateKind
	Destinations []int
}

func NewContext() *Context { return &Context{Kind: Running} }

func (c *Context) clone() *Context {
	stack := make([]SimpleValue, len(c.Stack))
	copy(stack, c.Stack)
	return &Context{Stack: stack, Kind: c.Kind, Destinations: append([]int(nil), c.Destinations...)}
}

func (c *Context) pop() SimpleValue {
	n := len(c.Stack)
	v := c.Stack[n-1]
	c.Stack = c.Stack[:n-1]
	return v
}

func (c *Context) push(v SimpleValue) { c.Stack = append(c.Stack, v) }

// Equal reports whether two contexts describe the same abstract state,
// the equality used to decide whether two control-flow paths reaching
// the same block can share a single node.
func (c *Context) Equal(o *Context) bool {
	if c.Kind != o.Kind || len(c.Stack) != len(o.Stack) {
		return false
	}
	for i := range c.Stack {
		if !c.Stack[i].Equal(o.Stack[i]) {
			return false
		}
	}
	return true
}

// Apply runs b against initial, producing the context in effect after b's
// last instruction: the resulting coarse stack, and whether control falls
// through, halts, or jumps (and to where).
//
// An initial context with fewer values on the stack than b needs means
// this path never actually reaches b with enough arguments -- the caller
// must treat it as dead. The underflow guard below never panics.
func Apply(b *block.Block, initial *Context) *Context {
	final := initial.clone()

	if b.NArgs() > len(initial.Stack) {
		final.Kind = Stopped
		return final
	}

	args := make([]SimpleValue, b.NArgs())
	for i := 0; i < b.NArgs(); i++ {
		args[i] = final.pop()
	}

	for _, expr := range b.Symbolic.Stack {
		final.push(simpleValueOf(expr, args))
	}

	final.Kind, final.Destinations = computeFinalState(b, args)
	return final
}

func simpleValueOf(expr *symbolic.Expression, args []SimpleValue) SimpleValue {
	switch expr.Kind {
	case symbolic.KindBytes:
		return BytesValue(expr.Bytes)
	case symbolic.KindArg:
		return args[expr.Arg-1]
	default:
		return OtherValue()
	}
}

// computeFinalState mirrors block.rs's compute_final_state, with one
// deliberate deviation: where the original panics or calls .expect() on
// an unresolvable jump destination, this silently drops that
// destination instead (spec.md section 7).
func computeFinalState(b *block.Block, args []SimpleValue) (StateKind, []int) {
	fe := b.FinalEffect()
	if fe == nil {
		if opcode.IsExiting(b.Code[len(b.Code)-1].Opcode) {
			return Stopped, nil
		}
		return Running, nil
	}
	if !opcode.IsJump(fe.Op) {
		return Stopped, nil
	}

	var dests []int
	if fe.Op == vm.JUMPI {
		dests = append(dests, b.NextPCStart())
	}
	if len(fe.Args) == 0 {
		return Jumping, dests
	}
	switch fe.Args[0].Kind {
	case symbolic.KindBytes:
		dests = append(dests, int(fe.Args[0].Bytes.Uint64()))
	case symbolic.KindArg:
		av := args[fe.Args[0].Arg-1]
		if av.IsBytes {
			dests = append(dests, int(av.Bytes.Uint64()))
		}
		// else: destination came from outside this block and was never a
		// literal on entry -- dropped, per spec.md section 7.
	default: // compose
		if v, ok := fe.Args[0].ComputeValue(); ok {
			dests = append(dests, int(v.Uint64()))
		}
		// else: dropped, per spec.md section 7.
	}
	return Jumping, dests
}
