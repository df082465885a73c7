// Package symbolic implements spec.md component C: summarizing a
// straight-line block of vopcodes as a symbolic stack effect, expressed
// over SymbolicExpression values shared by pointer -- Go's GC makes
// reference-counting machinery unnecessary for that sharing.
package symbolic

import (
	"github.com/holiman/uint256"

	"github.com/meppent/evmdecomp/internal/opcode"
)

// Kind discriminates the SymbolicExpression tagged union.
type Kind int

const (
	KindBytes Kind = iota
	KindArg
	KindCompose
)

// Effect records one externally-visible operation (storage, memory,
// calls, logs, control flow) in the order it executes within a block.
type Effect struct {
	Op   opcode.OpCode
	Args []*Expression
}

// Expression is the symbolic stack-value union: a literal, a reference
// to a value supplied by the block's caller, or the result of applying
// an opcode to other expressions. Expressions are immutable once built
// and safe to share by pointer across multiple stack slots and blocks.
type Expression struct {
	Kind Kind

	Bytes *uint256.Int // valid iff Kind == KindBytes
	Arg   int          // valid iff Kind == KindArg; 1-indexed

	Op     opcode.OpCode // valid iff Kind == KindCompose
	Args   []*Expression // valid iff Kind == KindCompose
	Origin *Effect       // the Effect this expression's value came from, if any
}

func NewBytes(v *uint256.Int) *Expression { return &Expression{Kind: KindBytes, Bytes: v} }
func NewArg(index int) *Expression        { return &Expression{Kind: KindArg, Arg: index} }
func NewCompose(op opcode.OpCode, args []*Expression, origin *Effect) *Expression {
	return &Expression{Kind: KindCompose, Op: op, Args: args, Origin: origin}
}

// Equal reports structural equality.
func (e *Expression) Equal(other *Expression) bool {
	if e == other {
		return true
	}
	if e == nil || other == nil || e.Kind != other.Kind {
		return false
	}
	switch e.Kind {
	case KindBytes:
		return e.Bytes.Eq(other.Bytes)
	case KindArg:
		return e.Arg == other.Arg
	case KindCompose:
		if e.Op != other.Op || len(e.Args) != len(other.Args) {
			return false
		}
		for i := range e.Args {
			if !e.Args[i].Equal(other.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ComputeValue folds a (possibly nested) expression down to a literal
// when every leaf it depends on is itself a literal. It returns
// (nil, false) the moment it reaches an Arg (a value only the caller
// knows) or an opcode internal/opcode.Fold does not implement -- the
// caller (internal/cfg, resolving a computed jump target) must then drop
// that path rather than guess, per spec.md section 7.
func (e *Expression) ComputeValue() (*uint256.Int, bool) {
	switch e.Kind {
	case KindBytes:
		return e.Bytes, true
	case KindArg:
		return nil, false
	case KindCompose:
		args := make([]*uint256.Int, len(e.Args))
		for i, a := range e.Args {
			v, ok := a.ComputeValue()
			if !ok {
				return nil, false
			}
			args[i] = v
		}
		return opcode.Fold(e.Op, args)
	default:
		return nil, false
	}
}
