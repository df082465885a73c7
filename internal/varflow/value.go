// Package varflow implements spec.md component I: lifting an
// internal/opcodeflow function table onto a variable-level view, where
// every stack slot is given a stable name instead of being addressed
// by depth, and simplifying the result (constant/duplicate folding,
// dead-scope removal, small-function inlining, canonical renaming).
package varflow

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/meppent/evmdecomp/internal/opcode"
)

// Variable is a stable name for one stack slot's value, assigned the
// first time it is produced. Two variables compare equal iff they name
// the same slot.
type Variable struct {
	Alias int
}

func (v Variable) String() string { return fmt.Sprintf("var_%d", v.Alias) }

// ValueKind discriminates the shape of a Value.
type ValueKind int

const (
	// ValueCalculation is an opcode applied to its (already resolved)
	// argument values -- a node of an expression tree, not yet folded
	// into a variable.
	ValueCalculation ValueKind = iota
	// ValueExisting references a variable already on the stack.
	ValueExisting
	// ValueBytes is a literal pushed onto the stack.
	ValueBytes
	// ValueFunctionReturned references one of the values a function
	// call produced, left unresolved to a plain variable. No code in
	// this package constructs a value of this kind; the passes that
	// walk values accept it all the same.
	ValueFunctionReturned
)

// Value is an expression that can be assigned to a variable or used as
// a branch condition. Grounded on
// with_variables/incorporate_variables.rs's Value enum.
type Value struct {
	Kind ValueKind

	Opcode opcode.OpCode // ValueCalculation
	Args   []Value       // ValueCalculation, ValueFunctionReturned (as Arguments)

	Var Variable // ValueExisting

	Bytes *uint256.Int // ValueBytes

	Label       uint64 // ValueFunctionReturned
	ReturnIndex int    // ValueFunctionReturned
}

func existing(v Variable) Value { return Value{Kind: ValueExisting, Var: v} }

func valuesFromVars(vars []Variable) []Value {
	values := make([]Value, len(vars))
	for i, v := range vars {
		values[i] = existing(v)
	}
	return values
}

// size is the number of nodes in the value's expression tree, used by
// the duplicate-folding simplification to bound how much may be
// re-inlined at every use site.
func (val Value) size() int {
	switch val.Kind {
	case ValueCalculation:
		n := 1
		for _, a := range val.Args {
			n += a.size()
		}
		return n
	case ValueFunctionReturned:
		n := 1
		for _, a := range val.Args {
			n += a.size()
		}
		return n
	default:
		return 1
	}
}

// LineKind discriminates the shape of a Line.
type LineKind int

const (
	LineAssignment LineKind = iota
	LineIf
	LineEmpty
)

// Line is one statement of an Instructions scope. Grounded on
// with_variables/incorporate_variables.rs's Line enum.
type Line struct {
	Kind LineKind

	HasReceivingVar bool     // LineAssignment
	ReceivingVar    Variable // LineAssignment, valid iff HasReceivingVar
	AssignedValue   Value    // LineAssignment

	Condition Value // LineIf
}

func (l Line) isEmpty() bool { return l.Kind == LineEmpty }
func (l Line) isIf() bool    { return l.Kind == LineIf }
