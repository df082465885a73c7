// Package opcodeflow implements spec.md component H: converting a
// skeleton into a {label -> Function} table of nested opcode-level
// scopes, with stack arity aggregated alongside the raw vopcodes and
// secondary functions that contain a loop inlined back into their call
// sites. internal/varflow builds its variable-level view on top of this
// package's output.
package opcodeflow

import (
	"fmt"
	"strings"

	"github.com/meppent/evmdecomp/internal/bytecode"
)

// MainLabel is the function table key reserved for the contract's entry
// point; every other function's label is derived by hashing the block
// it starts at, so MainLabel is fixed at the maximum representable
// value to keep it out of that range in practice.
const MainLabel uint64 = ^uint64(0)

// ScopeKind discriminates the shape of a Scope, mirroring
// internal/skeleton.ScopeKind but with Block scopes already aggregated
// into Instructions and the Function/Junction split collapsed into a
// single FunctionCall (the callee's own shape no longer matters once
// it has its own entry in the Flow's function table).
type ScopeKind int

const (
	ScopeInstructions ScopeKind = iota
	ScopeFunctionCall
	ScopeFunctionReturn
	ScopeLoop
	ScopeLoopContinue
	ScopeCondition
	ScopePanic
	ScopeEmpty
)

// Scope is one node of a function's body.
type Scope struct {
	Kind ScopeKind

	Instructions    Instructions // ScopeInstructions
	CallLabel       uint64       // ScopeFunctionCall, ScopeFunctionReturn
	LoopLabel       int          // ScopeLoop, ScopeLoopContinue
	InstructionsIfTrue  []Scope  // ScopeCondition
	InstructionsIfFalse []Scope  // ScopeCondition
}

// Instructions is a run of vopcodes executed straight through (no
// branch, no call), aggregated from one or more consecutive skeleton
// Block scopes, with the combined stack arity of the whole run.
type Instructions struct {
	Code          []bytecode.Vopcode
	NStackInputs  int
	NStackOutputs int
}

func (i Instructions) lastVopcode() bytecode.Vopcode { return i.Code[len(i.Code)-1] }

// Function is one entry of a Flow's function table: a label, the
// arity it presents to its callers, and its body. NOutputs is nil
// exactly when nothing after the body can run: it ends the contract,
// panics, or calls a function that does (see arityUntilEnd). Junctions
// go through the same computation as every other entry.
type Function struct {
	Label    uint64
	NInputs  int
	NOutputs *int
	Content  []Scope
}

// IsMain reports whether this is the contract's entry-point function.
func (f *Function) IsMain() bool { return f.Label == MainLabel }

// Flow is the full function table produced from a skeleton.
type Flow struct {
	Functions map[uint64]*Function
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeInstructions:
		return fmt.Sprintf("instructions (in=%d out=%d, %d vopcodes)", s.Instructions.NStackInputs, s.Instructions.NStackOutputs, len(s.Instructions.Code))
	case ScopeFunctionCall:
		return fmt.Sprintf("call fn_%#x()", s.CallLabel)
	case ScopeFunctionReturn:
		return fmt.Sprintf("return fn_%#x", s.CallLabel)
	case ScopeLoop:
		return fmt.Sprintf("start loop %d", s.LoopLabel)
	case ScopeLoopContinue:
		return fmt.Sprintf("continue loop %d", s.LoopLabel)
	case ScopeCondition:
		var b strings.Builder
		b.WriteString("if:\n")
		b.WriteString(indent(scopesToString(s.InstructionsIfTrue)))
		b.WriteString("else:\n")
		b.WriteString(indent(scopesToString(s.InstructionsIfFalse)))
		return b.String()
	case ScopePanic:
		return "panic"
	case ScopeEmpty:
		return ""
	default:
		return ""
	}
}

func scopesToString(scopes []Scope) string {
	var b strings.Builder
	for _, s := range scopes {
		b.WriteString(s.String())
		b.WriteString("\n")
	}
	return b.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n") + "\n"
}

func (s Scope) isLoop() bool         { return s.Kind == ScopeLoop }
func (s Scope) isLoopContinue() bool { return s.Kind == ScopeLoopContinue }
func (s Scope) isFunctionReturn() bool { return s.Kind == ScopeFunctionReturn }

func (s Scope) equal(o Scope) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case ScopeFunctionCall, ScopeFunctionReturn:
		return s.CallLabel == o.CallLabel
	case ScopeLoop, ScopeLoopContinue:
		return s.LoopLabel == o.LoopLabel
	case ScopePanic, ScopeEmpty:
		return true
	case ScopeInstructions:
		return instructionsEqual(s.Instructions, o.Instructions)
	case ScopeCondition:
		return scopeListsEqual(s.InstructionsIfTrue, o.InstructionsIfTrue) &&
			scopeListsEqual(s.InstructionsIfFalse, o.InstructionsIfFalse)
	default:
		return false
	}
}

func instructionsEqual(a, b Instructions) bool {
	if a.NStackInputs != b.NStackInputs || a.NStackOutputs != b.NStackOutputs || len(a.Code) != len(b.Code) {
		return false
	}
	for i := range a.Code {
		if !vopcodeEqual(a.Code[i], b.Code[i]) {
			return false
		}
	}
	return true
}

func vopcodeEqual(a, b bytecode.Vopcode) bool {
	if a.Opcode != b.Opcode || a.PC != b.PC || a.IsLast != b.IsLast {
		return false
	}
	if (a.Value == nil) != (b.Value == nil) {
		return false
	}
	if a.Value == nil {
		return true
	}
	return a.Value.Cmp(b.Value) == 0
}

func scopeListsEqual(a, b []Scope) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}
