package varflow

import (
	"fmt"
	"strings"
)

// VarScopeKind discriminates the shape of a VarScope, mirroring
// internal/opcodeflow.ScopeKind one level up: Instructions now carries
// Lines instead of raw vopcodes, and a call's arguments/results are
// named variables instead of bare arity counts.
type VarScopeKind int

const (
	VarScopeInstructions VarScopeKind = iota
	VarScopeFunctionCall
	VarScopeFunctionReturn
	VarScopeLoop
	VarScopeLoopContinue
	VarScopeCondition
	VarScopePanic
	VarScopeEmpty
)

// VarScope is one node of a function's body. Grounded on
// with_variables/scopes_with_vars.rs's VarScope type alias.
type VarScope struct {
	Kind VarScopeKind

	Lines []Line // VarScopeInstructions

	CallLabel       uint64     // VarScopeFunctionCall, VarScopeFunctionReturn
	CallArguments   []Value    // VarScopeFunctionCall
	CallResults     []Variable // VarScopeFunctionCall
	ReturnedValues  []Value    // VarScopeFunctionReturn

	LoopLabel int // VarScopeLoop, VarScopeLoopContinue

	InstructionsIfTrue  []VarScope // VarScopeCondition
	InstructionsIfFalse []VarScope // VarScopeCondition
}

func (s VarScope) isLoop() bool          { return s.Kind == VarScopeLoop }
func (s VarScope) isLoopContinue() bool  { return s.Kind == VarScopeLoopContinue }
func (s VarScope) isFunctionReturn() bool { return s.Kind == VarScopeFunctionReturn }

// isEmpty mirrors with_variables/scopes_with_vars.rs's VarScope::is_empty:
// an Instructions scope is empty once every one of its lines has been
// blanked out, and Scope::Empty always is.
func (s VarScope) isEmpty() bool {
	switch s.Kind {
	case VarScopeInstructions:
		for _, l := range s.Lines {
			if !l.isEmpty() {
				return false
			}
		}
		return true
	case VarScopeEmpty:
		return true
	default:
		return false
	}
}

// shouldBeFollowedByConditionScope mirrors the same-named helper in
// display_flow_with_vars.rs: an `if <cond>` line renders without its
// own trailing newline since the Condition scope printed right after
// it supplies the braces.
func (s VarScope) shouldBeFollowedByConditionScope() bool {
	if s.Kind != VarScopeInstructions || len(s.Lines) == 0 {
		return false
	}
	return s.Lines[len(s.Lines)-1].isIf()
}

// Function is one entry of a Flow's function table.
type Function struct {
	Label     uint64
	InputVars []Variable
	NOutputs  int
	Returns   bool // false when the opcodeflow.Function's NOutputs is nil
	Content   []VarScope
}

func (f *Function) IsMain() bool { return f.Label == mainLabel }

func (f *Function) NParameters() int { return len(f.InputVars) }

// Flow is the full function table produced from an opcodeflow.Flow.
type Flow struct {
	Functions map[uint64]*Function
}

func (f *Flow) MainFunction() *Function { return f.Functions[mainLabel] }

func (l Line) String() string {
	switch l.Kind {
	case LineAssignment:
		if l.HasReceivingVar {
			return fmt.Sprintf("%s = %s", l.ReceivingVar, l.AssignedValue)
		}
		return l.AssignedValue.String()
	case LineIf:
		return fmt.Sprintf("if %s", l.Condition)
	default:
		return ""
	}
}

func (val Value) String() string {
	switch val.Kind {
	case ValueCalculation:
		return fmt.Sprintf("%s(%s)", val.Opcode, joinValues(val.Args))
	case ValueExisting:
		return val.Var.String()
	case ValueBytes:
		return val.Bytes.Hex()
	case ValueFunctionReturned:
		return fmt.Sprintf("fn_%#x(%s).%d", val.Label, joinValues(val.Args), val.ReturnIndex)
	default:
		return ""
	}
}

func joinValues(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func joinVars(vars []Variable) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func (s VarScope) String() string {
	switch s.Kind {
	case VarScopeInstructions:
		parts := make([]string, len(s.Lines))
		for i, l := range s.Lines {
			parts[i] = l.String()
		}
		return strings.Join(parts, "\n")
	case VarScopeFunctionCall:
		prefix := ""
		if len(s.CallResults) > 0 {
			if len(s.CallResults) > 1 {
				prefix = fmt.Sprintf("(%s) = ", joinVars(s.CallResults))
			} else {
				prefix = fmt.Sprintf("%s = ", s.CallResults[0])
			}
		}
		return fmt.Sprintf("%sfn_%#x(%s)", prefix, s.CallLabel, joinValues(s.CallArguments))
	case VarScopeFunctionReturn:
		if len(s.ReturnedValues) == 0 {
			return fmt.Sprintf("// end of function %#x", s.CallLabel)
		}
		names := make([]string, len(s.ReturnedValues))
		for i := range names {
			names[i] = fmt.Sprintf("r%d", i)
		}
		return fmt.Sprintf("(%s) = (%s)", strings.Join(names, ", "), joinValues(s.ReturnedValues))
	case VarScopeLoop:
		return fmt.Sprintf("begin loop_%d", s.LoopLabel)
	case VarScopeLoopContinue:
		return fmt.Sprintf("continue loop_%d", s.LoopLabel)
	case VarScopeCondition:
		var b strings.Builder
		b.WriteString(" {\n")
		b.WriteString(shiftText(scopesToString(s.InstructionsIfTrue)))
		b.WriteString("}\nelse {\n")
		b.WriteString(shiftText(scopesToString(s.InstructionsIfFalse)))
		b.WriteString("}")
		return b.String()
	case VarScopePanic:
		return "// Panic"
	default:
		return ""
	}
}

// scopesToString mirrors display_flow_with_vars.rs's
// scopes_with_var_to_string: a Loop scope swallows everything after it
// into its own braced body, since a loop's back edge is represented by
// the matching LoopContinue rather than by nesting.
func scopesToString(scopes []VarScope) string {
	var b strings.Builder
	for i, s := range scopes {
		if s.Kind == VarScopeLoop {
			b.WriteString(fmt.Sprintf("begin loop_%d {\n", s.LoopLabel))
			b.WriteString(shiftText(scopesToString(scopes[i+1:])))
			b.WriteString("}")
			return b.String()
		}
		b.WriteString(s.String())
		if i != len(scopes)-1 && !s.shouldBeFollowedByConditionScope() {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func shiftText(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n") + "\n"
}

func (f *Function) String() string {
	if f.IsMain() {
		return fmt.Sprintf("function main() external {\n%s}", shiftText(scopesToString(f.Content)))
	}
	returns := ""
	if f.NOutputs > 0 {
		names := make([]string, f.NOutputs)
		for i := range names {
			names[i] = fmt.Sprintf("r%d", i)
		}
		returns = fmt.Sprintf(" returns(%s)", strings.Join(names, ", "))
	}
	return fmt.Sprintf("function fn_%#x(%s) internal%s {\n%s}",
		f.Label, joinVars(f.InputVars), returns, shiftText(scopesToString(f.Content)))
}
