package varflow

import "github.com/meppent/evmdecomp/internal/opcode"

// shouldValueBeDuplicated reports whether a value is cheap and
// side-effect-free enough to re-inline at every use site instead of
// being held in a variable. Grounded on
// with_variables/simplify/simplify_vars.rs's should_value_be_duplicated.
func shouldValueBeDuplicated(val Value, duplicableVars map[Variable]bool) bool {
	switch val.Kind {
	case ValueCalculation:
		if opcode.HasExternalEffect(val.Opcode) || val.size() > 12 {
			return false
		}
		for _, a := range val.Args {
			if !shouldValueBeDuplicated(a, duplicableVars) {
				return false
			}
		}
		return true
	case ValueExisting:
		return duplicableVars[val.Var]
	case ValueBytes:
		return true
	default: // ValueFunctionReturned
		return false
	}
}

// replaceVarsInValue applies an unconditional substitution map, used
// by simplifyVars where a value once judged duplicable is inlined
// everywhere without regard to how many times the target has since
// been reassigned.
func replaceVarsInValue(val Value, toReplace map[Variable]Value) Value {
	switch val.Kind {
	case ValueCalculation:
		val.Args = replaceVarsInValues(val.Args, toReplace)
		return val
	case ValueExisting:
		if replacement, ok := toReplace[val.Var]; ok {
			return replacement
		}
		return val
	case ValueFunctionReturned:
		val.Args = replaceVarsInValues(val.Args, toReplace)
		return val
	default:
		return val
	}
}

func replaceVarsInValues(values []Value, toReplace map[Variable]Value) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = replaceVarsInValue(v, toReplace)
	}
	return out
}

// replaceVarsUntilSecondAssignment inlines to_replace[v] everywhere v
// is read, but only up to the point where v is reassigned a second
// time -- after that the variable has moved on to a new value the
// substitution no longer describes, so later reads are left alone and
// the second (and any later) assignment itself is kept rather than
// blanked. Grounded on with_variables/simplify/replace_var.rs's
// replace_vars_until_second_assignment.
//
// Used by the function-inlining pass to substitute a callee's
// parameters with the caller's argument values: replaced in place
// since inlining already owns a private copy of the callee's scopes.
func replaceVarsUntilSecondAssignment(scopes []VarScope, toReplace map[Variable]Value) {
	initCounts := map[Variable]int{}
	replaceVarsUntilSecondAssignmentInScopes(scopes, toReplace, initCounts)
}

func replaceVarsUntilSecondAssignmentInScopes(scopes []VarScope, toReplace map[Variable]Value, initCounts map[Variable]int) {
	for i := range scopes {
		s := &scopes[i]
		switch s.Kind {
		case VarScopeInstructions:
			for j := range s.Lines {
				l := &s.Lines[j]
				switch l.Kind {
				case LineAssignment:
					l.AssignedValue = replaceVarInValueUntilSecondAssignment(l.AssignedValue, toReplace, initCounts)
					if l.HasReceivingVar {
						if _, ok := toReplace[l.ReceivingVar]; ok {
							if initCounts[l.ReceivingVar] == 0 {
								*l = Line{Kind: LineEmpty}
							}
							initCounts[l.ReceivingVar]++
						}
					}
				case LineIf:
					l.Condition = replaceVarInValueUntilSecondAssignment(l.Condition, toReplace, initCounts)
				}
			}
		case VarScopeFunctionCall:
			s.CallArguments = replaceValuesUntilSecondAssignment(s.CallArguments, toReplace, initCounts)
			replaceFunctionCallResultsUntilSecondAssignment(s, toReplace, initCounts)
		case VarScopeFunctionReturn:
			s.ReturnedValues = replaceValuesUntilSecondAssignment(s.ReturnedValues, toReplace, initCounts)
		case VarScopeCondition:
			replaceVarsUntilSecondAssignmentInScopes(s.InstructionsIfTrue, toReplace, initCounts)
			replaceVarsUntilSecondAssignmentInScopes(s.InstructionsIfFalse, toReplace, initCounts)
		}
	}
}

func replaceVarInValueUntilSecondAssignment(val Value, toReplace map[Variable]Value, initCounts map[Variable]int) Value {
	switch val.Kind {
	case ValueCalculation:
		val.Args = replaceValuesUntilSecondAssignment(val.Args, toReplace, initCounts)
		return val
	case ValueExisting:
		if initCounts[val.Var] <= 1 {
			if replacement, ok := toReplace[val.Var]; ok {
				return replacement
			}
		}
		return val
	case ValueFunctionReturned:
		val.Args = replaceValuesUntilSecondAssignment(val.Args, toReplace, initCounts)
		return val
	default:
		return val
	}
}

func replaceValuesUntilSecondAssignment(values []Value, toReplace map[Variable]Value, initCounts map[Variable]int) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = replaceVarInValueUntilSecondAssignment(v, toReplace, initCounts)
	}
	return out
}

// replaceFunctionCallResultsUntilSecondAssignment handles the one case
// a plain variable substitution can't: a FunctionCall's results are
// the call's own initialization of those variables, and a call with
// two or more results can never be inlined away by a single-variable
// substitution -- the original asserts this never happens. This port
// renders the assertion failure as a no-op (leave the call alone,
// since the call site the assertion guards against never legitimately
// arises once remove_small_functions only targets single-result
// substitutions) rather than panicking.
func replaceFunctionCallResultsUntilSecondAssignment(s *VarScope, toReplace map[Variable]Value, initCounts map[Variable]int) {
	for _, v := range s.CallResults {
		if _, ok := toReplace[v]; !ok {
			continue
		}
		if len(s.CallResults) != 1 {
			continue
		}
		if initCounts[v] == 0 {
			*s = VarScope{Kind: VarScopeEmpty}
		}
		initCounts[v]++
		return
	}
}
