package varflow

// enumerateVarInitializations counts, for every variable referenced
// anywhere in a function's body, how many times it is (re)initialized
// there -- a variable that is only ever read (e.g. a parameter never
// reassigned locally) still gets an entry, with count 0. Grounded on
// with_variables/simplify/initialization_of_vars.rs's
// enumerate_var_initializations.
func enumerateVarInitializations(scopes []VarScope) map[Variable]int {
	counts := map[Variable]int{}
	findVarsUsedInScopes(scopes, counts)
	countVarInitializationsInScopes(scopes, counts)
	return counts
}

func findVarsUsedInScopes(scopes []VarScope, counts map[Variable]int) {
	use := func(v Variable) {
		if _, ok := counts[v]; !ok {
			counts[v] = 0
		}
	}
	for _, s := range scopes {
		switch s.Kind {
		case VarScopeInstructions:
			for _, l := range s.Lines {
				switch l.Kind {
				case LineAssignment:
					visitValueVars(l.AssignedValue, use)
					if l.HasReceivingVar {
						use(l.ReceivingVar)
					}
				case LineIf:
					visitValueVars(l.Condition, use)
				}
			}
		case VarScopeFunctionCall:
			for _, v := range s.CallArguments {
				visitValueVars(v, use)
			}
			for _, v := range s.CallResults {
				use(v)
			}
		case VarScopeFunctionReturn:
			for _, v := range s.ReturnedValues {
				visitValueVars(v, use)
			}
		case VarScopeCondition:
			findVarsUsedInScopes(s.InstructionsIfTrue, counts)
			findVarsUsedInScopes(s.InstructionsIfFalse, counts)
		}
	}
}

func countVarInitializationsInScopes(scopes []VarScope, counts map[Variable]int) {
	for _, s := range scopes {
		switch s.Kind {
		case VarScopeInstructions:
			for _, l := range s.Lines {
				if l.Kind == LineAssignment && l.HasReceivingVar {
					counts[l.ReceivingVar]++
				}
			}
		case VarScopeFunctionCall:
			for _, v := range s.CallResults {
				counts[v]++
			}
		case VarScopeCondition:
			countVarInitializationsInScopes(s.InstructionsIfTrue, counts)
			countVarInitializationsInScopes(s.InstructionsIfFalse, counts)
		}
	}
}
