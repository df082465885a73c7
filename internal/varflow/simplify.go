package varflow

// Simplify runs the canonicalization pipeline over a freshly built
// Flow: fold single-use/duplicable variables into their use sites,
// drop the scopes and lines that leaves behind, inline functions too
// small to be worth keeping as their own symbol, then renumber what's
// left starting from zero. Order matters: small-function inlining
// must run before the renames, since inlining only deletes functions
// and splices content -- run after renaming it would have to rebuild
// the rename tables from scratch for no benefit. Grounded on
// with_variables/flow_with_vars.rs's ExecutionFlowWithVars::simplify.
func (f *Flow) Simplify() {
	f.simplifyVars()
	f.removeEmptyElements()
	f.removeSmallFunctions()
	f.renameVariablesStartingFromZero()
	f.renameFunctionsStartingFromZero()
}

// simplifyVars folds every variable that is assigned exactly once and
// holds a small, side-effect-free value into each of its use sites,
// blanking the assignment itself. Grounded on
// with_variables/simplify/simplify_vars.rs's simplify_vars_in_scopes.
func (f *Flow) simplifyVars() {
	for _, fn := range f.Functions {
		simplifyVarsInScopes(fn.Content)
	}
}

func simplifyVarsInScopes(scopes []VarScope) {
	counts := enumerateVarInitializations(scopes)
	duplicable := map[Variable]bool{}
	for v, n := range counts {
		if n <= 1 {
			duplicable[v] = true
		}
	}
	toReplace := map[Variable]Value{}
	simplifyVarsInScopesWith(scopes, duplicable, toReplace)
}

func simplifyVarsInScopesWith(scopes []VarScope, duplicable map[Variable]bool, toReplace map[Variable]Value) {
	for i := range scopes {
		s := &scopes[i]
		switch s.Kind {
		case VarScopeInstructions:
			for j := range s.Lines {
				l := &s.Lines[j]
				switch l.Kind {
				case LineAssignment:
					l.AssignedValue = replaceVarsInValue(l.AssignedValue, toReplace)
					if l.HasReceivingVar && duplicable[l.ReceivingVar] && shouldValueBeDuplicated(l.AssignedValue, duplicable) {
						toReplace[l.ReceivingVar] = l.AssignedValue
						*l = Line{Kind: LineEmpty}
					}
				case LineIf:
					l.Condition = replaceVarsInValue(l.Condition, toReplace)
				}
			}
		case VarScopeFunctionCall:
			s.CallArguments = replaceVarsInValues(s.CallArguments, toReplace)
		case VarScopeFunctionReturn:
			s.ReturnedValues = replaceVarsInValues(s.ReturnedValues, toReplace)
		case VarScopeCondition:
			simplifyVarsInScopesWith(s.InstructionsIfTrue, duplicable, toReplace)
			simplifyVarsInScopesWith(s.InstructionsIfFalse, duplicable, toReplace)
		}
	}
}

// removeEmptyElements drops every Line::Empty left behind by folding
// and every scope that became entirely empty as a result -- except a
// Condition, which is kept even if both its arms end up empty (an if
// with an empty body is faithfully dead code, not a reason to change
// control flow). Grounded on
// with_variables/simplify/simplify_vars.rs's remove_empty_elements_in_scopes.
func (f *Flow) removeEmptyElements() {
	for _, fn := range f.Functions {
		fn.Content = removeEmptyElementsInScopes(fn.Content)
	}
}

func removeEmptyElementsInScopes(scopes []VarScope) []VarScope {
	kept := scopes[:0]
	for i := range scopes {
		s := scopes[i]
		switch s.Kind {
		case VarScopeInstructions:
			lines := s.Lines[:0]
			for _, l := range s.Lines {
				if !l.isEmpty() {
					lines = append(lines, l)
				}
			}
			s.Lines = lines
		case VarScopeCondition:
			s.InstructionsIfTrue = removeEmptyElementsInScopes(s.InstructionsIfTrue)
			s.InstructionsIfFalse = removeEmptyElementsInScopes(s.InstructionsIfFalse)
		}
		if !s.isEmpty() {
			kept = append(kept, s)
		}
	}
	return kept
}

// renameVariablesStartingFromZero renumbers each function's variables
// independently, in first-initialization order, so the printed output
// doesn't carry gaps or cross-function collisions left by the
// allocator/folding passes. Grounded on
// with_variables/simplify/simplify_vars.rs's
// rename_variables_starting_from_zero_in_scopes.
func (f *Flow) renameVariablesStartingFromZero() {
	for _, fn := range f.Functions {
		ordered := getVarsOrderedByDepth(fn.Content)
		mapping := map[Variable]Variable{}
		for i, v := range ordered {
			mapping[v] = Variable{Alias: i}
		}
		renameVariablesInScopes(fn.Content, mapping)
	}
}

// renameFunctionsStartingFromZero renumbers every non-main function
// label to its depth-first call order starting from main, dropping
// any function the traversal never reaches. Grounded on
// with_variables/simplify/rename.rs's rename_functions_starting_from_zero.
func (f *Flow) renameFunctionsStartingFromZero() {
	ordered := getFunctionsOrderedByDepth(f)
	mapping := map[uint64]uint64{mainLabel: mainLabel}
	for i, label := range ordered {
		mapping[label] = uint64(i)
	}
	f.renameFunctionLabels(mapping)
}
