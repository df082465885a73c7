package varflow

// renameVariables substitutes every variable referenced anywhere in
// the table through mapping (vars absent from mapping are left
// unchanged). Grounded on with_variables/simplify/rename.rs's
// rename_variables_in_scopes, lifted to the whole Flow since every
// function in the table needs the same substitution applied.
func (f *Flow) renameVariables(mapping map[Variable]Variable) {
	if len(mapping) == 0 {
		return
	}
	for _, fn := range f.Functions {
		for i, v := range fn.InputVars {
			fn.InputVars[i] = renameVar(v, mapping)
		}
		renameVariablesInScopes(fn.Content, mapping)
	}
}

func renameVar(v Variable, mapping map[Variable]Variable) Variable {
	if renamed, ok := mapping[v]; ok {
		return renamed
	}
	return v
}

func renameVarInValue(val Value, mapping map[Variable]Variable) Value {
	switch val.Kind {
	case ValueCalculation:
		val.Args = renameVarsInValues(val.Args, mapping)
	case ValueExisting:
		val.Var = renameVar(val.Var, mapping)
	case ValueFunctionReturned:
		val.Args = renameVarsInValues(val.Args, mapping)
	}
	return val
}

func renameVarsInValues(values []Value, mapping map[Variable]Variable) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = renameVarInValue(v, mapping)
	}
	return out
}

func renameVariablesInScopes(scopes []VarScope, mapping map[Variable]Variable) {
	for i := range scopes {
		s := &scopes[i]
		switch s.Kind {
		case VarScopeInstructions:
			for j := range s.Lines {
				l := &s.Lines[j]
				switch l.Kind {
				case LineAssignment:
					if l.HasReceivingVar {
						l.ReceivingVar = renameVar(l.ReceivingVar, mapping)
					}
					l.AssignedValue = renameVarInValue(l.AssignedValue, mapping)
				case LineIf:
					l.Condition = renameVarInValue(l.Condition, mapping)
				}
			}
		case VarScopeFunctionCall:
			s.CallArguments = renameVarsInValues(s.CallArguments, mapping)
			for j, v := range s.CallResults {
				s.CallResults[j] = renameVar(v, mapping)
			}
		case VarScopeFunctionReturn:
			s.ReturnedValues = renameVarsInValues(s.ReturnedValues, mapping)
		case VarScopeCondition:
			renameVariablesInScopes(s.InstructionsIfTrue, mapping)
			renameVariablesInScopes(s.InstructionsIfFalse, mapping)
		}
	}
}

// renameFunctionLabels substitutes labels across the whole table
// (every call site, every return, the table's own keys) and drops any
// function the mapping doesn't cover -- a function can become
// unreachable this way when its only call site sat in a branch that
// turned out to always panic. Grounded on
// with_variables/simplify/rename.rs's rename_function_labels_in_scopes
// and ExecutionFlow::rename_functions.
func (f *Flow) renameFunctionLabels(mapping map[uint64]uint64) {
	renamed := map[uint64]*Function{}
	for label, fn := range f.Functions {
		newLabel, ok := mapping[label]
		if !ok {
			continue
		}
		fn.Label = newLabel
		renameFunctionLabelsInScopes(fn.Content, mapping)
		renamed[newLabel] = fn
	}
	f.Functions = renamed
}

func renameFunctionLabelsInScopes(scopes []VarScope, mapping map[uint64]uint64) {
	for i := range scopes {
		s := &scopes[i]
		switch s.Kind {
		case VarScopeFunctionCall, VarScopeFunctionReturn:
			if newLabel, ok := mapping[s.CallLabel]; ok {
				s.CallLabel = newLabel
			}
		case VarScopeCondition:
			renameFunctionLabelsInScopes(s.InstructionsIfTrue, mapping)
			renameFunctionLabelsInScopes(s.InstructionsIfFalse, mapping)
		}
	}
}

// findVariableDepth records, for every variable a scope list
// initializes (an Instructions line's receiving_var, or one of a
// FunctionCall's results), the index of the line/result slot it is
// first written at -- used to derive a canonical, deterministic
// rename order. A variable that is only ever read -- a parameter
// never reassigned locally -- gets no entry here and so keeps its
// original alias through rename_variables_starting_from_zero, exactly
// as the original leaves it. Grounded on
// with_variables/simplify/count_vars.rs's find_variable_depth.
func findVariableDepth(scopes []VarScope, depthPerVar map[Variable]int, currentDepth *int) {
	for _, s := range scopes {
		switch s.Kind {
		case VarScopeInstructions:
			for _, l := range s.Lines {
				if l.Kind == LineAssignment && l.HasReceivingVar {
					if _, ok := depthPerVar[l.ReceivingVar]; !ok {
						depthPerVar[l.ReceivingVar] = *currentDepth
					}
				}
				*currentDepth++
			}
		case VarScopeFunctionCall:
			for _, v := range s.CallResults {
				if _, ok := depthPerVar[v]; !ok {
					depthPerVar[v] = *currentDepth
				}
				*currentDepth++
			}
		case VarScopeCondition:
			findVariableDepth(s.InstructionsIfTrue, depthPerVar, currentDepth)
			findVariableDepth(s.InstructionsIfFalse, depthPerVar, currentDepth)
		}
	}
}

func visitValueVars(val Value, visit func(Variable)) {
	switch val.Kind {
	case ValueCalculation, ValueFunctionReturned:
		for _, a := range val.Args {
			visitValueVars(a, visit)
		}
	case ValueExisting:
		visit(val.Var)
	}
}

// getVarsOrderedByDepth returns the variables a function's body
// initializes, ordered by first appearance.
func getVarsOrderedByDepth(scopes []VarScope) []Variable {
	depthPerVar := map[Variable]int{}
	currentDepth := 0
	findVariableDepth(scopes, depthPerVar, &currentDepth)
	return sortByDepth(depthPerVar)
}

func sortByDepth(depthPerVar map[Variable]int) []Variable {
	vars := make([]Variable, 0, len(depthPerVar))
	for v := range depthPerVar {
		vars = append(vars, v)
	}
	// insertion sort: the table is small per function and this keeps
	// the dependency list short.
	for i := 1; i < len(vars); i++ {
		for j := i; j > 0 && depthPerVar[vars[j-1]] > depthPerVar[vars[j]]; j-- {
			vars[j-1], vars[j] = vars[j], vars[j-1]
		}
	}
	return vars
}

// findFunctionDepth walks a function's body recording, for every
// callee, the index of its first call site -- used the same way as
// findVariableDepth, but for the canonical function-renumbering order.
// Grounded on with_variables/simplify/rename.rs's find_function_depth.
func findFunctionDepth(scopes []VarScope, functions map[uint64]*Function, depthPerFunction map[uint64]int, nextDepth *int) {
	for _, s := range scopes {
		switch s.Kind {
		case VarScopeFunctionCall:
			if _, ok := depthPerFunction[s.CallLabel]; !ok {
				depthPerFunction[s.CallLabel] = *nextDepth
				*nextDepth++
				if callee, ok := functions[s.CallLabel]; ok {
					findFunctionDepth(callee.Content, functions, depthPerFunction, nextDepth)
				}
			}
		case VarScopeCondition:
			findFunctionDepth(s.InstructionsIfTrue, functions, depthPerFunction, nextDepth)
			findFunctionDepth(s.InstructionsIfFalse, functions, depthPerFunction, nextDepth)
		}
	}
}

// getFunctionsOrderedByDepth returns every function label reachable
// from main, ordered by the index of its first call site encountered
// in a DFS starting at main -- main itself is not included, since it
// keeps its reserved label.
func getFunctionsOrderedByDepth(f *Flow) []uint64 {
	depthPerFunction := map[uint64]int{}
	nextDepth := 0
	findFunctionDepth(f.MainFunction().Content, f.Functions, depthPerFunction, &nextDepth)
	labels := make([]uint64, 0, len(depthPerFunction))
	for l := range depthPerFunction {
		labels = append(labels, l)
	}
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && depthPerFunction[labels[j-1]] > depthPerFunction[labels[j]]; j-- {
			labels[j-1], labels[j] = labels[j], labels[j-1]
		}
	}
	return labels
}
