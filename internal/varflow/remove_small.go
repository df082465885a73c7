package varflow

// computeSizeOfScopes is a function's rough statement count, used both
// as the inlining-worth threshold below and, via spec.md's mirrored
// definition in internal/opcodeflow, to size-bound common work.
// Grounded on execution_flow.rs's compute_size_of_scopes.
func computeSizeOfScopes(scopes []VarScope) int {
	size := 0
	for _, s := range scopes {
		switch s.Kind {
		case VarScopeInstructions:
			for _, l := range s.Lines {
				if !l.isEmpty() {
					size++
				}
			}
		case VarScopeFunctionCall, VarScopeFunctionReturn, VarScopeLoop, VarScopeLoopContinue, VarScopePanic:
			size++
		case VarScopeCondition:
			size += computeSizeOfScopes(s.InstructionsIfTrue) + computeSizeOfScopes(s.InstructionsIfFalse)
		}
	}
	return size
}

func countFunctionUses(f *Flow) map[uint64]int {
	uses := map[uint64]int{}
	for label := range f.Functions {
		uses[label] = 0
	}
	for _, fn := range f.Functions {
		countFunctionUsesInScopes(fn.Content, uses)
	}
	return uses
}

func countFunctionUsesInScopes(scopes []VarScope, uses map[uint64]int) {
	for _, s := range scopes {
		switch s.Kind {
		case VarScopeFunctionCall:
			uses[s.CallLabel]++
		case VarScopeCondition:
			countFunctionUsesInScopes(s.InstructionsIfTrue, uses)
			countFunctionUsesInScopes(s.InstructionsIfFalse, uses)
		}
	}
}

// shouldFunctionExist decides whether a function is worth keeping as
// its own symbol rather than splicing its body into every call site.
// Grounded on
// with_variables/simplify/remove_small_functions.rs's
// should_function_with_vars_exist.
func shouldFunctionExist(fn *Function, nUses int) bool {
	if fn.IsMain() {
		return true
	}
	if nUses <= 1 {
		return false
	}
	if len(fn.Content) == 0 {
		return false
	}
	length := computeSizeOfScopes(fn.Content)
	if length <= 1 {
		return false
	}
	return nUses*length >= 6
}

// removeSmallFunctions inlines every function judged not worth keeping
// into each of its call sites, replacing the callee's own
// FunctionReturn scopes with direct assignments to the call's result
// variables and substituting the callee's parameters with the call's
// argument values. Grounded on
// with_variables/simplify/remove_small_functions.rs's remove_small_functions.
func (f *Flow) removeSmallFunctions() {
	uses := countFunctionUses(f)
	toRemove := map[uint64]bool{}
	for label, fn := range f.Functions {
		if !shouldFunctionExist(fn, uses[label]) {
			toRemove[label] = true
		}
	}

	for label := range toRemove {
		callee := f.Functions[label]
		for _, fn := range f.Functions {
			replaceFunctionCallByContentInVarScopes(&fn.Content, label, callee)
		}
	}
	for label := range toRemove {
		delete(f.Functions, label)
	}
}

// cloneVarScopes deep-copies a scope list so later in-place mutation
// (inlining substitution) can never reach back into the original
// function's own content, which may still be reachable from other
// call sites.
func cloneVarScopes(scopes []VarScope) []VarScope {
	out := make([]VarScope, len(scopes))
	for i, s := range scopes {
		if s.Lines != nil {
			s.Lines = append([]Line(nil), s.Lines...)
		}
		if s.CallArguments != nil {
			s.CallArguments = append([]Value(nil), s.CallArguments...)
		}
		if s.CallResults != nil {
			s.CallResults = append([]Variable(nil), s.CallResults...)
		}
		if s.ReturnedValues != nil {
			s.ReturnedValues = append([]Value(nil), s.ReturnedValues...)
		}
		if s.InstructionsIfTrue != nil {
			s.InstructionsIfTrue = cloneVarScopes(s.InstructionsIfTrue)
		}
		if s.InstructionsIfFalse != nil {
			s.InstructionsIfFalse = cloneVarScopes(s.InstructionsIfFalse)
		}
		out[i] = s
	}
	return out
}

func replaceFunctionCallByContentInVarScopes(scopes *[]VarScope, labelToReplace uint64, callee *Function) {
	s := *scopes
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i].Kind {
		case VarScopeFunctionCall:
			if s[i].CallLabel != labelToReplace {
				continue
			}
			call := s[i]

			// A deep copy: callee.Content may be spliced into several
			// call sites (or the same one more than once after an
			// earlier inlining), and the substitutions below mutate
			// scopes in place.
			converted := cloneVarScopes(callee.Content)
			replaceFunctionReturnsByVarAssignment(converted, labelToReplace, call.CallResults)

			toReplace := map[Variable]Value{}
			for argIndex, inputVar := range callee.InputVars {
				toReplace[inputVar] = call.CallArguments[argIndex]
			}
			replaceVarsUntilSecondAssignment(converted, toReplace)

			s = append(s[:i], append(converted, s[i+1:]...)...)

		case VarScopeCondition:
			replaceFunctionCallByContentInVarScopes(&s[i].InstructionsIfTrue, labelToReplace, callee)
			replaceFunctionCallByContentInVarScopes(&s[i].InstructionsIfFalse, labelToReplace, callee)
		}
	}
	*scopes = s
}

// replaceFunctionReturnsByVarAssignment turns the inlined callee's own
// "return" scope into a plain assignment of the call's result
// variables, since once spliced in there is no call boundary left for
// a FunctionReturn to mark.
func replaceFunctionReturnsByVarAssignment(scopes []VarScope, returnLabelToRemove uint64, receivingVars []Variable) {
	for i := range scopes {
		s := &scopes[i]
		switch s.Kind {
		case VarScopeFunctionReturn:
			if s.CallLabel != returnLabelToRemove {
				continue
			}
			lines := make([]Line, len(receivingVars))
			for j, v := range receivingVars {
				lines[j] = Line{Kind: LineAssignment, HasReceivingVar: true, ReceivingVar: v, AssignedValue: s.ReturnedValues[j]}
			}
			*s = VarScope{Kind: VarScopeInstructions, Lines: lines}
		case VarScopeCondition:
			replaceFunctionReturnsByVarAssignment(s.InstructionsIfTrue, returnLabelToRemove, receivingVars)
			replaceFunctionReturnsByVarAssignment(s.InstructionsIfFalse, returnLabelToRemove, receivingVars)
		}
	}
}
