package opcodeflow

import "github.com/meppent/evmdecomp/internal/bytecode"

// removeSecondaryFunctionsContainingLoops inlines every non-main
// function whose body contains a Loop or LoopContinue scope into each
// of its call sites, then drops it from the table. Grounded on
// with_opcodes/remove_functions_with_loops.rs.
func removeSecondaryFunctionsContainingLoops(flow *Flow) {
	toRemove := map[uint64]bool{}
	for label, fn := range flow.Functions {
		if fn.IsMain() {
			continue
		}
		if anyScopes(fn.Content, Scope.isLoop) || anyScopes(fn.Content, Scope.isLoopContinue) {
			toRemove[label] = true
		}
	}

	for label := range toRemove {
		content := flow.Functions[label].Content
		for _, fn := range flow.Functions {
			replaceFunctionCallByContentInScopes(&fn.Content, label, content)
		}
	}
	for label := range toRemove {
		delete(flow.Functions, label)
	}
}

// replaceFunctionCallByContentInScopes splices a callee's body (with
// its own FunctionReturn scopes stripped, since inlining erases the
// call boundary) in place of every FunctionCall referencing it.
// Iterates in reverse index order since splicing shifts the indices of
// elements still to come, not the ones already visited.
func replaceFunctionCallByContentInScopes(scopes *[]Scope, label uint64, content []Scope) {
	s := *scopes
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i].Kind {
		case ScopeFunctionCall:
			if s[i].CallLabel != label {
				continue
			}
			inlined := cloneScopes(content)
			removeScopesByKey(&inlined, Scope.isFunctionReturn)
			s = append(s[:i], append(inlined, s[i+1:]...)...)

		case ScopeCondition:
			replaceFunctionCallByContentInScopes(&s[i].InstructionsIfTrue, label, content)
			replaceFunctionCallByContentInScopes(&s[i].InstructionsIfFalse, label, content)
		}
	}
	*scopes = s
}

// cloneScopes deep-copies a scope list before it is spliced into a
// call site: the same callee content may be spliced into several call
// sites (or the same one more than once), and removeScopesByKey below
// mutates scopes in place.
func cloneScopes(scopes []Scope) []Scope {
	out := make([]Scope, len(scopes))
	for i, s := range scopes {
		if s.Instructions.Code != nil {
			s.Instructions.Code = append([]bytecode.Vopcode(nil), s.Instructions.Code...)
		}
		if s.InstructionsIfTrue != nil {
			s.InstructionsIfTrue = cloneScopes(s.InstructionsIfTrue)
		}
		if s.InstructionsIfFalse != nil {
			s.InstructionsIfFalse = cloneScopes(s.InstructionsIfFalse)
		}
		out[i] = s
	}
	return out
}

func anyScopes(scopes []Scope, key func(Scope) bool) bool {
	found := false
	applyOnScopes(scopes, func(s Scope) { found = found || key(s) })
	return found
}

func applyOnScopes(scopes []Scope, key func(Scope)) {
	for _, s := range scopes {
		key(s)
		if s.Kind == ScopeCondition {
			applyOnScopes(s.InstructionsIfTrue, key)
			applyOnScopes(s.InstructionsIfFalse, key)
		}
	}
}

func removeScopesByKey(scopes *[]Scope, key func(Scope) bool) {
	kept := (*scopes)[:0]
	for _, s := range *scopes {
		if !key(s) {
			kept = append(kept, s)
		}
	}
	*scopes = kept
	for i := range *scopes {
		if (*scopes)[i].Kind == ScopeCondition {
			removeScopesByKey(&(*scopes)[i].InstructionsIfTrue, key)
			removeScopesByKey(&(*scopes)[i].InstructionsIfFalse, key)
		}
	}
}
