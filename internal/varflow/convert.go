package varflow

import (
	"github.com/meppent/evmdecomp/internal/opcodeflow"
)

// mainLabel mirrors opcodeflow.MainLabel: the function table keys are
// carried over unchanged from component H, so the reserved sentinel
// must match exactly.
const mainLabel uint64 = opcodeflow.MainLabel

// Build lifts an opcodeflow.Flow onto variables: every function is
// converted independently starting from a fresh stack of input
// variables, the per-branch equivalences gathered along the way are
// folded into a rename mapping, and the whole table is simplified.
// Grounded on with_variables/flow_with_vars.rs's
// convert_opcode_flow_to_var_flow.
func Build(opcodeFlow *opcodeflow.Flow) *Flow {
	var varEquivalences []varEquivalence
	alloc := &varAllocator{}

	functions := map[uint64]*Function{}
	for label, fn := range opcodeFlow.Functions {
		initial := newVariablesStack(alloc)
		inputVars := initial.createAndPushVars(fn.NInputs)

		nOutputs, returns := 0, false
		if fn.NOutputs != nil {
			nOutputs, returns = *fn.NOutputs, true
		}

		_, content := convertOpcodeScopesToVarScopes(
			&initial, fn.Content, opcodeFlow.Functions, map[int]variablesStack{}, &varEquivalences,
		)

		functions[label] = &Function{
			Label:     label,
			InputVars: inputVars,
			NOutputs:  nOutputs,
			Returns:   returns,
			Content:   content,
		}
	}

	flow := &Flow{Functions: functions}

	varMapping := convertEquivalencesToVarMapping(varEquivalences)
	flow.renameVariables(varMapping)

	flow.Simplify()
	return flow
}

type varEquivalence struct {
	a, b Variable
}

// convertOpcodeScopesToVarScopes walks one function's opcode-level
// scope list, threading a variable-level stack through it. Grounded on
// with_variables/flow_with_vars.rs's convert_opcode_scopes_to_var_scopes.
func convertOpcodeScopesToVarScopes(
	initial *variablesStack,
	scopes []opcodeflow.Scope,
	opcodeFunctions map[uint64]*opcodeflow.Function,
	stackAtLoopStarts map[int]variablesStack,
	varEquivalences *[]varEquivalence,
) (variablesStack, []VarScope) {
	current := initial.clone()
	var varScopes []VarScope

	for i, scope := range scopes {
		switch scope.Kind {
		case opcodeflow.ScopeLoop:
			varScopes = append(varScopes, VarScope{Kind: VarScopeLoop, LoopLabel: scope.LoopLabel})
			stackAtLoopStarts[scope.LoopLabel] = current.clone()

		case opcodeflow.ScopeLoopContinue:
			if startStack, ok := stackAtLoopStarts[scope.LoopLabel]; ok {
				for depth := 0; depth < startStack.len(); depth++ {
					*varEquivalences = append(*varEquivalences, varEquivalence{
						startStack.peekAt(depth), current.peekAt(depth),
					})
				}
			}
			varScopes = append(varScopes, VarScope{Kind: VarScopeLoopContinue, LoopLabel: scope.LoopLabel})

		case opcodeflow.ScopePanic:
			varScopes = append(varScopes, VarScope{Kind: VarScopePanic})

		case opcodeflow.ScopeEmpty:
			// dropped: carries no information once converted

		case opcodeflow.ScopeFunctionReturn:
			nReturnedVars := *opcodeFunctions[scope.CallLabel].NOutputs
			varScopes = append(varScopes, VarScope{
				Kind: VarScopeFunctionReturn, CallLabel: scope.CallLabel,
				ReturnedValues: valuesFromVars(current.multiPop(nReturnedVars)),
			})

		case opcodeflow.ScopeInstructions:
			var lines []Line
			current, lines = convertVopcodesToLines(&current, scope.Instructions.Code)
			varScopes = append(varScopes, VarScope{Kind: VarScopeInstructions, Lines: lines})

		case opcodeflow.ScopeFunctionCall:
			callee := opcodeFunctions[scope.CallLabel]
			nResults := 0
			if callee.NOutputs != nil {
				nResults = *callee.NOutputs
			}

			arguments := valuesFromVars(current.multiPop(callee.NInputs))
			reverseValues(arguments)
			results := current.createAndPushVars(nResults)
			varScopes = append(varScopes, VarScope{
				Kind: VarScopeFunctionCall, CallLabel: scope.CallLabel,
				CallArguments: arguments, CallResults: results,
			})

		case opcodeflow.ScopeCondition:
			trueStack, trueScopes := convertOpcodeScopesToVarScopes(
				&current, scope.InstructionsIfTrue, opcodeFunctions, stackAtLoopStarts, varEquivalences,
			)
			falseStack, falseScopes := convertOpcodeScopesToVarScopes(
				&current, scope.InstructionsIfFalse, opcodeFunctions, stackAtLoopStarts, varEquivalences,
			)

			stackToChange, targetStack := falseStack, trueStack
			if trueStack.len() < falseStack.len() {
				stackToChange, targetStack = trueStack, falseStack
			}

			current = targetStack.clone()
			varScopes = append(varScopes, VarScope{
				Kind: VarScopeCondition, InstructionsIfTrue: trueScopes, InstructionsIfFalse: falseScopes,
			})

			if i != len(scopes)-1 {
				// Execution continues after both branches join: the branch
				// left short gets renamed to match the other's stack so
				// whatever follows sees one consistent set of names.
				for depth := 0; depth < stackToChange.len(); depth++ {
					*varEquivalences = append(*varEquivalences, varEquivalence{
						stackToChange.peekAt(depth), targetStack.peekAt(depth),
					})
				}
			}
		}
	}

	return current, varScopes
}

func reverseValues(values []Value) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}

// convertEquivalencesToVarMapping groups variables the conversion
// above found to be interchangeable (loop-carried values, values that
// differ only by which branch of an if produced them) and assigns
// every member of a group the same canonical name. Grounded on
// with_variables/flow_with_vars.rs's convert_aquivalences_to_var_mapping.
//
// The original builds this grouping over a Rust HashMap, so which
// member of a group becomes the canonical one depends on that map's
// iteration order -- unspecified by the language, and in practice
// randomized per process. This port iterates the equivalence pairs in
// the order they were recorded instead, which is deterministic and
// reproducible without changing the grouping itself; a documented
// improvement, not a behavior this pipeline relies on differing.
func convertEquivalencesToVarMapping(equivalences []varEquivalence) map[Variable]Variable {
	groups := map[Variable]map[Variable]bool{}
	order := []Variable{}
	addVar := func(v Variable) {
		if _, ok := groups[v]; !ok {
			groups[v] = map[Variable]bool{}
			order = append(order, v)
		}
	}
	for _, eq := range equivalences {
		addVar(eq.a)
		addVar(eq.b)
		groups[eq.a][eq.b] = true
		groups[eq.b][eq.a] = true
	}

	mapping := map[Variable]Variable{}
	seen := map[Variable]bool{}
	for _, v := range order {
		if seen[v] {
			continue
		}
		seen[v] = true
		queue := []Variable{v}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for eqVar := range groups[cur] {
				if seen[eqVar] {
					continue
				}
				seen[eqVar] = true
				mapping[eqVar] = v
				queue = append(queue, eqVar)
			}
		}
	}
	return mapping
}
