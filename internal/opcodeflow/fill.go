package opcodeflow

import "github.com/meppent/evmdecomp/internal/opcode"

// fillNInputsAndOutputs computes every function's presented arity from
// its own content, resolving callees lazily and memoizing as it goes
// so a function reachable from several call sites is only walked
// once. Grounded on with_opcodes/scopes_with_opcodes.rs's
// fill_n_inputs_and_outputs / _fill_n_inputs_and_outputs.
func fillNInputsAndOutputs(funcs map[uint64]*Function) {
	filled := map[uint64]bool{}
	labels := make([]uint64, 0, len(funcs))
	for label := range funcs {
		labels = append(labels, label)
	}
	for _, label := range labels {
		if !filled[label] {
			fillOne(label, filled, funcs)
		}
	}
}

func fillOne(label uint64, filled map[uint64]bool, funcs map[uint64]*Function) {
	content := funcs[label].Content
	nIn, nOut := arityUntilEnd(content, filled, funcs)
	filled[label] = true
	funcs[label].NInputs = nIn
	funcs[label].NOutputs = nOut
}

// arityUntilEnd computes the (n_inputs, n_outputs) pair of a scope
// list: n_outputs is nil exactly when nothing after this list can ever
// run (the list ends the contract, panics, or calls into a function
// that does). Grounded on
// with_opcodes/scopes_with_opcodes.rs's get_n_inputs_and_outputs_until_end.
func arityUntilEnd(scopes []Scope, filled map[uint64]bool, funcs map[uint64]*Function) (int, *int) {
	if len(scopes) == 0 {
		zero := 0
		return 0, &zero
	}

	var nIn int
	var nOut *int

	switch scopes[0].Kind {
	case ScopeInstructions:
		nIn = scopes[0].Instructions.NStackInputs
		if !isExitingInstructions(scopes[0].Instructions) {
			out := scopes[0].Instructions.NStackOutputs
			nOut = &out
		}

	case ScopeFunctionCall:
		if !filled[scopes[0].CallLabel] {
			fillOne(scopes[0].CallLabel, filled, funcs)
		}
		callee := funcs[scopes[0].CallLabel]
		nIn = callee.NInputs
		nOut = callee.NOutputs

	case ScopeCondition:
		trueIn, trueOut := arityUntilEnd(scopes[0].InstructionsIfTrue, filled, funcs)
		falseIn, falseOut := arityUntilEnd(scopes[0].InstructionsIfFalse, filled, funcs)
		nIn = max(trueIn, falseIn)
		switch {
		case trueOut == nil && falseOut == nil:
			nOut = nil
		case trueOut != nil && falseOut == nil:
			nOut = trueOut
		case trueOut == nil && falseOut != nil:
			nOut = falseOut
		default:
			// If-Else ends with diverging stack size, probably because
			// the two branches never join back up again.
			adjustedTrue := *trueOut + max(0, falseIn-trueIn)
			adjustedFalse := *falseOut + max(0, trueIn-falseIn)
			out := max(adjustedTrue, adjustedFalse)
			nOut = &out
		}

	case ScopePanic:
		nIn = 0
		nOut = nil

	case ScopeFunctionReturn, ScopeLoop, ScopeLoopContinue, ScopeEmpty:
		nIn = 0
		zero := 0
		nOut = &zero
	}

	followingIn, followingOut := arityUntilEnd(scopes[1:], filled, funcs)

	if nOut == nil {
		return nIn, nil
	}
	if followingOut == nil {
		in := aggregateNStackInputs(nIn, *nOut, followingIn)
		return in, nil
	}
	in, out := aggregateNStackInputsAndOutputs(nIn, *nOut, followingIn, *followingOut)
	return in, &out
}

func isExitingInstructions(i Instructions) bool {
	return opcode.IsExiting(i.lastVopcode().Opcode)
}
