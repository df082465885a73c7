package opcodeflow

// aggregateNStackInputs and aggregateNStackOutputs compose the stack
// arity of two scopes executed one after the other into the arity of
// the pair taken as a whole. Grounded on
// with_opcodes/flow_with_opcodes.rs's aggregate_n_stack_inputs /
// aggregate_n_stack_outputs, and spec.md §4.7.
func aggregateNStackInputs(nIn0, nOut0, nIn1 int) int {
	sum := nIn0 + nIn1 - nOut0
	if sum < nIn0 {
		sum = nIn0
	}
	if sum < 0 {
		sum = 0
	}
	return sum
}

func aggregateNStackOutputs(nIn0, nOut0, nIn1, nOut1 int) int {
	delta0 := nOut0 - nIn0
	delta1 := nOut1 - nIn1
	newIn := aggregateNStackInputs(nIn0, nOut0, nIn1)
	return delta0 + delta1 + newIn
}

func aggregateNStackInputsAndOutputs(nIn0, nOut0, nIn1, nOut1 int) (int, int) {
	return aggregateNStackInputs(nIn0, nOut0, nIn1), aggregateNStackOutputs(nIn0, nOut0, nIn1, nOut1)
}
