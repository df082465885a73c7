package functions

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/cfg"
)

// OutputKind classifies what a candidate function's call site sees
// after the function returns.
type OutputKind int

const (
	// NoOutput means this call site's paths through the function never
	// run back into anything -- the function's body always exits from
	// here (a revert, a STOP, a function that is itself a dead end).
	NoOutput OutputKind = iota
	// SingleBlock means every path from this call site through the
	// function lands back on the same one block: a deterministic,
	// normal call/return.
	SingleBlock
	// MultiBlock means this call site's paths land on more than one
	// distinct block after the function -- an irregular shape
	// (duplicateBlockConnection exists specifically to split these
	// apart until every call site is deterministic).
	MultiBlock
)

// FunctionOutput is one call site's classified exit behavior.
type FunctionOutput struct {
	Kind  OutputKind
	Block *block.Block // meaningful only when Kind == SingleBlock
}

// IsDeterministic reports whether this call site's exit behavior is
// single-valued: NoOutput and SingleBlock both are, MultiBlock is not.
func (fo FunctionOutput) IsDeterministic() bool { return fo.Kind != MultiBlock }

// Function is a Candidate together with, for every block that calls
// into it, how that call site's execution exits the function.
// Grounded on function.rs's Function.
type Function struct {
	Candidate     *Candidate
	InputToOutput map[*block.Block]FunctionOutput
}

// NewFunction classifies every one of candidate.Start's parent blocks by
// where their paths through the function land once they pass beyond
// candidate.Ends.
func NewFunction(candidate *Candidate, idx *blockIndex) *Function {
	f := &Function{Candidate: candidate, InputToOutput: map[*block.Block]FunctionOutput{}}
	for parentBlock := range idx.ParentBlocksOf(candidate.Start) {
		outputBlocks := outputBlocksOf(idx, parentBlock, candidate)
		switch len(outputBlocks) {
		case 0:
			f.InputToOutput[parentBlock] = FunctionOutput{Kind: NoOutput}
		case 1:
			var only *block.Block
			for b := range outputBlocks {
				only = b
			}
			f.InputToOutput[parentBlock] = FunctionOutput{Kind: SingleBlock, Block: only}
		default:
			f.InputToOutput[parentBlock] = FunctionOutput{Kind: MultiBlock}
		}
	}
	return f
}

// outputBlocksOf runs a DFS from every node of fromBlock, stopping at
// any node whose block is one of candidate's ends, and collects the
// blocks one step past each stopping point -- what fromBlock's call
// into the function actually exits into.
func outputBlocksOf(idx *blockIndex, fromBlock *block.Block, candidate *Candidate) map[*block.Block]bool {
	out := map[*block.Block]bool{}
	for _, n := range idx.NodesOf(fromBlock) {
		result := nodeDFS(n, func(x *cfg.Node) bool { return candidate.Ends[x.Block] }, nil)
		for collision := range result.stopped {
			for _, c := range collision.Children {
				out[c.Block] = true
			}
		}
	}
	return out
}

// AcceptableInputs is the set of call sites whose exit behavior is
// deterministic -- the ones detectFunctions is willing to count when
// scoring how good a candidate is.
func (f *Function) AcceptableInputs() map[*block.Block]bool {
	out := map[*block.Block]bool{}
	for b, o := range f.InputToOutput {
		if o.IsDeterministic() {
			out[b] = true
		}
	}
	return out
}

// Output returns how the call site at input exits the function.
func (f *Function) Output(input *block.Block) FunctionOutput { return f.InputToOutput[input] }
