package functions

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/loops"
	"github.com/meppent/evmdecomp/pkg/logging"
)

// pickBestCandidate chooses, among every candidate sharing one start
// block, the one whose call sites are most often deterministic (ties
// broken by whichever spans the most intermediate blocks, i.e. the
// larger function). Grounded on function_detection.rs's
// pick_best_candidate.
func pickBestCandidate(candidates []*Candidate, idx *blockIndex) *Function {
	var bestFunctions []*Function
	maxAcceptable := 0
	for _, c := range candidates {
		fn := NewFunction(c, idx)
		n := len(fn.AcceptableInputs())
		switch {
		case n >= 2 && n == maxAcceptable:
			bestFunctions = append(bestFunctions, fn)
		case n > maxAcceptable:
			maxAcceptable = n
			bestFunctions = []*Function{fn}
		}
	}

	var best *Function
	maxIntermediate := 0
	for _, fn := range bestFunctions {
		n := len(fn.Candidate.IntermediateBlocks(idx))
		if n > maxIntermediate {
			maxIntermediate = n
			best = fn
		}
	}
	return best
}

func detectFunctions(ag *loops.AcyclicGraph, idx *blockIndex) map[*block.Block]*Function {
	all := map[*block.Block]*Function{}
	byStart := map[*block.Block][]*Candidate{}
	for _, c := range detectCandidates(ag, idx) {
		byStart[c.Start] = append(byStart[c.Start], c)
	}
	for startBlock, candidates := range byStart {
		if best := pickBestCandidate(candidates, idx); best != nil {
			all[startBlock] = best
		}
	}
	return all
}

// DetectFunctionsAndDuplicateOddities runs detectFunctions to a fixed
// point: whenever a detected function has a call site whose exit isn't
// deterministic, that call site's connection into the function is
// duplicated (giving it a private copy of the body) and detection
// starts over, since duplicating can change which blocks reconverge
// where. It stops once a full pass finds nothing left to duplicate.
//
// One deliberate simplification from the original's
// detect_functions_and_duplicate_oddities: the original duplicates every
// non-deterministic call site of a function before restarting detection
// for that function. This port restarts after duplicating just one,
// rebuilding the block index fresh each time, rather than continuing to
// consult a block index that duplication has already made stale partway
// through a pass -- a cheap trade against a stale-index bug class, at
// the cost of a few extra iterations of a loop the original itself
// flags as worth avoiding recomputing in full.
func DetectFunctionsAndDuplicateOddities(ag *loops.AcyclicGraph) map[*block.Block]*Function {
	idx := newBlockIndex(ag.Graph)
	initialNBlocks := len(idx.AllBlocks())

	var functions map[*block.Block]*Function
mainLoop:
	for {
		idx = newBlockIndex(ag.Graph)
		functions = detectFunctions(ag, idx)

		for _, startBlock := range idx.AllBlocks() {
			fn, ok := functions[startBlock]
			if !ok {
				continue
			}
			for inputBlock := range idx.ParentBlocksOf(fn.Candidate.Start) {
				if !idx.ChildBlocksOf(inputBlock)[fn.Candidate.Start] {
					continue
				}
				if fn.Output(inputBlock).IsDeterministic() {
					continue
				}
				duplicateBlockConnection(ag.Graph, inputBlock, fn.Candidate.Start)
				continue mainLoop
			}
		}
		break
	}

	finalNBlocks := len(newBlockIndex(ag.Graph).AllBlocks())
	duplicationPercent := 0.0
	if initialNBlocks > 0 {
		duplicationPercent = 100 * float64(finalNBlocks-initialNBlocks) / float64(initialNBlocks)
	}
	logging.Default().Module("functions").Debug("function detection settled",
		"initialBlocks", initialNBlocks, "finalBlocks", finalNBlocks, "duplicationPercent", duplicationPercent)

	return functions
}
