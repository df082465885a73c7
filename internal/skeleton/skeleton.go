package skeleton

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/functions"
	"github.com/meppent/evmdecomp/internal/loops"
)

// Skeleton is the fully built control structure: the main function's
// body plus every detected function and junction's body, built once and
// referenced by pointer wherever control reaches them more than once.
type Skeleton struct {
	Graph *loops.AcyclicGraph

	Functions map[*block.Block]*Function
	Junctions map[*block.Block]*Junction
	Main      []Scope

	// ReturningBlocks maps a function's ending blocks back to that
	// function; internal/opcodeflow uses it to know when an
	// Instructions scope it is aggregating needs a trailing
	// FunctionReturn appended.
	ReturningBlocks map[*block.Block]*Function
}

type builder struct {
	skeleton *Skeleton
	view     *blockView
}

// Build runs function detection (component F) to a fixed point, then
// walks the resulting acyclic graph from its entry block, classifying
// every block it passes through. Grounded on
// execution_flow/skeleton/skeleton.rs's Skeleton::build.
func Build(ag *loops.AcyclicGraph) *Skeleton {
	detected := functions.DetectFunctionsAndDuplicateOddities(ag)
	view := newBlockView(ag.Graph)

	skFunctions := map[*block.Block]*Function{}
	skJunctions := map[*block.Block]*Junction{}
	for _, b := range view.Blocks() {
		if fn, ok := detected[b]; ok {
			skFunctions[b] = &Function{Info: fn}
		} else if view.NParents(b) >= 2 {
			skJunctions[b] = &Junction{Start: b}
		}
	}

	returning := map[*block.Block]*Function{}
	for _, sf := range skFunctions {
		for end := range sf.Info.Candidate.Ends {
			returning[end] = sf
		}
	}

	sk := &Skeleton{
		Graph:           ag,
		Functions:       skFunctions,
		Junctions:       skJunctions,
		ReturningBlocks: returning,
	}
	bd := &builder{skeleton: sk, view: view}

	for startBlock, sf := range skFunctions {
		sf.Instructions = bd.instructionsFrom(startBlock, sf.Info.Candidate.Ends)
	}
	for startBlock, sj := range skJunctions {
		sj.Instructions = bd.instructionsFrom(startBlock, nil)
	}

	// TODO: handle the case where the graph's own entry block has more
	// than one parent (possible once a function's offspring is
	// duplicated back onto the contract's own PC 0, which no known test
	// contract exercises yet).
	sk.Main = bd.instructionsFrom(ag.Graph.Entry.Block, nil)

	return sk
}

// instructionsFrom walks forward from fromBlock, appending a Block scope
// for every block it passes through in a straight line (single child,
// unique parent), until it hits a block whose output needs a scope of
// its own: a branch, a loop boundary, a merge point, or a dead end.
func (bd *builder) instructionsFrom(fromBlock *block.Block, stopAt map[*block.Block]bool) []Scope {
	var instrs []Scope
	current := fromBlock
	instrs = append(instrs, Scope{Kind: ScopeBlock, Block: current})

	var output blockOutput
	for {
		output = bd.blockOutputOf(current)
		if output.kind == outputSingle && output.single.kind == destBlock && bd.view.NParents(output.single.block) == 1 {
			current = output.single.block
			instrs = append(instrs, Scope{Kind: ScopeBlock, Block: current})
			continue
		}
		break
	}

	switch output.kind {
	case outputOver:
		// nothing further

	case outputSingle:
		instrs = append(instrs, bd.instructionsOnDest(stopAt, current, output.single)...)

	case outputDual:
		trueInstrs := bd.instructionsOnDest(stopAt, current, output.trueDest)
		falseInstrs := bd.instructionsOnDest(stopAt, current, output.falseDest)
		instrs = append(instrs, Scope{Kind: ScopeIf, If: &If{True: trueInstrs, False: falseInstrs}})

	case outputNonDeterministic:
		if !stopAt[current] {
			instrs = append(instrs, Scope{Kind: ScopePanic})
		}
		// else: current is one of the function/junction's own ends --
		// control simply returns to the caller here, nothing to emit.
	}

	return instrs
}

// instructionsOnDest resolves one destination reached from currentBlock
// into the scopes that follow it. currentBlock is the call site used to
// look up a function's deterministic return point when dest lands on a
// detected function's start.
func (bd *builder) instructionsOnDest(stopAt map[*block.Block]bool, currentBlock *block.Block, dest destination) []Scope {
	switch dest.kind {
	case destContinueLoop:
		return []Scope{{Kind: ScopeLoopContinue, LoopLabel: dest.label}}

	case destStartLoop:
		instrs := []Scope{{Kind: ScopeLoop, LoopLabel: dest.label}}
		return append(instrs, bd.instructionsFrom(dest.block, stopAt)...)

	default: // destBlock
		if bd.view.NParents(dest.block) >= 2 {
			return bd.continueAtMultiParentBlock(stopAt, currentBlock, dest.block)
		}
		return bd.instructionsFrom(dest.block, stopAt)
	}
}

// continueAtMultiParentBlock is reached when control arrives at a block
// with several parents: either the start of a detected function (emit a
// call, then keep walking from wherever that call site deterministically
// returns to) or a plain junction (emit a reference to its
// already-built-or-being-built body and stop, since every other path
// into the junction will walk its body too).
func (bd *builder) continueAtMultiParentBlock(stopAt map[*block.Block]bool, callerBlock, multiParentBlock *block.Block) []Scope {
	if sf, ok := bd.skeleton.Functions[multiParentBlock]; ok {
		instrs := []Scope{{Kind: ScopeFunction, Function: sf}}
		switch out := sf.Info.Output(callerBlock); out.Kind {
		case functions.NoOutput:
			// call site never returns here
		case functions.SingleBlock:
			instrs = append(instrs, bd.instructionsFrom(out.Block, stopAt)...)
		case functions.MultiBlock:
			// the fixed-point duplication loop is supposed to have split
			// every non-deterministic call site apart before the
			// skeleton pass runs; if one still shows up here, render it
			// as unreachable rather than panicking.
			instrs = append(instrs, Scope{Kind: ScopePanic})
		}
		return instrs
	}
	return []Scope{{Kind: ScopeJunction, Junction: bd.skeleton.Junctions[multiParentBlock]}}
}
