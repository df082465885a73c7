package opcodeflow

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/opcode"
	"github.com/meppent/evmdecomp/internal/skeleton"
)

// Build converts a skeleton into a Flow: a function table keyed by
// label, with the main function under MainLabel. Grounded on
// with_opcodes/flow_with_opcodes.rs's convert_skeleton_to_execution_flow.
func Build(sk *skeleton.Skeleton) *Flow {
	funcs := map[uint64]*Function{
		MainLabel: {
			Label:   MainLabel,
			NInputs: 0,
			Content: convertSkeletonScopes(sk.Main, sk.ReturningBlocks),
		},
	}

	for startBlock, sf := range sk.Functions {
		label := computeFunctionLabel(startBlock)
		funcs[label] = &Function{
			Label:   label,
			Content: convertSkeletonScopes(sf.Instructions, sk.ReturningBlocks),
		}
	}
	for startBlock, sj := range sk.Junctions {
		label := computeFunctionLabel(startBlock)
		funcs[label] = &Function{
			Label:   label,
			Content: convertSkeletonScopes(sj.Instructions, sk.ReturningBlocks),
		}
	}

	fillNInputsAndOutputs(funcs)

	flow := &Flow{Functions: funcs}
	removeSecondaryFunctionsContainingLoops(flow)
	return flow
}

// convertSkeletonScopes walks a skeleton scope list and returns its
// opcode-flow equivalent: consecutive Block scopes collapse into one
// Instructions scope (plus a trailing FunctionReturn where that run
// ends a function), Function/Junction scopes become a FunctionCall,
// and If arms recurse with common-suffix hoisting. Grounded on
// with_opcodes/flow_with_opcodes.rs's convert_skeleton_scopes.
func convertSkeletonScopes(skScopes []skeleton.Scope, returningBlocks map[*block.Block]*skeleton.Function) []Scope {
	if len(skScopes) == 0 {
		return nil
	}

	var converted []Scope
	nextIndex := 1

	switch skScopes[0].Kind {
	case skeleton.ScopeLoopContinue:
		converted = []Scope{{Kind: ScopeLoopContinue, LoopLabel: skScopes[0].LoopLabel}}

	case skeleton.ScopeLoop:
		converted = []Scope{{Kind: ScopeLoop, LoopLabel: skScopes[0].LoopLabel}}

	case skeleton.ScopePanic:
		converted = []Scope{{Kind: ScopePanic}}

	case skeleton.ScopeBlock:
		var blocks []*block.Block
		firstNonBlock := len(skScopes)
		for i, s := range skScopes {
			if s.Kind != skeleton.ScopeBlock {
				firstNonBlock = i
				break
			}
			blocks = append(blocks, s.Block)
		}
		var next *skeleton.Scope
		if firstNonBlock < len(skScopes) {
			next = &skScopes[firstNonBlock]
		}
		converted = consecutiveBlocksToScopes(blocks, returningBlocks, next)
		nextIndex = firstNonBlock

	case skeleton.ScopeFunction:
		label := computeFunctionLabel(skScopes[0].Function.Info.Candidate.Start)
		converted = []Scope{{Kind: ScopeFunctionCall, CallLabel: label}}

	case skeleton.ScopeJunction:
		label := computeFunctionLabel(skScopes[0].Junction.Start)
		converted = []Scope{{Kind: ScopeFunctionCall, CallLabel: label}}

	case skeleton.ScopeIf:
		trueScopes := convertSkeletonScopes(skScopes[0].If.True, returningBlocks)
		falseScopes := convertSkeletonScopes(skScopes[0].If.False, returningBlocks)

		var thenScopes []Scope
		for len(trueScopes) > 0 && len(falseScopes) > 0 {
			lastTrue := trueScopes[len(trueScopes)-1]
			lastFalse := falseScopes[len(falseScopes)-1]
			if !lastTrue.equal(lastFalse) {
				break
			}
			trueScopes = trueScopes[:len(trueScopes)-1]
			falseScopes = falseScopes[:len(falseScopes)-1]
			thenScopes = append(thenScopes, lastFalse)
		}

		ifScope := Scope{Kind: ScopeCondition, InstructionsIfTrue: trueScopes, InstructionsIfFalse: falseScopes}
		converted = append([]Scope{ifScope}, thenScopes...)
	}

	rest := convertSkeletonScopes(skScopes[nextIndex:], returningBlocks)
	return append(converted, rest...)
}

// consecutiveBlocksToScopes aggregates a run of blocks executed one
// after another into one Instructions scope, appending a
// FunctionReturn when that run ends a detected function at a block
// that doesn't itself exit the contract. A run whose continuation is
// a LoopContinue or a Panic is not actually returning -- the block was
// only classified as a function end because the acyclic reduction or
// the non-deterministic-branch fallback routed it there.
func consecutiveBlocksToScopes(blocks []*block.Block, returningBlocks map[*block.Block]*skeleton.Function, next *skeleton.Scope) []Scope {
	scopes := []Scope{{Kind: ScopeInstructions, Instructions: aggregateBlocksCode(blocks)}}

	lastBlock := blocks[len(blocks)-1]
	sf, isReturning := returningBlocks[lastBlock]
	if !isReturning {
		return scopes
	}

	lastVopcode := lastBlock.Code[len(lastBlock.Code)-1]
	if opcode.IsExiting(lastVopcode.Opcode) {
		return scopes
	}

	if next != nil {
		switch next.Kind {
		case skeleton.ScopeLoopContinue, skeleton.ScopePanic:
			return scopes
		default:
			// a function's own ending block should never fall straight
			// into anything else; render unreachable rather than fail
			// the whole conversion.
			return append(scopes, Scope{Kind: ScopePanic})
		}
	}

	label := computeFunctionLabel(sf.Info.Candidate.Start)
	return append(scopes, Scope{Kind: ScopeFunctionReturn, CallLabel: label})
}

func aggregateBlocksCode(blocks []*block.Block) Instructions {
	var instr Instructions
	for _, b := range blocks {
		instr.Code = append(instr.Code, b.Code...)
		instr.NStackInputs, instr.NStackOutputs = aggregateNStackInputsAndOutputs(
			instr.NStackInputs, instr.NStackOutputs, b.NArgs(), b.Symbolic.NOutputs(),
		)
	}
	return instr
}
