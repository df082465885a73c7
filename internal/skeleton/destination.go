package skeleton

import (
	vm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/meppent/evmdecomp/internal/block"
)

type destKind int

const (
	destBlock destKind = iota
	destStartLoop
	destContinueLoop
)

// destination is where control goes after a block finishes running.
type destination struct {
	kind  destKind
	block *block.Block // destBlock, destStartLoop (the loop's entry block)
	label int          // destStartLoop, destContinueLoop
}

type outputKind int

const (
	outputOver outputKind = iota
	outputSingle
	outputDual
	outputNonDeterministic
)

// blockOutput is what a block does once it finishes running: fall off
// the end of the graph, go to exactly one place, branch two ways, or
// branch in a way this pass can't resolve to a fixed destination set.
type blockOutput struct {
	kind      outputKind
	single    destination
	trueDest  destination
	falseDest destination
}

func (bd *builder) toDestination(childBlock *block.Block) destination {
	if label, ok := bd.skeleton.Graph.Loops.LabelOfEntry(childBlock.PCStart()); ok {
		return destination{kind: destStartLoop, block: childBlock, label: label}
	}
	return destination{kind: destBlock, block: childBlock}
}

// blockOutputOf classifies b's outgoing edges, folding in the
// disconnected back edge the acyclic reduction may have cut at b (turned
// back into a LoopContinue destination) and any child that is itself a
// loop's entry (turned into a StartLoop destination).
func (bd *builder) blockOutputOf(b *block.Block) blockOutput {
	continueLabel, hasContinue := bd.skeleton.Graph.DisconnectedAt[b.PCStart()]
	children := bd.view.Children(b)

	switch len(children) {
	case 0:
		if hasContinue {
			return blockOutput{kind: outputSingle, single: destination{kind: destContinueLoop, label: continueLabel}}
		}
		return blockOutput{kind: outputOver}

	case 1:
		var next *block.Block
		for c := range children {
			next = c
		}
		if hasContinue {
			if next.PCStart() == b.NextPCStart() {
				return blockOutput{
					kind:      outputDual,
					trueDest:  destination{kind: destContinueLoop, label: continueLabel},
					falseDest: destination{kind: destBlock, block: next},
				}
			}
			return blockOutput{
				kind:      outputDual,
				trueDest:  destination{kind: destBlock, block: next},
				falseDest: destination{kind: destContinueLoop, label: continueLabel},
			}
		}
		return blockOutput{kind: outputSingle, single: bd.toDestination(next)}

	default:
		if trueBlock, falseBlock, ok := conditionalDests(b, children); ok {
			return blockOutput{
				kind:      outputDual,
				trueDest:  bd.toDestination(trueBlock),
				falseDest: bd.toDestination(falseBlock),
			}
		}
		return blockOutput{kind: outputNonDeterministic}
	}
}

// conditionalDests recognizes a two-children block as a JUMPI: the false
// arm is whichever child continues at b's very next instruction (the
// fall-through), the true arm is the other one (the jump target).
func conditionalDests(b *block.Block, children map[*block.Block]bool) (trueBlock, falseBlock *block.Block, ok bool) {
	if len(children) != 2 {
		return nil, nil, false
	}
	fe := b.FinalEffect()
	if fe == nil || fe.Op != vm.JUMPI {
		return nil, nil, false
	}
	var a, c *block.Block
	i := 0
	for child := range children {
		if i == 0 {
			a = child
		} else {
			c = child
		}
		i++
	}
	fallthroughPC := b.NextPCStart()
	switch {
	case a.PCStart() == fallthroughPC && c.PCStart() != fallthroughPC:
		return c, a, true
	case c.PCStart() == fallthroughPC && a.PCStart() != fallthroughPC:
		return a, c, true
	default:
		return nil, nil, false
	}
}
