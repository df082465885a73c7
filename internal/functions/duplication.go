package functions

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/cfg"
)

// duplicator hands out successive duplication indices within one
// duplicateBlockConnection call -- purely informational in this port,
// since a duplicated block's identity comes from its own pointer, not
// from the index (unlike the original, where Block equality is defined
// in terms of (pcStart, duplicationInfo) precisely because many Rust
// Rc<RefCell<Block>> handles can alias the same underlying block).
type duplicator struct{ next int }

func (d *duplicator) duplicate(b *block.Block) *block.Block {
	d.next++
	return b.Duplicate(d.next, b)
}

// duplicateBlockConnection gives childBlock -- and everything reachable
// from it -- a private copy reachable only from parentBlock, retargeting
// every edge parentBlock's nodes had into childBlock onto the copy
// instead. This is how a candidate function whose call sites disagree on
// what happens after it returns gets split apart: one call site at a
// time gets its own instance of the function body, until every call
// site left sees a single, deterministic exit.
//
// Grounded on create_graph/duplication.rs's duplicate_block_connection.
func duplicateBlockConnection(g *cfg.Graph, parentBlock, childBlock *block.Block) {
	idx := newBlockIndex(g)

	initialNodes := map[*cfg.Node]bool{}
	for _, parentNode := range idx.NodesOf(parentBlock) {
		for _, childNode := range parentNode.Children {
			if childNode.Block == childBlock {
				initialNodes[childNode] = true
			}
		}
	}
	if len(initialNodes) == 0 {
		return
	}

	offspringBlocks := offspringBlocksOf(initialNodes)

	dup := &duplicator{}
	duplicatedBlocks := map[*block.Block]*block.Block{}
	for b := range offspringBlocks {
		duplicatedBlocks[b] = dup.duplicate(b)
	}

	duplicatedNodes := map[*cfg.Node]*cfg.Node{}
	var reduplicatedChildBlock *block.Block
	reduplicatedNodesInChildBlock := map[*cfg.Node]*cfg.Node{}

	// When childBlock is itself reached again deeper in the duplicated
	// subgraph (the function loops back to its own start), that second
	// arrival must land on yet another copy: the first copy belongs only
	// to the incoming edges that originally came from parentBlock.
	for initialNode := range initialNodes {
		nodeDFS(initialNode, func(*cfg.Node) bool { return false }, func(parentNode, childNode *cfg.Node) {
			resolve := func(n *cfg.Node) *cfg.Node {
				onReduplicatedChildBlock := n != initialNode && n.Block == childBlock
				duplicatedBlock := duplicatedBlocks[n.Block]
				table := duplicatedNodes
				if onReduplicatedChildBlock {
					if reduplicatedChildBlock == nil {
						reduplicatedChildBlock = dup.duplicate(duplicatedBlocks[childBlock])
					}
					duplicatedBlock = reduplicatedChildBlock
					table = reduplicatedNodesInChildBlock
				}
				if existing, ok := table[n]; ok {
					return existing
				}
				fresh := cfg.NewDetachedNode(duplicatedBlock, n.InitialContext)
				table[n] = fresh
				return fresh
			}

			dupParent := resolve(parentNode)
			dupChild := resolve(childNode)

			already := false
			for _, c := range dupParent.Children {
				if c == dupChild {
					already = true
					break
				}
			}
			if !already {
				dupParent.AddChild(dupChild)
			}
		})
	}

	for _, parentNode := range idx.NodesOf(parentBlock) {
		for _, childNode := range append([]*cfg.Node(nil), parentNode.Children...) {
			if childNode.Block != childBlock {
				continue
			}
			dupChild, ok := duplicatedNodes[childNode]
			if !ok {
				continue
			}
			parentNode.RemoveChild(childNode)
			parentNode.AddChild(dupChild)
		}
	}

	for initialNode := range initialNodes {
		clearOrphanNodes(initialNode)
	}
}

func offspringBlocksOf(nodes map[*cfg.Node]bool) map[*block.Block]bool {
	out := map[*block.Block]bool{}
	for n := range nodes {
		result := nodeDFS(n, func(*cfg.Node) bool { return false }, nil)
		for visited := range result.visited {
			out[visited.Block] = true
		}
	}
	return out
}
