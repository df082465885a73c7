// Package functions implements spec.md component F: detecting function
// boundaries in the reduced (acyclic) control-flow graph by finding, for
// each candidate entry block, the set of blocks where its call sites'
// execution paths diverge again, picking the best such candidate per entry
// block, and duplicating any subgraph whose call sites disagree on
// whether it returns deterministically until the detection is stable.
package functions

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/cfg"
)

// blockIndex answers "which nodes back this block" and "which blocks
// border this block" queries over a snapshot of the graph's currently
// reachable nodes. block.Block deliberately carries no back-reference
// list of its own nodes -- that would need an import of cfg.Node
// (creating an import cycle) and a second place to keep in sync with
// every edge mutation -- so this index is rebuilt instead, cheaply,
// every time the fixed-point detection loop re-examines the graph.
type blockIndex struct {
	nodesByBlock map[*block.Block][]*cfg.Node
	blocks       []*block.Block
}

func newBlockIndex(g *cfg.Graph) *blockIndex {
	idx := &blockIndex{nodesByBlock: map[*block.Block][]*cfg.Node{}}
	seen := map[*block.Block]bool{}
	for _, n := range g.ReachableNodes() {
		idx.nodesByBlock[n.Block] = append(idx.nodesByBlock[n.Block], n)
		if !seen[n.Block] {
			seen[n.Block] = true
			idx.blocks = append(idx.blocks, n.Block)
		}
	}
	return idx
}

func (idx *blockIndex) AllBlocks() []*block.Block { return idx.blocks }

func (idx *blockIndex) NodesOf(b *block.Block) []*cfg.Node { return idx.nodesByBlock[b] }

func (idx *blockIndex) ChildBlocksOf(b *block.Block) map[*block.Block]bool {
	out := map[*block.Block]bool{}
	for _, n := range idx.nodesByBlock[b] {
		for _, c := range n.Children {
			out[c.Block] = true
		}
	}
	return out
}

func (idx *blockIndex) ParentBlocksOf(b *block.Block) map[*block.Block]bool {
	out := map[*block.Block]bool{}
	for _, n := range idx.nodesByBlock[b] {
		for _, p := range n.Parents {
			out[p.Block] = true
		}
	}
	return out
}

func (idx *blockIndex) HasSomeChildren(b *block.Block) bool {
	for _, n := range idx.nodesByBlock[b] {
		if len(n.Children) > 0 {
			return true
		}
	}
	return false
}

func (idx *blockIndex) IsDeadEnd(b *block.Block) bool { return len(idx.ChildBlocksOf(b)) == 0 }

// OrphanNodes returns every node in the index with no parents: the
// graph's true entry plus any disconnected-component root.
func (idx *blockIndex) OrphanNodes() []*cfg.Node {
	var out []*cfg.Node
	for _, nodes := range idx.nodesByBlock {
		for _, n := range nodes {
			if len(n.Parents) == 0 {
				out = append(out, n)
			}
		}
	}
	return out
}
