package skeleton

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/cfg"
)

// blockView is the block-granularity projection of a cfg.Graph: which
// blocks are reachable, and which blocks are a given block's children or
// parents, aggregated over every node that block is represented by. The
// original keeps this as a back-reference list (nodes) hung directly off
// Block; this port rebuilds it once from cfg.Graph.ReachableNodes() after
// internal/functions has finished duplicating, since a Block there is
// immutable and carries no node list of its own.
type blockView struct {
	blocks   []*block.Block
	children map[*block.Block]map[*block.Block]bool
	parents  map[*block.Block]map[*block.Block]bool
}

func newBlockView(g *cfg.Graph) *blockView {
	v := &blockView{
		children: map[*block.Block]map[*block.Block]bool{},
		parents:  map[*block.Block]map[*block.Block]bool{},
	}
	seen := map[*block.Block]bool{}
	for _, n := range g.ReachableNodes() {
		if !seen[n.Block] {
			seen[n.Block] = true
			v.blocks = append(v.blocks, n.Block)
		}
		for _, c := range n.Children {
			addEdge(v.children, n.Block, c.Block)
			addEdge(v.parents, c.Block, n.Block)
		}
	}
	return v
}

func addEdge(m map[*block.Block]map[*block.Block]bool, from, to *block.Block) {
	if m[from] == nil {
		m[from] = map[*block.Block]bool{}
	}
	m[from][to] = true
}

func (v *blockView) Blocks() []*block.Block { return v.blocks }

func (v *blockView) Children(b *block.Block) map[*block.Block]bool { return v.children[b] }
func (v *blockView) Parents(b *block.Block) map[*block.Block]bool  { return v.parents[b] }

func (v *blockView) NParents(b *block.Block) int { return len(v.parents[b]) }
