package functions

import (
	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/cfg"
)

// divergences records, for every pair of nodes sharing a block, the set
// of blocks where one of them stops behaving like the other -- either
// because, walked in step from the shared block, their children at the
// same position land on different blocks there, or because the walk
// reaches a dead end. detectCandidates reads this to find where a call
// site's paths split away from another's.
// Grounded on divergences.rs's Divergences.
type divergences struct {
	data map[[2]*cfg.Node]map[*block.Block]bool
}

func newDivergences(idx *blockIndex) *divergences {
	d := &divergences{data: map[[2]*cfg.Node]map[*block.Block]bool{}}
	for _, b := range idx.AllBlocks() {
		nodes := idx.NodesOf(b)
		for _, n0 := range nodes {
			for _, n1 := range nodes {
				d.data[[2]*cfg.Node{n0, n1}] = map[*block.Block]bool{}
			}
		}
	}
	return d
}

func (d *divergences) add(from, neighbor *cfg.Node, b *block.Block) {
	d.data[[2]*cfg.Node{from, neighbor}][b] = true
}

func (d *divergences) addMany(from, neighbor *cfg.Node, blocks map[*block.Block]bool) {
	set := d.data[[2]*cfg.Node{from, neighbor}]
	for b := range blocks {
		set[b] = true
	}
}

func (d *divergences) Get(from, neighbor *cfg.Node) map[*block.Block]bool {
	return d.data[[2]*cfg.Node{from, neighbor}]
}

// computeDivergences runs one DFS from each of the graph's orphan nodes
// (the entry, plus any disconnected component's root), filling in
// divergences bottom-up: a node's divergence set depends only on its
// children's, already complete once the DFS leaves them, so this is a
// post-order walk expressed with an explicit stack instead of the
// original's recursion (spec.md's Go realization notes; internal/loops
// does the same).
func computeDivergences(idx *blockIndex) *divergences {
	c := &divCompute{idx: idx, d: newDivergences(idx), visited: map[*cfg.Node]bool{}}
	for _, root := range idx.OrphanNodes() {
		c.dfs(root)
	}
	return c.d
}

type divCompute struct {
	idx     *blockIndex
	d       *divergences
	visited map[*cfg.Node]bool
}

type divFrame struct {
	node    *cfg.Node
	nextKid int
}

func (c *divCompute) dfs(root *cfg.Node) {
	stack := []*divFrame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if c.visited[top.node] {
			stack = stack[:len(stack)-1]
			continue
		}
		if c.idx.IsDeadEnd(top.node.Block) {
			c.handleDeadEnd(top.node)
			c.visited[top.node] = true
			stack = stack[:len(stack)-1]
			continue
		}
		if top.nextKid < len(top.node.Children) {
			childIdx := top.nextKid
			top.nextKid++
			stack = append(stack, &divFrame{node: top.node.Children[childIdx]})
			continue
		}

		c.aggregate(top.node)
		c.visited[top.node] = true
		stack = stack[:len(stack)-1]
	}
}

// handleDeadEnd gives a dead-end node's own block as the divergence
// point against every node of that block, itself included: nothing past
// a dead end ever reconverges with anything, so the dead end itself is
// as far as two paths through it can be said to agree.
func (c *divCompute) handleDeadEnd(node *cfg.Node) {
	for _, neighbor := range c.idx.NodesOf(node.Block) {
		c.d.add(node, neighbor, node.Block)
	}
}

// aggregate folds each child's already-complete divergence set up into
// node's: two same-block neighbors whose child at the same position
// lands on the same block inherit whatever that child pair already
// diverges on; a mismatched landing block makes node's own block the
// divergence point instead. Children line up positionally across
// same-block nodes because they all come from one block's
// JUMP/JUMPI/fall-through structure.
func (c *divCompute) aggregate(node *cfg.Node) {
	neighbors := c.idx.NodesOf(node.Block)
	for childIdx, child := range node.Children {
		for _, neighbor := range neighbors {
			if neighbor == node || childIdx >= len(neighbor.Children) {
				continue
			}
			neighborChild := neighbor.Children[childIdx]
			if neighborChild.Block == child.Block {
				c.d.addMany(node, neighbor, c.d.Get(child, neighborChild))
			} else {
				c.d.add(node, neighbor, node.Block)
			}
		}
	}
}
