package functions

import (
	"github.com/meppent/evmdecomp/internal/block"
)

// Candidate is a hypothesis about a function boundary: it starts at
// Start, and Ends holds the blocks where its call sites' execution
// paths stop matching one another (a dead-end block counts as such a
// point). detectCandidates produces one only where that divergence set
// is non-empty.
type Candidate struct {
	Start *block.Block
	Ends  map[*block.Block]bool
}

// IntermediateBlocks returns Ends plus every block on a path from Start
// to one of them, Start included: the set is seeded with Ends, and a
// DFS from Start stops expanding through any block already known to be
// intermediate, climbing back up the DFS parent chain to backfill
// ancestors the moment a descendant turns out to be intermediate. Grounded
// on candidate.rs's get_intermediate_blocks/_explore_dfs, converted to
// an explicit stack.
func (c *Candidate) IntermediateBlocks(idx *blockIndex) map[*block.Block]bool {
	visited := map[*block.Block]bool{}
	intermediate := map[*block.Block]bool{}
	for e := range c.Ends {
		intermediate[e] = true
	}
	parentOf := map[*block.Block]*block.Block{}

	stack := []*block.Block{c.Start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if intermediate[current] {
			movingUp := current
			for {
				parent, ok := parentOf[movingUp]
				if !ok {
					break
				}
				movingUp = parent
				if intermediate[movingUp] {
					break
				}
				intermediate[movingUp] = true
			}
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		if !intermediate[current] {
			for child := range idx.ChildBlocksOf(current) {
				parentOf[child] = current
				stack = append(stack, child)
			}
		}
	}
	return intermediate
}
