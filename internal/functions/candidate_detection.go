package functions

import (
	"fmt"
	"sort"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/internal/loops"
)

// detectCandidates looks, within every block, at each pair of nodes that
// were reached from different parent blocks (so really do represent two
// distinct call sites rather than one path that happens to visit the
// block's node twice) and, wherever their divergence set is non-empty,
// records a Candidate naming that block as a possible function start.
// Candidates whose start is itself a loop header are dropped: the loop
// body is not a function, it is the same block run more than once.
// Grounded on candidate_detection.rs's detect_candidates.
func detectCandidates(ag *loops.AcyclicGraph, idx *blockIndex) []*Candidate {
	div := computeDivergences(idx)

	seen := map[string]bool{}
	var candidates []*Candidate
	for _, b := range idx.AllBlocks() {
		nodes := idx.NodesOf(b)
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				n0, n1 := nodes[i], nodes[j]
				if !haveDifferentOrigin(n0, n1) {
					continue
				}
				ends := div.Get(n0, n1)
				if len(ends) == 0 {
					continue
				}
				cand := &Candidate{Start: b, Ends: copyBlockSet(ends)}
				key := candidateKey(cand)
				if seen[key] {
					continue
				}
				seen[key] = true
				candidates = append(candidates, cand)
			}
		}
	}
	return removeCandidatesStartingOnLoops(ag, candidates)
}

func haveDifferentOrigin(n0, n1 *cfg.Node) bool {
	p0 := nodeParentBlocks(n0)
	p1 := nodeParentBlocks(n1)
	for b := range p0 {
		if !p1[b] {
			return true
		}
	}
	for b := range p1 {
		if !p0[b] {
			return true
		}
	}
	return false
}

func nodeParentBlocks(n *cfg.Node) map[*block.Block]bool {
	out := map[*block.Block]bool{}
	for _, p := range n.Parents {
		out[p.Block] = true
	}
	return out
}

// removeCandidatesStartingOnLoops drops every candidate whose Start is a
// loop header: the current detection pass finds those as a side effect
// (a loop's back edge already having been cut leaves its header looking
// like a call site reconverging with itself), but a loop body is not a
// function candidate.
func removeCandidatesStartingOnLoops(ag *loops.AcyclicGraph, candidates []*Candidate) []*Candidate {
	var cleaned []*Candidate
	for _, c := range candidates {
		if ag.Loops.HasLoopStartingAt(c.Start.PCStart()) {
			continue
		}
		cleaned = append(cleaned, c)
	}
	return cleaned
}

func candidateKey(c *Candidate) string {
	ends := make([]string, 0, len(c.Ends))
	for e := range c.Ends {
		ends = append(ends, fmt.Sprintf("%p", e))
	}
	sort.Strings(ends)
	return fmt.Sprintf("%p|%v", c.Start, ends)
}

func copyBlockSet(in map[*block.Block]bool) map[*block.Block]bool {
	out := make(map[*block.Block]bool, len(in))
	for b := range in {
		out[b] = true
	}
	return out
}
