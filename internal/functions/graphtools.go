package functions

import (
	"github.com/meppent/evmdecomp/internal/cfg"
)

// dfsResult is the outcome of nodeDFS: every node actually visited, and
// the subset where stopCondition cut exploration short.
type dfsResult struct {
	visited map[*cfg.Node]bool
	stopped map[*cfg.Node]bool
}

// nodeDFS walks the graph from initial with an explicit stack (so depth
// is bounded only by heap, not by the goroutine stack). onConnection
// fires for every (parent, current) edge traversed, even when current
// was already visited by an earlier branch -- duplicateBlockConnection
// relies on exactly that to rewire every incoming path into a
// duplicated subgraph, not just the first one found.
func nodeDFS(initial *cfg.Node, stopCondition func(*cfg.Node) bool, onConnection func(parent, current *cfg.Node)) dfsResult {
	type step struct{ parent, current *cfg.Node }

	visited := map[*cfg.Node]bool{}
	stopped := map[*cfg.Node]bool{}
	stack := []step{{nil, initial}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.parent != nil && onConnection != nil {
			onConnection(top.parent, top.current)
		}
		if visited[top.current] {
			continue
		}
		visited[top.current] = true
		if stopCondition(top.current) {
			stopped[top.current] = true
			continue
		}
		for _, child := range top.current.Children {
			stack = append(stack, step{top.current, child})
		}
	}
	return dfsResult{visited: visited, stopped: stopped}
}

// clearOrphanNodes walks forward from initial, unlinking (and reporting)
// any node that has already lost every parent -- the state duplication
// surgery leaves the originals in once every incoming edge has been
// retargeted to a duplicate. Go's garbage collector would reclaim these
// regardless once nothing holds a pointer to them, but severing
// Children/Parents explicitly keeps the remaining live graph's edge
// lists accurate instead of depending on nothing ever iterating through
// a dead node first.
func clearOrphanNodes(initial *cfg.Node) map[*cfg.Node]bool {
	deleted := map[*cfg.Node]bool{}
	visited := map[*cfg.Node]bool{}
	stack := []*cfg.Node{initial}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true

		children := append([]*cfg.Node(nil), current.Children...)
		if len(current.Parents) == 0 {
			for _, c := range children {
				current.RemoveChild(c)
			}
			deleted[current] = true
		}
		stack = append(stack, children...)
	}
	return deleted
}
