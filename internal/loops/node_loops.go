// Package loops implements spec.md component E: finding every loop in the
// control-flow graph by a single DFS pass that labels nodes as it finds
// back edges, projecting those labels down to the block level, and then
// reducing the graph to a DAG by cutting each loop's back edges.
package loops

import (
	"github.com/meppent/evmdecomp/internal/cfg"
)

// NodeLoops is the result of one DFS exploration of a cfg.Graph: every
// node is labeled with the set of loops (identified by an arbitrary,
// densely-allocated integer) it participates in, and each loop knows
// which node is its entry (the node a back edge points back to).
type NodeLoops struct {
	graph *cfg.Graph

	visited           map[*cfg.Node]bool
	parentOf          map[*cfg.Node]*cfg.Node
	currentParents    map[*cfg.Node]bool
	currentLoopOrigins map[int]bool

	Labels      map[*cfg.Node]map[int]bool
	freeLabel   int
	LoopEntries map[int]*cfg.Node
	loopStartingAt map[*cfg.Node]int
}

// FindNodeLoops explores g with an explicit stack (the original's
// recursive DFS, made iterative per the Go realization notes: a
// pathological contract's CFG can nest deeper than the default goroutine
// stack would comfortably allow).
func FindNodeLoops(g *cfg.Graph) *NodeLoops {
	nl := &NodeLoops{
		graph:              g,
		visited:            map[*cfg.Node]bool{},
		parentOf:           map[*cfg.Node]*cfg.Node{},
		currentParents:     map[*cfg.Node]bool{},
		currentLoopOrigins: map[int]bool{},
		Labels:             map[*cfg.Node]map[int]bool{},
		LoopEntries:        map[int]*cfg.Node{},
		loopStartingAt:     map[*cfg.Node]int{},
	}
	for _, n := range g.Nodes() {
		nl.Labels[n] = map[int]bool{}
	}
	if g.Entry == nil {
		return nl
	}
	nl.exploreDFS(nil, g.Entry)
	return nl
}

// frame is one level of the explicit DFS stack: a node plus which of its
// children still need visiting (children are explored in order, exactly
// as the original's recursive version would).
type frame struct {
	prev     *cfg.Node
	node     *cfg.Node
	nextKid  int
	entered  bool
}

func (nl *NodeLoops) exploreDFS(prev *cfg.Node, start *cfg.Node) {
	stack := []*frame{{prev: prev, node: start}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if !top.entered {
			top.entered = true
			if nl.visited[top.node] {
				if top.prev != nil && nl.currentParents[top.node] {
					nl.onLoopFound(top.prev, top.node)
				}
				if top.prev != nil {
					nl.onJunctionFound(top.prev, top.node)
				}
				stack = stack[:len(stack)-1]
				continue
			}
			nl.visited[top.node] = true
			nl.parentOf[top.node] = top.prev
			nl.currentParents[top.node] = true
		}

		if top.nextKid < len(top.node.Children) {
			child := top.node.Children[top.nextKid]
			top.nextKid++
			stack = append(stack, &frame{prev: top.node, node: child})
			continue
		}

		// all children explored: unwind, mirroring explore_dfs's
		// post-recursion cleanup.
		delete(nl.currentParents, top.node)
		if label, ok := nl.loopStartingAt[top.node]; ok {
			delete(nl.currentLoopOrigins, label)
		}
		stack = stack[:len(stack)-1]
	}
}

func (nl *NodeLoops) onLoopFound(lastNode, firstNode *cfg.Node) {
	if label, ok := nl.loopStartingAt[firstNode]; ok {
		if nl.currentLoopOrigins[label] {
			return
		}
	}

	label := nl.freeLabel
	nl.freeLabel++

	nl.LoopEntries[label] = firstNode
	nl.loopStartingAt[firstNode] = label
	nl.currentLoopOrigins[label] = true

	moving := lastNode
	for {
		if moving == firstNode {
			nl.addLabel(moving, label)
			break
		}
		if otherLabel, ok := nl.loopStartingAt[moving]; ok {
			for other := range nl.nodesWithLabel(otherLabel) {
				nl.addLabel(other, label)
			}
		} else {
			nl.addLabel(moving, label)
		}
		moving = nl.parentOf[moving]
	}
}

func (nl *NodeLoops) onJunctionFound(prev, common *cfg.Node) {
	var joining []int
	for label := range nl.currentLoopOrigins {
		if nl.Labels[common][label] {
			joining = append(joining, label)
		}
	}
	for _, label := range joining {
		moving := prev
		for !nl.Labels[moving][label] {
			nl.addLabel(moving, label)
			moving = nl.parentOf[moving]
		}
	}
}

func (nl *NodeLoops) nodesWithLabel(label int) map[*cfg.Node]bool {
	matching := map[*cfg.Node]bool{}
	toExplore := []*cfg.Node{nl.LoopEntries[label]}
	for len(toExplore) > 0 {
		n := toExplore[len(toExplore)-1]
		toExplore = toExplore[:len(toExplore)-1]
		matching[n] = true
		for _, c := range n.Children {
			if !matching[c] && nl.Labels[c][label] {
				toExplore = append(toExplore, c)
			}
		}
	}
	return matching
}

func (nl *NodeLoops) addLabel(n *cfg.Node, label int) {
	nl.Labels[n][label] = true
}

// LabelsAtBlock unions the labels of every node backed by b -- a block
// duplicated for a loop in one context and not in another can otherwise
// carry different label sets per node.
func (nl *NodeLoops) LabelsAtBlock(pcStart int, nodesByPCStart map[int][]*cfg.Node) map[int]bool {
	out := map[int]bool{}
	for _, n := range nodesByPCStart[pcStart] {
		for l := range nl.Labels[n] {
			out[l] = true
		}
	}
	return out
}
