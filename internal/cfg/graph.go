package cfg

import (
	"github.com/meppent/evmdecomp/internal/block"
)

// Graph is the control-flow graph rooted at PC 0: every reachable Node,
// interned by (pcStart, abstract-stack) so that a block reached with the
// same coarse stack from different paths is represented once.
type Graph struct {
	Blocks     map[int]*block.Block
	Entry      *Node
	nodesByKey map[[32]byte]*Node
}

// Build performs an iterative (work-queue, not recursive) breadth-first
// walk from PC 0, symbolically executing each reachable block over the
// coarse stack abstraction and following every jump destination that
// folds to a known program counter. Destinations that do not land on a
// block boundary -- a jump into the middle of an instruction, or a
// destination that was never resolved -- are silently dropped rather
// than treated as an error (spec.md section 7).
func Build(blocks map[int]*block.Block) *Graph {
	g := &Graph{Blocks: blocks, nodesByKey: make(map[[32]byte]*Node)}
	entryBlock, ok := blocks[0]
	if !ok {
		return g
	}

	entry, _ := g.intern(entryBlock, NewContext())
	g.Entry = entry

	queue := []*Node{entry}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		var dests []int
		switch n.FinalContext.Kind {
		case Jumping:
			dests = n.FinalContext.Destinations
		case Running:
			// no terminal jump or exit -- this block was only split off
			// because the next instruction is a JUMPDEST, so control
			// falls straight through to it.
			dests = []int{n.Block.NextPCStart()}
		default: // Stopped
			continue
		}

		for _, dest := range dests {
			childBlock, ok := g.Blocks[dest]
			if !ok {
				continue
			}
			childCtx := &Context{
				Stack: append([]SimpleValue(nil), n.FinalContext.Stack...),
				Kind:  Running,
			}
			child, existed := g.intern(childBlock, childCtx)
			n.addChild(child)
			if !existed {
				queue = append(queue, child)
			}
		}
	}

	g.dropDirectSelfLoops()
	return g
}

func (g *Graph) intern(b *block.Block, initial *Context) (*Node, bool) {
	key := contextHash(b.PCStart(), initial)
	if n, ok := g.nodesByKey[key]; ok {
		return n, true
	}
	n := &Node{Block: b, InitialContext: initial, FinalContext: Apply(b, initial)}
	g.nodesByKey[key] = n
	return n, false
}

// Nodes returns every interned node, in no particular order. This
// reflects the state of construction (and internal/loops' back-edge
// cutting, which mutates Children/Parents in place but never touches
// the intern table): it is the right view for anything that ran before
// internal/functions starts duplicating subgraphs.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodesByKey))
	for _, n := range g.nodesByKey {
		nodes = append(nodes, n)
	}
	return nodes
}

// ReachableNodes walks Children from Entry and returns every node still
// actually reachable. internal/functions calls this instead of Nodes():
// once it starts splicing in duplicated subgraphs (never registered in
// the intern table, since duplicates must never collapse back onto the
// node they were copied from) and retargeting edges away from the
// originals, Nodes() stops reflecting the live graph but ReachableNodes
// always does -- a node that duplication has cut off from Entry simply
// stops appearing, with no explicit orphan bookkeeping required.
func (g *Graph) ReachableNodes() []*Node {
	if g.Entry == nil {
		return nil
	}
	seen := map[*Node]bool{g.Entry: true}
	order := []*Node{g.Entry}
	for i := 0; i < len(order); i++ {
		for _, c := range order[i].Children {
			if !seen[c] {
				seen[c] = true
				order = append(order, c)
			}
		}
	}
	return order
}

// dropDirectSelfLoops cuts the one edge shape the coarse abstraction can
// produce that is never useful to a downstream loop-finding pass: a node
// that is its own child, because its block's net effect on the stack is
// exactly the fixed point it started from, so every iteration re-interns
// onto the very same node. The coarse abstraction has, by construction,
// thrown away whatever runtime state would actually distinguish one trip
// around such a loop from the next, so there is no information left that
// could turn it into a real, boundable loop -- it reads as a node looping
// on itself forever. internal/loops' DFS already treats an ordinary
// back edge between two distinct nodes as a ordinary loop; this only
// handles the degenerate single-node case, matching the direct-edge
// branch of the original's self-loop cleanup (the general chain-of-
// same-block-ancestors branch exists there purely to relabel a
// duplicated-Block identity for an *external* entry node feeding into
// such a loop, a Rust Rc-sharing bookkeeping concern this Go graph, which
// never aliases Block identity across nodes, does not have).
func (g *Graph) dropDirectSelfLoops() {
	for _, n := range g.Nodes() {
		for _, c := range append([]*Node(nil), n.Children...) {
			if c == n {
				n.RemoveChild(c)
			}
		}
	}
}
