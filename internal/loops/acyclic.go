package loops

import (
	"fmt"

	"github.com/heimdalr/dag"

	"github.com/meppent/evmdecomp/internal/cfg"
)

// AcyclicGraph is a cfg.Graph with every loop's back edge removed, so
// that internal/skeleton can walk it as a DAG. Removed edges are
// recorded in DisconnectedAt so the skeleton pass can turn them back into
// LoopContinue scopes instead of simply losing that control-flow path.
type AcyclicGraph struct {
	Graph *cfg.Graph
	Loops *BlockLoops

	// DisconnectedAt maps a block's pcStart to the label of the loop whose
	// back edge was cut there.
	DisconnectedAt map[int]int

	// VerificationErr is non-nil if, after cutting every back edge
	// FindBlockLoops found, replaying the graph into a DAG still detected
	// a cycle -- an internal-consistency signal, not a malformed-input
	// one, since it would mean the label-cutting pass above missed an
	// edge.
	VerificationErr error
}

type vertex struct{ id string }

func (v vertex) ID() string { return v.id }

func nodeVertexID(n *cfg.Node) string { return fmt.Sprintf("%p", n) }

// Reduce finds every loop in g and disconnects the edge(s) that enter
// each loop's header from within the loop body, then verifies the result
// really is acyclic by replaying it into a github.com/heimdalr/dag.DAG
// (whose AddEdge rejects any edge that would close a cycle) -- a
// two-color-DFS-equivalent check, reusing a real dependency instead of
// hand-rolling it.
func Reduce(g *cfg.Graph) *AcyclicGraph {
	blockLoops, _ := FindBlockLoops(g)
	disconnected := map[int]int{}

	for _, n := range g.Nodes() {
		parentLabels := blockLoops.LabelsAtPCStart(n.Block.PCStart())
		for _, child := range append([]*cfg.Node(nil), n.Children...) {
			entryLabel, hasEntry := blockLoops.LabelOfEntry(child.Block.PCStart())
			if !hasEntry || !parentLabels[entryLabel] {
				continue
			}
			n.RemoveChild(child)
			if _, already := disconnected[n.Block.PCStart()]; !already {
				disconnected[n.Block.PCStart()] = entryLabel
			}
		}
	}

	ag := &AcyclicGraph{Graph: g, Loops: blockLoops, DisconnectedAt: disconnected}
	ag.VerificationErr = ag.verifyAcyclic()
	return ag
}

func (ag *AcyclicGraph) verifyAcyclic() error {
	d := dag.NewDAG()
	ids := make(map[*cfg.Node]string, len(ag.Graph.Nodes()))
	for _, n := range ag.Graph.Nodes() {
		id := nodeVertexID(n)
		ids[n] = id
		if _, err := d.AddVertex(vertex{id}); err != nil {
			return fmt.Errorf("registering node: %w", err)
		}
	}
	for _, n := range ag.Graph.Nodes() {
		for _, c := range n.Children {
			if err := d.AddEdge(ids[n], ids[c]); err != nil {
				return fmt.Errorf("loop survived reduction at block %#x: %w", n.Block.PCStart(), err)
			}
		}
	}
	return nil
}
