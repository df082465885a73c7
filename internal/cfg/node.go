package cfg

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/meppent/evmdecomp/internal/block"
)

// Node is one point in the control-flow graph: a block reached with a
// particular abstract stack. Two control-flow paths that reach the same
// block with an Equal initial Context collapse onto the same Node --
// Graph.intern is where that happens.
type Node struct {
	Block          *block.Block
	InitialContext *Context
	FinalContext   *Context
	Parents        []*Node
	Children       []*Node
}

// AddChild wires n -> c, recording c as a parent of itself in the same
// step. internal/loops and internal/functions call this directly when
// rewiring the graph (cutting back edges, duplicating subgraphs).
func (n *Node) AddChild(c *Node) {
	n.Children = append(n.Children, c)
	c.Parents = append(c.Parents, n)
}

// RemoveChild severs n -> c.
func (n *Node) RemoveChild(c *Node) {
	n.Children = removeNode(n.Children, c)
	c.Parents = removeNode(c.Parents, n)
}

func (n *Node) addChild(c *Node) { n.AddChild(c) }

// NewDetachedNode builds a node over b with the given initial context,
// computing its FinalContext the same way Graph.Build does, but without
// ever consulting or registering into a Graph's intern table. Component
// F (internal/functions) uses this when it duplicates a subgraph for a
// detected function: a duplicated node must never merge back onto the
// node it was copied from just because it happens to land on the same
// (pcStart, context) key.
func NewDetachedNode(b *block.Block, initial *Context) *Node {
	return &Node{Block: b, InitialContext: initial, FinalContext: Apply(b, initial)}
}

func removeNode(nodes []*Node, target *Node) []*Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// contextHash derives the key under which a (pcStart, context) pair is
// interned. Using Keccak256 keeps node identity collision-free in
// practice while letting the intern table stay a plain map keyed by a
// fixed-size array, rather than needing Context itself to be comparable.
func contextHash(pcStart int, ctx *Context) [32]byte {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(pcStart))
	h.Write(buf[:])
	h.Write([]byte{byte(ctx.Kind)})
	for _, v := range ctx.Stack {
		if v.IsBytes {
			h.Write([]byte{1})
			b := v.Bytes.Bytes32()
			h.Write(b[:])
		} else {
			h.Write([]byte{0})
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
