package loops

import (
	"sort"

	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/pkg/logging"
)

// BlockLoops projects NodeLoops' per-node labels down to the block level
// (keyed by PCStart, since a block can be represented by several nodes
// once the abstract stack diverges across call sites), then merges any
// loops that turn out to start at the same block -- which happens
// whenever a loop header was reached under more than one abstract stack
// and so produced more than one node, each starting its own label.
type BlockLoops struct {
	PCStartToLabels    map[int]map[int]bool
	LabelToPCStarts    map[int]map[int]bool
	LabelToEntryPC     map[int]int
	EntryPCToLabel     map[int]int
}

func newBlockLoops() *BlockLoops {
	return &BlockLoops{
		PCStartToLabels: map[int]map[int]bool{},
		LabelToPCStarts: map[int]map[int]bool{},
		LabelToEntryPC:  map[int]int{},
		EntryPCToLabel:  map[int]int{},
	}
}

// FindBlockLoops runs FindNodeLoops over g and projects the result to
// block granularity.
func FindBlockLoops(g *cfg.Graph) (*BlockLoops, *NodeLoops) {
	nl := FindNodeLoops(g)
	bl := newBlockLoops()

	for _, n := range g.Nodes() {
		for label := range nl.Labels[n] {
			bl.addLabelToPCStart(n.Block.PCStart(), label)
		}
	}
	for label := 0; label < nl.freeLabel; label++ {
		bl.addLoopEntry(computeLoopEntryPCStart(nl, label), label)
	}
	bl.mergeDuplicates()
	return bl, nl
}

func computeLoopEntryPCStart(nl *NodeLoops, label int) int {
	moving := nl.LoopEntries[label]
	for {
		parentNode := nl.parentOf[moving]
		if parentNode == nil {
			// moving has no DFS parent, meaning it's the graph's own
			// entry node -- there is nothing further to walk up to, so
			// moving is its own loop entry.
			return moving.Block.PCStart()
		}
		parentBlockPC := parentNode.Block.PCStart()
		if !labelsAtPCStart(nl, parentBlockPC).has(label) {
			return moving.Block.PCStart()
		}
		moving = parentNode
	}
}

type labelSet map[int]bool

func (s labelSet) has(label int) bool { return s[label] }

func labelsAtPCStart(nl *NodeLoops, pcStart int) labelSet {
	out := labelSet{}
	for _, n := range nl.graph.Nodes() {
		if n.Block.PCStart() != pcStart {
			continue
		}
		for l := range nl.Labels[n] {
			out[l] = true
		}
	}
	return out
}

func (bl *BlockLoops) addLabelToPCStart(pcStart, label int) {
	if bl.PCStartToLabels[pcStart] == nil {
		bl.PCStartToLabels[pcStart] = map[int]bool{}
	}
	if bl.LabelToPCStarts[label] == nil {
		bl.LabelToPCStarts[label] = map[int]bool{}
	}
	bl.PCStartToLabels[pcStart][label] = true
	bl.LabelToPCStarts[label][pcStart] = true
}

func (bl *BlockLoops) addLoopEntry(pcStart, label int) {
	bl.LabelToEntryPC[label] = pcStart
	bl.EntryPCToLabel[pcStart] = label
}

func (bl *BlockLoops) sortedLabels() []int {
	labels := make([]int, 0, len(bl.LabelToPCStarts))
	for l := range bl.LabelToPCStarts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// mergeDuplicates merges any two loops that were found to start at the
// same block: that is one loop, discovered twice because its header was
// reached with two different abstract stacks.
func (bl *BlockLoops) mergeDuplicates() {
	labels := bl.sortedLabels()
	for i := 0; i < len(labels); i++ {
		j := i + 1
		for j < len(labels) {
			if bl.LabelToEntryPC[labels[i]] == bl.LabelToEntryPC[labels[j]] {
				if !isSuperset(bl.LabelToPCStarts[labels[i]], bl.LabelToPCStarts[labels[j]]) {
					// The two labels claim the same loop header but disagree
					// on which blocks belong to the loop body -- the original
					// implementation flags this as a "strange loop" and keeps
					// going rather than failing the whole decompilation.
					logging.Default().Module("loops").Warn("strange loop",
						"entryPC", bl.LabelToEntryPC[labels[i]], "label", labels[i], "mergedLabel", labels[j])
				}
				bl.merge2Loops(labels[j], labels[i])
				labels = append(labels[:j], labels[j+1:]...)
			} else {
				j++
			}
		}
	}
}

func isSuperset(a, b map[int]bool) bool {
	for k := range b {
		if !a[k] {
			return false
		}
	}
	return true
}

func (bl *BlockLoops) merge2Loops(from, to int) {
	for pcStart := range bl.LabelToPCStarts[from] {
		delete(bl.PCStartToLabels[pcStart], from)
		bl.PCStartToLabels[pcStart][to] = true
		bl.LabelToPCStarts[to][pcStart] = true
	}
	bl.EntryPCToLabel[bl.LabelToEntryPC[to]] = to
	delete(bl.LabelToPCStarts, from)
	delete(bl.LabelToEntryPC, from)
}

func (bl *BlockLoops) LabelsAtPCStart(pcStart int) map[int]bool {
	if labels, ok := bl.PCStartToLabels[pcStart]; ok {
		return labels
	}
	return map[int]bool{}
}

func (bl *BlockLoops) Labels() []int { return bl.sortedLabels() }

func (bl *BlockLoops) BlockIsInLoop(pcStart, label int) bool {
	return bl.LabelToPCStarts[label][pcStart]
}

func (bl *BlockLoops) HasLoopStartingAt(pcStart int) bool {
	_, ok := bl.EntryPCToLabel[pcStart]
	return ok
}

func (bl *BlockLoops) LabelOfEntry(pcStart int) (int, bool) {
	l, ok := bl.EntryPCToLabel[pcStart]
	return l, ok
}

func (bl *BlockLoops) PCStartEntryForLabel(label int) int { return bl.LabelToEntryPC[label] }
