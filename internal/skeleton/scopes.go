// Package skeleton implements spec.md component G: walking the acyclic
// graph from its entry block and classifying each block's outgoing edges
// into If/Loop/LoopContinue/Function/Junction/Panic scopes, the
// structured form internal/opcodeflow builds its instruction table from.
package skeleton

import (
	"fmt"
	"strings"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/functions"
)

// ScopeKind discriminates the shape of a Scope. Exactly one of Scope's
// payload fields is meaningful for a given Kind; the rest are zero.
type ScopeKind int

const (
	ScopeBlock ScopeKind = iota
	ScopeIf
	ScopeLoop
	ScopeLoopContinue
	ScopeFunction
	ScopeJunction
	ScopePanic
)

// Scope is one node of the reconstructed control structure.
type Scope struct {
	Kind ScopeKind

	Block     *block.Block // ScopeBlock
	If        *If          // ScopeIf
	LoopLabel int          // ScopeLoop, ScopeLoopContinue
	Function  *Function    // ScopeFunction
	Junction  *Junction    // ScopeJunction
}

// If holds the two arms of a deterministic two-way branch.
type If struct {
	True  []Scope
	False []Scope
}

// Function is a detected function's call/return metadata together with
// its body, built once and shared by every ScopeFunction reference to it.
type Function struct {
	Info         *functions.Function
	Instructions []Scope
}

// Junction is a block reached from more than one parent that isn't a
// detected function -- a plain merge point, built once and shared the
// same way Function is.
type Junction struct {
	Start        *block.Block
	Instructions []Scope
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeBlock:
		return fmt.Sprintf("-> execute block %#x", s.Block.PCStart())
	case ScopeIf:
		var b strings.Builder
		b.WriteString("if:\n")
		b.WriteString(indent(scopesToString(s.If.True)))
		b.WriteString("else:\n")
		b.WriteString(indent(scopesToString(s.If.False)))
		return b.String()
	case ScopeLoop:
		return fmt.Sprintf("start loop %d", s.LoopLabel)
	case ScopeLoopContinue:
		return fmt.Sprintf("continue loop %d", s.LoopLabel)
	case ScopeFunction:
		var b strings.Builder
		b.WriteString(fmt.Sprintf("def function_starting_at_%#x:\n", s.Function.Info.Candidate.Start.PCStart()))
		b.WriteString(indent(scopesToString(s.Function.Instructions)))
		return b.String()
	case ScopeJunction:
		var b strings.Builder
		b.WriteString(fmt.Sprintf("def %#x:\n", s.Junction.Start.PCStart()))
		b.WriteString(indent(scopesToString(s.Junction.Instructions)))
		return b.String()
	case ScopePanic:
		return "panic"
	default:
		return ""
	}
}

// Alias is the short reference used whenever a Scope is mentioned in
// some other scope's body, rather than rendered in full: a call site
// should read as a call, not re-print the whole callee.
func (s Scope) Alias() (string, bool) {
	switch s.Kind {
	case ScopeFunction:
		return fmt.Sprintf("function_starting_at_%#x()", s.Function.Info.Candidate.Start.PCStart()), true
	case ScopeJunction:
		return fmt.Sprintf("junction_%#x()", s.Junction.Start.PCStart()), true
	default:
		return "", false
	}
}

func scopesToString(scopes []Scope) string {
	var b strings.Builder
	for _, s := range scopes {
		if alias, ok := s.Alias(); ok {
			b.WriteString(alias)
		} else {
			b.WriteString(s.String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
