// Package printer renders a fully simplified internal/varflow.Flow as
// readable source text: a minimal completeness supplement in place of
// GML/visualization output, which remains out of scope. Assembling one
// function's text is already internal/varflow.Function.String()'s job;
// this package's own job is ordering the whole program -- main first,
// then every other function by ascending label -- and prefixing any
// decoded compiler metadata as a leading comment block.
package printer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/varflow"
)

// Render produces the full program text for flow, with metadata (if
// any) rendered as a leading comment block.
func Render(flow *varflow.Flow, metadata []bytecode.Metadata) string {
	var b strings.Builder

	for _, m := range metadata {
		fmt.Fprintf(&b, "// %s\n", m)
	}
	if len(metadata) > 0 {
		b.WriteString("\n")
	}

	labels := make([]uint64, 0, len(flow.Functions))
	for label, fn := range flow.Functions {
		if fn.IsMain() {
			continue
		}
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	if main := flow.MainFunction(); main != nil {
		b.WriteString(main.String())
		b.WriteString("\n")
	}
	for _, label := range labels {
		b.WriteString("\n")
		b.WriteString(flow.Functions[label].String())
		b.WriteString("\n")
	}

	return b.String()
}
