// Package decompiler wires components B through I into one top-level
// pipeline: partition bytecode into blocks, build the symbolic CFG,
// reduce it to a DAG, detect functions, assemble the control-flow
// skeleton, lift it to an opcode-scoped function table, then lift that
// to named variables and simplify. There is no service lifecycle to
// start or stop here -- Run is a single pure call over the wired passes,
// not a long-lived process.
package decompiler

import (
	"context"
	"fmt"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/internal/loops"
	"github.com/meppent/evmdecomp/internal/opcodeflow"
	"github.com/meppent/evmdecomp/internal/skeleton"
	"github.com/meppent/evmdecomp/internal/varflow"
	"github.com/meppent/evmdecomp/pkg/logging"
	"github.com/meppent/evmdecomp/pkg/printer"
)

// Result is the full output of one decompilation.
type Result struct {
	// Metadata is the solc CBOR trailer, if one was present. Purely
	// informational -- nothing upstream reads it back.
	Metadata []bytecode.Metadata

	// VarFlow is the final, simplified variable-level function table
	// (component I's output).
	VarFlow *varflow.Flow

	// Rendered is VarFlow printed as a readable program, the minimal
	// completeness supplement pkg/printer provides in place of the
	// original's GML/visualization output (out of scope here).
	Rendered string
}

// Run decompiles raw bytecode (instructions optionally followed by a
// solc CBOR metadata trailer) into a Result. ctx is checked between
// passes so a caller-imposed context.WithTimeout (or cancellation)
// takes effect promptly; the core passes themselves are pure CPU-bound
// graph algorithms with no suspension points of their own, per
// spec.md §5.
func Run(ctx context.Context, raw []byte) (*Result, error) {
	log := logging.Default().Module("decompiler")

	instrCode, metaBytes := bytecode.SplitMetadata(raw)
	var metadata []bytecode.Metadata
	if len(metaBytes) > 0 {
		md, err := bytecode.DecodeMetadata(metaBytes)
		if err != nil {
			log.Warn("failed to decode metadata trailer", "err", err)
		} else {
			metadata = md
		}
	}

	vopcodes := bytecode.Decode(instrCode)
	log.Debug("decoded bytecode", "nVopcodes", len(vopcodes), "nMetadataEntries", len(metadata))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}

	blocks := block.ByPCStart(block.Partition(vopcodes))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}

	graph := cfg.Build(blocks)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}

	acyclic := loops.Reduce(graph)
	if acyclic.VerificationErr != nil {
		return nil, fmt.Errorf("decompiler: graph did not reduce to a DAG: %w", acyclic.VerificationErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}

	sk := skeleton.Build(acyclic)
	log.Debug("built skeleton", "nFunctions", len(sk.Functions), "nJunctions", len(sk.Junctions))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}

	opFlow := opcodeflow.Build(sk)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decompiler: %w", err)
	}

	flow := varflow.Build(opFlow)
	log.Debug("lifted to variables", "nFunctions", len(flow.Functions))

	return &Result{
		Metadata: metadata,
		VarFlow:  flow,
		Rendered: printer.Render(flow, metadata),
	}, nil
}
