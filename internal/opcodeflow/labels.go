package opcodeflow

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/meppent/evmdecomp/internal/block"
)

// computeFunctionLabel derives a function's table key from the block
// it starts at. Grounded on with_opcodes/flow_with_opcodes.rs's
// compute_function_label, which hashes the Rust Block value directly
// (its derived Hash impl walks both the block's code and its
// DuplicationInfo chain, so two call-site-specific duplicates of the
// same original block still hash to distinct labels). This port hashes
// the starting PC plus the duplication chain the same way, with
// Keccak256 for the same collision-avoidance reasons internal/cfg
// hashes node identity that way.
func computeFunctionLabel(b *block.Block) uint64 {
	h := sha3.NewLegacyKeccak256()
	writeBlockIdentity(h, b)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

func writeBlockIdentity(h io.Writer, b *block.Block) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(b.PCStart()))
	h.Write(buf[:])
	if b.DuplicationInfo == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	binary.BigEndian.PutUint64(buf[:], uint64(b.DuplicationInfo.Index))
	h.Write(buf[:])
	writeBlockIdentity(h, b.DuplicationInfo.Ancestor)
}
