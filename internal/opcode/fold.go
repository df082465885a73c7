package opcode

import (
	vm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// Fold evaluates op over args using 256-bit EVM arithmetic, returning
// (result, true) for the opcodes this package understands how to fold
// and (nil, false) otherwise. Folding is only ever needed to resolve a
// computed jump destination (internal/cfg), so only opcodes that can
// plausibly appear in a jump-destination expression are implemented,
// with the LT/GT comparison-against-itself bug fixed (see DESIGN.md).
func Fold(op OpCode, args []*uint256.Int) (*uint256.Int, bool) {
	z := new(uint256.Int)
	switch op {
	case vm.ADD:
		return z.Add(args[0], args[1]), true
	case vm.SUB:
		return z.Sub(args[0], args[1]), true
	case vm.MUL:
		return z.Mul(args[0], args[1]), true
	case vm.DIV:
		return z.Div(args[0], args[1]), true
	case vm.SDIV:
		return z.SDiv(args[0], args[1]), true
	case vm.MOD:
		return z.Mod(args[0], args[1]), true
	case vm.SMOD:
		return z.SMod(args[0], args[1]), true
	case vm.ADDMOD:
		return z.AddMod(args[0], args[1], args[2]), true
	case vm.MULMOD:
		return z.MulMod(args[0], args[1], args[2]), true
	case vm.EXP:
		return z.Exp(args[0], args[1]), true
	case vm.SIGNEXTEND:
		return z.ExtendSign(args[1], args[0]), true
	case vm.LT:
		return boolToU256(args[0].Lt(args[1])), true
	case vm.GT:
		return boolToU256(args[0].Gt(args[1])), true
	case vm.SLT:
		return boolToU256(args[0].Slt(args[1])), true
	case vm.SGT:
		return boolToU256(args[0].Sgt(args[1])), true
	case vm.EQ:
		return boolToU256(args[0].Eq(args[1])), true
	case vm.ISZERO:
		return boolToU256(args[0].IsZero()), true
	case vm.AND:
		return z.And(args[0], args[1]), true
	case vm.OR:
		return z.Or(args[0], args[1]), true
	case vm.XOR:
		return z.Xor(args[0], args[1]), true
	case vm.NOT:
		return z.Not(args[0]), true
	case vm.SHL:
		return z.Lsh(args[1], uint(capShift(args[0]))), true
	case vm.SHR:
		return z.Rsh(args[1], uint(capShift(args[0]))), true
	case vm.SAR:
		return z.SRsh(args[1], uint(capShift(args[0]))), true
	default:
		return nil, false
	}
}

func boolToU256(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	return uint256.NewInt(0)
}

// capShift clamps a shift amount to 256 so a huge literal shift does not
// overflow the uint conversion; the EVM itself defines shifts >= 256 as
// producing an all-zero (or all-one, for SAR of a negative value) result,
// which Lsh/Rsh/SRsh already do once the count saturates.
func capShift(n *uint256.Int) uint64 {
	if n.GtUint64(256) {
		return 256
	}
	return n.Uint64()
}
