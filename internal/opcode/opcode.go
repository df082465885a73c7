// Package opcode describes the EVM instruction set used by the
// decompilation pipeline: per-opcode stack arity, the external-effect
// flag that drives Effect construction in internal/symbolic, and the
// 256-bit constant folding needed to resolve computed jump destinations.
//
// Opcode byte values are reused directly from go-ethereum's core/vm
// package rather than re-declared, so this table can never silently
// drift from the canonical EVM assignment (notably OR=0x17, XOR=0x18 --
// the original decompiler this package is ported from swapped that pair).
package opcode

import (
	vm "github.com/ethereum/go-ethereum/core/vm"
)

// OpCode is an EVM instruction byte.
type OpCode = vm.OpCode

// Info is the static, input-independent description of one opcode: how
// many stack slots it reads, how many it produces, and whether executing
// it has an effect external to the stack (storage, memory, calls, logs,
// control flow) that must be preserved in program order.
type Info struct {
	Code           OpCode
	Name           string
	StackInput     int
	StackOutput    int
	ExternalEffect bool
}

// externalEffectSet is exactly the set named in spec.md section 6.
var externalEffectSet = map[OpCode]bool{
	vm.STOP: true, vm.SHA3: true, vm.CALLDATACOPY: true, vm.CODESIZE: true,
	vm.CODECOPY: true, vm.EXTCODESIZE: true, vm.EXTCODECOPY: true,
	vm.RETURNDATASIZE: true, vm.RETURNDATACOPY: true, vm.EXTCODEHASH: true,
	vm.SELFBALANCE: true, vm.MLOAD: true, vm.MSTORE: true, vm.MSTORE8: true,
	vm.SLOAD: true, vm.SSTORE: true, vm.JUMP: true, vm.JUMPI: true,
	vm.MSIZE: true, vm.GAS: true,
	vm.LOG0: true, vm.LOG1: true, vm.LOG2: true, vm.LOG3: true, vm.LOG4: true,
	vm.CREATE: true, vm.CALL: true, vm.CALLCODE: true, vm.RETURN: true,
	vm.DELEGATECALL: true, vm.CREATE2: true, vm.STATICCALL: true,
	vm.REVERT: true, vm.SELFDESTRUCT: true, vm.BALANCE: true,
}

// fixedArity covers every opcode whose stack arity does not depend on an
// embedded parameter (i.e. everything except PUSH/DUP/SWAP/LOG).
var fixedArity = map[OpCode][2]int{
	vm.STOP: {0, 0},
	vm.ADD: {2, 1}, vm.MUL: {2, 1}, vm.SUB: {2, 1}, vm.DIV: {2, 1},
	vm.SDIV: {2, 1}, vm.MOD: {2, 1}, vm.SMOD: {2, 1},
	vm.ADDMOD: {3, 1}, vm.MULMOD: {3, 1}, vm.EXP: {2, 1}, vm.SIGNEXTEND: {2, 1},
	vm.LT: {2, 1}, vm.GT: {2, 1}, vm.SLT: {2, 1}, vm.SGT: {2, 1}, vm.EQ: {2, 1},
	vm.ISZERO: {1, 1}, vm.AND: {2, 1}, vm.OR: {2, 1}, vm.XOR: {2, 1},
	vm.NOT: {1, 1}, vm.BYTE: {2, 1}, vm.SHL: {2, 1}, vm.SHR: {2, 1}, vm.SAR: {2, 1},
	vm.SHA3: {2, 1},
	vm.ADDRESS: {0, 1}, vm.BALANCE: {1, 1}, vm.ORIGIN: {0, 1}, vm.CALLER: {0, 1},
	vm.CALLVALUE: {0, 1}, vm.CALLDATALOAD: {1, 1}, vm.CALLDATASIZE: {0, 1},
	vm.CALLDATACOPY: {3, 0}, vm.CODESIZE: {0, 1}, vm.CODECOPY: {3, 0},
	vm.GASPRICE: {0, 1}, vm.EXTCODESIZE: {1, 1}, vm.EXTCODECOPY: {4, 0},
	vm.RETURNDATASIZE: {0, 1}, vm.RETURNDATACOPY: {3, 0}, vm.EXTCODEHASH: {1, 1},
	vm.BLOCKHASH: {1, 1}, vm.COINBASE: {0, 1}, vm.TIMESTAMP: {0, 1},
	vm.NUMBER: {0, 1}, vm.DIFFICULTY: {0, 1}, vm.GASLIMIT: {0, 1},
	vm.CHAINID: {0, 1}, vm.SELFBALANCE: {0, 1}, vm.BASEFEE: {0, 1},
	vm.POP: {1, 0}, vm.MLOAD: {1, 1}, vm.MSTORE: {2, 0}, vm.MSTORE8: {2, 0},
	vm.SLOAD: {1, 1}, vm.SSTORE: {2, 0},
	vm.JUMP: {1, 0}, vm.JUMPI: {2, 0}, vm.PC: {0, 1}, vm.MSIZE: {0, 1},
	vm.GAS: {0, 1}, vm.JUMPDEST: {0, 0},
	vm.CREATE: {3, 1}, vm.CALL: {7, 1}, vm.CALLCODE: {7, 1}, vm.RETURN: {2, 0},
	vm.DELEGATECALL: {6, 1}, vm.CREATE2: {4, 1}, vm.STATICCALL: {6, 1},
	vm.REVERT: {2, 0}, vm.SELFDESTRUCT: {1, 0},
}

// InfoOf returns the static description of op. PUSH/DUP/SWAP/LOG carry a
// parameter embedded in the byte value itself; their arity is derived
// rather than looked up.
func InfoOf(op OpCode) Info {
	switch {
	case IsPush(op):
		return Info{Code: op, Name: op.String(), StackInput: 0, StackOutput: 1}
	case IsDup(op):
		d := DupDepth(op)
		return Info{Code: op, Name: op.String(), StackInput: d, StackOutput: d + 1}
	case IsSwap(op):
		d := SwapDepth(op)
		return Info{Code: op, Name: op.String(), StackInput: d + 1, StackOutput: d + 1}
	case IsLog(op):
		t := LogTopics(op)
		return Info{Code: op, Name: op.String(), StackInput: 2 + t, StackOutput: 0, ExternalEffect: true}
	}
	arity, known := fixedArity[op]
	if !known {
		// Undefined byte values (e.g. 0x0c-0x0f, 0x21-0x2f, ...): reported as
		// INVALID -- no inputs, no outputs, no effect. Of these bytes only
		// vm.INVALID (0xFE) is in IsExiting; any other undefined byte does
		// not end its block and sits in it like an ordinary instruction.
		return Info{Code: op, Name: "INVALID", StackInput: 0, StackOutput: 0}
	}
	return Info{
		Code:           op,
		Name:           op.String(),
		StackInput:     arity[0],
		StackOutput:    arity[1],
		ExternalEffect: externalEffectSet[op],
	}
}

// StackInput, StackOutput, HasExternalEffect are convenience wrappers
// around InfoOf used throughout internal/symbolic.
func StackInput(op OpCode) int       { return InfoOf(op).StackInput }
func StackOutput(op OpCode) int      { return InfoOf(op).StackOutput }
func HasExternalEffect(op OpCode) bool { return InfoOf(op).ExternalEffect }

func IsPush(op OpCode) bool { return op >= vm.PUSH1 && op <= vm.PUSH32 }

// PushSize returns n for PUSHn, the number of literal bytes that follow
// the opcode in the instruction stream.
func PushSize(op OpCode) int {
	if !IsPush(op) {
		return 0
	}
	return int(op) - int(vm.PUSH1) + 1
}

func IsDup(op OpCode) bool { return op >= vm.DUP1 && op <= vm.DUP16 }

// DupDepth returns d for DUPd (1-indexed from the top of stack).
func DupDepth(op OpCode) int {
	if !IsDup(op) {
		return 0
	}
	return int(op) - int(vm.DUP1) + 1
}

func IsSwap(op OpCode) bool { return op >= vm.SWAP1 && op <= vm.SWAP16 }

// SwapDepth returns d for SWAPd: the top of stack is exchanged with the
// element (d+1)-th from the top.
func SwapDepth(op OpCode) int {
	if !IsSwap(op) {
		return 0
	}
	return int(op) - int(vm.SWAP1) + 1
}

func IsLog(op OpCode) bool { return op >= vm.LOG0 && op <= vm.LOG4 }

// LogTopics returns the number of topic words for LOGn.
func LogTopics(op OpCode) int {
	if !IsLog(op) {
		return 0
	}
	return int(op) - int(vm.LOG0)
}

// IsJump is true for JUMP and JUMPI, the two opcodes that redirect
// control flow to a computed destination.
func IsJump(op OpCode) bool { return op == vm.JUMP || op == vm.JUMPI }

// IsPop reports whether op is POP, the one opcode that discards a stack
// slot without producing an Effect or a new SymbolicExpression.
func IsPop(op OpCode) bool { return op == vm.POP }

// IsExiting is true for opcodes that halt execution of the current call
// frame: the block they end has no fall-through or jump children.
func IsExiting(op OpCode) bool {
	switch op {
	case vm.STOP, vm.RETURN, vm.REVERT, vm.SELFDESTRUCT, vm.INVALID:
		return true
	default:
		return false
	}
}
