// Package bytecode turns a raw EVM byte string into the []Vopcode stream
// the core decompilation pipeline (internal/block onward) consumes, and
// best-effort decodes the solc metadata trailer some contracts carry.
//
// Per spec.md section 1 this decoding step is an external collaborator of
// the core pipeline, not one of its six passes -- the packages under
// internal/{symbolic,block,cfg,loops,functions,skeleton,opcodeflow,varflow}
// use only the decoded Vopcode type from here and never see raw bytes.
// It is included so the repository is runnable end
// to end and so the spec's literal-bytestring test scenarios (S1-S6) have
// somewhere to originate from.
package bytecode

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/meppent/evmdecomp/internal/opcode"
)

// Vopcode is one decoded instruction: an opcode, its literal value when
// it is a PUSH, its program counter, and whether it is the final
// instruction in the stream (no next-pc exists past it).
type Vopcode struct {
	Opcode opcode.OpCode
	Value  *uint256.Int // non-nil iff Opcode is PUSH1..PUSH32
	PC     int
	IsLast bool
}

// NextPC returns the program counter of the instruction immediately
// following this one in the byte stream, or false if this is the last
// instruction.
func (v Vopcode) NextPC() (int, bool) {
	if v.IsLast {
		return 0, false
	}
	return v.PC + 1 + opcode.PushSize(v.Opcode), true
}

// String renders "pc opcode-byte NAME [value]", grounded on the original
// implementation's Vopcode::to_string.
func (v Vopcode) String() string {
	s := fmt.Sprintf("%04x %02x %s", v.PC, byte(v.Opcode), v.Opcode.String())
	if opcode.IsPush(v.Opcode) {
		if v.Value != nil {
			s += " " + v.Value.Hex()
		} else {
			s += " invalid"
		}
	}
	return s
}
