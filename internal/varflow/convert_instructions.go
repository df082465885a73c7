package varflow

import (
	vm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/opcode"
)

// convertVopcodesToLines replays a straight-line run of vopcodes over a
// variable-level stack, turning each one into zero or one Line.
// Grounded on with_variables/incorporate_variables.rs's
// convert_vopcodes_to_lines.
func convertVopcodesToLines(initial *variablesStack, vopcodes []bytecode.Vopcode) (variablesStack, []Line) {
	current := initial.clone()
	var lines []Line

	for _, v := range vopcodes {
		switch {
		case opcode.IsDup(v.Opcode):
			depth := opcode.DupDepth(v.Opcode)
			newVar := current.createSingleVariable()
			lines = append(lines, Line{
				Kind: LineAssignment, HasReceivingVar: true, ReceivingVar: newVar,
				AssignedValue: existing(current.peekAt(depth - 1)),
			})
			current.push(newVar)

		case opcode.IsPush(v.Opcode):
			newVar := current.createSingleVariable()
			lines = append(lines, Line{
				Kind: LineAssignment, HasReceivingVar: true, ReceivingVar: newVar,
				AssignedValue: Value{Kind: ValueBytes, Bytes: v.Value},
			})
			current.push(newVar)

		case opcode.IsSwap(v.Opcode):
			current.swap(opcode.SwapDepth(v.Opcode))

		case opcode.IsPop(v.Opcode), v.Opcode == vm.JUMP:
			current.pop()

		case v.Opcode == vm.JUMPDEST:
			// no-op

		case v.Opcode == vm.JUMPI:
			current.pop() // destination, discarded: the CFG already resolved it
			lines = append(lines, Line{Kind: LineIf, Condition: existing(current.pop())})

		default:
			info := opcode.InfoOf(v.Opcode)
			args := valuesFromVars(current.multiPop(info.StackInput))
			var receivingVar Variable
			hasReceivingVar := info.StackOutput > 0
			if hasReceivingVar {
				receivingVar = current.createSingleVariable()
			}
			lines = append(lines, Line{
				Kind: LineAssignment, HasReceivingVar: hasReceivingVar, ReceivingVar: receivingVar,
				AssignedValue: Value{Kind: ValueCalculation, Opcode: v.Opcode, Args: args},
			})
			if hasReceivingVar {
				current.push(receivingVar)
			}
		}
	}

	return current, lines
}
