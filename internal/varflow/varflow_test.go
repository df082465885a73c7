package varflow

import (
	"testing"

	"github.com/holiman/uint256"

	vm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/meppent/evmdecomp/internal/block"
	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/cfg"
	"github.com/meppent/evmdecomp/internal/loops"
	"github.com/meppent/evmdecomp/internal/opcodeflow"
	"github.com/meppent/evmdecomp/internal/skeleton"
)

func buildSubroutineFlow(t *testing.T) *opcodeflow.Flow {
	t.Helper()
	vs, err := bytecode.DecodeHex("6001600a5760126010565b60146010565b565b005b00")
	if err != nil {
		t.Fatal(err)
	}
	blocks := block.ByPCStart(block.Partition(vs))
	g := cfg.Build(blocks)
	ag := loops.Reduce(g)
	if ag.VerificationErr != nil {
		t.Fatalf("graph should verify acyclic, got: %v", ag.VerificationErr)
	}
	sk := skeleton.Build(ag)
	return opcodeflow.Build(sk)
}

func TestBuildSharedSubroutineVars(t *testing.T) {
	opFlow := buildSubroutineFlow(t)
	flow := Build(opFlow)

	// The subroutine's whole body is a bare `JUMPDEST; JUMP` (no stack
	// effect besides consuming the return address) -- once lifted to
	// variables that converts to a zero-line Instructions scope plus a
	// FunctionReturn, a size-1 body. Called from both branches (nUses
	// = 2) that's 2*1 = 2 < 6, so remove_small_functions inlines it
	// away: only main should remain in the table.
	if len(flow.Functions) != 1 {
		t.Fatalf("expected the trivial shared subroutine to be inlined away, got %d functions: %+v", len(flow.Functions), flow.Functions)
	}
	main := flow.MainFunction()
	if main == nil {
		t.Fatal("expected a main function in the table")
	}

	var walk func(scopes []VarScope)
	walk = func(scopes []VarScope) {
		for _, s := range scopes {
			if s.Kind == VarScopeFunctionCall || s.Kind == VarScopeFunctionReturn {
				t.Fatalf("expected no call/return scopes left after inlining, found %+v", s)
			}
			if s.Kind == VarScopeCondition {
				walk(s.InstructionsIfTrue)
				walk(s.InstructionsIfFalse)
			}
		}
	}
	walk(main.Content)
}

func TestShouldValueBeDuplicated(t *testing.T) {
	duplicable := map[Variable]bool{{Alias: 1}: true, {Alias: 2}: false}

	bytesVal := Value{Kind: ValueBytes, Bytes: uint256.NewInt(42)}
	if !shouldValueBeDuplicated(bytesVal, duplicable) {
		t.Fatal("a literal should always be duplicable")
	}

	okCalc := Value{Kind: ValueCalculation, Opcode: vm.ADD, Args: []Value{bytesVal, existing(Variable{Alias: 1})}}
	if !shouldValueBeDuplicated(okCalc, duplicable) {
		t.Fatal("ADD of a literal and a duplicable var should be duplicable")
	}

	effectfulCalc := Value{Kind: ValueCalculation, Opcode: vm.SLOAD, Args: []Value{bytesVal}}
	if shouldValueBeDuplicated(effectfulCalc, duplicable) {
		t.Fatal("SLOAD has an external effect and should never be duplicated")
	}

	nonDuplicableCalc := Value{Kind: ValueCalculation, Opcode: vm.ADD, Args: []Value{bytesVal, existing(Variable{Alias: 2})}}
	if shouldValueBeDuplicated(nonDuplicableCalc, duplicable) {
		t.Fatal("referencing a non-duplicable var should block duplication")
	}

	returned := Value{Kind: ValueFunctionReturned, Label: 7, ReturnIndex: 0}
	if shouldValueBeDuplicated(returned, duplicable) {
		t.Fatal("a function-returned value is never duplicated")
	}
}

func TestConvertEquivalencesToVarMapping(t *testing.T) {
	a, b, c, d := Variable{Alias: 0}, Variable{Alias: 1}, Variable{Alias: 2}, Variable{Alias: 3}
	mapping := convertEquivalencesToVarMapping([]varEquivalence{{a, b}, {b, c}, {d, d}})

	if _, ok := mapping[a]; ok {
		t.Fatal("the first-seen representative of a group should not map to itself")
	}
	rep, ok := mapping[b]
	if !ok || rep != a {
		t.Fatalf("expected b to map to a, got %v (ok=%v)", rep, ok)
	}
	rep, ok = mapping[c]
	if !ok || rep != a {
		t.Fatalf("expected c to transitively map to a, got %v (ok=%v)", rep, ok)
	}
	if _, ok := mapping[d]; ok {
		t.Fatal("a self-equivalence should never produce a mapping entry")
	}
}

func TestComputeSizeOfScopes(t *testing.T) {
	scopes := []VarScope{
		{Kind: VarScopeInstructions, Lines: []Line{
			{Kind: LineAssignment, HasReceivingVar: true, ReceivingVar: Variable{Alias: 0}, AssignedValue: Value{Kind: ValueBytes, Bytes: uint256.NewInt(1)}},
			{Kind: LineEmpty},
		}},
		{Kind: VarScopeCondition,
			InstructionsIfTrue:  []VarScope{{Kind: VarScopePanic}},
			InstructionsIfFalse: []VarScope{{Kind: VarScopeFunctionCall, CallLabel: 1}},
		},
	}
	if got := computeSizeOfScopes(scopes); got != 3 {
		t.Fatalf("expected size 3 (1 line + 1 panic + 1 call), got %d", got)
	}
}

func TestRemoveEmptyElementsKeepsDeadCondition(t *testing.T) {
	flow := &Flow{Functions: map[uint64]*Function{
		mainLabel: {Label: mainLabel, Content: []VarScope{
			{Kind: VarScopeInstructions, Lines: []Line{{Kind: LineEmpty}}},
			{Kind: VarScopeCondition},
		}},
	}}
	flow.removeEmptyElements()

	content := flow.Functions[mainLabel].Content
	if len(content) != 1 || content[0].Kind != VarScopeCondition {
		t.Fatalf("expected the empty Instructions scope dropped but the (empty) Condition kept, got %+v", content)
	}
}
