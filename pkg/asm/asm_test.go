package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oberon0/risc0/pkg/asm"
	"github.com/oberon0/risc0/pkg/isa"
)

func TestAssembleIgnoresCommentsAndBlanks(t *testing.T) {
	program, err := asm.Assemble("* a full-line comment\n\nMOV R0,32\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewRegisterImmediate(isa.MOV, 0, 0, 32)}, program)
}

func TestAssembleConstantDefinition(t *testing.T) {
	program, err := asm.Assemble("#FOO 42\nMOV R1,#FOO\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewRegisterImmediate(isa.MOV, 1, 0, 42)}, program)
}

func TestAssembleMovTwoRegisterForm(t *testing.T) {
	program, err := asm.Assemble("MOV R1,R2\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewRegister(isa.MOV, 1, 0, 2)}, program)
}

func TestAssembleRegisterForm(t *testing.T) {
	program, err := asm.Assemble("ADD R0,R1,R2\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewRegister(isa.ADD, 0, 1, 2)}, program)
}

func TestAssembleRegisterImmediateForm(t *testing.T) {
	program, err := asm.Assemble("ADD R0,R1,5\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewRegisterImmediate(isa.ADD, 0, 1, 5)}, program)
}

func TestAssembleMemoryForms(t *testing.T) {
	program, err := asm.Assemble("LDW R0,R14,3\nSTW R0,R14,3\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{
		isa.NewMemory(false, 0, 14, 3),
		isa.NewMemory(true, 0, 14, 3),
	}, program)
}

func TestAssembleBranchToRegister(t *testing.T) {
	program, err := asm.Assemble("BEQL R3\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewBranchToRegister(isa.EQ, 3, true)}, program)
}

func TestAssembleLabelResolvesToPCRelativeOffset(t *testing.T) {
	// index 0: MOV, index 1: @LOOP ADD, index 2: SUB, index 3: B @LOOP
	src := "MOV R0,3\n@LOOP ADD R1,R1,1\nSUB R0,R0,1\nB @LOOP\n"
	program, err := asm.Assemble(src)
	require.NoError(t, err)
	require.Len(t, program, 4)
	require.True(t, program[3].IsBranchByOffset())
	// current index 3, target index 1: offset = 1 - 3 - 1 = -3.
	require.Equal(t, int32(-3), program[3].BOffset)
}

func TestAssembleForwardLabelReference(t *testing.T) {
	// index 0: BEQ @END, index 1: MOV, index 2: @END MOV
	src := "BEQ @END\nMOV R0,1\n@END MOV R1,2\n"
	program, err := asm.Assemble(src)
	require.NoError(t, err)
	require.Len(t, program, 3)
	require.True(t, program[0].IsBranchByOffset())
	// current index 0, target index 2: offset = 2 - 0 - 1 = 1.
	require.Equal(t, int32(1), program[0].BOffset)
}

func TestAssembleTrailingComment(t *testing.T) {
	program, err := asm.Assemble("MOV R0,1 ; set R0 to one\n")
	require.NoError(t, err)
	require.Equal(t, []isa.Instruction{isa.NewRegisterImmediate(isa.MOV, 0, 0, 1)}, program)
}

func TestAssembleSyntaxError(t *testing.T) {
	_, err := asm.Assemble("FROB R0,R1\n")
	require.Error(t, err)
	var syntaxErr *asm.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.ErrorIs(t, err, asm.ErrSyntax)
}

func TestAssembleUnknownRegisterIsSyntaxError(t *testing.T) {
	_, err := asm.Assemble("MOV R99,1\n")
	require.ErrorIs(t, err, asm.ErrSyntax)
}
