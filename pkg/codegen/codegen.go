// Package codegen walks an Oberon-0 syntax tree and emits RISC
// instructions against it.
//
// The allocator is the trivial one sketched in uc-compiler/src/codegen.rs:
// a single register-stack counter rh. Evaluating any expression pushes
// its value into R[rh] and increments rh; combining two values pops them
// (decrementing rh) and pushes one result. Nothing in the grammar nests
// expressions deep enough to exhaust the sixteen registers, but
// ErrRegisterPressure exists for the day some generated program does.
package codegen

import (
	"errors"
	"fmt"

	"github.com/oberon0/risc0/pkg/ast"
	"github.com/oberon0/risc0/pkg/isa"
)

// ErrRegisterPressure is returned when an expression would need to push
// past the last general-purpose register.
var ErrRegisterPressure = errors.New("codegen: out of registers")

// FrameReg is the register generated code reads and writes variables
// through (the VM's conventional frame-base register).
const FrameReg = 14

// Codegen accumulates the instruction sequence for one compiled module.
type Codegen struct {
	instructions []isa.Instruction
	rh           uint8
}

// New returns an empty Codegen.
func New() *Codegen { return &Codegen{} }

// Instructions returns the instructions emitted so far.
func (g *Codegen) Instructions() []isa.Instruction { return g.instructions }

func (g *Codegen) emit(ins isa.Instruction) { g.instructions = append(g.instructions, ins) }

// EmitHalt appends the program footer every compiled module ends with:
// clear the link register and branch through it, which the VM observes
// as termination.
func (g *Codegen) EmitHalt() {
	g.emit(isa.NewRegisterImmediate(isa.MOV, 15, 0, 0))
	g.emit(isa.NewBranchToRegister(isa.AW, 15, false))
}

// Generate walks node and appends the instructions it denotes. A nil node
// emits nothing.
func (g *Codegen) Generate(node *ast.Node) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case ast.KindIdent:
		return g.generateIdent(node)
	case ast.KindConstant:
		return g.generateConstant(node)
	case ast.KindAssignment:
		return g.generateAssignment(node)
	case ast.KindStatementSequence:
		if err := g.Generate(node.Child); err != nil {
			return err
		}
		return g.Generate(node.Sibling)
	case ast.KindTerm:
		return g.generateBinary(node, termOpcode(node.TermOp))
	case ast.KindSimpleExpression:
		return g.generateBinary(node, simpleOpcode(node.SimpleOp))
	case ast.KindExpression:
		return g.generateRelation(node)
	case ast.KindIfStatement:
		return g.generateIf(node)
	case ast.KindWhileStatement:
		return g.generateWhile(node)
	default:
		return fmt.Errorf("codegen: unexpected node kind %v", node.Kind)
	}
}

func (g *Codegen) generateConstant(node *ast.Node) error {
	g.emit(isa.NewRegisterImmediate(isa.MOV, g.rh, 0, node.ConstantVal))
	return g.bump()
}

func (g *Codegen) generateIdent(node *ast.Node) error {
	sym := node.Symbol
	selector := node.Child
	switch {
	case selector == nil:
		g.emit(isa.NewMemory(false, g.rh, FrameReg, uint32(sym.Address)))
	case selector.Kind == ast.KindConstant:
		g.emit(isa.NewMemory(false, g.rh, FrameReg, uint32(sym.Address+int(selector.ConstantVal))))
	default:
		g.emitIndexAddress(selector.Symbol)
		g.emit(isa.NewMemory(false, g.rh, g.rh, uint32(sym.Address)))
	}
	return g.bump()
}

// emitIndexAddress computes frame_base + the value of idx into R[rh],
// without touching rh itself. Callers treat R[rh] as holding a base
// register for a subsequent indexed load or store.
func (g *Codegen) emitIndexAddress(idx *ast.Symbol) {
	g.emit(isa.NewMemory(false, g.rh, FrameReg, uint32(idx.Address)))
	g.emit(isa.NewRegister(isa.ADD, g.rh, g.rh, FrameReg))
}

func (g *Codegen) generateAssignment(node *ast.Node) error {
	target := node.Child
	sym := target.Symbol
	selector := target.Child

	switch {
	case selector == nil:
		if err := g.Generate(node.Sibling); err != nil {
			return err
		}
		g.rh--
		g.emit(isa.NewMemory(true, g.rh, FrameReg, uint32(sym.Address)))
		return nil

	case selector.Kind == ast.KindConstant:
		if err := g.Generate(node.Sibling); err != nil {
			return err
		}
		g.rh--
		g.emit(isa.NewMemory(true, g.rh, FrameReg, uint32(sym.Address+int(selector.ConstantVal))))
		return nil

	default:
		addrReg := g.rh
		g.emitIndexAddress(selector.Symbol)
		if err := g.bump(); err != nil {
			return err
		}
		if err := g.Generate(node.Sibling); err != nil {
			return err
		}
		g.rh--
		g.emit(isa.NewMemory(true, g.rh, addrReg, uint32(sym.Address)))
		g.rh--
		return nil
	}
}

func (g *Codegen) generateBinary(node *ast.Node, op isa.Opcode) error {
	if err := g.Generate(node.Child); err != nil {
		return err
	}
	if err := g.Generate(node.Sibling); err != nil {
		return err
	}
	g.rh -= 2
	g.emit(isa.NewRegister(op, g.rh, g.rh, g.rh+1))
	return g.bump()
}

func (g *Codegen) generateRelation(node *ast.Node) error {
	if err := g.Generate(node.Child); err != nil {
		return err
	}
	if err := g.Generate(node.Sibling); err != nil {
		return err
	}
	g.rh -= 2
	g.emit(isa.NewRegister(isa.SUB, g.rh, g.rh, g.rh+1))
	return nil
}

func (g *Codegen) generateIf(node *ast.Node) error {
	if err := g.Generate(node.Child); err != nil {
		return err
	}
	cond := negate(node.Child.ExpressionOp)
	condIdx := len(g.instructions)
	g.emit(isa.NewBranchByOffset(cond, 0, false))

	thenNode := node.Sibling
	if err := g.Generate(thenNode.Child); err != nil {
		return err
	}

	if elseNode := thenNode.Sibling; elseNode != nil {
		jmpIdx := len(g.instructions)
		g.emit(isa.NewBranchByOffset(isa.AW, 0, false))
		g.patchBranch(condIdx, jmpIdx+1)

		if err := g.Generate(elseNode.Child); err != nil {
			return err
		}
		g.patchBranch(jmpIdx, len(g.instructions))
		return nil
	}

	g.patchBranch(condIdx, len(g.instructions))
	return nil
}

func (g *Codegen) generateWhile(node *ast.Node) error {
	loopTop := len(g.instructions)
	if err := g.Generate(node.Child); err != nil {
		return err
	}
	cond := negate(node.Child.ExpressionOp)
	condIdx := len(g.instructions)
	g.emit(isa.NewBranchByOffset(cond, 0, false))

	doNode := node.Sibling
	if err := g.Generate(doNode.Child); err != nil {
		return err
	}

	backIdx := len(g.instructions)
	g.emit(isa.NewBranchByOffset(isa.AW, offsetTo(loopTop, backIdx), false))
	g.patchBranch(condIdx, len(g.instructions))
	return nil
}

// patchBranch rewrites the placeholder BranchByOffset at instructionIdx
// so it lands on targetIdx.
func (g *Codegen) patchBranch(instructionIdx, targetIdx int) {
	ins := g.instructions[instructionIdx]
	ins.BOffset = offsetTo(targetIdx, instructionIdx)
	g.instructions[instructionIdx] = ins
}

// offsetTo computes the PC-relative displacement a branch instruction at
// fromIdx needs to land on toIdx, accounting for the VM incrementing PC
// before executing the branch.
func offsetTo(toIdx, fromIdx int) int32 {
	return int32(toIdx - fromIdx - 1)
}

func (g *Codegen) bump() error {
	if g.rh >= 16 {
		return ErrRegisterPressure
	}
	g.rh++
	return nil
}

func termOpcode(op ast.TermOp) isa.Opcode {
	if op == ast.TermDiv {
		return isa.DIV
	}
	return isa.MUL
}

func simpleOpcode(op ast.SimpleExpressionOp) isa.Opcode {
	if op == ast.Minus {
		return isa.SUB
	}
	return isa.ADD
}

// negate returns the branch condition that holds exactly when op does
// not: the condition used to jump past a THEN/DO body whose guard failed.
func negate(op ast.ExpressionOp) isa.Condition {
	switch op {
	case ast.Eql:
		return isa.NE
	case ast.Neq:
		return isa.EQ
	case ast.Lss:
		return isa.GE
	case ast.Leq:
		return isa.GT
	case ast.Gtr:
		return isa.LE
	case ast.Geq:
		return isa.LT
	default:
		return isa.NV
	}
}
