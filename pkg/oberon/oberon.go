// Package oberon glues the lexer, parser and code generator into a
// single Compile entry point, and optionally hands the result straight
// to the VM.
package oberon

import (
	"github.com/oberon0/risc0/pkg/ast"
	"github.com/oberon0/risc0/pkg/codegen"
	"github.com/oberon0/risc0/pkg/isa"
	"github.com/oberon0/risc0/pkg/parser"
	"github.com/oberon0/risc0/pkg/vm"
)

// Result is the output of compiling one module: its instructions and the
// scope its variables were declared in (callers need the scope to know
// where a variable lives in memory for inspection after a run).
type Result struct {
	Instructions []isa.Instruction
	Scope        *ast.Scope
}

// Compile lexes, parses and generates code for the Oberon-0 module in
// text. Errors from any stage are returned unchanged, so callers can
// match on the sentinels exported by pkg/lex, pkg/parser and pkg/ast.
func Compile(text string) (Result, error) {
	root, scope, err := parser.Parse(text)
	if err != nil {
		return Result{}, err
	}

	body := moduleBody(root)
	g := codegen.New()
	if err := g.Generate(body); err != nil {
		return Result{}, err
	}
	g.EmitHalt()

	return Result{Instructions: g.Instructions(), Scope: scope}, nil
}

// moduleBody extracts the BEGIN...END statement sequence from a parsed
// Module node: root is the Module node, root.Sibling its Declarations
// chain, and root.Sibling.Sibling the body. A module with no statements
// parses to a nil body, which codegen.Generate already treats as a
// no-op.
func moduleBody(root *ast.Node) *ast.Node {
	if root == nil || root.Sibling == nil {
		return nil
	}
	return root.Sibling.Sibling
}

// CompileAndRun compiles text, loads the result into a fresh VM with the
// given stack base, and runs it to completion or until maxCycles
// instructions have executed.
func CompileAndRun(text string, stackBase int32, maxCycles int) (*vm.VM, Result, error) {
	result, err := Compile(text)
	if err != nil {
		return nil, Result{}, err
	}

	machine := vm.New()
	if err := machine.Load(result.Instructions); err != nil {
		return nil, result, err
	}
	machine.Start(stackBase)
	if err := machine.Execute(maxCycles); err != nil {
		return machine, result, err
	}
	return machine, result, nil
}
