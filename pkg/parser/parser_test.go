package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/oberon0/risc0/pkg/ast"
	"github.com/oberon0/risc0/pkg/parser"
)

func mustParse(t *testing.T, src string) (*ast.Node, *ast.Scope) {
	t.Helper()
	root, scope, err := parser.Parse(src)
	require.NoError(t, err)
	return root, scope
}

func TestParsesAssignmentOfConstant(t *testing.T) {
	root, scope := mustParse(t, "MODULE M; VAR x: INTEGER; BEGIN x := 42 END M.")
	x := scope.Lookup("x")
	require.NotNil(t, x)

	body := root.Sibling.Sibling // Module -> sibling is Declarations -> sibling is body
	assign := body.Child

	want := ast.NewNode(ast.KindAssignment, ast.NewIdent(x, nil), ast.NewConstant(42))
	if diff := cmp.Diff(want, assign); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecedenceOfTimesOverPlus(t *testing.T) {
	root, scope := mustParse(t, "MODULE M; VAR x,y: INTEGER; BEGIN x := x*y+42 END M.")
	x := scope.Lookup("x")
	y := scope.Lookup("y")

	body := root.Sibling.Sibling
	assign := body.Child

	term := ast.NewNode(ast.KindTerm, ast.NewIdent(x, nil), ast.NewIdent(y, nil))
	term.TermOp = ast.Times
	want := ast.NewNode(ast.KindSimpleExpression, term, ast.NewConstant(42))
	want.SimpleOp = ast.Plus

	if diff := cmp.Diff(want, assign.Sibling); diff != "" {
		t.Errorf("expression mismatch (-want +got):\n%s", diff)
	}
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	root, _ := mustParse(t, "MODULE M; VAR x: INTEGER; BEGIN x := (1+2)*3 END M.")
	body := root.Sibling.Sibling
	assign := body.Child
	require.Equal(t, ast.KindTerm, assign.Sibling.Kind)
}

func TestIfWithoutElse(t *testing.T) {
	root, scope := mustParse(t, "MODULE M; VAR x: INTEGER; BEGIN IF x=0 THEN x := 1 END END M.")
	x := scope.Lookup("x")
	body := root.Sibling.Sibling
	ifStmt := body.Child

	require.Equal(t, ast.KindIfStatement, ifStmt.Kind)
	require.Equal(t, ast.Eql, ifStmt.Child.ExpressionOp)
	require.Equal(t, ast.KindThen, ifStmt.Sibling.Kind)
	require.Nil(t, ifStmt.Sibling.Sibling)
	require.Equal(t, x, ifStmt.Sibling.Child.Child.Child.Symbol)
}

func TestIfWithElse(t *testing.T) {
	root, _ := mustParse(t, "MODULE M; VAR x: INTEGER; BEGIN IF x=0 THEN x := 1 ELSE x := 2 END END M.")
	body := root.Sibling.Sibling
	ifStmt := body.Child
	thenNode := ifStmt.Sibling
	require.NotNil(t, thenNode.Sibling)
	require.Equal(t, ast.KindElse, thenNode.Sibling.Kind)
}

func TestWhileStatement(t *testing.T) {
	root, _ := mustParse(t, "MODULE M; VAR x: INTEGER; BEGIN WHILE x#0 DO x := x-1 END END M.")
	body := root.Sibling.Sibling
	whileStmt := body.Child
	require.Equal(t, ast.KindWhileStatement, whileStmt.Kind)
	require.Equal(t, ast.Neq, whileStmt.Child.ExpressionOp)
	require.Equal(t, ast.KindDo, whileStmt.Sibling.Kind)
}

func TestArrayDeclarationAndSelector(t *testing.T) {
	root, scope := mustParse(t, "MODULE M; VAR a: ARRAY 10 OF INTEGER; i: INTEGER; BEGIN a[i] := 0 END M.")
	a := scope.Lookup("a")
	i := scope.Lookup("i")
	require.Equal(t, 10, a.Size)
	require.Equal(t, 1, a.Address)
	require.Equal(t, 11, i.Address)

	body := root.Sibling.Sibling
	assign := body.Child
	require.Equal(t, a, assign.Child.Symbol)
	require.Equal(t, i, assign.Child.Child.Symbol)
}

func TestUndefinedSymbolIsReported(t *testing.T) {
	_, _, err := parser.Parse("MODULE M; BEGIN x := 1 END M.")
	require.ErrorIs(t, err, parser.ErrUndefinedSymbol)
}

func TestDuplicateDeclarationIsReported(t *testing.T) {
	_, _, err := parser.Parse("MODULE M; VAR x, x: INTEGER; BEGIN END M.")
	require.ErrorIs(t, err, ast.ErrSymbolAlreadyDeclared)
}

func TestMismatchedModuleEndingIsReported(t *testing.T) {
	_, _, err := parser.Parse("MODULE M; END N.")
	require.ErrorIs(t, err, parser.ErrUnexpectedBlockEnding)
}

func TestPrematureEOFIsReported(t *testing.T) {
	_, _, err := parser.Parse("MODULE M; BEGIN")
	require.ErrorIs(t, err, parser.ErrPrematureEOF)
}
