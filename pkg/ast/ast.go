// Package ast defines the Oberon-0 syntax tree and its flat symbol scope.
//
// Every node is a (info, child, sibling) triple, grounded in
// dom-ast/src/tree.rs's Tree/TreeNode pair. Rust represents the empty
// subtree as an Rc<Tree::Nil> sentinel shared by reference; Go has no
// equivalent borrow-checked sharing concern, so a nil *Node plays the
// same role here. Once built, a node's child and sibling pointers are
// never reassigned — callers only ever read through them.
package ast

import "fmt"

// TermOp identifies the operator of a Term node: Factor (* or /) Factor.
type TermOp int

// The two Term operators.
const (
	Times TermOp = iota
	TermDiv
)

// SimpleExpressionOp identifies the operator of a SimpleExpression node:
// Term (+ or -) Term.
type SimpleExpressionOp int

// The two SimpleExpression operators.
const (
	Plus SimpleExpressionOp = iota
	Minus
)

// ExpressionOp identifies the relational operator of an Expression node.
type ExpressionOp int

// The six relational operators.
const (
	Eql ExpressionOp = iota
	Neq
	Lss
	Leq
	Gtr
	Geq
)

// VarType identifies the declared type of a variable.
type VarType struct {
	// Capacity is 1 for INTEGER, N for ARRAY N OF INTEGER.
	Capacity int
	IsArray  bool
}

// Integer is the VarType for a scalar INTEGER declaration.
var Integer = VarType{Capacity: 1}

// Array returns the VarType for ARRAY capacity OF INTEGER.
func Array(capacity int) VarType { return VarType{Capacity: capacity, IsArray: true} }

// Kind identifies what a Node represents.
type Kind int

// The node kinds the parser produces.
const (
	KindStatementSequence Kind = iota
	KindAssignment
	KindModule
	KindDeclarations
	KindDeclaration
	KindVar
	KindType
	KindIdent
	KindConstant
	KindTerm
	KindSimpleExpression
	KindExpression
	KindIfStatement
	KindThen
	KindElse
	KindWhileStatement
	KindDo
)

// Node is one (info, child, sibling) triple. A nil *Node denotes the
// empty subtree.
type Node struct {
	Kind Kind

	// Payload fields, meaningful only for the Kind that sets them.
	Symbol       *Symbol            // KindIdent
	ConstantVal  int32              // KindConstant
	TermOp       TermOp             // KindTerm
	SimpleOp     SimpleExpressionOp // KindSimpleExpression
	ExpressionOp ExpressionOp       // KindExpression
	VarType      VarType            // KindType

	Child   *Node
	Sibling *Node
}

// Leaf returns a childless, siblingless node of the given kind.
func Leaf(kind Kind) *Node { return &Node{Kind: kind} }

// NewNode returns a node with the given child and sibling subtrees.
func NewNode(kind Kind, child, sibling *Node) *Node {
	return &Node{Kind: kind, Child: child, Sibling: sibling}
}

// NewIdent returns an Ident leaf referencing symbol, optionally with a
// selector child (a Constant or Ident node indexing an array).
func NewIdent(symbol *Symbol, selector *Node) *Node {
	return &Node{Kind: KindIdent, Symbol: symbol, Child: selector}
}

// NewConstant returns a Constant leaf holding value.
func NewConstant(value int32) *Node {
	return &Node{Kind: KindConstant, ConstantVal: value}
}

func (k Kind) String() string {
	switch k {
	case KindStatementSequence:
		return "StatementSequence"
	case KindAssignment:
		return "Assignment"
	case KindModule:
		return "Module"
	case KindDeclarations:
		return "Declarations"
	case KindDeclaration:
		return "Declaration"
	case KindVar:
		return "Var"
	case KindType:
		return "Type"
	case KindIdent:
		return "Ident"
	case KindConstant:
		return "Constant"
	case KindTerm:
		return "Term"
	case KindSimpleExpression:
		return "SimpleExpression"
	case KindExpression:
		return "Expression"
	case KindIfStatement:
		return "IfStatement"
	case KindThen:
		return "Then"
	case KindElse:
		return "Else"
	case KindWhileStatement:
		return "WhileStatement"
	case KindDo:
		return "Do"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
