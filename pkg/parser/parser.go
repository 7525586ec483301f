// Package parser implements the Oberon-0 recursive-descent parser: one
// token of lookahead, grounded in dom-ast/src/parser.rs, building an
// ast.Node tree and populating an ast.Scope as declarations are seen.
package parser

import (
	"errors"
	"fmt"

	"github.com/oberon0/risc0/pkg/ast"
	"github.com/oberon0/risc0/pkg/lex"
)

// Sentinel errors for the parse error kinds this package detects itself.
// A re-declared name is reported with ast.ErrSymbolAlreadyDeclared, and
// scan errors come from pkg/lex unchanged.
var (
	ErrUndefinedSymbol       = errors.New("parser: undefined symbol")
	ErrUnexpectedToken       = errors.New("parser: unexpected token")
	ErrUnexpectedBlockEnding = errors.New("parser: unexpected block ending")
	ErrPrematureEOF          = errors.New("parser: premature end of input")
)

// UnexpectedBlockEndingError reports a MODULE ... END ident mismatch.
type UnexpectedBlockEndingError struct {
	Expected string
	Found    string
}

func (e *UnexpectedBlockEndingError) Error() string {
	return fmt.Sprintf("parser: block opened as %q closed as %q", e.Expected, e.Found)
}

func (e *UnexpectedBlockEndingError) Unwrap() error { return ErrUnexpectedBlockEnding }

// UnexpectedTokenError reports a token the grammar did not allow at that
// position.
type UnexpectedTokenError struct {
	Context lex.Context
	Kind    lex.Kind
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("parser: unexpected token %v at %v", e.Kind, e.Context)
}

func (e *UnexpectedTokenError) Unwrap() error { return ErrUnexpectedToken }

// parser holds the mutable state threaded through the recursive-descent
// functions: the lexer's lookahead buffer and the single flat scope every
// declaration is registered into.
type parser struct {
	lx    *lex.Lexer
	scope *ast.Scope
}

// Parse parses a complete Oberon-0 module and returns its AST root plus
// the scope every declared symbol was registered into.
func Parse(text string) (*ast.Node, *ast.Scope, error) {
	lx, err := lex.New(text)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{lx: lx, scope: ast.NewScope()}
	root, err := p.parseModule()
	if err != nil {
		return nil, nil, err
	}
	return root, p.scope, nil
}

func (p *parser) current() (*lex.Scan, error) {
	if scan := p.lx.Current(); scan != nil {
		return scan, nil
	}
	return nil, ErrPrematureEOF
}

func (p *parser) advance() error { return p.lx.Advance() }

func (p *parser) expect(kind lex.Kind) (*lex.Scan, error) {
	scan, err := p.current()
	if err != nil {
		return nil, err
	}
	if scan.Token.Kind != kind {
		return nil, &UnexpectedTokenError{Context: scan.Context, Kind: scan.Token.Kind}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return scan, nil
}

func (p *parser) parseModule() (*ast.Node, error) {
	if _, err := p.expect(lex.Module); err != nil {
		return nil, err
	}
	nameScan, err := p.expect(lex.Ident)
	if err != nil {
		return nil, err
	}
	moduleName := nameScan.Token.Ident
	if _, err := p.expect(lex.Semicolon); err != nil {
		return nil, err
	}

	// The module name occupies address 0 of the scope, ahead of every
	// VAR declaration (spec.md §8 scenarios 2-6: "slot 0 reserved for
	// the module symbol").
	moduleSym, err := p.scope.Add(moduleName)
	if err != nil {
		return nil, err
	}
	child := ast.NewIdent(moduleSym, nil)

	declarations, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBeginEnd()
	if err != nil {
		return nil, err
	}
	sibling := ast.NewNode(ast.KindDeclarations, declarations, body)

	if _, err := p.expect(lex.End); err != nil {
		return nil, err
	}
	endScan, err := p.expect(lex.Ident)
	if err != nil {
		return nil, err
	}
	if endScan.Token.Ident != moduleName {
		return nil, &UnexpectedBlockEndingError{Expected: moduleName, Found: endScan.Token.Ident}
	}
	if _, err := p.expect(lex.Period); err != nil {
		return nil, err
	}
	if scan := p.lx.Current(); scan != nil {
		return nil, &UnexpectedTokenError{Context: scan.Context, Kind: scan.Token.Kind}
	}

	return ast.NewNode(ast.KindModule, child, sibling), nil
}

func (p *parser) parseBeginEnd() (*ast.Node, error) {
	scan, err := p.current()
	if err != nil {
		return nil, err
	}
	if scan.Token.Kind != lex.Begin {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseStatementSequence()
}

// parseDeclarations parses the optional VAR section. It returns nil when
// none is present.
func (p *parser) parseDeclarations() (*ast.Node, error) {
	scan := p.lx.Current()
	if scan == nil || scan.Token.Kind != lex.Var {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseVarDeclarationGroups()
}

// parseVarDeclarationGroups parses a sequence of "IdentList : Type ;"
// groups until a non-identifier token ends the VAR section.
func (p *parser) parseVarDeclarationGroups() (*ast.Node, error) {
	scan := p.lx.Current()
	if scan == nil || scan.Token.Kind != lex.Ident {
		return nil, nil
	}

	idents, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Colon); err != nil {
		return nil, err
	}
	varType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Semicolon); err != nil {
		return nil, err
	}

	size := 1
	if varType.IsArray {
		size = varType.Capacity
	}
	for _, name := range idents {
		if _, err := p.scope.AddWithSize(name, size); err != nil {
			return nil, err
		}
	}

	rest, err := p.parseVarDeclarationGroups()
	if err != nil {
		return nil, err
	}
	return declarationChain(p.scope, idents, varType, rest), nil
}

// declarationChain builds the right-leaning chain of Declaration nodes
// for one IdentList : Type group, one Declaration per identifier.
func declarationChain(scope *ast.Scope, idents []string, varType ast.VarType, tail *ast.Node) *ast.Node {
	if len(idents) == 0 {
		return tail
	}
	sym := scope.Lookup(idents[0])
	varNode := ast.NewNode(ast.KindVar, ast.NewIdent(sym, nil), ast.Leaf(ast.KindType))
	varNode.Sibling.VarType = varType
	decl := ast.NewNode(ast.KindDeclaration, varNode, declarationChain(scope, idents[1:], varType, tail))
	return decl
}

func (p *parser) parseIdentList() ([]string, error) {
	var idents []string
	for {
		scan, err := p.expect(lex.Ident)
		if err != nil {
			return nil, err
		}
		idents = append(idents, scan.Token.Ident)
		cur := p.lx.Current()
		if cur == nil || cur.Token.Kind != lex.Comma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return idents, nil
}

func (p *parser) parseType() (ast.VarType, error) {
	scan, err := p.current()
	if err != nil {
		return ast.VarType{}, err
	}
	if scan.Token.Kind == lex.Array {
		if err := p.advance(); err != nil {
			return ast.VarType{}, err
		}
		capScan, err := p.expect(lex.Int)
		if err != nil {
			return ast.VarType{}, err
		}
		if _, err := p.expect(lex.Of); err != nil {
			return ast.VarType{}, err
		}
		if _, err := p.expectTypeIdent(); err != nil {
			return ast.VarType{}, err
		}
		return ast.Array(int(capScan.Token.Value)), nil
	}
	if _, err := p.expectTypeIdent(); err != nil {
		return ast.VarType{}, err
	}
	return ast.Integer, nil
}

func (p *parser) expectTypeIdent() (string, error) {
	scan, err := p.expect(lex.Ident)
	if err != nil {
		return "", err
	}
	if scan.Token.Ident != "INTEGER" {
		return "", fmt.Errorf("%w: %q", ErrUndefinedSymbol, scan.Token.Ident)
	}
	return scan.Token.Ident, nil
}

func (p *parser) parseStatementSequence() (*ast.Node, error) {
	first, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	scan := p.lx.Current()
	var rest *ast.Node
	if scan != nil && scan.Token.Kind == lex.Semicolon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rest, err = p.parseStatementSequence()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewNode(ast.KindStatementSequence, first, rest), nil
}

func (p *parser) parseStatement() (*ast.Node, error) {
	scan, err := p.current()
	if err != nil {
		return nil, err
	}
	switch scan.Token.Kind {
	case lex.Ident:
		return p.parseAssignment()
	case lex.If:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseIfStatement()
	case lex.While:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseWhileStatement()
	default:
		return nil, &UnexpectedTokenError{Context: scan.Context, Kind: scan.Token.Kind}
	}
}

func (p *parser) parseAssignment() (*ast.Node, error) {
	target, err := p.parseIdentWithSelector()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Becomes); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewNode(ast.KindAssignment, target, value), nil
}

func (p *parser) parseIfStatement() (*ast.Node, error) {
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Then); err != nil {
		return nil, err
	}
	thenSeq, err := p.parseStatementSequence()
	if err != nil {
		return nil, err
	}

	var elseNode *ast.Node
	scan, err := p.current()
	if err != nil {
		return nil, err
	}
	if scan.Token.Kind == lex.Else {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseSeq, err := p.parseStatementSequence()
		if err != nil {
			return nil, err
		}
		elseNode = ast.NewNode(ast.KindElse, elseSeq, nil)
	}

	if _, err := p.expect(lex.End); err != nil {
		return nil, err
	}
	return ast.NewNode(ast.KindIfStatement, test, ast.NewNode(ast.KindThen, thenSeq, elseNode)), nil
}

func (p *parser) parseWhileStatement() (*ast.Node, error) {
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Do); err != nil {
		return nil, err
	}
	doSeq, err := p.parseStatementSequence()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.End); err != nil {
		return nil, err
	}
	return ast.NewNode(ast.KindWhileStatement, test, ast.NewNode(ast.KindDo, doSeq, nil)), nil
}

func (p *parser) parseExpression() (*ast.Node, error) {
	first, err := p.parseSimpleExpression()
	if err != nil {
		return nil, err
	}
	scan := p.lx.Current()
	if scan == nil {
		return first, nil
	}
	op, ok := relOp(scan.Token.Kind)
	if !ok {
		return first, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	second, err := p.parseSimpleExpression()
	if err != nil {
		return nil, err
	}
	node := ast.NewNode(ast.KindExpression, first, second)
	node.ExpressionOp = op
	return node, nil
}

func relOp(kind lex.Kind) (ast.ExpressionOp, bool) {
	switch kind {
	case lex.Eql:
		return ast.Eql, true
	case lex.Neq:
		return ast.Neq, true
	case lex.Lss:
		return ast.Lss, true
	case lex.Leq:
		return ast.Leq, true
	case lex.Gtr:
		return ast.Gtr, true
	case lex.Geq:
		return ast.Geq, true
	default:
		return 0, false
	}
}

func (p *parser) parseSimpleExpression() (*ast.Node, error) {
	tree, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		scan := p.lx.Current()
		if scan == nil {
			return tree, nil
		}
		var op ast.SimpleExpressionOp
		switch scan.Token.Kind {
		case lex.Plus:
			op = ast.Plus
		case lex.Minus:
			op = ast.Minus
		default:
			return tree, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		sibling, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		node := ast.NewNode(ast.KindSimpleExpression, tree, sibling)
		node.SimpleOp = op
		tree = node
	}
}

func (p *parser) parseTerm() (*ast.Node, error) {
	tree, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		scan := p.lx.Current()
		if scan == nil {
			return tree, nil
		}
		var op ast.TermOp
		switch scan.Token.Kind {
		case lex.Times:
			op = ast.Times
		case lex.Div:
			op = ast.TermDiv
		default:
			return tree, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		sibling, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		node := ast.NewNode(ast.KindTerm, tree, sibling)
		node.TermOp = op
		tree = node
	}
}

func (p *parser) parseFactor() (*ast.Node, error) {
	scan, err := p.current()
	if err != nil {
		return nil, err
	}
	switch scan.Token.Kind {
	case lex.Int:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.NewConstant(scan.Token.Value), nil
	case lex.Ident:
		return p.parseIdentWithSelector()
	case lex.Lparen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.Rparen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &UnexpectedTokenError{Context: scan.Context, Kind: scan.Token.Kind}
	}
}

func (p *parser) parseIdentWithSelector() (*ast.Node, error) {
	scan, err := p.expect(lex.Ident)
	if err != nil {
		return nil, err
	}
	sym := p.scope.Lookup(scan.Token.Ident)
	if sym == nil {
		return nil, fmt.Errorf("%w: %q", ErrUndefinedSymbol, scan.Token.Ident)
	}

	cur := p.lx.Current()
	if cur == nil || cur.Token.Kind != lex.Lbrak {
		return ast.NewIdent(sym, nil), nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	indexScan, err := p.current()
	if err != nil {
		return nil, err
	}
	var selector *ast.Node
	switch indexScan.Token.Kind {
	case lex.Int:
		if err := p.advance(); err != nil {
			return nil, err
		}
		selector = ast.NewConstant(indexScan.Token.Value)
	case lex.Ident:
		if err := p.advance(); err != nil {
			return nil, err
		}
		idxSym := p.scope.Lookup(indexScan.Token.Ident)
		if idxSym == nil {
			return nil, fmt.Errorf("%w: %q", ErrUndefinedSymbol, indexScan.Token.Ident)
		}
		selector = ast.NewIdent(idxSym, nil)
	default:
		return nil, &UnexpectedTokenError{Context: indexScan.Context, Kind: indexScan.Token.Kind}
	}

	if _, err := p.expect(lex.Rbrak); err != nil {
		return nil, err
	}
	return ast.NewIdent(sym, selector), nil
}
