// Package parser implements the syntactic analyzer for the Luma programming language.
//
// The parser takes a stream of tokens from the lexer and constructs an Abstract
// Syntax Tree (AST) that represents the structure of the program.
// It implements a recursive descent parser with Pratt parsing (precedence climbing) for expressions.
//
// Key features:
//   - Top-down parsing of statements and expressions
//   - Precedence-based expression parsing
//   - Error reporting for syntax errors
//   - Import expansion: `import { "path", ... }` is resolved and spliced in by
//     the parser itself, so the compiler never sees an Import node
//
// The main entry point is [New] (or [NewFile] for imports that resolve
// relative paths), and the [Parser.ParseProgram] method, which parses a
// complete Luma program and returns an AST.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lumalang/luma/ast"
	"github.com/lumalang/luma/lexer"
	"github.com/lumalang/luma/token"
)

const (
	_ int = iota

	// Lowest is the precedence used when parsing a fresh expression.
	Lowest

	// Assign is the precedence of the assignment operator `=`. It binds
	// loosest of all infix operators; a chained `a = b = c` is rejected as
	// an invalid assignment target.
	Assign

	// Or is the precedence of the logical `or` operator.
	Or

	// And is the precedence of the logical `and` operator.
	And

	// Equals is the precedence of `==` and `!=`.
	Equals

	// Compare is the precedence of `<`, `<=`, `>`, `>=`.
	Compare

	// Sum is the precedence of `+` and `-`.
	Sum

	// Prefix is the precedence of unary `-` and `!`.
	Prefix

	// Call is the precedence of call and index postfixes: `f(x)`, `xs[i]`.
	Call

	// Dot is the precedence of field/method access: `lhs.name`. It binds
	// tighter than call or index so that `a.b(c)` parses as a call on `a.b`.
	Dot
)

// precedences maps infix/postfix token types to their precedence level.
// Asterisk and Slash are deliberately absent: Luma has no multiply or divide
// opcode, so `*`/`/` have no infix meaning and fall through to a parse error.
var precedences = map[token.Type]int{
	token.Equal:      Assign,
	token.Or:         Or,
	token.And:        And,
	token.EqualEqual: Equals,
	token.BangEqual:  Equals,
	token.Gt:         Compare,
	token.Gte:        Compare,
	token.Lt:         Compare,
	token.Lte:        Compare,
	token.Plus:       Sum,
	token.Minus:      Sum,
	token.Lparen:     Call,
	token.Lbracket:   Call,
	token.Dot:        Dot,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser represents a Luma parser.
type Parser struct {
	l *lexer.Lexer

	// baseDir resolves relative `import { "..." }` paths. Empty for
	// in-memory snippets (REPL, eval), where a relative import is an error.
	baseDir string

	errors []string

	currentToken token.Token
	peekToken    token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser over an in-memory snippet with no base directory for
// resolving imports.
func New(l *lexer.Lexer) *Parser {
	return newParser(l, "")
}

// NewFile creates a Parser for source read from a file, resolving relative
// import paths against baseDir (typically the directory containing the file).
func NewFile(l *lexer.Lexer, baseDir string) *Parser {
	return newParser(l, baseDir)
}

func newParser(l *lexer.Lexer, baseDir string) *Parser {
	p := &Parser{
		l:       l,
		baseDir: baseDir,
		errors:  []string{},
	}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.Ident, p.parseIdentifierExpr)
	p.registerPrefix(token.Int, p.parseIntLiteral)
	p.registerPrefix(token.Float, p.parseFloatLiteral)
	p.registerPrefix(token.String, p.parseStringLiteral)
	p.registerPrefix(token.True, p.parseBoolLiteral)
	p.registerPrefix(token.False, p.parseBoolLiteral)
	p.registerPrefix(token.Nil, p.parseNilLiteral)
	p.registerPrefix(token.Minus, p.parseNeg)
	p.registerPrefix(token.Bang, p.parseNot)
	p.registerPrefix(token.Lparen, p.parseGroupedExpression)
	p.registerPrefix(token.Lbracket, p.parseListLiteral)
	p.registerPrefix(token.At, p.parseFieldAccess)
	p.registerPrefix(token.Hash, p.parseNativeCall)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	p.registerInfix(token.Plus, p.parseBinaryOp)
	p.registerInfix(token.Minus, p.parseBinaryOp)
	p.registerInfix(token.EqualEqual, p.parseBinaryOp)
	p.registerInfix(token.BangEqual, p.parseBinaryOp)
	p.registerInfix(token.Lt, p.parseBinaryOp)
	p.registerInfix(token.Lte, p.parseBinaryOp)
	p.registerInfix(token.Gt, p.parseBinaryOp)
	p.registerInfix(token.Gte, p.parseBinaryOp)
	p.registerInfix(token.And, p.parseBinaryOp)
	p.registerInfix(token.Or, p.parseBinaryOp)
	p.registerInfix(token.Equal, p.parseAssign)
	p.registerInfix(token.Lparen, p.parseCallPostfix)
	p.registerInfix(token.Lbracket, p.parseIndexPostfix)
	p.registerInfix(token.Dot, p.parseDotPostfix)

	// Read two tokens, so currentToken and peekToken are both set.
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) {
	p.prefixParseFns[t] = fn
}

func (p *Parser) registerInfix(t token.Type, fn infixParseFn) {
	p.infixParseFns[t] = fn
}

// Errors returns the list of errors encountered during parsing.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) peekError(t token.Type) {
	msg := fmt.Sprintf("Expected next token to be %s, got %s instead",
		t, p.peekToken.Type)
	p.errors = append(p.errors, msg)
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	msg := fmt.Sprintf("no prefix parse function for %s found", t)
	p.errors = append(p.errors, msg)
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.currentToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) currentTokenIs(t token.Type) bool {
	return p.currentToken.Type == t
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// ParseProgram parses a complete Luma program and returns its AST
// representation. Imports are resolved and spliced in before the root is
// returned, so the result never contains an *ast.Import node.
//
// Check [Parser.Errors] after calling this method to see if any parsing
// errors occurred.
func (p *Parser) ParseProgram() *ast.Root {
	root := &ast.Root{}

	for !p.currentTokenIs(token.EOF) {
		//nolint:staticcheck
		if stmt := p.parseStatement(); stmt != nil {
			root.Statements = append(root.Statements, stmt)
		}
		p.nextToken()
	}

	root.Statements = p.expandImports(root.Statements)
	return root
}

//nolint:staticcheck
func (p *Parser) parseStatement() ast.Statement {
	switch p.currentToken.Type {
	case token.Lbrace:
		return p.parseBlockStatement()
	case token.Def:
		return p.parseDefStatement()
	case token.Class:
		return p.parseClassDecl()
	case token.If:
		return p.parseIfStatement()
	case token.While:
		return p.parseWhileStatement()
	case token.Return:
		return p.parseReturnStatement()
	case token.Import:
		return p.parseImportStatement()
	case token.For:
		p.errors = append(p.errors, "for loops are not supported")
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseBlockStatement() *ast.Block {
	block := &ast.Block{Token: p.currentToken}
	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		//nolint:staticcheck
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	block.Statements = p.expandImports(block.Statements)
	return block
}

func (p *Parser) parseDefStatement() *ast.Def {
	stmt := &ast.Def{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = p.currentToken.Literal

	if !p.expectPeek(token.Equal) {
		return nil
	}

	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseReturnStatement() *ast.Return {
	stmt := &ast.Return{Token: p.currentToken}
	p.nextToken()

	stmt.Value = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseIfStatement() *ast.If {
	stmt := &ast.If{Token: p.currentToken}
	p.nextToken()

	stmt.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseWhileStatement() *ast.While {
	stmt := &ast.While{Token: p.currentToken}
	p.nextToken()

	stmt.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseClassDecl() *ast.ClassDecl {
	decl := &ast.ClassDecl{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}
	decl.Name = p.currentToken.Literal

	switch {
	case p.peekTokenIs(token.Lparen):
		p.nextToken()
		decl.Fields = p.parseParamList()
	case p.peekTokenIs(token.Lbrace):
		// no fields
	default:
		p.peekError(token.Lbrace)
		return nil
	}

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		decl.Methods = append(decl.Methods, p.parseMethodDecl())
		p.nextToken()
	}

	return decl
}

func (p *Parser) parseMethodDecl() ast.MethodDecl {
	method := ast.MethodDecl{Name: p.currentToken.Literal}

	if p.peekTokenIs(token.Lparen) {
		p.nextToken()
		method.Params = p.parseParamList()
	}

	if !p.expectPeek(token.Lbrace) {
		return method
	}
	method.Body = p.parseBlockStatement()
	return method
}

// parseParamList parses a parenthesized, comma-separated name list.
// currentToken must be the opening '(' on entry; currentToken is the
// closing ')' on return.
func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param

	if p.peekTokenIs(token.Rparen) {
		p.nextToken()
		return params
	}

	p.nextToken()
	params = append(params, ast.Param{Name: p.currentToken.Literal})

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		params = append(params, ast.Param{Name: p.currentToken.Literal})
	}

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return params
}

func (p *Parser) parseImportStatement() *ast.Import {
	stmt := &ast.Import{Token: p.currentToken}

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) {
		if !p.currentTokenIs(token.String) {
			msg := fmt.Sprintf("Expected import path string, got %s instead", p.currentToken.Type)
			p.errors = append(p.errors, msg)
			return nil
		}
		stmt.Paths = append(stmt.Paths, p.currentToken.Literal)

		if p.peekTokenIs(token.Comma) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.Rbrace) {
		return nil
	}
	return stmt
}

// expandImports replaces every *ast.Import in stmts with the flattened
// statements of each file it names, resolved (recursively) relative to
// baseDir. A file that fails to load or parse contributes a parser error
// and is otherwise skipped.
func (p *Parser) expandImports(stmts []ast.Statement) []ast.Statement {
	var out []ast.Statement
	for _, stmt := range stmts {
		imp, ok := stmt.(*ast.Import)
		if !ok {
			out = append(out, stmt)
			continue
		}
		for _, path := range imp.Paths {
			root, err := p.loadImport(path)
			if err != nil {
				p.errors = append(p.errors, err.Error())
				continue
			}
			out = append(out, root.Statements...)
		}
	}
	return out
}

func (p *Parser) loadImport(path string) (*ast.Root, error) {
	full := path
	if !filepath.IsAbs(path) {
		if p.baseDir == "" {
			return nil, fmt.Errorf("import %q: relative import with no base directory", path)
		}
		full = filepath.Join(p.baseDir, path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", path, err)
	}

	sub := NewFile(lexer.New(string(data)), filepath.Dir(full))
	root := sub.ParseProgram()
	if len(sub.errors) > 0 {
		return nil, fmt.Errorf("import %q: %s", path, strings.Join(sub.errors, "; "))
	}
	return root, nil
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.currentToken
	expr := p.parseExpression(Lowest)
	if expr == nil {
		return nil
	}

	// Reassign, SetField, Set, and IndexSet satisfy both Statement and
	// Expression: the generic assignment infix produces them as
	// Expression, but a bare `name = expr` statement needs no Pop — the
	// assignment itself leaves nothing on the stack.
	if stmt, ok := expr.(ast.Statement); ok {
		if p.peekTokenIs(token.Semicolon) {
			p.nextToken()
		}
		return stmt
	}

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return &ast.Pop{Token: tok, Value: expr}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.currentToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.Semicolon) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIdentifierExpr() ast.Expression {
	return &ast.GetVar{Token: p.currentToken, Name: p.currentToken.Literal}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	lit := &ast.IntLiteral{Token: p.currentToken}

	value, err := strconv.ParseInt(p.currentToken.Literal, 10, 32)
	if err != nil {
		msg := fmt.Sprintf("Could not parse %q as integer", p.currentToken.Literal)
		p.errors = append(p.errors, msg)
		return nil
	}
	lit.Value = int32(value)
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.currentToken}

	value, err := strconv.ParseFloat(p.currentToken.Literal, 32)
	if err != nil {
		msg := fmt.Sprintf("Could not parse %q as float", p.currentToken.Literal)
		p.errors = append(p.errors, msg)
		return nil
	}
	lit.Value = float32(value)
	return lit
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Token: p.currentToken, Value: p.currentTokenIs(token.True)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.currentToken}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseNeg() ast.Expression {
	tok := p.currentToken
	p.nextToken()
	return &ast.Neg{Token: tok, Right: p.parseExpression(Prefix)}
}

func (p *Parser) parseNot() ast.Expression {
	tok := p.currentToken
	p.nextToken()
	return &ast.Not{Token: tok, Right: p.parseExpression(Prefix)}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(Lowest)

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return exp
}

func (p *Parser) parseListLiteral() ast.Expression {
	lit := &ast.ListLiteral{Token: p.currentToken}
	lit.Elements = p.parseExpressionList(token.Rbracket)
	return lit
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(Lowest))

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseFieldAccess() ast.Expression {
	tok := p.currentToken // '@'
	if !p.expectPeek(token.Ident) {
		return nil
	}
	return &ast.GetField{Token: tok, Name: p.currentToken.Literal}
}

func (p *Parser) parseNativeCall() ast.Expression {
	tok := p.currentToken // '#'
	if !p.expectPeek(token.Ident) {
		return nil
	}
	name := p.currentToken.Literal

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	args := p.parseExpressionList(token.Rparen)
	return &ast.NativeCall{Token: tok, Name: name, Args: args}
}

func (p *Parser) parseBinaryOp(left ast.Expression) ast.Expression {
	tok := p.currentToken
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.BinaryOp{Token: tok, Left: left, Operator: tok.Literal, Right: right}
}

func (p *Parser) parseAssign(left ast.Expression) ast.Expression {
	tok := p.currentToken // '='
	precedence := p.curPrecedence()
	p.nextToken()
	value := p.parseExpression(precedence)

	switch l := left.(type) {
	case *ast.GetVar:
		return &ast.Reassign{Token: tok, Name: l.Name, Value: value}
	case *ast.GetField:
		return &ast.SetField{Token: tok, Name: l.Name, Value: value}
	case *ast.Get:
		return &ast.Set{Token: tok, Left: l.Left, Field: l.Field, Value: value}
	case *ast.Index:
		return &ast.IndexSet{Token: tok, Left: l.Left, Index: l.Index, Value: value}
	default:
		p.errors = append(p.errors, "invalid assignment target")
		return nil
	}
}

func (p *Parser) parseCallPostfix(left ast.Expression) ast.Expression {
	tok := p.currentToken // '('
	args := p.parseExpressionList(token.Rparen)

	switch l := left.(type) {
	case *ast.GetVar:
		return &ast.Instance{Token: l.Token, Name: l.Name, Args: args}
	case *ast.GetField:
		return &ast.MethodCall{Token: tok, Receiver: nil, Name: l.Name, Args: args}
	case *ast.Get:
		return &ast.MethodCall{Token: tok, Receiver: l.Left, Name: l.Field, Args: args}
	default:
		p.errors = append(p.errors, "left-hand side of a call must be a variable, field, or method access")
		return nil
	}
}

func (p *Parser) parseIndexPostfix(left ast.Expression) ast.Expression {
	tok := p.currentToken // '['
	p.nextToken()
	idx := p.parseExpression(Lowest)

	if !p.expectPeek(token.Rbracket) {
		return nil
	}
	return &ast.Index{Token: tok, Left: left, Index: idx}
}

func (p *Parser) parseDotPostfix(left ast.Expression) ast.Expression {
	tok := p.currentToken // '.'
	if !p.expectPeek(token.Ident) {
		return nil
	}
	return &ast.Get{Token: tok, Left: left, Field: p.currentToken.Literal}
}
