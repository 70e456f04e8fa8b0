// Package ast defines the Abstract Syntax Tree (AST) for the Luma programming language.
//
// The AST represents the structure of a Luma program after it has been parsed.
// It consists of nodes that represent different language constructs such as
// expressions, statements, class declarations, and literals. The compiler
// walks this tree in a single pass to produce bytecode; there is no separate
// tree-walking evaluator.
//
// Key components:
//   - Node: the base interface implemented by every node
//   - Statement: nodes that perform an action but don't themselves push a value
//   - Expression: nodes that produce a value when compiled
//   - Root: the top-level node returned by the parser for a whole program
package ast

import (
	"strconv"
	"strings"

	"github.com/lumalang/luma/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// TokenLiteral returns the literal value of the token associated with this node.
	TokenLiteral() string

	// String returns a source-like representation of the node, for debugging.
	String() string
}

// Statement is implemented by nodes that perform an action without producing
// a value usable by an enclosing expression.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by nodes that produce a value when compiled.
type Expression interface {
	Node
	expressionNode()
}

// Root is the root node of the AST, returned by a completed parse.
// Its name mirrors the original `Node::Root` variant it's grounded on.
type Root struct {
	Statements []Statement
}

func (r *Root) TokenLiteral() string {
	if len(r.Statements) > 0 {
		return r.Statements[0].TokenLiteral()
	}
	return ""
}

func (r *Root) String() string {
	var out strings.Builder
	for _, s := range r.Statements {
		out.WriteString(s.String())
	}
	return out.String()
}

// Dump writes a human-readable indented tree of the program to out, in the
// style of a debug AST printer: one node per line, with box-drawing
// connectors showing parent/child relationships.
func (r *Root) Dump(out *strings.Builder) {
	out.WriteString("Root\n")
	dumpChildren(out, "", statementsToNodes(r.Statements))
}

// Block represents a brace-delimited sequence of statements.
type Block struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (b *Block) statementNode()       {}
func (b *Block) TokenLiteral() string { return b.Token.Literal }
func (b *Block) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String())
	}
	out.WriteString(" }")
	return out.String()
}

// Import names source files whose statements are spliced in, unwrapped, at
// this position. The parser resolves and expands Import nodes itself — the
// compiler never sees one.
type Import struct {
	Token token.Token // the 'import' token
	Paths []string
}

func (im *Import) statementNode()       {}
func (im *Import) TokenLiteral() string { return im.Token.Literal }
func (im *Import) String() string {
	return "import { " + strings.Join(quoteAll(im.Paths), ", ") + " }"
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}

// Def declares a new local binding: `def name = expr`.
type Def struct {
	Token token.Token // the 'def' token
	Name  string
	Value Expression
}

func (d *Def) statementNode()       {}
func (d *Def) TokenLiteral() string { return d.Token.Literal }
func (d *Def) String() string {
	return "def " + d.Name + " = " + exprString(d.Value)
}

// Reassign rebinds an existing local: `name = expr`.
type Reassign struct {
	Token token.Token // the identifier token
	Name  string
	Value Expression
}

func (r *Reassign) statementNode()       {}
func (r *Reassign) expressionNode()      {}
func (r *Reassign) TokenLiteral() string { return r.Token.Literal }
func (r *Reassign) String() string {
	return r.Name + " = " + exprString(r.Value)
}

// SetField assigns a field on the implicit receiver: `@field = expr`.
type SetField struct {
	Token token.Token // the '@' token
	Name  string
	Value Expression
}

func (sf *SetField) statementNode()       {}
func (sf *SetField) expressionNode()      {}
func (sf *SetField) TokenLiteral() string { return sf.Token.Literal }
func (sf *SetField) String() string {
	return "@" + sf.Name + " = " + exprString(sf.Value)
}

// Set assigns a field on an explicit receiver: `lhs.field = expr`.
type Set struct {
	Token token.Token // the '.' token
	Left  Expression
	Field string
	Value Expression
}

func (s *Set) statementNode()       {}
func (s *Set) expressionNode()      {}
func (s *Set) TokenLiteral() string { return s.Token.Literal }
func (s *Set) String() string {
	return exprString(s.Left) + "." + s.Field + " = " + exprString(s.Value)
}

// IndexSet assigns an element of a list: `lhs[index] = expr`.
type IndexSet struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
	Value Expression
}

func (is *IndexSet) statementNode()       {}
func (is *IndexSet) expressionNode()      {}
func (is *IndexSet) TokenLiteral() string { return is.Token.Literal }
func (is *IndexSet) String() string {
	return exprString(is.Left) + "[" + exprString(is.Index) + "] = " + exprString(is.Value)
}

// If is a conditional with no else branch; Luma has no alternative block.
type If struct {
	Token     token.Token // the 'if' token
	Condition Expression
	Body      *Block
}

func (i *If) statementNode()       {}
func (i *If) TokenLiteral() string { return i.Token.Literal }
func (i *If) String() string {
	return "if " + exprString(i.Condition) + " " + i.Body.String()
}

// While is a pretest loop.
type While struct {
	Token     token.Token // the 'while' token
	Condition Expression
	Body      *Block
}

func (w *While) statementNode()       {}
func (w *While) TokenLiteral() string { return w.Token.Literal }
func (w *While) String() string {
	return "while " + exprString(w.Condition) + " " + w.Body.String()
}

// Return exits the enclosing method with a value.
type Return struct {
	Token token.Token // the 'return' token
	Value Expression
}

func (rs *Return) statementNode()       {}
func (rs *Return) TokenLiteral() string { return rs.Token.Literal }
func (rs *Return) String() string {
	return "return " + exprString(rs.Value)
}

// Pop wraps an expression used as a statement, discarding its result. The
// parser wraps every expression statement except the assignment forms
// (Reassign, SetField, Set, IndexSet), which leave no value to discard.
type Pop struct {
	Token token.Token
	Value Expression
}

func (p *Pop) statementNode()       {}
func (p *Pop) TokenLiteral() string { return p.Token.Literal }
func (p *Pop) String() string       { return exprString(p.Value) }

// Param names a single class field or method parameter.
type Param struct {
	Name string
}

// MethodDecl is a named function living inside a ClassDecl.
type MethodDecl struct {
	Name   string
	Params []Param
	Body   *Block
}

// ClassDecl declares a class: its constructor fields and its methods.
type ClassDecl struct {
	Token   token.Token // the 'class' token
	Name    string
	Fields  []Param
	Methods []MethodDecl
}

func (c *ClassDecl) statementNode()       {}
func (c *ClassDecl) TokenLiteral() string { return c.Token.Literal }
func (c *ClassDecl) String() string {
	var out strings.Builder
	out.WriteString("class ")
	out.WriteString(c.Name)
	out.WriteString("(")
	for i, f := range c.Fields {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(f.Name)
	}
	out.WriteString(") { ")
	for _, m := range c.Methods {
		out.WriteString(m.Name)
		out.WriteString("(...) ")
		out.WriteString(m.Body.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// IntLiteral is an integer literal.
type IntLiteral struct {
	Token token.Token
	Value int32
}

func (il *IntLiteral) expressionNode()      {}
func (il *IntLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntLiteral) String() string       { return il.Token.Literal }

// FloatLiteral is a floating-point literal.
type FloatLiteral struct {
	Token token.Token
	Value float32
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

// BoolLiteral is a boolean literal.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (b *BoolLiteral) expressionNode()      {}
func (b *BoolLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BoolLiteral) String() string       { return b.Token.Literal }

// NilLiteral is the `nil` literal.
type NilLiteral struct {
	Token token.Token
}

func (n *NilLiteral) expressionNode()      {}
func (n *NilLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NilLiteral) String() string       { return "nil" }

// StringLiteral is a string literal.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }

// ListLiteral is a `[e1, e2, ...]` expression.
type ListLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Literal }
func (ll *ListLiteral) String() string {
	var out strings.Builder
	out.WriteString("[")
	for i, e := range ll.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(exprString(e))
	}
	out.WriteString("]")
	return out.String()
}

// GetVar reads a local variable by name.
type GetVar struct {
	Token token.Token
	Name  string
}

func (gv *GetVar) expressionNode()      {}
func (gv *GetVar) TokenLiteral() string { return gv.Token.Literal }
func (gv *GetVar) String() string       { return gv.Name }

// GetField reads a field on the implicit receiver: `@field`.
type GetField struct {
	Token token.Token // the '@' token
	Name  string
}

func (gf *GetField) expressionNode()      {}
func (gf *GetField) TokenLiteral() string { return gf.Token.Literal }
func (gf *GetField) String() string       { return "@" + gf.Name }

// Get reads a field on an explicit receiver: `lhs.field`.
type Get struct {
	Token token.Token // the '.' token
	Left  Expression
	Field string
}

func (g *Get) expressionNode()      {}
func (g *Get) TokenLiteral() string { return g.Token.Literal }
func (g *Get) String() string       { return exprString(g.Left) + "." + g.Field }

// Index reads an element of a list: `lhs[index]`.
type Index struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ix *Index) expressionNode()      {}
func (ix *Index) TokenLiteral() string { return ix.Token.Literal }
func (ix *Index) String() string {
	return exprString(ix.Left) + "[" + exprString(ix.Index) + "]"
}

// Neg is unary negation: `-expr`.
type Neg struct {
	Token token.Token // the '-' token
	Right Expression
}

func (n *Neg) expressionNode()      {}
func (n *Neg) TokenLiteral() string { return n.Token.Literal }
func (n *Neg) String() string       { return "(-" + exprString(n.Right) + ")" }

// Not is logical negation: `!expr`.
type Not struct {
	Token token.Token // the '!' token
	Right Expression
}

func (n *Not) expressionNode()      {}
func (n *Not) TokenLiteral() string { return n.Token.Literal }
func (n *Not) String() string       { return "(!" + exprString(n.Right) + ")" }

// BinaryOp is every two-operand expression: arithmetic, comparison, equality,
// and logical and/or. One struct covers them all, distinguished by Operator,
// the way a single code.Opcode per operator does on the bytecode side.
type BinaryOp struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (bo *BinaryOp) expressionNode()      {}
func (bo *BinaryOp) TokenLiteral() string { return bo.Token.Literal }
func (bo *BinaryOp) String() string {
	return "(" + exprString(bo.Left) + " " + bo.Operator + " " + exprString(bo.Right) + ")"
}

// Instance constructs a class instance: `Name(args...)`.
type Instance struct {
	Token token.Token // the identifier token naming the class
	Name  string
	Args  []Expression
}

func (in *Instance) expressionNode()      {}
func (in *Instance) TokenLiteral() string { return in.Token.Literal }
func (in *Instance) String() string {
	return in.Name + "(" + exprListString(in.Args) + ")"
}

// MethodCall invokes a method on a receiver, or on the implicit receiver
// when Receiver is nil: `lhs.name(args...)` or `@name(args...)`.
type MethodCall struct {
	Token    token.Token // the method-name token
	Receiver Expression  // nil means the implicit self receiver
	Name     string
	Args     []Expression
}

func (mc *MethodCall) expressionNode()      {}
func (mc *MethodCall) TokenLiteral() string { return mc.Token.Literal }
func (mc *MethodCall) String() string {
	recv := "@"
	if mc.Receiver != nil {
		recv = exprString(mc.Receiver) + "."
	}
	return recv + mc.Name + "(" + exprListString(mc.Args) + ")"
}

// NativeCall invokes a built-in: `#name(args...)`.
type NativeCall struct {
	Token token.Token // the '#' token
	Name  string
	Args  []Expression
}

func (nc *NativeCall) expressionNode()      {}
func (nc *NativeCall) TokenLiteral() string { return nc.Token.Literal }
func (nc *NativeCall) String() string {
	return "#" + nc.Name + "(" + exprListString(nc.Args) + ")"
}

func exprString(e Expression) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func exprListString(es []Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = exprString(e)
	}
	return strings.Join(parts, ", ")
}
