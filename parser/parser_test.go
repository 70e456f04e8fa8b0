package parser

import (
	"fmt"
	"testing"

	"github.com/lumalang/luma/ast"
	"github.com/lumalang/luma/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Root {
	t.Helper()
	p := New(lexer.New(input))
	root := p.ParseProgram()
	checkParserErrors(t, p)
	return root
}

func checkParserErrors(t *testing.T, p *Parser) {
	t.Helper()
	errs := p.Errors()
	if len(errs) == 0 {
		return
	}
	for _, msg := range errs {
		t.Errorf("parser error: %s", msg)
	}
	t.FailNow()
}

func TestDefStatement(t *testing.T) {
	root := parseProgram(t, "def x = 5")

	if len(root.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(root.Statements))
	}

	def, ok := root.Statements[0].(*ast.Def)
	if !ok {
		t.Fatalf("expected *ast.Def, got %T", root.Statements[0])
	}
	if def.Name != "x" {
		t.Errorf("expected name x, got %s", def.Name)
	}
	intLit, ok := def.Value.(*ast.IntLiteral)
	if !ok || intLit.Value != 5 {
		t.Errorf("expected IntLiteral(5), got %#v", def.Value)
	}
}

func TestReassignIsNotWrappedInPop(t *testing.T) {
	root := parseProgram(t, "x = 5")

	if len(root.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(root.Statements))
	}
	if _, ok := root.Statements[0].(*ast.Reassign); !ok {
		t.Fatalf("expected *ast.Reassign, got %T", root.Statements[0])
	}
}

func TestFieldSetAndGet(t *testing.T) {
	root := parseProgram(t, "@i = 9")

	sf, ok := root.Statements[0].(*ast.SetField)
	if !ok {
		t.Fatalf("expected *ast.SetField, got %T", root.Statements[0])
	}
	if sf.Name != "i" {
		t.Errorf("expected field name i, got %s", sf.Name)
	}
}

func TestExplicitFieldSet(t *testing.T) {
	root := parseProgram(t, "f.i = 2")

	set, ok := root.Statements[0].(*ast.Set)
	if !ok {
		t.Fatalf("expected *ast.Set, got %T", root.Statements[0])
	}
	if set.Field != "i" {
		t.Errorf("expected field i, got %s", set.Field)
	}
	getVar, ok := set.Left.(*ast.GetVar)
	if !ok || getVar.Name != "f" {
		t.Errorf("expected receiver GetVar(f), got %#v", set.Left)
	}
}

func TestIndexSet(t *testing.T) {
	root := parseProgram(t, "xs[0] = 7")

	is, ok := root.Statements[0].(*ast.IndexSet)
	if !ok {
		t.Fatalf("expected *ast.IndexSet, got %T", root.Statements[0])
	}
	if _, ok := is.Index.(*ast.IntLiteral); !ok {
		t.Errorf("expected integer index, got %#v", is.Index)
	}
}

func TestMethodCallIsWrappedInPop(t *testing.T) {
	root := parseProgram(t, "f.bar(4)")

	pop, ok := root.Statements[0].(*ast.Pop)
	if !ok {
		t.Fatalf("expected *ast.Pop, got %T", root.Statements[0])
	}
	call, ok := pop.Value.(*ast.MethodCall)
	if !ok {
		t.Fatalf("expected *ast.MethodCall inside Pop, got %T", pop.Value)
	}
	if call.Name != "bar" || len(call.Args) != 1 {
		t.Errorf("expected bar(4), got name=%s args=%d", call.Name, len(call.Args))
	}
}

func TestSelfMethodCall(t *testing.T) {
	root := parseProgram(t, "@bar()")

	pop := root.Statements[0].(*ast.Pop)
	call, ok := pop.Value.(*ast.MethodCall)
	if !ok {
		t.Fatalf("expected *ast.MethodCall, got %T", pop.Value)
	}
	if call.Receiver != nil {
		t.Errorf("expected implicit self receiver (nil), got %#v", call.Receiver)
	}
}

func TestNativeCall(t *testing.T) {
	root := parseProgram(t, `#print("hi")`)

	pop := root.Statements[0].(*ast.Pop)
	nc, ok := pop.Value.(*ast.NativeCall)
	if !ok {
		t.Fatalf("expected *ast.NativeCall, got %T", pop.Value)
	}
	if nc.Name != "print" || len(nc.Args) != 1 {
		t.Errorf("expected print(\"hi\"), got name=%s args=%d", nc.Name, len(nc.Args))
	}
}

func TestInstanceConstruction(t *testing.T) {
	root := parseProgram(t, "def f = foo(1, 5)")

	def := root.Statements[0].(*ast.Def)
	inst, ok := def.Value.(*ast.Instance)
	if !ok {
		t.Fatalf("expected *ast.Instance, got %T", def.Value)
	}
	if inst.Name != "foo" || len(inst.Args) != 2 {
		t.Errorf("expected foo(1, 5), got name=%s args=%d", inst.Name, len(inst.Args))
	}
}

func TestListLiteralStatementIsWrappedInPop(t *testing.T) {
	root := parseProgram(t, "[1, 2, 3]")

	pop, ok := root.Statements[0].(*ast.Pop)
	if !ok {
		t.Fatalf("expected bare list-literal statement wrapped in Pop, got %T", root.Statements[0])
	}
	list, ok := pop.Value.(*ast.ListLiteral)
	if !ok || len(list.Elements) != 3 {
		t.Errorf("expected a 3-element list, got %#v", pop.Value)
	}
}

func TestWhileStatementParsesBody(t *testing.T) {
	root := parseProgram(t, "while i < 10 { i = i + 1 }")

	while, ok := root.Statements[0].(*ast.While)
	if !ok {
		t.Fatalf("expected *ast.While, got %T", root.Statements[0])
	}
	if len(while.Body.Statements) != 1 {
		t.Errorf("expected 1 statement in while body, got %d", len(while.Body.Statements))
	}
}

func TestClassDeclaration(t *testing.T) {
	input := `class foo(i, j) {
		bar(a) {
			#print("BAR")
			@i = 9
			return a
		}
	}`
	root := parseProgram(t, input)

	class, ok := root.Statements[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected *ast.ClassDecl, got %T", root.Statements[0])
	}
	if class.Name != "foo" {
		t.Errorf("expected class name foo, got %s", class.Name)
	}
	if len(class.Fields) != 2 || class.Fields[0].Name != "i" || class.Fields[1].Name != "j" {
		t.Errorf("expected fields [i j], got %#v", class.Fields)
	}
	if len(class.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(class.Methods))
	}
	bar := class.Methods[0]
	if bar.Name != "bar" || len(bar.Params) != 1 || bar.Params[0].Name != "a" {
		t.Errorf("expected bar(a), got %#v", bar)
	}
	if len(bar.Body.Statements) != 3 {
		t.Fatalf("expected 3 statements in bar's body, got %d", len(bar.Body.Statements))
	}
	if _, ok := bar.Body.Statements[2].(*ast.Return); !ok {
		t.Errorf("expected last statement to be Return, got %T", bar.Body.Statements[2])
	}
}

func TestClassWithNoFields(t *testing.T) {
	root := parseProgram(t, `class foo() { bar() { #print("BAR") } zab() { #print("ZAB") @bar() } }`)

	class := root.Statements[0].(*ast.ClassDecl)
	if len(class.Fields) != 0 {
		t.Errorf("expected no fields, got %#v", class.Fields)
	}
	if len(class.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(class.Methods))
	}
}

func TestForLoopIsRejected(t *testing.T) {
	p := New(lexer.New("for i = 0 { }"))
	p.ParseProgram()

	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatal("expected an error for an unsupported for loop, got none")
	}
}

// TestFibonacciScenario traces scenario 5 from the end-to-end test set: a
// class whose method reads and writes two fields and returns their sum.
func TestFibonacciScenario(t *testing.T) {
	input := `class fib(curr, prev) {
		next() {
			def r = @prev + @curr
			@prev = @curr
			@curr = r
			return @curr
		}
	}`
	root := parseProgram(t, input)

	class := root.Statements[0].(*ast.ClassDecl)
	next := class.Methods[0]
	if len(next.Body.Statements) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(next.Body.Statements))
	}

	def := next.Body.Statements[0].(*ast.Def)
	sum, ok := def.Value.(*ast.BinaryOp)
	if !ok || sum.Operator != "+" {
		t.Fatalf("expected a '+' BinaryOp, got %#v", def.Value)
	}
	if _, ok := sum.Left.(*ast.GetField); !ok {
		t.Errorf("expected left operand @prev to be GetField, got %#v", sum.Left)
	}

	if _, ok := next.Body.Statements[1].(*ast.SetField); !ok {
		t.Errorf("expected @prev = @curr to be SetField, got %T", next.Body.Statements[1])
	}
	if _, ok := next.Body.Statements[2].(*ast.SetField); !ok {
		t.Errorf("expected @curr = r to be SetField, got %T", next.Body.Statements[2])
	}
	ret, ok := next.Body.Statements[3].(*ast.Return)
	if !ok {
		t.Fatalf("expected Return, got %T", next.Body.Statements[3])
	}
	if _, ok := ret.Value.(*ast.GetField); !ok {
		t.Errorf("expected return @curr, got %#v", ret.Value)
	}
}

// TestOperatorPrecedence checks that the Pratt table produces the expected
// grouping, using String()'s fully-parenthesized rendering as the oracle.
func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 + 3", "((1 + 2) + 3)"},
		{"a + b == c", "((a + b) == c)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"-a + b", "((-a) + b)"},
		{"!a and b", "((!a) and b)"},
		{"a or b and c", "(a or (b and c))"},
		{"a.b.c", "a.b.c"},
		{"a[0][1]", "a[0][1]"},
		{"1 + 2 == 3", "((1 + 2) == 3)"},
	}

	for _, tt := range tests {
		root := parseProgram(t, tt.input)
		pop, ok := root.Statements[0].(*ast.Pop)
		var out string
		if ok {
			out = fmt.Sprint(pop.Value.String())
		} else {
			out = root.Statements[0].String()
		}
		if out != tt.expected {
			t.Errorf("input %q: expected %q, got %q", tt.input, tt.expected, out)
		}
	}
}

func TestAssignmentIsLowestPrecedence(t *testing.T) {
	root := parseProgram(t, "x = a or b")

	reassign, ok := root.Statements[0].(*ast.Reassign)
	if !ok {
		t.Fatalf("expected *ast.Reassign, got %T", root.Statements[0])
	}
	bin, ok := reassign.Value.(*ast.BinaryOp)
	if !ok || bin.Operator != "or" {
		t.Fatalf("expected rhs to be the whole 'a or b', got %#v", reassign.Value)
	}
}

func TestGroupedExpression(t *testing.T) {
	root := parseProgram(t, "(1 + 2)")
	pop := root.Statements[0].(*ast.Pop)
	if pop.Value.String() != "(1 + 2)" {
		t.Errorf("expected grouped sum, got %s", pop.Value.String())
	}
}

func TestAsteriskHasNoPrefixOrInfixMeaning(t *testing.T) {
	// No multiply opcode exists, so '*' is registered as neither a prefix
	// nor an infix operator; it should surface as a parse error rather
	// than silently being skipped.
	p := New(lexer.New("2 * 3"))
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected no infix registered for '*'")
	}
}
