package compiler

import (
	"testing"

	"github.com/lumalang/luma/code"
	"github.com/lumalang/luma/lexer"
	"github.com/lumalang/luma/parser"
)

func compileProgram(t *testing.T, input string) *Bytecode {
	t.Helper()
	p := parser.New(lexer.New(input))
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}

	c := New()
	if err := c.Compile(root); err != nil {
		t.Fatalf("compile error: %s", err)
	}
	return c.Bytecode()
}

func concat(chunks ...[]byte) code.Instructions {
	out := code.Instructions{}
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func assertInstructions(t *testing.T, bc *Bytecode, want code.Instructions) {
	t.Helper()
	if len(bc.Instructions) != len(want) {
		t.Fatalf("wrong instruction length.\nwant=%q\ngot=%q", want.String(), bc.Instructions.String())
	}
	for i, b := range want {
		if bc.Instructions[i] != b {
			t.Fatalf("wrong byte at %d.\nwant=%q\ngot=%q", i, want.String(), bc.Instructions.String())
		}
	}
}

func TestIntArithmetic(t *testing.T) {
	bc := compileProgram(t, "1 + 2")

	want := concat(
		code.MakeInt(1),
		code.MakeInt(2),
		code.Make(code.Plus),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestMinusOperator(t *testing.T) {
	bc := compileProgram(t, "5 - 2")

	want := concat(
		code.MakeInt(5),
		code.MakeInt(2),
		code.Make(code.Minus),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestStringLiteralUsesSharedPool(t *testing.T) {
	bc := compileProgram(t, `"hello"`)

	if len(bc.Strings) != 1 || bc.Strings[0] != "hello" {
		t.Fatalf("expected pool [\"hello\"], got %v", bc.Strings)
	}
	want := concat(code.Make(code.PushString, 0), code.Make(code.Pop))
	assertInstructions(t, bc, want)
}

func TestDefAndReassign(t *testing.T) {
	bc := compileProgram(t, "def x = 5\nx = x + 1")

	// The trailing Pop comes from the root scope dropping x once the
	// program ends: every def's local is popped when its enclosing
	// scope closes, top level included.
	want := concat(
		code.MakeInt(5),
		code.Make(code.GetLocal, 0),
		code.MakeInt(1),
		code.Make(code.Plus),
		code.Make(code.SetLocal, 0),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestUndefinedVariableIsAnError(t *testing.T) {
	p := parser.New(lexer.New("x = 1"))
	root := p.ParseProgram()
	c := New()
	if err := c.Compile(root); err == nil {
		t.Fatal("expected an error reassigning an undefined variable")
	}
}

func TestIfEmitsForwardJump(t *testing.T) {
	bc := compileProgram(t, "if true { 1 }")

	want := concat(
		code.Make(code.PushBool, 1),
		code.Make(code.JumpIfFalse, 11),
		code.MakeInt(1),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestWhileJumpsBackToCondition(t *testing.T) {
	bc := compileProgram(t, "while true { 1 }")

	want := concat(
		code.Make(code.PushBool, 1),      // 0
		code.Make(code.JumpIfFalse, 14),  // 2
		code.MakeInt(1),                  // 5
		code.Make(code.Pop),              // 10
		code.Make(code.Jump, 0),          // 11
	)
	assertInstructions(t, bc, want)
}

func TestBlockScopeEmitsPopPerLocal(t *testing.T) {
	bc := compileProgram(t, "while true { def y = 1 }")

	// condition(2) + jump(3) + pushint(5) + def (no store op) + one Pop
	// for the dropped local y, then the back-jump.
	want := concat(
		code.Make(code.PushBool, 1),
		code.Make(code.JumpIfFalse, 14),
		code.MakeInt(1),
		code.Make(code.Pop),
		code.Make(code.Jump, 0),
	)
	assertInstructions(t, bc, want)
}

func TestClassDeclarationCompilesMethodsInline(t *testing.T) {
	bc := compileProgram(t, `class foo(i) {
		bar() {
			return @i
		}
	}`)

	if len(bc.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(bc.Classes))
	}
	class := bc.Classes[0]
	if class.Name != "foo" || len(class.Fields) != 1 || class.Fields[0] != "i" {
		t.Errorf("unexpected class template: %+v", class)
	}
	if len(class.Methods) != 1 || class.Methods[0].Name != "bar" {
		t.Fatalf("expected method bar, got %+v", class.Methods)
	}

	// Jump(over) GetField(i) Return PushNil Return
	jumpTarget := int(code.ReadUint16(bc.Instructions[1:]))
	if jumpTarget != len(bc.Instructions) {
		t.Errorf("jump target %d does not land at end of program (%d)", jumpTarget, len(bc.Instructions))
	}
	if class.Methods[0].CodeStart != 3 {
		t.Errorf("expected method body to start right after the Jump, got %d", class.Methods[0].CodeStart)
	}
}

func TestInstanceConstructionReferencesClassTable(t *testing.T) {
	bc := compileProgram(t, `class point(x, y) {
		sum() { return @x }
	}
	def p = point(1, 2)`)

	// The Instance instruction carries the class's table index, not an
	// inline field-name payload: verify the operand resolves to the one
	// registered class.
	found := false
	for i := 0; i < len(bc.Instructions); i++ {
		if code.Opcode(bc.Instructions[i]) == code.Instance {
			found = true
			idx := int(code.ReadUint16(bc.Instructions[i+1:]))
			if idx != 0 || bc.Classes[idx].Name != "point" {
				t.Errorf("expected Instance to reference class 0 (point), got %d", idx)
			}
		}
	}
	if !found {
		t.Fatal("expected an Instance instruction")
	}
}

func TestBareNameConstructsZeroFieldClass(t *testing.T) {
	bc := compileProgram(t, `class empty() {
		greet() { return "hi" }
	}
	def e = empty`)

	found := false
	for i := 0; i < len(bc.Instructions); i++ {
		if code.Opcode(bc.Instructions[i]) == code.Instance {
			idx := int(code.ReadUint16(bc.Instructions[i+1:]))
			if idx != 0 || bc.Classes[idx].Name != "empty" {
				t.Errorf("expected Instance to reference class 0 (empty), got %d", idx)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected bare name 'empty' to emit an Instance instruction")
	}
}

func TestBareNameForFieldedClassIsAnError(t *testing.T) {
	p := parser.New(lexer.New(`class point(x, y) { }
	def p = point`))
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}

	c := New()
	if err := c.Compile(root); err == nil {
		t.Fatal("expected a compile error constructing a fielded class with no arguments")
	}
}

func TestMethodCallOnExplicitReceiver(t *testing.T) {
	bc := compileProgram(t, `class foo(){ bar(a){ return a } }
	def f = foo()
	f.bar(1)`)

	// The Call instruction's name operand resolves through the shared
	// string pool, same as a field name would.
	found := false
	for i := 0; i < len(bc.Instructions); i++ {
		if code.Opcode(bc.Instructions[i]) == code.Call {
			found = true
			nameIdx := int(code.ReadUint16(bc.Instructions[i+1:]))
			if bc.Strings[nameIdx] != "bar" {
				t.Errorf("expected Call's name operand to resolve to 'bar', got %q", bc.Strings[nameIdx])
			}
			arity := int(code.ReadUint8(bc.Instructions[i+3:]))
			if arity != 2 {
				t.Errorf("expected arity 2 (receiver + 1 arg), got %d", arity)
			}
		}
	}
	if !found {
		t.Fatal("expected a Call instruction")
	}
}

func TestSelfMethodCallEmitsPushSelf(t *testing.T) {
	bc := compileProgram(t, `class foo(){
		bar(){ return 1 }
		baz(){ return @bar() }
	}`)

	found := false
	for i := 0; i < len(bc.Instructions); i++ {
		if code.Opcode(bc.Instructions[i]) == code.PushSelf {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a PushSelf instruction for the implicit-receiver call")
	}
}

func TestNativePrintEmitsVariadicPrint(t *testing.T) {
	bc := compileProgram(t, `#print("a", "b", "c")`)

	want := concat(
		code.Make(code.PushString, 0),
		code.Make(code.PushString, 1),
		code.Make(code.PushString, 2),
		code.Make(code.Print, 3),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestNativeLenDispatchesByID(t *testing.T) {
	bc := compileProgram(t, `#len("x")`)

	want := concat(
		code.Make(code.PushString, 0),
		code.Make(code.Native, 3),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestNativeArityMismatchIsAnError(t *testing.T) {
	p := parser.New(lexer.New(`#len("a", "b")`))
	root := p.ParseProgram()
	c := New()
	if err := c.Compile(root); err == nil {
		t.Fatal("expected an arity error for len/2")
	}
}

func TestListLiteralEmitsListWithCount(t *testing.T) {
	bc := compileProgram(t, "[1, 2, 3]")

	want := concat(
		code.MakeInt(1),
		code.MakeInt(2),
		code.MakeInt(3),
		code.Make(code.List, 3),
		code.Make(code.Pop),
	)
	assertInstructions(t, bc, want)
}

func TestIndexGetAndSet(t *testing.T) {
	bc := compileProgram(t, "def xs = [1]\nxs[0] = 2")

	want := concat(
		code.MakeInt(1),
		code.Make(code.List, 1),
		code.Make(code.GetLocal, 0),
		code.MakeInt(0),
		code.MakeInt(2),
		code.Make(code.IndexSet),
		code.Make(code.Pop), // root scope dropping xs at program end
	)
	assertInstructions(t, bc, want)
}
