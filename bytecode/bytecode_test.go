package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/lumalang/luma/bytecode"
	"github.com/lumalang/luma/compiler"
	"github.com/lumalang/luma/lexer"
	"github.com/lumalang/luma/parser"
	"github.com/lumalang/luma/vm"
)

func compileSource(t *testing.T, input string) *compiler.Bytecode {
	t.Helper()
	p := parser.New(lexer.New(input))
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	c := compiler.New()
	if err := c.Compile(root); err != nil {
		t.Fatalf("compile error: %s", err)
	}
	return c.Bytecode()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bc := compileSource(t, `class counter(n) {
		inc() { @n = @n + 1 return @n }
	}
	def c = counter(0)
	#print(#to_string(c.inc()))
	#print(#to_string(c.inc()))`)

	var buf bytes.Buffer
	if err := bytecode.Encode(bc, &buf); err != nil {
		t.Fatalf("encode error: %s", err)
	}

	got, err := bytecode.Decode(&buf)
	if err != nil {
		t.Fatalf("decode error: %s", err)
	}

	if !bytes.Equal(got.Instructions, bc.Instructions) {
		t.Errorf("instructions did not round-trip.\nwant=%q\ngot=%q", bc.Instructions.String(), got.Instructions.String())
	}
	if len(got.Strings) != len(bc.Strings) {
		t.Fatalf("string pool length mismatch: want %d got %d", len(bc.Strings), len(got.Strings))
	}
	for i := range bc.Strings {
		if got.Strings[i] != bc.Strings[i] {
			t.Errorf("string %d: want %q got %q", i, bc.Strings[i], got.Strings[i])
		}
	}
	if len(got.Classes) != 1 || got.Classes[0].Name != "counter" {
		t.Fatalf("unexpected class table after round trip: %+v", got.Classes)
	}
	if len(got.Classes[0].Methods) != 1 || got.Classes[0].Methods[0].Name != "inc" {
		t.Fatalf("unexpected method table after round trip: %+v", got.Classes[0].Methods)
	}
}

func TestDecodedBytecodeRunsIdentically(t *testing.T) {
	bc := compileSource(t, "def i = 0\nwhile i < 5 { i = i + 1 }\n#print(#to_string(i))")

	var buf bytes.Buffer
	if err := bytecode.Encode(bc, &buf); err != nil {
		t.Fatalf("encode error: %s", err)
	}
	decoded, err := bytecode.Decode(&buf)
	if err != nil {
		t.Fatalf("decode error: %s", err)
	}

	var out bytes.Buffer
	machine := vm.New(decoded, &out)
	if err := machine.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if out.String() != "5\n" {
		t.Errorf("got %q, want %q", out.String(), "5\n")
	}
}

func TestEncodeDecodeWithFloatsAndNegativeInts(t *testing.T) {
	bc := compileSource(t, "#print(#to_string(-3), #to_string(2.5))")

	var buf bytes.Buffer
	if err := bytecode.Encode(bc, &buf); err != nil {
		t.Fatalf("encode error: %s", err)
	}
	decoded, err := bytecode.Decode(&buf)
	if err != nil {
		t.Fatalf("decode error: %s", err)
	}

	var out bytes.Buffer
	machine := vm.New(decoded, &out)
	if err := machine.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if out.String() != "-3 2.5\n" {
		t.Errorf("got %q, want %q", out.String(), "-3 2.5\n")
	}
}
