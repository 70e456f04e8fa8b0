// Package compiler transforms Luma's abstract syntax tree into bytecode.
//
// Luma has no closures, globals distinct from locals, or functions as
// values, so unlike a Monkey-style compiler there is no stack of
// compilation scopes and no constant pool of compiled functions: the
// whole program compiles into a single flat instruction stream.  A
// class declaration compiles each of its methods inline, preceded by an
// unconditional jump that skips over their bodies at the declaration
// site, and records each method's start offset for the virtual machine
// to call into later.
//
// # Compilation process
//
//  1. Expressions compile to push exactly one value.
//  2. Statements compile to push nothing net: an assignment consumes
//     its own right-hand side, and a bare expression used as a
//     statement is wrapped in an explicit Pop by the parser.
//  3. Locals are resolved through a flat, depth-tagged symbol table
//     scoped to the currently-compiling function; a block's local
//     variables are dropped with one Pop per variable when the block
//     ends.
//  4. if/while compile to a conditional jump forward; while additionally
//     jumps back to its condition.
//  5. Field names, method names, and string literals share one
//     compile-time string pool; class field/method layouts live in a
//     parallel class table indexed by the Instance opcode.
package compiler

import (
	"fmt"

	"github.com/lumalang/luma/ast"
	"github.com/lumalang/luma/code"
	"github.com/lumalang/luma/object"
)

// MethodEntry is a named entry point inside a compiled class: the
// method's name and the instruction offset its body starts at.
type MethodEntry struct {
	Name      string
	CodeStart int
}

// ClassTemplate is the compile-time record of a declared class: its
// name, its fields in declaration order, and its methods' entry
// points. The Instance opcode carries an index into the compiler's
// (and later the virtual machine's) parallel table of these.
type ClassTemplate struct {
	Name    string
	Fields  []string
	Methods []MethodEntry
}

// Bytecode is everything the virtual machine needs to run a compiled
// program: the instruction stream, the compile-time string pool (field
// and method names share it with string literals), and the class
// table the Instance opcode indexes into.
type Bytecode struct {
	Instructions code.Instructions
	Strings      []string
	Classes      []*ClassTemplate
}

// Compiler walks a parsed program and emits bytecode for it.
type Compiler struct {
	instructions code.Instructions
	strings      []string
	classes      []*ClassTemplate
	classIndex   map[string]int
	symbols      *SymbolTable
}

// New returns a compiler ready to compile a program from scratch.
func New() *Compiler {
	return &Compiler{
		symbols:    NewSymbolTable(),
		classIndex: make(map[string]int),
	}
}

// Bytecode returns the instructions, string pool, and class table
// produced so far.
func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.instructions,
		Strings:      c.strings,
		Classes:      c.classes,
	}
}

// Compile walks node, emitting bytecode for it and its children.
func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Root:
		return c.compileScope(node.Statements)

	case *ast.Block:
		return c.compileScope(node.Statements)

	case *ast.Def:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		if _, err := c.symbols.Define(node.Name); err != nil {
			return err
		}

	case *ast.Reassign:
		local, ok := c.symbols.Resolve(node.Name)
		if !ok {
			return fmt.Errorf("undefined variable '%s'", node.Name)
		}
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.SetLocal, local.Slot)

	case *ast.GetVar:
		local, ok := c.symbols.Resolve(node.Name)
		if !ok {
			idx, isClass := c.classIndex[node.Name]
			if !isClass {
				return fmt.Errorf("undefined variable '%s'", node.Name)
			}
			class := c.classes[idx]
			if len(class.Fields) != 0 {
				return fmt.Errorf("class '%s' takes %d argument(s), got 0", node.Name, len(class.Fields))
			}
			c.emit(code.Instance, idx)
			return nil
		}
		c.emit(code.GetLocal, local.Slot)

	case *ast.IntLiteral:
		c.emitRaw(code.MakeInt(node.Value))

	case *ast.FloatLiteral:
		c.emitRaw(code.MakeFloat(node.Value))

	case *ast.BoolLiteral:
		b := 0
		if node.Value {
			b = 1
		}
		c.emit(code.PushBool, b)

	case *ast.NilLiteral:
		c.emit(code.PushNil)

	case *ast.StringLiteral:
		c.emit(code.PushString, c.addString(node.Value))

	case *ast.ListLiteral:
		for _, el := range node.Elements {
			if err := c.Compile(el); err != nil {
				return err
			}
		}
		c.emit(code.List, len(node.Elements))

	case *ast.Neg:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		c.emit(code.Neg)

	case *ast.Not:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		c.emit(code.Not)

	case *ast.BinaryOp:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		op, ok := binaryOpcodes[node.Operator]
		if !ok {
			return fmt.Errorf("unsupported operator '%s'", node.Operator)
		}
		c.emit(op)

	case *ast.Index:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Index); err != nil {
			return err
		}
		c.emit(code.IndexGet)

	case *ast.IndexSet:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Index); err != nil {
			return err
		}
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.IndexSet)

	case *ast.GetField:
		c.emit(code.GetField, c.addString(node.Name))

	case *ast.SetField:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.SetField, c.addString(node.Name))

	case *ast.Get:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		c.emit(code.Get, c.addString(node.Field))

	case *ast.Set:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.Set, c.addString(node.Field))

	case *ast.Instance:
		idx, ok := c.classIndex[node.Name]
		if !ok {
			return fmt.Errorf("no class named '%s'", node.Name)
		}
		class := c.classes[idx]
		if len(node.Args) != len(class.Fields) {
			return fmt.Errorf("class '%s' takes %d argument(s), got %d", node.Name, len(class.Fields), len(node.Args))
		}
		for _, arg := range node.Args {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.Instance, idx)

	case *ast.MethodCall:
		if node.Receiver != nil {
			if err := c.Compile(node.Receiver); err != nil {
				return err
			}
		} else {
			c.emit(code.PushSelf)
		}
		for _, arg := range node.Args {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.Call, c.addString(node.Name), len(node.Args)+1)

	case *ast.NativeCall:
		return c.compileNativeCall(node)

	case *ast.If:
		if err := c.Compile(node.Condition); err != nil {
			return err
		}
		jumpPos := c.emit(code.JumpIfFalse, 9999)
		if err := c.Compile(node.Body); err != nil {
			return err
		}
		c.changeOperand(jumpPos, len(c.instructions))

	case *ast.While:
		loopStart := len(c.instructions)
		if err := c.Compile(node.Condition); err != nil {
			return err
		}
		exitJump := c.emit(code.JumpIfFalse, 9999)
		if err := c.Compile(node.Body); err != nil {
			return err
		}
		c.emit(code.Jump, loopStart)
		c.changeOperand(exitJump, len(c.instructions))

	case *ast.Return:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.Return)

	case *ast.Pop:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.Pop)

	case *ast.ClassDecl:
		return c.compileClassDecl(node)

	default:
		return fmt.Errorf("compiler: unhandled node type %T", node)
	}
	return nil
}

// binaryOpcodes maps a BinaryOp's operator text to its opcode. There is
// deliberately no entry for '*' or '/': no opcode backs them, and the
// parser never produces a BinaryOp with those operators.
var binaryOpcodes = map[string]code.Opcode{
	"+":   code.Plus,
	"-":   code.Minus,
	"==":  code.Equals,
	"!=":  code.NotEquals,
	"<":   code.Less,
	"<=":  code.LessEqual,
	">":   code.Greater,
	">=":  code.GreaterEqual,
	"and": code.And,
	"or":  code.Or,
}

// compileScope compiles a sequence of statements as a nested block: it
// brackets them with BeginScope/EndScope so locals defined inside are
// dropped with one Pop apiece on the way out. Root and Block both
// compile through this path, matching the parser's uniform treatment
// of the top level as an implicit block.
func (c *Compiler) compileScope(statements []ast.Statement) error {
	c.symbols.BeginScope()
	for _, stmt := range statements {
		if err := c.Compile(stmt); err != nil {
			return err
		}
	}
	dropped := c.symbols.EndScope()
	for i := 0; i < dropped; i++ {
		c.emit(code.Pop)
	}
	return nil
}

// compileNativeCall compiles a call to a built-in. print is variadic
// and compiles to the dedicated Print opcode rather than a Native
// dispatch, since its argument count isn't fixed like the rest of the
// registry.
func (c *Compiler) compileNativeCall(node *ast.NativeCall) error {
	if node.Name == "print" {
		for _, arg := range node.Args {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.Print, len(node.Args))
		return nil
	}

	def, ok := object.GetNativeByName(node.Name)
	if !ok {
		return fmt.Errorf("no native function named '%s'", node.Name)
	}
	if len(node.Args) != def.Arity {
		return fmt.Errorf("native '%s' takes %d argument(s), got %d", node.Name, def.Arity, len(node.Args))
	}
	for _, arg := range node.Args {
		if err := c.Compile(arg); err != nil {
			return err
		}
	}
	c.emit(code.Native, def.ID)
	return nil
}

// compileClassDecl compiles a class declaration: an unconditional jump
// over the whole declaration, then each method's body compiled inline
// in its own local frame, with a trailing PushNil/Return in case the
// body falls off the end without an explicit return.
func (c *Compiler) compileClassDecl(node *ast.ClassDecl) error {
	if _, exists := c.classIndex[node.Name]; exists {
		return fmt.Errorf("cannot define class '%s' multiple times", node.Name)
	}

	jumpPos := c.emit(code.Jump, 9999)

	fields := make([]string, len(node.Fields))
	for i, f := range node.Fields {
		fields[i] = f.Name
	}
	class := &ClassTemplate{Name: node.Name, Fields: fields}
	idx := len(c.classes)
	c.classes = append(c.classes, class)
	c.classIndex[node.Name] = idx

	for _, method := range node.Methods {
		c.symbols.BeginFunction()
		for _, param := range method.Params {
			if _, err := c.symbols.Define(param.Name); err != nil {
				c.symbols.EndFunction()
				return err
			}
		}

		codeStart := len(c.instructions)
		if err := c.Compile(method.Body); err != nil {
			c.symbols.EndFunction()
			return err
		}
		c.emit(code.PushNil)
		c.emit(code.Return)
		c.symbols.EndFunction()

		class.Methods = append(class.Methods, MethodEntry{Name: method.Name, CodeStart: codeStart})
	}

	c.changeOperand(jumpPos, len(c.instructions))
	return nil
}

// addString appends s to the shared compile-time string pool (string
// literals, field names, and method names all draw from it) and
// returns its fresh index. It never deduplicates, matching the
// virtual machine's own append-only string pool.
func (c *Compiler) addString(s string) int {
	c.strings = append(c.strings, s)
	return len(c.strings) - 1
}

// emit appends the encoding of op and its operands to the instruction
// stream and returns the position it was written at.
func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	return c.emitRaw(code.Make(op, operands...))
}

// emitRaw appends an already-encoded instruction (used for PushInt and
// PushFloat, whose operands carry a bit pattern rather than a plain
// integer) and returns the position it was written at.
func (c *Compiler) emitRaw(ins []byte) int {
	pos := len(c.instructions)
	c.instructions = append(c.instructions, ins...)
	return pos
}

// changeOperand overwrites the operand of the instruction at pos
// in place, for backpatching a forward jump once its target is known.
func (c *Compiler) changeOperand(pos int, operand int) {
	op := code.Opcode(c.instructions[pos])
	newInstruction := code.Make(op, operand)
	copy(c.instructions[pos:], newInstruction)
}
