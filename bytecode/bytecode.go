// Package bytecode provides line-oriented text serialization for a
// compiled Luma program (spec.md §6's "Bytecode file layout"): a
// string pool, a class table, and an instruction list, each one entry
// per line. The format trades size for readability — a compiled
// bytecode file is meant to be diffable and inspectable with a text
// editor, not compact.
//
// File layout (single file, count-prefixed sections):
//
//	<string count>
//	<string>...             one per line, pool order, empty line for ""
//	<class count>
//	<class>...              "name|field1,field2,...|method1:entry,method2:entry,..."
//	<instruction count>
//	<instruction>...        one serialized instruction per line
//
// Instruction lines follow spec.md §6's table: a bare opcode name for
// zero-operand instructions (Plus, Return, Pop, ...), or
// "Opcode|operand" / "Opcode|operand|operand" otherwise. GetField/
// SetField/Get/Set/Call/PushString carry a string-pool index rather
// than an inline name, and Instance carries a class-table index rather
// than an inline (fields, methods, entries) triple: both opcodes
// resolve through the sections already written above them, so the
// instruction line stays a single fixed shape instead of a variable-
// length name list.
package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lumalang/luma/code"
	"github.com/lumalang/luma/compiler"
)

// Encode writes bc to w in the line-oriented text format described in
// the package doc.
func Encode(bc *compiler.Bytecode, w io.Writer) error {
	bw := bufio.NewWriter(w)

	if err := writeStrings(bw, bc.Strings); err != nil {
		return fmt.Errorf("bytecode: writing string pool: %w", err)
	}
	if err := writeClasses(bw, bc.Classes); err != nil {
		return fmt.Errorf("bytecode: writing class table: %w", err)
	}
	if err := writeInstructions(bw, bc.Instructions); err != nil {
		return fmt.Errorf("bytecode: writing instructions: %w", err)
	}

	return bw.Flush()
}

// Decode reads a program previously written by Encode.
func Decode(r io.Reader) (*compiler.Bytecode, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	strs, err := readStrings(sc)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading string pool: %w", err)
	}
	classes, err := readClasses(sc)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading class table: %w", err)
	}
	instructions, err := readInstructions(sc)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading instructions: %w", err)
	}

	return &compiler.Bytecode{
		Instructions: instructions,
		Strings:      strs,
		Classes:      classes,
	}, nil
}

func writeCount(w *bufio.Writer, n int) error {
	_, err := fmt.Fprintln(w, n)
	return err
}

func readCount(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(sc.Text())
}

func writeStrings(w *bufio.Writer, strs []string) error {
	if err := writeCount(w, len(strs)); err != nil {
		return err
	}
	for _, s := range strs {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}

// readStrings reads back exactly the lines written by writeStrings.
// A missing line (EOF reached early) decodes as "" per spec.md §6,
// so a trailing empty string in the pool never desyncs the count.
func readStrings(sc *bufio.Scanner) ([]string, error) {
	n, err := readCount(sc)
	if err != nil {
		return nil, err
	}
	strs := make([]string, n)
	for i := 0; i < n; i++ {
		if sc.Scan() {
			strs[i] = sc.Text()
		}
	}
	return strs, nil
}

// writeClasses writes one class per line:
// "name|field1,field2,...|method1:entry1,method2:entry2,...".
func writeClasses(w *bufio.Writer, classes []*compiler.ClassTemplate) error {
	if err := writeCount(w, len(classes)); err != nil {
		return err
	}
	for _, c := range classes {
		methods := make([]string, len(c.Methods))
		for i, m := range c.Methods {
			methods[i] = fmt.Sprintf("%s:%d", m.Name, m.CodeStart)
		}
		line := fmt.Sprintf("%s|%s|%s", c.Name, strings.Join(c.Fields, ","), strings.Join(methods, ","))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func readClasses(sc *bufio.Scanner) ([]*compiler.ClassTemplate, error) {
	n, err := readCount(sc)
	if err != nil {
		return nil, err
	}
	classes := make([]*compiler.ClassTemplate, n)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("class %d: %w", i, io.ErrUnexpectedEOF)
		}
		parts := strings.SplitN(sc.Text(), "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("class %d: malformed line %q", i, sc.Text())
		}
		fields := splitNonEmpty(parts[1], ",")
		var methods []compiler.MethodEntry
		for _, m := range splitNonEmpty(parts[2], ",") {
			nameStart := strings.LastIndex(m, ":")
			if nameStart < 0 {
				return nil, fmt.Errorf("class %d: malformed method entry %q", i, m)
			}
			codeStart, err := strconv.Atoi(m[nameStart+1:])
			if err != nil {
				return nil, fmt.Errorf("class %d: malformed method entry %q: %w", i, m, err)
			}
			methods = append(methods, compiler.MethodEntry{Name: m[:nameStart], CodeStart: codeStart})
		}
		classes[i] = &compiler.ClassTemplate{Name: parts[0], Fields: fields, Methods: methods}
	}
	return classes, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

// writeInstructions walks the flat instruction stream one decoded
// instruction at a time (via code.Lookup/code.ReadOperands, the same
// decoder Instructions.String uses) and writes its serialized form.
func writeInstructions(w *bufio.Writer, ins code.Instructions) error {
	var lines []string
	i := 0
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			return err
		}
		operands, read := code.ReadOperands(def, ins[i+1:])
		lines = append(lines, serializeInstruction(code.Opcode(ins[i]), def, operands))
		i += read + 1
	}

	if err := writeCount(w, len(lines)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func serializeInstruction(op code.Opcode, def *code.Definition, operands []int) string {
	switch op {
	case code.PushInt:
		return fmt.Sprintf("PushInt|%d", int32(uint32(operands[0])))
	case code.PushBool:
		if operands[0] != 0 {
			return "PushBool|true"
		}
		return "PushBool|false"
	case code.PushFloat:
		bits := uint32(operands[0])
		return fmt.Sprintf("PushFloat|%s", strconv.FormatFloat(float64(math.Float32frombits(bits)), 'g', -1, 32))
	}

	switch len(def.OperandWidths) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s|%d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s|%d|%d", def.Name, operands[0], operands[1])
	default:
		return def.Name
	}
}

// nameToOpcode inverts code's opcode-to-name table for decoding.
var nameToOpcode = func() map[string]code.Opcode {
	m := make(map[string]code.Opcode)
	for _, op := range []code.Opcode{
		code.PushInt, code.PushFloat, code.PushBool, code.PushNil, code.PushString,
		code.PushSelf, code.GetLocal, code.SetLocal, code.Jump, code.JumpIfFalse,
		code.Plus, code.Minus, code.Neg, code.Not, code.Equals, code.NotEquals,
		code.Or, code.And, code.Less, code.LessEqual, code.Greater, code.GreaterEqual,
		code.IndexGet, code.IndexSet, code.List, code.Instance, code.GetField,
		code.SetField, code.Get, code.Set, code.Call, code.Return, code.Pop,
		code.Print, code.Native,
	} {
		def, err := code.Lookup(byte(op))
		if err != nil {
			continue
		}
		m[def.Name] = op
	}
	return m
}()

func readInstructions(sc *bufio.Scanner) (code.Instructions, error) {
	n, err := readCount(sc)
	if err != nil {
		return nil, err
	}

	var out code.Instructions
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("instruction %d: %w", i, io.ErrUnexpectedEOF)
		}
		parts := strings.Split(sc.Text(), "|")
		op, ok := nameToOpcode[parts[0]]
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown opcode %q", i, parts[0])
		}

		switch op {
		case code.PushInt:
			v, err := strconv.ParseInt(parts[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: bad int %q: %w", i, parts[1], err)
			}
			out = append(out, code.MakeInt(int32(v))...)
			continue
		case code.PushBool:
			out = append(out, code.Make(code.PushBool, boolOperand(parts[1]))...)
			continue
		case code.PushFloat:
			f, err := strconv.ParseFloat(parts[1], 32)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: bad float %q: %w", i, parts[1], err)
			}
			out = append(out, code.MakeFloat(float32(f))...)
			continue
		}

		operands := make([]int, len(parts)-1)
		for j, p := range parts[1:] {
			v, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: bad operand %q: %w", i, p, err)
			}
			operands[j] = v
		}
		out = append(out, code.Make(op, operands...)...)
	}
	return out, nil
}

func boolOperand(s string) int {
	if s == "true" {
		return 1
	}
	return 0
}
