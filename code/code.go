// Package code provides bytecode instruction definitions and utilities for the compiler and virtual machine.
//
// This package defines the bytecode instruction set used by the compiler to generate executable code
// and by the virtual machine to execute programs.
//
// It includes opcode definitions, instruction encoding
// and decoding functions, and utilities for working with bytecode instructions.
package code

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Instructions is a slice of bytes representing a sequence of instructions.
type Instructions []byte

// Opcode represents a single bytecode instruction used by the compiler and virtual machine.
type Opcode byte

// Bytecode instruction opcodes.
//
// Each opcode represents a specific operation that the virtual machine can
// execute. Instructions may have zero or more operands encoded after the
// opcode byte. There is no Multiply/Divide: Luma's instruction set has no
// opcode for them, so the parser never registers `*`/`/` as operators.
const (
	// PushInt pushes a literal 32-bit signed integer.
	//
	// Operands: [value:4] - the int32 value, as its raw big-endian bit pattern.
	PushInt Opcode = iota

	// PushFloat pushes a literal 32-bit float.
	//
	// Operands: [value:4] - the float32 value, as its IEEE-754 bit pattern.
	PushFloat

	// PushBool pushes a literal boolean.
	//
	// Operands: [value:1] - 0 for false, 1 for true.
	PushBool

	// PushNil pushes the Nil value.
	PushNil

	// PushString pushes a clone of a pooled string.
	//
	// Operands: [pool_index:2] - 2-byte index into the compiled string pool.
	PushString

	// PushSelf pushes a clone of stack[stack_offset], the active method's receiver.
	PushSelf

	// GetLocal pushes a clone of stack[stack_offset + slot].
	//
	// Operands: [slot:2]
	GetLocal

	// SetLocal pops a value and writes it to stack[stack_offset + slot].
	//
	// Operands: [slot:2]
	SetLocal

	// Jump unconditionally sets ip to the given instruction offset.
	//
	// Operands: [target:2]
	Jump

	// JumpIfFalse pops a bool; if false, sets ip to the given offset.
	// A non-bool operand is a runtime error.
	//
	// Operands: [target:2]
	JumpIfFalse

	// Plus pops rhs, lhs and pushes their sum: int+int, float+float, or
	// string+string (pooled concatenation). Any other pairing is an error.
	Plus

	// Minus pops rhs, lhs and pushes their difference: int-int or float-float.
	Minus

	// Neg pops a value and pushes its arithmetic negation (int or float).
	Neg

	// Not pops a bool and pushes its negation. A non-bool operand is an error.
	Not

	// Equals pops rhs, lhs and pushes their structural equality.
	Equals

	// NotEquals pops rhs, lhs and pushes their structural inequality.
	NotEquals

	// Or pops rhs, lhs (both bool) and pushes their logical or.
	Or

	// And pops rhs, lhs (both bool) and pushes their logical and.
	And

	// Less pops rhs, lhs and pushes lhs < rhs.
	Less

	// LessEqual pops rhs, lhs and pushes lhs <= rhs.
	LessEqual

	// Greater pops rhs, lhs and pushes lhs > rhs.
	Greater

	// GreaterEqual pops rhs, lhs and pushes lhs >= rhs.
	GreaterEqual

	// IndexGet pops an indexer and a collection, and pushes the element at
	// that index. (Int, List) clones the element; (Int, String) pushes a
	// fresh single-character pool entry.
	IndexGet

	// IndexSet pops rhs, indexer, and a list, and writes rhs into the list
	// at that index.
	IndexSet

	// List pops n values, restores source order, allocates a list, and
	// pushes it.
	//
	// Operands: [count:2]
	List

	// Instance constructs an instance of a compiled class: pops |fields|
	// values (binding them to field names in declaration order), populates
	// the method table from the class template, and pushes the instance.
	//
	// Operands: [class_index:2] - index into the compiled class table.
	Instance

	// GetField reads the active method's receiver (stack[stack_offset])
	// and pushes a clone of the named field. Illegal outside a method.
	//
	// Operands: [name_index:2] - index into the compiled string pool.
	GetField

	// SetField pops a value and writes it into the active receiver's named
	// field. Illegal outside a method.
	//
	// Operands: [name_index:2]
	SetField

	// Get pops an instance and pushes a clone of its named field.
	//
	// Operands: [name_index:2]
	Get

	// Set pops a value, pops an instance, and writes the value into the
	// instance's named field.
	//
	// Operands: [name_index:2]
	Set

	// Call resolves method_name on the instance at
	// stack[len(stack)-arity] and transfers control to its body.
	//
	// Operands: [name_index:2, arity:1]
	Call

	// Return pops the return value, pops the active call frame, truncates
	// the stack to the frame's stack_offset, and pushes the return value.
	Return

	// Pop discards the top of the stack.
	Pop

	// Print pops n values, restores source order, writes them
	// space-separated with a trailing newline, and pushes Nil.
	//
	// Operands: [count:2]
	Print

	// Native dispatches to a built-in by registry id.
	//
	// Operands: [builtin_id:1]
	Native
)

// Definition represents an instruction definition with its name and operand widths.
type Definition struct {
	// The name of the instruction.
	Name string

	// OperandWidths specifies the number of bytes each operand of an instruction occupies.
	OperandWidths []int
}

// definitions is a map of opcodes to their definitions.
var definitions = map[Opcode]*Definition{
	PushInt:     {"PushInt", []int{4}},
	PushFloat:   {"PushFloat", []int{4}},
	PushBool:    {"PushBool", []int{1}},
	PushNil:     {"PushNil", []int{}},
	PushString:  {"PushString", []int{2}},
	PushSelf:    {"PushSelf", []int{}},
	GetLocal:    {"GetLocal", []int{2}},
	SetLocal:    {"SetLocal", []int{2}},
	Jump:        {"Jump", []int{2}},
	JumpIfFalse: {"JumpIfFalse", []int{2}},
	Plus:        {"Plus", []int{}},
	Minus:       {"Minus", []int{}},
	Neg:         {"Neg", []int{}},
	Not:         {"Not", []int{}},
	Equals:      {"Equals", []int{}},
	NotEquals:   {"NotEquals", []int{}},
	Or:          {"Or", []int{}},
	And:         {"And", []int{}},
	Less:         {"Less", []int{}},
	LessEqual:    {"LessEqual", []int{}},
	Greater:      {"Greater", []int{}},
	GreaterEqual: {"GreaterEqual", []int{}},
	IndexGet:     {"IndexGet", []int{}},
	IndexSet:     {"IndexSet", []int{}},
	List:         {"List", []int{2}},
	Instance:     {"Instance", []int{2}},
	GetField:     {"GetField", []int{2}},
	SetField:     {"SetField", []int{2}},
	Get:          {"Get", []int{2}},
	Set:          {"Set", []int{2}},
	Call:         {"Call", []int{2, 1}},
	Return:       {"Return", []int{}},
	Pop:          {"Pop", []int{}},
	Print:        {"Print", []int{2}},
	Native:       {"Native", []int{1}},
}

// Lookup returns the [Definition] for the given [Opcode].
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make creates a byte slice representing an instruction using the provided opcode and operands.
// A signed operand (for PushInt/PushFloat) is passed through its bit pattern:
// callers convert with int32/float32 bits before calling Make.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}
	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}
	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		case 4:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(operand))
		}
		offset += width
	}
	return instruction
}

// MakeInt encodes a PushInt instruction, preserving the int32's bit pattern.
func MakeInt(value int32) []byte {
	return Make(PushInt, int(uint32(value)))
}

// MakeFloat encodes a PushFloat instruction from its IEEE-754 bit pattern.
func MakeFloat(value float32) []byte {
	return Make(PushFloat, int(math.Float32bits(value)))
}

// String provides a human-readable string representation of the [Instructions], formatted with opcodes and operands.
func (ins Instructions) String() string {
	var out strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			_, _ = fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		_, _ = fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += read + 1
	}

	return out.String()
}

// fmtInstruction formats an instruction with its operands into a human-readable string representation.
func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	operandCount := len(def.OperandWidths)

	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d\n", len(operands), operandCount)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operandCount for %s\n", def.Name)
}

// ReadOperands decodes operands from the specified instructions based
// on the definition and returns them with the total bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 4:
			operands[i] = int(ReadUint32(ins[offset:]))
		}
		offset += width
	}
	return operands, offset
}

// ReadUint32 decodes the first four bytes of the provided [Instructions] as uint32 in big-endian format.
func ReadUint32(ins Instructions) uint32 {
	return binary.BigEndian.Uint32(ins)
}

// ReadUint16 decodes the first two bytes of the provided [Instructions] as uint16 in big-endian format.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

// ReadUint8 extracts the first byte from the provided [Instructions] slice and returns it as uint8.
func ReadUint8(ins Instructions) uint8 { return ins[0] }
