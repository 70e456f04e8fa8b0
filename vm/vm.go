// Package vm implements the bytecode virtual machine that runs compiled
// Luma programs: a stack machine over an operand stack, a call-frame
// stack, and the append-only string/list/instance heaps from the object
// package. There is no garbage collector: heap indices are monotonic
// and never reused, matching the compiler's own append-only string
// pool.
package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/lumalang/luma/code"
	"github.com/lumalang/luma/compiler"
	"github.com/lumalang/luma/object"
)

// VM executes a compiled program's instruction stream over an operand
// stack and a call-frame stack, reading its class table and writing
// native output to an injected sink.
type VM struct {
	instructions code.Instructions
	classes      []*compiler.ClassTemplate
	heaps        *object.Heaps

	stack       []object.Value
	frames      []*Frame
	stackOffset int
	ip          int

	out io.Writer
}

// New returns a VM ready to run bc, writing Print/native output to out.
// The compiler's string pool seeds the heap's pool verbatim, so a
// PushString/GetField/Call operand's compile-time index resolves
// unchanged at run time.
func New(bc *compiler.Bytecode, out io.Writer) *VM {
	heaps := object.NewHeaps()
	heaps.Strings = append(heaps.Strings, bc.Strings...)
	return &VM{
		instructions: bc.Instructions,
		classes:      bc.Classes,
		heaps:        heaps,
		out:          out,
	}
}

// Heaps exposes the VM's string/list/instance heaps, for a caller
// (e.g. a REPL) that wants to format a value after Run returns.
func (vm *VM) Heaps() *object.Heaps { return vm.heaps }

// Run executes the instruction stream from the beginning. An error
// stops execution at the offending instruction and is returned
// unchanged: Luma has no exception-propagation mechanism visible to
// user code, so every runtime error is fatal.
func (vm *VM) Run() error {
	vm.ip = 0
	for vm.ip < len(vm.instructions) {
		ip := vm.ip
		op := code.Opcode(vm.instructions[ip])

		switch op {
		case code.PushInt:
			v := int32(code.ReadUint32(vm.instructions[ip+1:]))
			vm.push(object.Int(v))
			vm.ip += 5

		case code.PushFloat:
			bits := code.ReadUint32(vm.instructions[ip+1:])
			vm.push(object.Float(math.Float32frombits(bits)))
			vm.ip += 5

		case code.PushBool:
			vm.push(object.Bool(vm.instructions[ip+1] != 0))
			vm.ip += 2

		case code.PushNil:
			vm.push(object.NilValue{})
			vm.ip++

		case code.PushString:
			idx := code.ReadUint16(vm.instructions[ip+1:])
			vm.push(object.Str(idx))
			vm.ip += 3

		case code.PushSelf:
			vm.push(vm.stack[vm.stackOffset])
			vm.ip++

		case code.GetLocal:
			slot := code.ReadUint16(vm.instructions[ip+1:])
			vm.push(vm.stack[vm.stackOffset+int(slot)])
			vm.ip += 3

		case code.SetLocal:
			slot := code.ReadUint16(vm.instructions[ip+1:])
			vm.stack[vm.stackOffset+int(slot)] = vm.pop()
			vm.ip += 3

		case code.Jump:
			vm.ip = int(code.ReadUint16(vm.instructions[ip+1:]))

		case code.JumpIfFalse:
			target := int(code.ReadUint16(vm.instructions[ip+1:]))
			b, ok := vm.pop().(object.Bool)
			if !ok {
				return fmt.Errorf("JumpIfFalse: condition is not a bool")
			}
			if !bool(b) {
				vm.ip = target
			} else {
				vm.ip += 3
			}

		case code.Plus:
			if err := vm.execPlus(); err != nil {
				return err
			}
			vm.ip++

		case code.Minus:
			if err := vm.execMinus(); err != nil {
				return err
			}
			vm.ip++

		case code.Neg:
			if err := vm.execNeg(); err != nil {
				return err
			}
			vm.ip++

		case code.Not:
			b, ok := vm.pop().(object.Bool)
			if !ok {
				return fmt.Errorf("Not: operand is not a bool")
			}
			vm.push(!b)
			vm.ip++

		case code.Equals, code.NotEquals:
			if err := vm.execEquality(op); err != nil {
				return err
			}
			vm.ip++

		case code.Or, code.And:
			if err := vm.execLogic(op); err != nil {
				return err
			}
			vm.ip++

		case code.Less, code.LessEqual, code.Greater, code.GreaterEqual:
			if err := vm.execCompare(op); err != nil {
				return err
			}
			vm.ip++

		case code.IndexGet:
			if err := vm.execIndexGet(); err != nil {
				return err
			}
			vm.ip++

		case code.IndexSet:
			if err := vm.execIndexSet(); err != nil {
				return err
			}
			vm.ip++

		case code.List:
			n := int(code.ReadUint16(vm.instructions[ip+1:]))
			elements := vm.popN(n)
			vm.push(object.List(vm.heaps.AllocList(elements)))
			vm.ip += 3

		case code.Instance:
			idx := int(code.ReadUint16(vm.instructions[ip+1:]))
			if err := vm.execInstance(idx); err != nil {
				return err
			}
			vm.ip += 3

		case code.GetField:
			idx := code.ReadUint16(vm.instructions[ip+1:])
			if err := vm.execGetField(idx); err != nil {
				return err
			}
			vm.ip += 3

		case code.SetField:
			idx := code.ReadUint16(vm.instructions[ip+1:])
			if err := vm.execSetField(idx); err != nil {
				return err
			}
			vm.ip += 3

		case code.Get:
			idx := code.ReadUint16(vm.instructions[ip+1:])
			if err := vm.execGet(idx); err != nil {
				return err
			}
			vm.ip += 3

		case code.Set:
			idx := code.ReadUint16(vm.instructions[ip+1:])
			if err := vm.execSet(idx); err != nil {
				return err
			}
			vm.ip += 3

		case code.Call:
			nameIdx := code.ReadUint16(vm.instructions[ip+1:])
			arity := int(code.ReadUint8(vm.instructions[ip+3:]))
			if err := vm.execCall(nameIdx, arity, ip+4); err != nil {
				return err
			}

		case code.Return:
			vm.execReturn()

		case code.Pop:
			vm.pop()
			vm.ip++

		case code.Print:
			n := int(code.ReadUint16(vm.instructions[ip+1:]))
			vm.execPrint(n)
			vm.ip += 3

		case code.Native:
			id := int(code.ReadUint8(vm.instructions[ip+1:]))
			if err := vm.execNative(id); err != nil {
				return err
			}
			vm.ip += 2

		default:
			return fmt.Errorf("unknown opcode %d at ip %d", op, ip)
		}
	}
	return nil
}

func (vm *VM) push(v object.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() object.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// popN pops n values and restores source order: the compiler pushes a
// sequence's elements left-to-right, so the top of the stack holds the
// last one.
func (vm *VM) popN(n int) []object.Value {
	values := make([]object.Value, n)
	for i := n - 1; i >= 0; i-- {
		values[i] = vm.pop()
	}
	return values
}

func (vm *VM) execPlus() error {
	rhs, lhs := vm.pop(), vm.pop()
	switch l := lhs.(type) {
	case object.Int:
		r, ok := rhs.(object.Int)
		if !ok {
			return fmt.Errorf("Plus: cannot add Int and %T", rhs)
		}
		vm.push(l + r)
	case object.Float:
		r, ok := rhs.(object.Float)
		if !ok {
			return fmt.Errorf("Plus: cannot add Float and %T", rhs)
		}
		vm.push(l + r)
	case object.Str:
		r, ok := rhs.(object.Str)
		if !ok {
			return fmt.Errorf("Plus: cannot add String and %T", rhs)
		}
		concatenated := vm.heaps.Strings[l] + vm.heaps.Strings[r]
		vm.push(vm.heaps.InternString(concatenated))
	default:
		return fmt.Errorf("Plus: unsupported operand type %T", lhs)
	}
	return nil
}

func (vm *VM) execMinus() error {
	rhs, lhs := vm.pop(), vm.pop()
	switch l := lhs.(type) {
	case object.Int:
		r, ok := rhs.(object.Int)
		if !ok {
			return fmt.Errorf("Minus: cannot subtract Int and %T", rhs)
		}
		vm.push(l - r)
	case object.Float:
		r, ok := rhs.(object.Float)
		if !ok {
			return fmt.Errorf("Minus: cannot subtract Float and %T", rhs)
		}
		vm.push(l - r)
	default:
		return fmt.Errorf("Minus: unsupported operand type %T", lhs)
	}
	return nil
}

func (vm *VM) execNeg() error {
	switch v := vm.pop().(type) {
	case object.Int:
		vm.push(-v)
	case object.Float:
		vm.push(-v)
	default:
		return fmt.Errorf("Neg: unsupported operand type %T", v)
	}
	return nil
}

func (vm *VM) execCompare(op code.Opcode) error {
	rhs, lhs := vm.pop(), vm.pop()
	var result bool
	switch l := lhs.(type) {
	case object.Int:
		r, ok := rhs.(object.Int)
		if !ok {
			return fmt.Errorf("cannot compare Int and %T", rhs)
		}
		result = compareOrdered(op, int64(l), int64(r))
	case object.Float:
		r, ok := rhs.(object.Float)
		if !ok {
			return fmt.Errorf("cannot compare Float and %T", rhs)
		}
		result = compareOrdered(op, float64(l), float64(r))
	default:
		return fmt.Errorf("cannot compare values of type %T", lhs)
	}
	vm.push(object.Bool(result))
	return nil
}

func compareOrdered[T int64 | float64](op code.Opcode, l, r T) bool {
	switch op {
	case code.Less:
		return l < r
	case code.LessEqual:
		return l <= r
	case code.Greater:
		return l > r
	case code.GreaterEqual:
		return l >= r
	default:
		return false
	}
}

func (vm *VM) execLogic(op code.Opcode) error {
	rhs, ok1 := vm.pop().(object.Bool)
	lhs, ok2 := vm.pop().(object.Bool)
	if !ok1 || !ok2 {
		return fmt.Errorf("and/or operands must be bool")
	}
	if op == code.And {
		vm.push(lhs && rhs)
	} else {
		vm.push(lhs || rhs)
	}
	return nil
}

// execEquality implements structural equality: bools/ints/floats
// compare directly, strings compare by pool text, lists/instances
// compare by heap index (identity), and Nil equals only Nil. Any
// other mixed pairing is an error.
func (vm *VM) execEquality(op code.Opcode) error {
	rhs, lhs := vm.pop(), vm.pop()
	equal, err := vm.valuesEqual(lhs, rhs)
	if err != nil {
		return err
	}
	if op == code.NotEquals {
		equal = !equal
	}
	vm.push(object.Bool(equal))
	return nil
}

func (vm *VM) valuesEqual(lhs, rhs object.Value) (bool, error) {
	_, lhsNil := lhs.(object.NilValue)
	_, rhsNil := rhs.(object.NilValue)
	if lhsNil || rhsNil {
		return lhsNil && rhsNil, nil
	}

	switch l := lhs.(type) {
	case object.Bool:
		r, ok := rhs.(object.Bool)
		if !ok {
			return false, fmt.Errorf("cannot compare types %T and %T", lhs, rhs)
		}
		return l == r, nil
	case object.Int:
		r, ok := rhs.(object.Int)
		if !ok {
			return false, fmt.Errorf("cannot compare types %T and %T", lhs, rhs)
		}
		return l == r, nil
	case object.Float:
		r, ok := rhs.(object.Float)
		if !ok {
			return false, fmt.Errorf("cannot compare types %T and %T", lhs, rhs)
		}
		return l == r, nil
	case object.Str:
		r, ok := rhs.(object.Str)
		if !ok {
			return false, fmt.Errorf("cannot compare types %T and %T", lhs, rhs)
		}
		return vm.heaps.Strings[l] == vm.heaps.Strings[r], nil
	case object.List:
		r, ok := rhs.(object.List)
		if !ok {
			return false, fmt.Errorf("cannot compare types %T and %T", lhs, rhs)
		}
		return l == r, nil
	case object.Instance:
		r, ok := rhs.(object.Instance)
		if !ok {
			return false, fmt.Errorf("cannot compare types %T and %T", lhs, rhs)
		}
		return l == r, nil
	default:
		return false, fmt.Errorf("cannot compare values of type %T", lhs)
	}
}

func (vm *VM) execIndexGet() error {
	indexer, list := vm.pop(), vm.pop()
	i, ok := indexer.(object.Int)
	if !ok {
		return fmt.Errorf("IndexGet: index must be an Int")
	}
	switch l := list.(type) {
	case object.List:
		elements := vm.heaps.Lists[l]
		if int(i) < 0 || int(i) >= len(elements) {
			return fmt.Errorf("IndexGet: index %d out of range for list of length %d", i, len(elements))
		}
		vm.push(elements[i])
	case object.Str:
		s := vm.heaps.Strings[l]
		if int(i) < 0 || int(i) >= len(s) {
			return fmt.Errorf("IndexGet: index %d out of range for string of length %d", i, len(s))
		}
		vm.push(vm.heaps.InternString(s[i : i+1]))
	default:
		return fmt.Errorf("IndexGet: cannot index into %T", list)
	}
	return nil
}

func (vm *VM) execIndexSet() error {
	value, indexer, list := vm.pop(), vm.pop(), vm.pop()
	i, ok := indexer.(object.Int)
	if !ok {
		return fmt.Errorf("IndexSet: index must be an Int")
	}
	l, ok := list.(object.List)
	if !ok {
		return fmt.Errorf("IndexSet: cannot index into %T", list)
	}
	elements := vm.heaps.Lists[l]
	if int(i) < 0 || int(i) >= len(elements) {
		return fmt.Errorf("IndexSet: index %d out of range for list of length %d", i, len(elements))
	}
	elements[i] = value
	return nil
}

// execInstance pops one value per declared field (restoring source
// order, the same reverse-then-bind convention List uses) and
// constructs an instance whose variables bind fields to those values
// in declaration order.
func (vm *VM) execInstance(classIdx int) error {
	class := vm.classes[classIdx]
	values := vm.popN(len(class.Fields))

	variables := make(map[string]object.Value, len(class.Fields))
	for i, field := range class.Fields {
		variables[field] = values[i]
	}
	methods := make(map[string]int, len(class.Methods))
	for _, m := range class.Methods {
		methods[m.Name] = m.CodeStart
	}

	instance := &object.InstanceObj{
		ClassName:  class.Name,
		Variables:  variables,
		Methods:    methods,
		FieldOrder: append([]string(nil), class.Fields...),
	}
	vm.push(object.Instance(vm.heaps.AllocInstance(instance)))
	return nil
}

func (vm *VM) receiverInstance() (*object.InstanceObj, error) {
	if len(vm.frames) == 0 {
		return nil, fmt.Errorf("field access outside a method")
	}
	inst, ok := vm.stack[vm.stackOffset].(object.Instance)
	if !ok {
		return nil, fmt.Errorf("field access outside a method")
	}
	return vm.heaps.Instances[inst], nil
}

func (vm *VM) execGetField(nameIdx uint16) error {
	inst, err := vm.receiverInstance()
	if err != nil {
		return err
	}
	name := vm.heaps.Strings[nameIdx]
	val, ok := inst.Variables[name]
	if !ok {
		return fmt.Errorf("GetField: no field named %q", name)
	}
	vm.push(val)
	return nil
}

func (vm *VM) execSetField(nameIdx uint16) error {
	value := vm.pop()
	inst, err := vm.receiverInstance()
	if err != nil {
		return err
	}
	name := vm.heaps.Strings[nameIdx]
	if _, ok := inst.Variables[name]; !ok {
		return fmt.Errorf("SetField: no field named %q", name)
	}
	inst.Variables[name] = value
	return nil
}

func (vm *VM) execGet(nameIdx uint16) error {
	obj, ok := vm.pop().(object.Instance)
	if !ok {
		return fmt.Errorf("Get: left-hand side must be an instance")
	}
	inst := vm.heaps.Instances[obj]
	name := vm.heaps.Strings[nameIdx]
	val, ok := inst.Variables[name]
	if !ok {
		return fmt.Errorf("Get: no field named %q", name)
	}
	vm.push(val)
	return nil
}

func (vm *VM) execSet(nameIdx uint16) error {
	value := vm.pop()
	obj, ok := vm.pop().(object.Instance)
	if !ok {
		return fmt.Errorf("Set: left-hand side must be an instance")
	}
	inst := vm.heaps.Instances[obj]
	name := vm.heaps.Strings[nameIdx]
	if _, ok := inst.Variables[name]; !ok {
		return fmt.Errorf("Set: no field named %q", name)
	}
	inst.Variables[name] = value
	return nil
}

// execCall resolves method_name on the instance sitting arity slots
// below the stack top, pushes a frame recording how to resume the
// caller, and transfers control into the method body.
func (vm *VM) execCall(nameIdx uint16, arity int, returnAddr int) error {
	newOffset := len(vm.stack) - arity
	receiver, ok := vm.stack[newOffset].(object.Instance)
	if !ok {
		return fmt.Errorf("Call: receiver is not an instance")
	}
	name := vm.heaps.Strings[nameIdx]
	target, ok := vm.heaps.Instances[receiver].Methods[name]
	if !ok {
		return fmt.Errorf("Call: no method named %q", name)
	}

	vm.frames = append(vm.frames, NewFrame(returnAddr, newOffset))
	vm.stackOffset = newOffset
	vm.ip = target
	return nil
}

// execReturn pops the return value and the active frame, truncates the
// stack back down to the frame's own base slot (discarding the
// receiver, arguments, and any remaining locals), restores the
// caller's stack_offset, and resumes at the frame's return address.
func (vm *VM) execReturn() {
	value := vm.pop()
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]

	vm.stack = vm.stack[:frame.stackOffset]
	if len(vm.frames) > 0 {
		vm.stackOffset = vm.frames[len(vm.frames)-1].stackOffset
	} else {
		vm.stackOffset = 0
	}
	vm.push(value)
	vm.ip = frame.returnAddr
}

func (vm *VM) execPrint(n int) {
	values := vm.popN(n)
	for i, v := range values {
		if i > 0 {
			_, _ = fmt.Fprint(vm.out, " ")
		}
		_, _ = fmt.Fprint(vm.out, vm.heaps.Display(v))
	}
	_, _ = fmt.Fprint(vm.out, "\n")
	vm.push(object.NilValue{})
}

func (vm *VM) execNative(id int) error {
	def, ok := object.GetNativeByID(id)
	if !ok || def.Fn == nil {
		return fmt.Errorf("Native: no builtin with id %d", id)
	}
	args := vm.popN(def.Arity)
	result, err := def.Fn(vm.heaps, args)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}
