package object

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// NativeFn is the signature every native (built-in) implements. It
// receives the heaps it may read from or allocate into and the
// already-popped, source-order argument values, and returns either a
// result value or an error that aborts the running program.
type NativeFn func(h *Heaps, args []Value) (Value, error)

// NativeDef pairs a native's registry id and name with its arity and
// implementation. The id is the operand a [Native] bytecode
// instruction carries; the registry order is part of the bytecode
// format and must not be reordered once assigned.
type NativeDef struct {
	ID    int
	Name  string
	Arity int
	Fn    NativeFn
}

// Natives is the fixed, registry-ordered table of built-ins (spec.md §6).
// print (id 0) is listed for completeness but is never dispatched
// through a Native instruction: the compiler recognizes a call to
// print and emits the variadic Print opcode instead, since print's
// argument count is not fixed at one like the rest of the registry.
var Natives = []NativeDef{
	{ID: 0, Name: "print", Arity: -1, Fn: nil},
	{ID: 1, Name: "to_string", Arity: 1, Fn: nativeToString},
	{ID: 2, Name: "read_file", Arity: 1, Fn: nativeReadFile},
	{ID: 3, Name: "len", Arity: 1, Fn: nativeLen},
	{ID: 4, Name: "err", Arity: 1, Fn: nativeErr},
	{ID: 5, Name: "append", Arity: 2, Fn: nativeAppend},
	{ID: 6, Name: "pop", Arity: 1, Fn: nativePop},
}

// GetNativeByName looks up a native by its source-level name, for the
// compiler to resolve a `#name(...)` call to a registry id.
func GetNativeByName(name string) (NativeDef, bool) {
	for _, def := range Natives {
		if def.Name == name {
			return def, true
		}
	}
	return NativeDef{}, false
}

// GetNativeByID looks up a native by its registry id, for the virtual
// machine to dispatch a Native instruction.
func GetNativeByID(id int) (NativeDef, bool) {
	for _, def := range Natives {
		if def.ID == id {
			return def, true
		}
	}
	return NativeDef{}, false
}

func nativeToString(h *Heaps, args []Value) (Value, error) {
	return h.InternString(h.Display(args[0])), nil
}

func nativeReadFile(h *Heaps, args []Value) (Value, error) {
	path, ok := args[0].(Str)
	if !ok {
		return nil, fmt.Errorf("read_file: argument must be a string, got %s", args[0].Type())
	}
	data, err := os.ReadFile(h.Strings[path])
	if err != nil {
		return h.InternString(fmt.Sprintf("Error reading file: %s - %s", h.Strings[path], err)), nil
	}
	return h.InternString(string(data)), nil
}

func nativeLen(h *Heaps, args []Value) (Value, error) {
	switch arg := args[0].(type) {
	case Str:
		return Int(utf8.RuneCountInString(h.Strings[arg])), nil
	case List:
		return Int(len(h.Lists[arg])), nil
	default:
		return NilValue{}, nil
	}
}

func nativeErr(h *Heaps, args []Value) (Value, error) {
	return nil, fmt.Errorf("%s", h.Display(args[0]))
}

func nativeAppend(h *Heaps, args []Value) (Value, error) {
	list, ok := args[0].(List)
	if !ok {
		return nil, fmt.Errorf("append: first argument must be a list, got %s", args[0].Type())
	}
	h.Lists[list] = append(h.Lists[list], args[1])
	return NilValue{}, nil
}

func nativePop(h *Heaps, args []Value) (Value, error) {
	list, ok := args[0].(List)
	if !ok {
		return nil, fmt.Errorf("pop: argument must be a list, got %s", args[0].Type())
	}
	elements := h.Lists[list]
	if len(elements) == 0 {
		return nil, fmt.Errorf("pop: list is empty")
	}
	last := elements[len(elements)-1]
	h.Lists[list] = elements[:len(elements)-1]
	return last, nil
}
