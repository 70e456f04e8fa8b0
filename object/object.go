// Package object defines the runtime value system for the Luma programming language.
//
// Luma has no garbage collector: strings, lists, and instances live in
// three append-only heaps owned by the virtual machine, and a [Value]
// is either a small inline scalar (Int, Float, Bool, Nil) or an index
// into one of those heaps (Str, List, Instance). Indices are never
// reused, so equality of a heap-backed Value is equality of its index,
// except for strings, which compare by pooled text (spec.md §4.2).
//
// Key components:
//   - [Value] interface: the tagged variant every stack slot holds
//   - [Int], [Float], [Bool], [NilValue], [Str], [List], [Instance]: the seven variants
//   - [Heaps]: the string pool, list heap, and instance heap, plus canonical display text
//   - [InstanceObj]: the by-name field/method record an instance index resolves to
package object

import (
	"fmt"
	"strconv"
	"strings"
)

//nolint:revive
const (
	IntType      = "INT"
	FloatType    = "FLOAT"
	BoolType     = "BOOL"
	NilType      = "NIL"
	StrType      = "STRING"
	ListType     = "LIST"
	InstanceType = "INSTANCE"
)

// Type identifies which of the seven Value variants a value holds.
type Type string

// Value is the tagged variant every stack slot, local, and field holds.
// Int, Float, Bool, and Nil carry their data inline; Str, List, and
// Instance carry an index into the matching [Heaps] vector.
type Value interface {
	// Type reports which variant this value is.
	Type() Type
}

// Int is an inline 32-bit signed integer.
type Int int32

// Type returns [IntType].
func (Int) Type() Type { return IntType }

// Float is an inline 32-bit float.
type Float float32

// Type returns [FloatType].
func (Float) Type() Type { return FloatType }

// Bool is an inline boolean.
type Bool bool

// Type returns [BoolType].
func (Bool) Type() Type { return BoolType }

// NilValue is the single Nil value; it only ever equals itself.
type NilValue struct{}

// Type returns [NilType].
func (NilValue) Type() Type { return NilType }

// Str is an index into the VM's string pool. Equal text at different
// indices is still equal: string equality is by pooled text, not index.
type Str int

// Type returns [StrType].
func (Str) Type() Type { return StrType }

// List is an index into the VM's list heap.
type List int

// Type returns [ListType].
func (List) Type() Type { return ListType }

// Instance is an index into the VM's instance heap.
type Instance int

// Type returns [InstanceType].
func (Instance) Type() Type { return InstanceType }

// InstanceObj is the by-name record an [Instance] index resolves to: a
// field-name-to-value map and a method-name-to-entry-point table, both
// populated from the class's compiled template at construction time.
type InstanceObj struct {
	ClassName string
	Variables map[string]Value
	Methods   map[string]int

	// FieldOrder records the declared field names in source order, so
	// canonical display and construction can iterate fields
	// deterministically even though Variables is a map.
	FieldOrder []string
}

// Heaps owns the three append-only stores backing Str, List, and
// Instance values: a string pool, a list heap, and an instance heap.
// Indices are assigned monotonically and are never reused or
// compacted, matching spec.md §4.3.
type Heaps struct {
	Strings   []string
	Lists     [][]Value
	Instances []*InstanceObj
}

// NewHeaps returns an empty set of heaps.
func NewHeaps() *Heaps {
	return &Heaps{}
}

// InternString appends s to the string pool unconditionally (no
// deduplication: spec.md §4.3 permits equal text at distinct indices)
// and returns its fresh index.
func (h *Heaps) InternString(s string) Str {
	h.Strings = append(h.Strings, s)
	return Str(len(h.Strings) - 1)
}

// AllocList appends a fresh list and returns its index.
func (h *Heaps) AllocList(elements []Value) List {
	h.Lists = append(h.Lists, elements)
	return List(len(h.Lists) - 1)
}

// AllocInstance appends a fresh instance and returns its index.
func (h *Heaps) AllocInstance(obj *InstanceObj) Instance {
	h.Instances = append(h.Instances, obj)
	return Instance(len(h.Instances) - 1)
}

// Display renders v in its canonical text form (spec.md §6): bool as
// true/false, int in decimal, float in its shortest round-tripping
// form, nil as "nil", a string as its pooled text verbatim, a list as
// "[e1, e2, ...]", and an instance as "{v1, v2, ...}" over its field
// values in declaration order.
func (h *Heaps) Display(v Value) string {
	switch val := v.(type) {
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case Bool:
		return strconv.FormatBool(bool(val))
	case NilValue:
		return "nil"
	case Str:
		return h.Strings[val]
	case List:
		elements := h.Lists[val]
		parts := make([]string, len(elements))
		for i, e := range elements {
			parts[i] = h.Display(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Instance:
		obj := h.Instances[val]
		parts := make([]string, 0, len(obj.FieldOrder))
		for _, name := range obj.FieldOrder {
			parts = append(parts, h.Display(obj.Variables[name]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("<unknown value %T>", v)
	}
}
