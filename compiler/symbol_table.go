package compiler

import "fmt"

// Local is a named slot inside the currently-compiling function's flat
// local-variable frame. Slot is relative to that frame's own
// stack_offset: slot 0 is implicitly reserved for the method receiver
// (bound via PushSelf/GetField, never through a Local), so a method's
// first declared parameter is assigned slot 1, and locals `def`-ed in
// the method body continue the same sequence. Depth records the block
// nesting level Local was defined at, so ending that block can drop it.
type Local struct {
	Name  string
	Slot  int
	Depth int
}

// SymbolTable tracks local-variable bindings for the function currently
// being compiled, plus the stack of functions enclosing it. Luma has no
// closures or globals distinct from locals: every binding, from
// top-level `def` to a method parameter, is a Local in some frame.
type SymbolTable struct {
	frames []map[string]Local
	depth  int
}

// NewSymbolTable returns a table with a single frame, representing the
// implicit top-level program frame.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{frames: []map[string]Local{make(map[string]Local)}}
}

// BeginScope marks the start of a nested block; locals defined inside
// it are dropped again by the matching EndScope.
func (st *SymbolTable) BeginScope() { st.depth++ }

// EndScope removes every local defined at the current depth from the
// active frame and returns how many were removed, so the caller can
// emit one Pop per dropped local.
func (st *SymbolTable) EndScope() int {
	frame := st.frames[len(st.frames)-1]
	removed := 0
	for name, local := range frame {
		if local.Depth == st.depth {
			delete(frame, name)
			removed++
		}
	}
	st.depth--
	return removed
}

// BeginFunction pushes a fresh, empty frame for a method body: a
// method's locals are never visible to its caller's frame or to
// sibling methods.
func (st *SymbolTable) BeginFunction() {
	st.frames = append(st.frames, make(map[string]Local))
	st.depth++
}

// EndFunction pops the frame pushed by the matching BeginFunction.
func (st *SymbolTable) EndFunction() {
	st.frames = st.frames[:len(st.frames)-1]
	st.depth--
}

// Define binds name to a fresh slot in the current frame. The slot
// number accounts for how many frames are active, so that a method's
// first parameter lands at slot 1 (slot 0 being the implicit
// receiver) while a top-level def lands at slot 0.
func (st *SymbolTable) Define(name string) (Local, error) {
	frame := st.frames[len(st.frames)-1]
	if _, exists := frame[name]; exists {
		return Local{}, fmt.Errorf("cannot define '%s' again", name)
	}
	local := Local{
		Name:  name,
		Slot:  len(frame) + (len(st.frames) - 1),
		Depth: st.depth,
	}
	frame[name] = local
	return local, nil
}

// Resolve looks up name in the active frame only: Luma locals never
// reach across a method boundary into an enclosing frame.
func (st *SymbolTable) Resolve(name string) (Local, bool) {
	local, ok := st.frames[len(st.frames)-1][name]
	return local, ok
}
