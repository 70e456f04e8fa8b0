package vm

// Frame is a call frame pushed by Call and popped by Return. Luma has a
// single flat instruction stream shared by every method, so a frame
// carries only the bookkeeping needed to resume the caller: where to
// set ip back to, and what stack_offset to restore.
type Frame struct {
	// returnAddr is the ip to resume at once the called method returns.
	returnAddr int

	// stackOffset is this frame's own base slot: stack[stackOffset] is
	// the receiver, stack[stackOffset+1:] are arguments and locals.
	// Return truncates the stack down to this value.
	stackOffset int
}

// NewFrame returns a frame recording where to resume (returnAddr) and
// the base stack slot (stackOffset) a call established.
func NewFrame(returnAddr, stackOffset int) *Frame {
	return &Frame{returnAddr: returnAddr, stackOffset: stackOffset}
}
