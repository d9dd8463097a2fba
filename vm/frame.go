// Package vm implements the fetch-decode-execute loop that drives compiled
// Mania bytecode: frames, the operand stack, and the Eval instruction's
// on-the-fly compilation of macro expansions (spec.md §4.5/§4.6).
package vm

import "asc.im/mania"

// Frame is one activation: a Code window, the lexical scope active while
// running it, a parent frame to restore control to, the instruction
// position, and an operand stack (spec.md §4.5).
type Frame struct {
	Code     mania.Code
	Scope    *mania.Scope
	Parent   *Frame
	Position int
	stack    []mania.Object

	// catch holds pending SetupCatch handler positions (reserved opcodes,
	// SPEC_FULL.md §E.3): Throw unwinds to the top entry's position.
	catch []int
}

// NewFrame creates a frame positioned at the start of code.
func NewFrame(code mania.Code, scope *mania.Scope, parent *Frame) *Frame {
	return &Frame{Code: code, Scope: scope, Parent: parent, Position: code.EntryPoint}
}

// Push appends a value to the operand stack.
func (f *Frame) Push(v mania.Object) { f.stack = append(f.stack, v) }

// Pop removes and returns the top of the operand stack.
func (f *Frame) Pop() (mania.Object, error) {
	if len(f.stack) == 0 {
		return nil, mania.ErrStackUnderflow{Op: "pop"}
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// PopN removes and returns the top n values, in the order they were pushed
// (oldest first).
func (f *Frame) PopN(n int) ([]mania.Object, error) {
	if len(f.stack) < n {
		return nil, mania.ErrStackUnderflow{Op: "pop-n"}
	}
	out := make([]mania.Object, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

// Peek returns the n'th-from-top operand without removing it (n=0 is TOS).
func (f *Frame) Peek(n int) (mania.Object, error) {
	idx := len(f.stack) - 1 - n
	if idx < 0 {
		return nil, mania.ErrStackUnderflow{Op: "peek"}
	}
	return f.stack[idx], nil
}

// Duplicate pushes a copy of the n'th-from-top operand.
func (f *Frame) Duplicate(n int) error {
	v, err := f.Peek(n)
	if err != nil {
		return err
	}
	f.Push(v)
	return nil
}

// Rotate moves the top n operands so the previous top becomes the bottom of
// that window (a single left-rotation of the top n elements).
func (f *Frame) Rotate(n int) error {
	if len(f.stack) < n || n < 1 {
		return mania.ErrStackUnderflow{Op: "rotate"}
	}
	window := f.stack[len(f.stack)-n:]
	top := window[len(window)-1]
	copy(window[1:], window[:len(window)-1])
	window[0] = top
	return nil
}

// Drop discards the top n operands.
func (f *Frame) Drop(n int) error {
	if len(f.stack) < n {
		return mania.ErrStackUnderflow{Op: "pop"}
	}
	f.stack = f.stack[:len(f.stack)-n]
	return nil
}

// Done reports whether Position has advanced past the end of Code.
func (f *Frame) Done() bool { return f.Position >= f.Code.End() }
