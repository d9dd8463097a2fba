package compiler

import (
	"fmt"
	"io"

	"asc.im/mania"
)

// NativeMacro is a host-implemented special form: a rule whose "template"
// is Go code that builds Code fragments directly, rather than a
// pattern/template pair interpreted by package pattern. NativeMacro lives
// here instead of in package mania so that its Expand method can depend on
// Builder without mania depending on compiler (spec.md §9's cycle note,
// generalized to the host-form case).
type NativeMacro struct {
	Name string
	fn   func(b *Builder, args *mania.Pair) ([]mania.Code, error)
}

// MakeNativeMacro wraps fn as a NativeMacro value bound to name.
func MakeNativeMacro(name string, fn func(b *Builder, args *mania.Pair) ([]mania.Code, error)) *NativeMacro {
	return &NativeMacro{Name: name, fn: fn}
}

// Expand runs the macro's callable against b (the Builder attached to the
// currently executing module) with the unevaluated argument list, returning
// the Code fragments to push as frames, outermost-first.
func (n *NativeMacro) Expand(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	return n.fn(b, args)
}

func (n *NativeMacro) IsNil() bool  { return n == nil }
func (n *NativeMacro) IsAtom() bool { return true }
func (n *NativeMacro) IsEqual(other mania.Object) bool {
	o, ok := other.(*NativeMacro)
	return ok && n == o
}
func (n *NativeMacro) String() string { return fmt.Sprintf("#<native-macro:%s>", n.Name) }
func (n *NativeMacro) Print(w io.Writer) (int, error) { return io.WriteString(w, n.String()) }
