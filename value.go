// Package mania provides the value model for the Mania language: the closed
// tagged union of s-expression values shared by the compiler, the pattern
// and template macro engine, and the virtual machine.
package mania

import (
	"fmt"
	"io"
)

// Object is the generic value all Mania s-expressions must fulfill.
type Object interface {
	fmt.Stringer

	// IsNil reports whether the concrete object is the Nil object.
	IsNil() bool

	// IsAtom reports whether the object is not further decomposable.
	IsAtom() bool

	// IsEqual compares two objects for deep (structural) equality.
	IsEqual(Object) bool
}

// IsNil reports whether obj is nil or the Nil object.
func IsNil(obj Object) bool { return obj == nil || obj.IsNil() }

// Printable is an Object whose wire representation differs from String().
type Printable interface {
	Print(io.Writer) (int, error)
}

// Print writes the canonical s-expression representation of obj to w.
func Print(w io.Writer, obj Object) (int, error) {
	if pr, ok := obj.(Printable); ok {
		return pr.Print(w)
	}
	if IsNil(obj) {
		return Nil().Print(w)
	}
	return io.WriteString(w, obj.String())
}

// IsTrue reports whether obj counts as true in a conditional position.
//
// Undefined, Nil, Bool(false), a zero Integer or Float, and the empty
// String are false; everything else is true.
func IsTrue(obj Object) bool {
	if IsNil(obj) || IsUndefined(obj) {
		return false
	}
	switch v := obj.(type) {
	case Bool:
		return bool(v)
	case *Integer:
		return !v.IsZero()
	case Float:
		return v != 0
	case String:
		return v != ""
	default:
		return true
	}
}

// IsFalse is the negation of IsTrue.
func IsFalse(obj Object) bool { return !IsTrue(obj) }
