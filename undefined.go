package mania

import "io"

// Undefined is the value produced by forms that have no useful result.
type Undefined struct{}

// MakeUndefined returns the Undefined value.
func MakeUndefined() Undefined { return Undefined{} }

func (Undefined) IsNil() bool  { return false }
func (Undefined) IsAtom() bool { return false }

func (Undefined) IsEqual(other Object) bool { return IsUndefined(other) }

func (Undefined) String() string { return "#<undefined>" }

func (u Undefined) Print(w io.Writer) (int, error) { return io.WriteString(w, u.String()) }

// IsUndefined reports whether obj is the Undefined value.
func IsUndefined(obj Object) bool {
	_, ok := obj.(Undefined)
	return ok
}
