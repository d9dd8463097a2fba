package mania

import "io"

// Ellipsis is the sentinel marking a preceding pattern/template element as
// repeating (written "..." in source, here a singleton value).
type Ellipsis struct{}

// TheEllipsis is the single Ellipsis instance.
var TheEllipsis = Ellipsis{}

func (Ellipsis) IsNil() bool                 { return false }
func (Ellipsis) IsAtom() bool                { return true }
func (Ellipsis) IsEqual(other Object) bool   { _, ok := other.(Ellipsis); return ok }
func (Ellipsis) String() string              { return "..." }
func (e Ellipsis) Print(w io.Writer) (int, error) { return io.WriteString(w, "...") }

// IsEllipsis reports whether obj is the Ellipsis sentinel.
func IsEllipsis(obj Object) bool { _, ok := obj.(Ellipsis); return ok }

// Quoted suppresses evaluation of its contained value.
type Quoted struct{ Value Object }

func (q Quoted) IsNil() bool  { return false }
func (q Quoted) IsAtom() bool { return false }
func (q Quoted) IsEqual(other Object) bool {
	oq, ok := other.(Quoted)
	return ok && q.Value.IsEqual(oq.Value)
}
func (q Quoted) String() string {
	return "'" + q.Value.String()
}
func (q Quoted) Print(w io.Writer) (int, error) {
	n, err := io.WriteString(w, "'")
	if err != nil {
		return n, err
	}
	n2, err := Print(w, q.Value)
	return n + n2, err
}

// Quasiquoted enters a template context: Unquoted nodes within Value are
// substituted when the quasiquoted form is expanded.
type Quasiquoted struct{ Value Object }

func (q Quasiquoted) IsNil() bool  { return false }
func (q Quasiquoted) IsAtom() bool { return false }
func (q Quasiquoted) IsEqual(other Object) bool {
	oq, ok := other.(Quasiquoted)
	return ok && q.Value.IsEqual(oq.Value)
}
func (q Quasiquoted) String() string { return "`" + q.Value.String() }
func (q Quasiquoted) Print(w io.Writer) (int, error) {
	n, err := io.WriteString(w, "`")
	if err != nil {
		return n, err
	}
	n2, err := Print(w, q.Value)
	return n + n2, err
}

// Unquoted escapes out of a Quasiquoted template context.
type Unquoted struct{ Value Object }

func (u Unquoted) IsNil() bool  { return false }
func (u Unquoted) IsAtom() bool { return false }
func (u Unquoted) IsEqual(other Object) bool {
	ou, ok := other.(Unquoted)
	return ok && u.Value.IsEqual(ou.Value)
}
func (u Unquoted) String() string { return "," + u.Value.String() }
func (u Unquoted) Print(w io.Writer) (int, error) {
	n, err := io.WriteString(w, ",")
	if err != nil {
		return n, err
	}
	n2, err := Print(w, u.Value)
	return n + n2, err
}
