package mania

import (
	"io"
)

// Stream is an opaque I/O handle. Mania's core treats streams as values
// that can be read from or written to by NativeFunctions; the concrete
// wiring of stdin/stdout/files is an external collaborator (spec.md §1).
type Stream struct {
	Name string
	R    io.Reader
	W    io.Writer
}

// MakeStream wraps a reader/writer pair as a Stream value.
func MakeStream(name string, r io.Reader, w io.Writer) *Stream {
	return &Stream{Name: name, R: r, W: w}
}

func (s *Stream) IsNil() bool  { return s == nil }
func (s *Stream) IsAtom() bool { return true }
func (s *Stream) IsEqual(other Object) bool {
	os, ok := other.(*Stream)
	return ok && s == os
}
func (s *Stream) String() string {
	if s == nil {
		return "#<stream:nil>"
	}
	return "#<stream:" + s.Name + ">"
}
func (s *Stream) Print(w io.Writer) (int, error) { return io.WriteString(w, s.String()) }
