package mania

import (
	"fmt"
	"io"
	"weak"
)

// Code is a half-open instruction range [EntryPoint, EntryPoint+Size) within
// a Module's instruction vector. It holds only a weak reference to the
// owning Module so that Function values (which embed a Code) do not keep an
// otherwise-unloadable Module pinned in memory, and so that Module, Code and
// Scope can reference one another without forming an owning cycle.
type Code struct {
	module     weak.Pointer[Module]
	EntryPoint int
	Size       int
}

// MakeCode creates a Code window into module.
func MakeCode(module *Module, entryPoint, size int) Code {
	return Code{module: weak.Make(module), EntryPoint: entryPoint, Size: size}
}

// Module returns the owning module, or nil if it has since been collected.
func (c Code) Module() *Module { return c.module.Value() }

// End returns the exclusive end position of the code window.
func (c Code) End() int { return c.EntryPoint + c.Size }

func (c Code) IsNil() bool  { return false }
func (c Code) IsAtom() bool { return true }

func (c Code) IsEqual(other Object) bool {
	oc, ok := other.(Code)
	if !ok {
		return false
	}
	return c.Module() == oc.Module() && c.EntryPoint == oc.EntryPoint && c.Size == oc.Size
}

func (c Code) String() string {
	name := "?"
	if m := c.Module(); m != nil {
		name = m.Name()
	}
	return fmt.Sprintf("#<code:%s+%d/%d>", name, c.EntryPoint, c.Size)
}

func (c Code) Print(w io.Writer) (int, error) { return io.WriteString(w, c.String()) }
