package mania

import (
	"fmt"
	"io"
)

// Module is a compiled unit: a constant pool, an instruction vector, and
// (after BuildModule runs at load time) an exports Scope. constants[0] is
// always the module's own name symbol.
type Module struct {
	Constants    []Object
	Instructions []byte
	EntryPoint   int

	scope *Scope // populated by BuildModule; nil until then
}

// NewModule creates a module. name becomes constants[0].
func NewModule(name *Symbol, entryPoint int, constants []Object, instructions []byte) *Module {
	consts := make([]Object, len(constants)+1)
	consts[0] = name
	copy(consts[1:], constants)
	return &Module{Constants: consts, Instructions: instructions, EntryPoint: entryPoint}
}

// Name returns the module's name.
func (m *Module) Name() string {
	if m == nil || len(m.Constants) == 0 {
		return ""
	}
	if sym, ok := m.Constants[0].(*Symbol); ok {
		return sym.Name()
	}
	return fmt.Sprint(m.Constants[0])
}

// EntryCode returns a Code spanning the whole module (its top-level form).
func (m *Module) EntryCode() Code {
	return MakeCode(m, m.EntryPoint, len(m.Instructions)-m.EntryPoint)
}

// Scope returns the module's exports scope, or nil if BuildModule has not
// run yet.
func (m *Module) Scope() *Scope { return m.scope }

// SetScope installs the exports scope. Called once by the BuildModule
// opcode handler.
func (m *Module) SetScope(scope *Scope) { m.scope = scope }

// LookupField implements FieldLookup: a:b resolves b as an export of
// module a.
func (m *Module) LookupField(name string) (Object, bool) {
	if m == nil || m.scope == nil {
		return nil, false
	}
	return m.scope.Lookup(MakeSymbol(name))
}

func (m *Module) IsNil() bool  { return m == nil }
func (m *Module) IsAtom() bool { return true }
func (m *Module) IsEqual(other Object) bool {
	om, ok := other.(*Module)
	return ok && m == om
}
func (m *Module) String() string { return "#<module:" + m.Name() + ">" }
func (m *Module) Print(w io.Writer) (int, error) { return io.WriteString(w, m.String()) }
