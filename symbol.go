package mania

import (
	"io"
	"strings"
	"sync"
)

// Symbol is an interned Unicode identifier. Symbols are compared and hashed
// by their underlying name; the interning table exists so that frequently
// looked-up symbols (scope keys, opcode operands) can be compared cheaply
// and used directly as map keys.
type Symbol struct {
	name string
}

var (
	symbolsMu sync.RWMutex
	symbols   = map[string]*Symbol{}
)

// MakeSymbol interns and returns the symbol with the given name.
func MakeSymbol(name string) *Symbol {
	symbolsMu.RLock()
	sym, found := symbols[name]
	symbolsMu.RUnlock()
	if found {
		return sym
	}

	symbolsMu.Lock()
	defer symbolsMu.Unlock()
	if sym, found = symbols[name]; found {
		return sym
	}
	sym = &Symbol{name: name}
	symbols[name] = sym
	return sym
}

// IsNil always returns false; a symbol is never nil.
func (*Symbol) IsNil() bool { return false }

// IsAtom always returns true; symbols are not decomposable.
func (*Symbol) IsAtom() bool { return true }

// IsEqual compares two symbols by name.
func (sym *Symbol) IsEqual(other Object) bool {
	otherSym, ok := other.(*Symbol)
	return ok && sym.name == otherSym.name
}

// String returns the symbol's name.
func (sym *Symbol) String() string { return sym.name }

// Print writes the symbol's name to w.
func (sym *Symbol) Print(w io.Writer) (int, error) { return io.WriteString(w, sym.name) }

// Name returns the canonical name of the symbol.
func (sym *Symbol) Name() string { return sym.name }

// GetSymbol returns obj as a symbol, if possible.
func GetSymbol(obj Object) (*Symbol, bool) {
	if IsNil(obj) {
		return nil, false
	}
	sym, ok := obj.(*Symbol)
	return sym, ok
}

// SymbolColon is the reserved field-access symbol "::", denoting the literal
// symbol consisting only of colons (see colon-path resolution in Load).
var SymbolColon = MakeSymbol("::")

// IsValidIdentifier reports whether name is a legal Mania identifier.
//
// Colon is reserved as a namespace/field-access separator: a name made up
// entirely of colons (e.g. "::", ":::") is always valid and denotes the
// literal colon-path symbol. Any other name containing ':' must not have
// empty segments (no leading, trailing, or doubled colon) once split on ':'.
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	if strings.Trim(name, ":") == "" {
		return true
	}
	if !strings.Contains(name, ":") {
		return true
	}
	for _, seg := range strings.Split(name, ":") {
		if seg == "" {
			return false
		}
	}
	return true
}

// FieldLookup is implemented by values that support colon-path navigation
// (e.g. a:b): a.LookupField("b") returns the value bound to name b within a.
type FieldLookup interface {
	LookupField(name string) (Object, bool)
}

// ResolveColonPath splits a colon-bearing symbol into its navigation path
// and resolves it against root, descending through FieldLookup values.
// sym must not be the literal "::" symbol; callers check that separately.
func ResolveColonPath(root Object, sym *Symbol) (Object, error) {
	segs := strings.Split(sym.name, ":")
	cur := root
	for i, seg := range segs {
		if i == 0 {
			continue
		}
		fl, ok := cur.(FieldLookup)
		if !ok {
			return nil, NameError{Symbol: sym}
		}
		val, found := fl.LookupField(seg)
		if !found {
			return nil, NameError{Symbol: sym}
		}
		cur = val
	}
	return cur, nil
}
