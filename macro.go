package mania

import (
	"fmt"
	"io"
)

// Pattern wraps an s-expression structure used as a structural matcher by
// the pattern/template engine (package pattern).
type Pattern struct{ Structure Object }

func (p Pattern) IsNil() bool  { return false }
func (p Pattern) IsAtom() bool { return false }
func (p Pattern) IsEqual(other Object) bool {
	op, ok := other.(Pattern)
	return ok && p.Structure.IsEqual(op.Structure)
}
func (p Pattern) String() string { return "#<pattern:" + p.Structure.String() + ">" }
func (p Pattern) Print(w io.Writer) (int, error) { return io.WriteString(w, p.String()) }

// Template wraps an s-expression structure used as a structural generator
// by the pattern/template engine.
type Template struct{ Structure Object }

func (t Template) IsNil() bool  { return false }
func (t Template) IsAtom() bool { return false }
func (t Template) IsEqual(other Object) bool {
	ot, ok := other.(Template)
	return ok && t.Structure.IsEqual(ot.Structure)
}
func (t Template) String() string { return "#<template:" + t.Structure.String() + ">" }
func (t Template) Print(w io.Writer) (int, error) { return io.WriteString(w, t.String()) }

// Rule is one (Pattern, Templates) entry of a Macro. A rule with several
// Templates expands to several Code fragments, each run in its own nested
// frame (see BuildMacro/BuildRule in the bytecode spec). Rule implements
// Object so BuildRule can push it onto the operand stack like any other
// value while define-syntax is compiling.
type Rule struct {
	Pattern   Pattern
	Templates []Template
}

func (r Rule) IsNil() bool  { return false }
func (r Rule) IsAtom() bool { return false }
func (r Rule) IsEqual(other Object) bool {
	or, ok := other.(Rule)
	if !ok || !r.Pattern.IsEqual(or.Pattern) || len(r.Templates) != len(or.Templates) {
		return false
	}
	for i := range r.Templates {
		if !r.Templates[i].IsEqual(or.Templates[i]) {
			return false
		}
	}
	return true
}
func (r Rule) String() string { return "#<rule:" + r.Pattern.String() + ">" }
func (r Rule) Print(w io.Writer) (int, error) { return io.WriteString(w, r.String()) }

// Macro is an ordered set of pattern/template rules invoked by the Eval
// instruction to rewrite source at run time. Rules are tried in order; the
// first one whose Pattern matches wins.
type Macro struct {
	Name  string
	Rules []Rule
}

// MakeMacro builds a Macro value.
func MakeMacro(name string, rules []Rule) *Macro { return &Macro{Name: name, Rules: rules} }

func (m *Macro) IsNil() bool  { return m == nil }
func (m *Macro) IsAtom() bool { return true }
func (m *Macro) IsEqual(other Object) bool {
	om, ok := other.(*Macro)
	return ok && m == om
}
func (m *Macro) String() string { return fmt.Sprintf("#<macro:%s>", m.Name) }
func (m *Macro) Print(w io.Writer) (int, error) { return io.WriteString(w, m.String()) }

// Bindings is the binding environment produced by matching a Pattern
// against an expression: a map from pattern-symbol to either a single
// matched value or, for symbols that occurred under an ellipsis, a list of
// matched values (one per repetition).
type Bindings struct {
	single map[*Symbol]Object
	repeat map[*Symbol][]Object
}

// NewBindings creates an empty binding environment.
func NewBindings() *Bindings {
	return &Bindings{single: map[*Symbol]Object{}, repeat: map[*Symbol][]Object{}}
}

// BindOne records a single (non-repeating) match.
func (b *Bindings) BindOne(sym *Symbol, val Object) { b.single[sym] = val }

// BindRepeat appends val to the repetition list for sym.
func (b *Bindings) BindRepeat(sym *Symbol, val Object) {
	b.repeat[sym] = append(b.repeat[sym], val)
}

// EnsureRepeat makes sure sym has a (possibly empty) repetition list, used
// when an ellipsis pattern matches zero elements.
func (b *Bindings) EnsureRepeat(sym *Symbol) {
	if _, ok := b.repeat[sym]; !ok {
		b.repeat[sym] = []Object{}
	}
}

// Lookup returns the single-value binding for sym.
func (b *Bindings) Lookup(sym *Symbol) (Object, bool) {
	v, ok := b.single[sym]
	return v, ok
}

// LookupRepeat returns the repetition list bound to sym.
func (b *Bindings) LookupRepeat(sym *Symbol) ([]Object, bool) {
	v, ok := b.repeat[sym]
	return v, ok
}

// Merge copies other's bindings into b (used to combine sibling pattern
// matches, e.g. head and tail of a Pair pattern).
func (b *Bindings) Merge(other *Bindings) {
	for k, v := range other.single {
		b.single[k] = v
	}
	for k, v := range other.repeat {
		b.repeat[k] = append(b.repeat[k], v...)
	}
}
