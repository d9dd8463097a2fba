// Package compiler lowers Mania S-expressions into bytecode modules: a
// deduplicated constant pool plus an instruction vector (spec.md §4.4).
package compiler

import (
	"fmt"

	"asc.im/mania"
	"asc.im/mania/bytecode"
)

// Builder accumulates a module's constants and instructions while compiling.
// constants[0] is always reserved for the module name (mania.Module's own
// invariant); Builder leaves it to the caller to supply that name via
// NewBuilder.
type Builder struct {
	constants []mania.Object
	index     map[string]int
	code      []byte

	// target is non-nil when the Builder is appending to an already-live
	// Module (see Attach) rather than building one from scratch.
	target *mania.Module
}

// NewBuilder creates a Builder whose constants[0] is the symbol name.
func NewBuilder(name string) *Builder {
	b := &Builder{index: map[string]int{}}
	b.Intern(mania.MakeSymbol(name))
	return b
}

// Attach creates a Builder that appends to an already-published Module's
// constant pool and instruction vector in place. This is how the Eval
// opcode's on-the-fly compilation and macro expansion extend a running
// module: new code and constants are appended, never rewritten, so
// previously issued Code windows stay valid. Call Flush to publish the
// appended constants/instructions back onto m.
func Attach(m *mania.Module) *Builder {
	b := &Builder{
		index:     map[string]int{},
		constants: m.Constants,
		code:      m.Instructions,
		target:    m,
	}
	for i, c := range m.Constants {
		if key := dedupKey(c); key != "" {
			b.index[key] = i
		}
	}
	return b
}

// Flush writes the Builder's accumulated constants/instructions back onto
// the attached Module. A no-op for a from-scratch Builder (use Module
// instead).
func (b *Builder) Flush() {
	if b.target == nil {
		return
	}
	b.target.Constants = b.constants
	b.target.Instructions = b.code
}

// dedupKey returns a stable string key for obj, or "" if obj should never be
// deduplicated (e.g. it is not comparable by value, like a Pair structure).
func dedupKey(obj mania.Object) string {
	switch v := obj.(type) {
	case *mania.Symbol:
		return "y:" + v.Name()
	case mania.String:
		return "s:" + string(v)
	case *mania.Integer:
		return "i:" + v.String()
	case mania.Float:
		return fmt.Sprintf("f:%v", float64(v))
	case mania.Bool:
		return fmt.Sprintf("b:%v", bool(v))
	case mania.Undefined:
		return "u"
	case mania.Ellipsis:
		return "e"
	default:
		return ""
	}
}

// Intern adds obj to the constant pool (reusing an existing equal entry for
// the deduplicable variants) and returns its index.
func (b *Builder) Intern(obj mania.Object) int {
	key := dedupKey(obj)
	if key != "" {
		if idx, ok := b.index[key]; ok {
			return idx
		}
	}
	idx := len(b.constants)
	b.constants = append(b.constants, obj)
	if key != "" {
		b.index[key] = idx
	}
	return idx
}

// Pos returns the current end of the instruction stream.
func (b *Builder) Pos() int { return len(b.code) }

// Emit appends an instruction and returns the position of its opcode byte.
func (b *Builder) Emit(op bytecode.Op, operands ...int) int {
	pos := len(b.code)
	b.code = bytecode.Append(b.code, op, operands...)
	return pos
}

// Patch rewrites operand i of the instruction at pos to target. Used for
// forward jumps whose destination is not yet known when emitted.
func (b *Builder) Patch(pos, i, target int) {
	bytecode.PatchOperand(b.code, pos, i, target)
}

// Splice appends another Builder's fully-compiled code (already constant-
// relative to itself) by re-interning its constants and rewriting operand
// references. Used when a sub-compilation (e.g. a lambda body) must be
// merged into an enclosing module rather than kept as a separate module.
func (b *Builder) Splice(sub *Builder) (base int, remap func(int) int) {
	offsets := make([]int, len(sub.constants))
	for i, c := range sub.constants {
		offsets[i] = b.Intern(c)
	}
	remap = func(constIdx int) int { return offsets[constIdx] }
	base = len(b.code)
	b.code = append(b.code, sub.code...)
	return base, remap
}

// Code returns the raw instruction bytes compiled so far.
func (b *Builder) Code() []byte { return b.code }

// Module finalizes the builder into a Module with the given entry point.
// constants[0] (the name) is supplied separately because mania.NewModule
// re-inserts it; Builder's own constants[0] is dropped here to avoid
// doubling it.
func (b *Builder) Module(entryPoint int) *mania.Module {
	name, _ := mania.GetSymbol(b.constants[0])
	return mania.NewModule(name, entryPoint, b.constants[1:], b.code)
}
