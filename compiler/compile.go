package compiler

import (
	"asc.im/mania"
	"asc.im/mania/bytecode"
)

// Compile lowers expr structurally: the emitted code, when run, reconstructs
// a value equal to expr on the stack without evaluating it (spec.md §4.4).
// Evaluation proper happens later, at run time, via the Eval opcode.
func Compile(b *Builder, expr mania.Object) {
	switch v := expr.(type) {
	case *mania.Pair:
		if v.IsNil() {
			b.Emit(bytecode.LoadConstant, b.Intern(v))
			return
		}
		Compile(b, v.Car())
		Compile(b, v.Cdr())
		b.Emit(bytecode.BuildPair)
	case mania.Quoted:
		Compile(b, v.Value)
		b.Emit(bytecode.BuildQuoted)
	case mania.Quasiquoted:
		Compile(b, v.Value)
		b.Emit(bytecode.BuildQuasiquoted)
	case mania.Unquoted:
		Compile(b, v.Value)
		b.Emit(bytecode.BuildUnquoted)
	default:
		b.Emit(bytecode.LoadConstant, b.Intern(expr))
	}
}

// CompileFragment compiles expr and caps it with Eval: the idiom used both
// for module top-level forms and for template-expansion results (§4.2's
// "each expansion is then compiled into a Code fragment via the
// single-expression compiler and capped with Eval"). Reaching the end of
// the fragment's code window triggers the VM's automatic parent-restore, so
// no trailing Return/Restore is needed here.
func CompileFragment(b *Builder, expr mania.Object) mania.Code {
	entry := b.Pos()
	Compile(b, expr)
	b.Emit(bytecode.Eval)
	return codeIn(b, entry)
}

// CompileModule compiles a sequence of top-level forms into a fresh Module
// named name. Each form is compiled, evaluated, and its result discarded
// except that the final form's value is left on the stack for the caller
// (mirroring a `begin` body); the module ends with Exit.
func CompileModule(name string, forms []mania.Object) *mania.Module {
	b := NewBuilder(name)
	for i, form := range forms {
		Compile(b, form)
		b.Emit(bytecode.Eval)
		if i < len(forms)-1 {
			b.Emit(bytecode.Pop, 1)
		}
	}
	b.Emit(bytecode.Exit)
	return b.Module(0)
}

// codeIn produces a Code spanning [entry, b.Pos()) of the module b targets.
// Builder must have been created via Attach for this to resolve to a live
// Module; a from-scratch Builder (NewBuilder) has no target until Module()
// is called, so codeIn is only meaningful for fragments compiled against an
// already-existing module (the common case: Eval compiling on the fly).
func codeIn(b *Builder, entry int) mania.Code {
	if b.target == nil {
		return mania.Code{}
	}
	return mania.MakeCode(b.target, entry, b.Pos()-entry)
}
