package compiler_test

import (
	"testing"

	"asc.im/mania"
	"asc.im/mania/bytecode"
	"asc.im/mania/compiler"
)

func TestCompileStructural(t *testing.T) {
	// Compile (a . b) and check it reconstructs via BuildPair, not Eval.
	b := compiler.NewBuilder("m")
	compiler.Compile(b, mania.Cons(mania.MakeSymbol("a"), mania.MakeSymbol("b")))
	mod := b.Module(0)

	instr, next, err := bytecode.Decode(mod.Instructions, 0)
	if err != nil {
		t.Fatal(err)
	}
	if instr.Op != bytecode.LoadConstant {
		t.Fatalf("first op = %v, want LoadConstant", instr.Op)
	}
	instr, next, err = bytecode.Decode(mod.Instructions, next)
	if err != nil {
		t.Fatal(err)
	}
	if instr.Op != bytecode.LoadConstant {
		t.Fatalf("second op = %v, want LoadConstant", instr.Op)
	}
	instr, _, err = bytecode.Decode(mod.Instructions, next)
	if err != nil {
		t.Fatal(err)
	}
	if instr.Op != bytecode.BuildPair {
		t.Fatalf("third op = %v, want BuildPair", instr.Op)
	}
}

func TestBuilderInternDedupesEqualConstants(t *testing.T) {
	b := compiler.NewBuilder("m")
	i1 := b.Intern(mania.MakeInteger(7))
	i2 := b.Intern(mania.MakeInteger(7))
	if i1 != i2 {
		t.Fatalf("expected equal integers to share a constant slot, got %d and %d", i1, i2)
	}
	s1 := b.Intern(mania.MakeSymbol("x"))
	s2 := b.Intern(mania.MakeSymbol("x"))
	if s1 != s2 {
		t.Fatalf("expected equal symbols to share a constant slot, got %d and %d", s1, s2)
	}
}

func TestCompileModuleEndsWithExit(t *testing.T) {
	mod := compiler.CompileModule("m", []mania.Object{mania.MakeInteger(1)})
	var op bytecode.Op
	for pos := mod.EntryPoint; pos < len(mod.Instructions); {
		instr, next, err := bytecode.Decode(mod.Instructions, pos)
		if err != nil {
			t.Fatal(err)
		}
		op = instr.Op
		pos = next
	}
	if op != bytecode.Exit {
		t.Fatalf("module's last instruction = %v, want Exit", op)
	}
}
