package mania_test

import (
	"testing"

	"asc.im/mania"
)

func TestPairIteration(t *testing.T) {
	xs := []mania.Object{mania.MakeInteger(1), mania.MakeInteger(2), mania.MakeInteger(3)}
	lst := mania.FromSlice(xs)
	got := lst.ToSlice()
	if len(got) != len(xs) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(xs))
	}
	for i := range xs {
		if !got[i].IsEqual(xs[i]) {
			t.Errorf("element %d: got %v want %v", i, got[i], xs[i])
		}
	}
}

func TestPairPrint(t *testing.T) {
	lst := mania.MakeList(mania.MakeSymbol("a"), mania.MakeSymbol("b"), mania.MakeSymbol("c"))
	if got, want := lst.String(), "(a b c)"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
	dotted := mania.Cons(mania.MakeSymbol("a"), mania.MakeSymbol("b"))
	if got, want := dotted.String(), "(a . b)"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestPairEquality(t *testing.T) {
	a := mania.MakeList(mania.MakeInteger(1), mania.MakeInteger(2))
	b := mania.MakeList(mania.MakeInteger(1), mania.MakeInteger(2))
	if !a.IsEqual(b) {
		t.Error("structurally identical lists should be equal")
	}
	c := mania.MakeList(mania.MakeInteger(1), mania.MakeInteger(3))
	if a.IsEqual(c) {
		t.Error("different lists should not be equal")
	}
}

func TestIsList(t *testing.T) {
	if !mania.IsList(mania.MakeList(mania.MakeInteger(1))) {
		t.Error("proper list should be a list")
	}
	if mania.IsList(mania.Cons(mania.MakeInteger(1), mania.MakeInteger(2))) {
		t.Error("dotted pair should not be a list")
	}
	if !mania.IsList(mania.Nil()) {
		t.Error("nil should be a list")
	}
}
