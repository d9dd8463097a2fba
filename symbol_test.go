package mania_test

import (
	"testing"

	"asc.im/mania"
)

func TestSymbolInterning(t *testing.T) {
	a := mania.MakeSymbol("foo")
	b := mania.MakeSymbol("foo")
	if a != b {
		t.Error("equal names should intern to the same symbol")
	}
	if !a.IsEqual(b) {
		t.Error("interned symbols should compare equal")
	}
}

func TestValidIdentifier(t *testing.T) {
	cases := map[string]bool{
		"foo":     true,
		"a:b:c":   true,
		"::":      true,
		":::":     true,
		"":        false,
		"a::b":    false,
		":a":      false,
		"a:":      false,
	}
	for name, want := range cases {
		if got := mania.IsValidIdentifier(name); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTruthiness(t *testing.T) {
	falsy := []mania.Object{
		mania.MakeUndefined(),
		mania.Nil(),
		mania.False,
		mania.MakeInteger(0),
		mania.Float(0),
		mania.MakeString(""),
	}
	for _, v := range falsy {
		if mania.IsTrue(v) {
			t.Errorf("%v (%T) should be false", v, v)
		}
	}
	truthy := []mania.Object{
		mania.True,
		mania.MakeInteger(1),
		mania.MakeString("x"),
		mania.MakeSymbol("x"),
		mania.MakeList(mania.MakeInteger(1)),
	}
	for _, v := range truthy {
		if !mania.IsTrue(v) {
			t.Errorf("%v (%T) should be true", v, v)
		}
	}
}
