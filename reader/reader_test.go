package reader_test

import (
	"strings"
	"testing"

	"asc.im/mania"
	"asc.im/mania/reader"
)

func readOne(t *testing.T, src string) mania.Object {
	t.Helper()
	rd := reader.New(strings.NewReader(src))
	v, err := rd.Read()
	if err != nil {
		t.Fatalf("Read(%q): %v", src, err)
	}
	return v
}

func TestReadAtoms(t *testing.T) {
	if got := readOne(t, "42"); !got.IsEqual(mania.MakeInteger(42)) {
		t.Errorf("got %v, want 42", got)
	}
	if got := readOne(t, "-7"); !got.IsEqual(mania.MakeInteger(-7)) {
		t.Errorf("got %v, want -7", got)
	}
	if got := readOne(t, "foo"); !got.IsEqual(mania.MakeSymbol("foo")) {
		t.Errorf("got %v, want foo", got)
	}
	if got := readOne(t, `"hi"`); !got.IsEqual(mania.MakeString("hi")) {
		t.Errorf("got %v, want \"hi\"", got)
	}
	if got := readOne(t, "..."); !got.IsEqual(mania.TheEllipsis) {
		t.Errorf("got %v, want ellipsis", got)
	}
}

func TestReadList(t *testing.T) {
	got := readOne(t, "(+ 1 2 3)")
	want := mania.MakeList(mania.MakeSymbol("+"), mania.MakeInteger(1), mania.MakeInteger(2), mania.MakeInteger(3))
	if !got.IsEqual(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadQuoteAndQuasiquote(t *testing.T) {
	got := readOne(t, "'(a b)")
	inner := mania.MakeList(mania.MakeSymbol("a"), mania.MakeSymbol("b"))
	if !got.IsEqual(mania.Quoted{Value: inner}) {
		t.Errorf("got %v, want quoted %v", got, inner)
	}

	got = readOne(t, "`(+ ,x ,y)")
	wantInner := mania.MakeList(mania.MakeSymbol("+"), mania.Unquoted{Value: mania.MakeSymbol("x")}, mania.Unquoted{Value: mania.MakeSymbol("y")})
	if !got.IsEqual(mania.Quasiquoted{Value: wantInner}) {
		t.Errorf("got %v, want quasiquoted %v", got, wantInner)
	}
}

func TestReadAllSkipsComments(t *testing.T) {
	rd := reader.New(strings.NewReader("; a comment\n(define x 1) ; trailing\n(define y 2)"))
	forms, err := rd.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 2 {
		t.Fatalf("got %d forms, want 2", len(forms))
	}
}

func TestReadDottedPair(t *testing.T) {
	got := readOne(t, "(a . b)")
	want := mania.Cons(mania.MakeSymbol("a"), mania.MakeSymbol("b"))
	if !got.IsEqual(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
