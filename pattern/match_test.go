package pattern_test

import (
	"testing"

	"asc.im/mania"
	"asc.im/mania/pattern"
)

func sym(s string) *mania.Symbol { return mania.MakeSymbol(s) }

func TestMatchLiteral(t *testing.T) {
	pat := mania.Pattern{Structure: mania.MakeList(sym("a"), sym("b"), sym("c"))}
	expr := mania.MakeList(mania.MakeInteger(1), mania.MakeInteger(2), mania.MakeInteger(3))

	b, err := pattern.Match(pat, expr)
	if err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{"a", "b", "c"} {
		v, ok := b.Lookup(sym(name))
		if !ok {
			t.Fatalf("%s not bound", name)
		}
		if !v.IsEqual(mania.MakeInteger(int64(i + 1))) {
			t.Errorf("%s = %v, want %d", name, v, i+1)
		}
	}
}

func TestMatchEllipsis(t *testing.T) {
	// pattern: (_ x ...)
	pat := mania.Pattern{Structure: mania.Cons(sym("_"), mania.Cons(sym("x"), mania.Cons(mania.TheEllipsis, mania.Nil())))}

	expr := mania.MakeList(sym("f"), mania.MakeInteger(1), mania.MakeInteger(2), mania.MakeInteger(3))
	b, err := pattern.Match(pat, expr)
	if err != nil {
		t.Fatal(err)
	}
	xs, ok := b.LookupRepeat(sym("x"))
	if !ok || len(xs) != 3 {
		t.Fatalf("x = %v", xs)
	}

	emptyExpr := mania.MakeList(sym("f"))
	b2, err := pattern.Match(pat, emptyExpr)
	if err != nil {
		t.Fatal(err)
	}
	xs2, ok := b2.LookupRepeat(sym("x"))
	if !ok || len(xs2) != 0 {
		t.Fatalf("x = %v, want empty", xs2)
	}
}

func TestMatchEllipsisNonTerminal(t *testing.T) {
	// (x ... y) -- ellipsis is not terminal, must be a match error.
	pat := mania.Pattern{Structure: mania.Cons(sym("x"), mania.Cons(mania.TheEllipsis, mania.Cons(sym("y"), mania.Nil())))}
	_, err := pattern.Match(pat, mania.MakeList(mania.MakeInteger(1), mania.MakeInteger(2)))
	if _, ok := err.(mania.MatchError); !ok {
		t.Fatalf("expected MatchError, got %v", err)
	}
}

func TestTemplateExpansionEllipsis(t *testing.T) {
	// `(list ,x ...)
	tmpl := mania.Template{Structure: mania.Quasiquoted{Value: mania.Cons(
		sym("list"),
		mania.Cons(mania.Unquoted{Value: sym("x")}, mania.Cons(mania.TheEllipsis, mania.Nil())),
	)}}
	b := mania.NewBindings()
	b.BindRepeat(sym("x"), mania.MakeInteger(1))
	b.BindRepeat(sym("x"), mania.MakeInteger(2))
	b.BindRepeat(sym("x"), mania.MakeInteger(3))

	got, err := pattern.Expand(tmpl, b)
	if err != nil {
		t.Fatal(err)
	}
	want := mania.MakeList(sym("list"), mania.MakeInteger(1), mania.MakeInteger(2), mania.MakeInteger(3))
	if !got.IsEqual(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDispatchOrder(t *testing.T) {
	// R1: (_ a b) -- fails to match a one-element call.
	// R2: (_ a) -- matches.
	r1 := mania.Rule{
		Pattern:   mania.Pattern{Structure: mania.MakeList(sym("_"), sym("a"), sym("b"))},
		Templates: []mania.Template{{Structure: mania.MakeString("r1")}},
	}
	r2 := mania.Rule{
		Pattern:   mania.Pattern{Structure: mania.MakeList(sym("_"), sym("a"))},
		Templates: []mania.Template{{Structure: mania.MakeString("r2")}},
	}
	m := mania.MakeMacro("test", []mania.Rule{r1, r2})

	expr := mania.MakeList(sym("test"), mania.MakeInteger(1))
	rule, _, err := pattern.Dispatch(m, expr)
	if err != nil {
		t.Fatal(err)
	}
	if !rule.Pattern.IsEqual(r2.Pattern) {
		t.Errorf("expected rule 2 to win")
	}

	// Both would match: R1 wins if it also matches a two-element call.
	expr2 := mania.MakeList(sym("test"), mania.MakeInteger(1), mania.MakeInteger(2))
	rule2, _, err := pattern.Dispatch(m, expr2)
	if err != nil {
		t.Fatal(err)
	}
	if !rule2.Pattern.IsEqual(r1.Pattern) {
		t.Errorf("expected rule 1 to win when it matches first")
	}
}
