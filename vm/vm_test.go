package vm_test

import (
	"io"
	"testing"

	"asc.im/mania"
	"asc.im/mania/compiler"
	"asc.im/mania/vm"
)

func sym(s string) *mania.Symbol { return mania.MakeSymbol(s) }

func runModule(t *testing.T, forms []mania.Object) mania.Object {
	t.Helper()
	module := compiler.CompileModule("test", forms)
	scope, err := vm.NewBootScope(io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	machine := vm.New(module.EntryCode(), scope)
	for i := 0; i < 100000; i++ {
		sig, err := machine.Run(1000)
		if err != nil {
			t.Fatalf("run error: %v", err)
		}
		if sig == vm.SignalExit {
			return machine.Result
		}
	}
	t.Fatal("module never exited")
	return nil
}

func TestArithmeticAndIf(t *testing.T) {
	// (if (> 3 2) (+ 1 2 3) 0)
	expr := mania.MakeList(sym("if"),
		mania.MakeList(sym(">"), mania.MakeInteger(3), mania.MakeInteger(2)),
		mania.MakeList(sym("+"), mania.MakeInteger(1), mania.MakeInteger(2), mania.MakeInteger(3)),
		mania.MakeInteger(0))
	got := runModule(t, []mania.Object{expr})
	if !got.IsEqual(mania.MakeInteger(6)) {
		t.Errorf("got %v, want 6", got)
	}
}

func TestFactorialRecursion(t *testing.T) {
	// (define (fact n) (if (== n 0) 1 (* n (fact (- n 1)))))
	// (fact 5)
	params := mania.Cons(sym("n"), mania.Nil())
	ifBody := mania.MakeList(sym("if"),
		mania.MakeList(sym("=="), sym("n"), mania.MakeInteger(0)),
		mania.MakeInteger(1),
		mania.MakeList(sym("*"), sym("n"),
			mania.MakeList(sym("fact"), mania.MakeList(sym("-"), sym("n"), mania.MakeInteger(1)))))
	define := mania.MakeList(sym("define"), mania.Cons(sym("fact"), params), ifBody)
	call := mania.MakeList(sym("fact"), mania.MakeInteger(5))

	got := runModule(t, []mania.Object{define, call})
	if !got.IsEqual(mania.MakeInteger(120)) {
		t.Errorf("got %v, want 120", got)
	}
}

func TestNamedLetLoop(t *testing.T) {
	// (let loop ((i 0) (acc 0)) (if (== i 5) acc (loop (+ i 1) (+ acc i))))
	bindings := mania.MakeList(
		mania.MakeList(sym("i"), mania.MakeInteger(0)),
		mania.MakeList(sym("acc"), mania.MakeInteger(0)),
	)
	body := mania.MakeList(sym("if"),
		mania.MakeList(sym("=="), sym("i"), mania.MakeInteger(5)),
		sym("acc"),
		mania.MakeList(sym("loop"),
			mania.MakeList(sym("+"), sym("i"), mania.MakeInteger(1)),
			mania.MakeList(sym("+"), sym("acc"), sym("i"))))
	letExpr := mania.Cons(sym("let"), mania.Cons(sym("loop"), mania.Cons(bindings, mania.Cons(body, mania.Nil()))))

	got := runModule(t, []mania.Object{letExpr})
	if !got.IsEqual(mania.MakeInteger(10)) {
		t.Errorf("got %v, want 10 (0+1+2+3+4)", got)
	}
}

func TestDefineSyntaxMacro(t *testing.T) {
	// (define-syntax my-sum (( _ a b) `(+ ,a ,b)))
	// (my-sum 4 5)
	rule := mania.MakeList(
		mania.MakeList(sym("_"), sym("a"), sym("b")),
		mania.Quasiquoted{Value: mania.MakeList(sym("+"), mania.Unquoted{Value: sym("a")}, mania.Unquoted{Value: sym("b")})},
	)
	defineSyntax := mania.MakeList(sym("define-syntax"), sym("my-sum"), rule)
	call := mania.MakeList(sym("my-sum"), mania.MakeInteger(4), mania.MakeInteger(5))

	got := runModule(t, []mania.Object{defineSyntax, call})
	if !got.IsEqual(mania.MakeInteger(9)) {
		t.Errorf("got %v, want 9", got)
	}
}
