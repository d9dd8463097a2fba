package mania_test

import (
	"testing"

	"asc.im/mania"
)

func TestArithmeticWidening(t *testing.T) {
	a, b := mania.MakeInteger(3), mania.MakeInteger(4)

	if sum := mania.Add(a, b); !isInt(sum) {
		t.Errorf("int+int should stay Integer, got %T", sum)
	}
	if sum := mania.Add(a, mania.Float(4)); !isFloat(sum) {
		t.Errorf("int+float should widen to Float, got %T", sum)
	}
	if prod := mania.Mul(a, b); !isInt(prod) {
		t.Errorf("int*int should stay Integer, got %T", prod)
	}

	if !mania.Add(a, b).IsEqual(mania.Add(b, a)) {
		t.Error("addition should be commutative")
	}
	if !mania.Mul(a, b).IsEqual(mania.Mul(b, a)) {
		t.Error("multiplication should be commutative")
	}

	diffAB := mania.Sub(a, b)
	diffBA := mania.Sub(b, a)
	negDiffBA := mania.Sub(mania.MakeInteger(0), diffBA)
	if !diffAB.IsEqual(negDiffBA) {
		t.Error("subtraction should be antisymmetric: a-b == -(b-a)")
	}
}

func isInt(n mania.Number) bool   { _, ok := n.(*mania.Integer); return ok }
func isFloat(n mania.Number) bool { _, ok := n.(mania.Float); return ok }

func TestNumCmp(t *testing.T) {
	if mania.NumCmp(mania.MakeInteger(1), mania.MakeInteger(2)) >= 0 {
		t.Error("1 should compare less than 2")
	}
	if mania.NumCmp(mania.Float(2.5), mania.MakeInteger(2)) <= 0 {
		t.Error("2.5 should compare greater than 2")
	}
}

func TestDivModRem(t *testing.T) {
	q, err := mania.Div(mania.MakeInteger(7), mania.MakeInteger(2))
	if err != nil {
		t.Fatal(err)
	}
	if !isFloat(q) {
		t.Errorf("7/2 should widen to Float since it doesn't divide evenly, got %T", q)
	}
	q, err = mania.Div(mania.MakeInteger(6), mania.MakeInteger(2))
	if err != nil {
		t.Fatal(err)
	}
	if !isInt(q) || q.(*mania.Integer).Int64() != 3 {
		t.Errorf("6/2 should be Integer 3, got %v", q)
	}
	if _, err := mania.Div(mania.MakeInteger(1), mania.MakeInteger(0)); err != mania.ErrDivByZero {
		t.Error("division by zero should fail")
	}
}
