package mania

import (
	"io"
	"math"
	"math/big"
)

// Number is implemented by both numeric variants (Integer, Float).
type Number interface {
	Object
	IsZero() bool
}

// Integer is an arbitrary-precision signed integer value.
type Integer struct{ v *big.Int }

// MakeInteger wraps an int64 as an Integer.
func MakeInteger(i int64) *Integer { return &Integer{v: big.NewInt(i)} }

// MakeIntegerFromBig wraps a *big.Int as an Integer. The big.Int is copied.
func MakeIntegerFromBig(i *big.Int) *Integer { return &Integer{v: new(big.Int).Set(i)} }

// ParseInteger parses s (base 10) as an Integer.
func ParseInteger(s string) (*Integer, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return &Integer{v: v}, true
}

func (i *Integer) IsNil() bool  { return false }
func (i *Integer) IsAtom() bool { return true }
func (i *Integer) IsZero() bool { return i.v.Sign() == 0 }

func (i *Integer) IsEqual(other Object) bool {
	switch o := other.(type) {
	case *Integer:
		return i.v.Cmp(o.v) == 0
	case Float:
		f, _ := new(big.Float).SetInt(i.v).Float64()
		return f == float64(o)
	}
	return false
}

func (i *Integer) String() string { return i.v.String() }

func (i *Integer) Print(w io.Writer) (int, error) { return io.WriteString(w, i.v.String()) }

// Int64 returns the value truncated to an int64 (used for shift counts etc).
func (i *Integer) Int64() int64 { return i.v.Int64() }

// Big returns the underlying big.Int. Callers must not mutate it.
func (i *Integer) Big() *big.Int { return i.v }

// Float is a 64-bit IEEE-754 floating point value.
type Float float64

func (f Float) IsNil() bool  { return false }
func (f Float) IsAtom() bool { return true }
func (f Float) IsZero() bool { return f == 0 }

func (f Float) IsEqual(other Object) bool {
	switch o := other.(type) {
	case Float:
		return f == o
	case *Integer:
		return o.IsEqual(f)
	}
	return false
}

func (f Float) String() string { return formatFloat(float64(f)) }

func (f Float) Print(w io.Writer) (int, error) { return io.WriteString(w, f.String()) }

func formatFloat(f float64) string {
	// big.Float's 'f' format never uses exponential form; appending ".0" when
	// there is no decimal point makes "1" read back as a float, like "1.5".
	s := big.NewFloat(f).Text('f', -1)
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}

// GetNumber returns obj as a Number, if possible.
func GetNumber(obj Object) (Number, bool) {
	if IsNil(obj) {
		return nil, false
	}
	n, ok := obj.(Number)
	return n, ok
}

// widen converts two numbers to a common representation for arithmetic:
// both stay Integer if both are Integer, otherwise both become float64.
func widen(a, b Number) (aIsInt bool, ai, bi *big.Int, af, bf float64) {
	ia, aInt := a.(*Integer)
	ib, bInt := b.(*Integer)
	if aInt && bInt {
		return true, ia.v, ib.v, 0, 0
	}
	return false, nil, nil, toFloat64(a), toFloat64(b)
}

func toFloat64(n Number) float64 {
	switch v := n.(type) {
	case *Integer:
		f, _ := new(big.Float).SetInt(v.v).Float64()
		return f
	case Float:
		return float64(v)
	}
	return 0
}

// Add returns a+b, widening to Float if either operand is Float.
func Add(a, b Number) Number {
	if isInt, ai, bi, _, _ := widen(a, b); isInt {
		return MakeIntegerFromBig(new(big.Int).Add(ai, bi))
	}
	return Float(toFloat64(a) + toFloat64(b))
}

// Sub returns a-b, widening to Float if either operand is Float.
func Sub(a, b Number) Number {
	if isInt, ai, bi, _, _ := widen(a, b); isInt {
		return MakeIntegerFromBig(new(big.Int).Sub(ai, bi))
	}
	return Float(toFloat64(a) - toFloat64(b))
}

// Mul returns a*b, widening to Float if either operand is Float.
func Mul(a, b Number) Number {
	if isInt, ai, bi, _, _ := widen(a, b); isInt {
		return MakeIntegerFromBig(new(big.Int).Mul(ai, bi))
	}
	return Float(toFloat64(a) * toFloat64(b))
}

// Div returns a/b. Integer division by an Integer divisor that does not
// evenly divide widens to Float, matching ordinary expectations for "/".
func Div(a, b Number) (Number, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	if isInt, ai, bi, _, _ := widen(a, b); isInt {
		q, r := new(big.Int), new(big.Int)
		q.QuoRem(ai, bi, r)
		if r.Sign() == 0 {
			return MakeIntegerFromBig(q), nil
		}
		return Float(toFloat64(a) / toFloat64(b)), nil
	}
	return Float(toFloat64(a) / toFloat64(b)), nil
}

// Mod returns the floored modulus a mod b (result has b's sign),
// widening to Float only if either operand is Float.
func Mod(a, b Number) (Number, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	if isInt, ai, bi, _, _ := widen(a, b); isInt {
		r := new(big.Int).Mod(ai, bi)
		if r.Sign() != 0 && bi.Sign() < 0 {
			r.Add(r, bi)
		}
		return MakeIntegerFromBig(r), nil
	}
	af, bf := toFloat64(a), toFloat64(b)
	r := af - bf*floorFloat(af/bf)
	return Float(r), nil
}

// Rem returns the truncating remainder a%b (result has a's sign).
func Rem(a, b Number) (Number, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	if isInt, ai, bi, _, _ := widen(a, b); isInt {
		r := new(big.Int).Rem(ai, bi)
		return MakeIntegerFromBig(r), nil
	}
	af, bf := toFloat64(a), toFloat64(b)
	q := af / bf
	if q < 0 {
		q = -floorFloat(-q)
	} else {
		q = floorFloat(q)
	}
	return Float(af - bf*q), nil
}

func floorFloat(f float64) float64 {
	i := int64(f)
	if float64(i) > f {
		i--
	}
	return float64(i)
}

// Pow returns a**b. Integer bases with non-negative Integer exponents stay
// Integer; anything else widens to Float.
func Pow(a, b Number) Number {
	if ai, aInt := a.(*Integer); aInt {
		if bi, bInt := b.(*Integer); bInt && bi.v.Sign() >= 0 {
			return MakeIntegerFromBig(new(big.Int).Exp(ai.v, bi.v, nil))
		}
	}
	return Float(powFloat(toFloat64(a), toFloat64(b)))
}

func powFloat(a, b float64) float64 {
	if b != float64(int64(b)) {
		// non-integer exponent: no repeated-multiplication form exists.
		return math.Pow(a, b)
	}
	result := 1.0
	neg := b < 0
	n := int(b)
	if neg {
		// negative integer exponent: multiply out |b|, then invert.
		n = -n
	}
	base := a
	for i := 0; i < n; i++ {
		result *= base
	}
	if neg {
		if result == 0 {
			return 0
		}
		return 1 / result
	}
	return result
}

// NumCmp compares two numbers: -1, 0, or 1.
func NumCmp(a, b Number) int {
	if isInt, ai, bi, af, bf := widen(a, b); isInt {
		return ai.Cmp(bi)
	} else if af < bf {
		return -1
	} else if af > bf {
		return 1
	}
	return 0
}

// ErrDivByZero is returned by Div, Mod, and Rem on a zero divisor.
var ErrDivByZero = divByZeroError{}

type divByZeroError struct{}

func (divByZeroError) Error() string { return "division by zero" }
