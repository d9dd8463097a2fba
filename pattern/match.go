// Package pattern implements Mania's structural pattern/template macro
// engine (spec.md §4.2): matching a Pattern against an expression produces a
// Bindings environment; expanding a Template against that environment
// produces a new S-expression, ready to be compiled and evaluated.
package pattern

import "asc.im/mania"

// Match matches pat against expr, returning the resulting binding
// environment or a mania.MatchError.
func Match(pat mania.Pattern, expr mania.Object) (*mania.Bindings, error) {
	b := mania.NewBindings()
	if err := matchInto(pat.Structure, expr, b, false); err != nil {
		return nil, err
	}
	return b, nil
}

func matchInto(patObj, expr mania.Object, b *mania.Bindings, repeat bool) error {
	if sym, ok := mania.GetSymbol(patObj); ok {
		if sym.Name() == "_" {
			return nil
		}
		if repeat {
			b.BindRepeat(sym, expr)
		} else {
			b.BindOne(sym, expr)
		}
		return nil
	}
	if q, ok := patObj.(mania.Quoted); ok {
		if !q.Value.IsEqual(expr) {
			return mania.MatchError{Pattern: patObj, Expr: expr}
		}
		return nil
	}
	if pPair, isPair := mania.GetPair(patObj); isPair {
		ePair, eIsPair := mania.GetPair(expr)
		if !eIsPair {
			return mania.MatchError{Pattern: patObj, Expr: expr}
		}
		if pPair.IsNil() {
			if !ePair.IsNil() {
				return mania.MatchError{Pattern: patObj, Expr: expr}
			}
			return nil
		}
		if tail, ok := mania.GetPair(pPair.Cdr()); ok && !tail.IsNil() && mania.IsEllipsis(tail.Car()) {
			if !mania.IsNil(tail.Cdr()) {
				return mania.MatchError{Pattern: patObj, Expr: expr}
			}
			return matchEllipsis(pPair.Car(), ePair, b)
		}
		if ePair.IsNil() {
			return mania.MatchError{Pattern: patObj, Expr: expr}
		}
		if err := matchInto(pPair.Car(), ePair.Car(), b, repeat); err != nil {
			return err
		}
		return matchInto(pPair.Cdr(), ePair.Cdr(), b, repeat)
	}
	if !patObj.IsEqual(expr) {
		return mania.MatchError{Pattern: patObj, Expr: expr}
	}
	return nil
}

// matchEllipsis matches headPat against every remaining element of e
// greedily; ellipsis is always terminal in its pattern list (matchInto
// rejects a non-Nil tail after it), so there is nothing left to backtrack
// over. Binding occurs in repeat mode even when e is empty, so every
// pattern symbol under the ellipsis gets an (possibly empty) repeat list.
func matchEllipsis(headPat mania.Object, e *mania.Pair, b *mania.Bindings) error {
	ensureRepeatBindings(headPat, b)
	for node := e; node != nil; node = node.Tail() {
		if err := matchInto(headPat, node.Car(), b, true); err != nil {
			return err
		}
	}
	return nil
}

func ensureRepeatBindings(patObj mania.Object, b *mania.Bindings) {
	switch v := patObj.(type) {
	case *mania.Symbol:
		if v.Name() != "_" {
			b.EnsureRepeat(v)
		}
	case *mania.Pair:
		if v.IsNil() {
			return
		}
		ensureRepeatBindings(v.Car(), b)
		ensureRepeatBindings(v.Cdr(), b)
	}
}
