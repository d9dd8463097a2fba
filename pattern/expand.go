package pattern

import "asc.im/mania"

// Expand substitutes bindings into t, producing a plain S-expression ready
// for compilation. A Template whose Structure is not a Quasiquoted form is
// reproduced verbatim (it has nothing to substitute); otherwise the
// Quasiquoted wrapper is stripped and its body is walked in substitution
// mode — the caller compiles the result directly with Eval, so no further
// quasiquote resolution is needed downstream (SPEC_FULL.md §E.1).
func Expand(t mania.Template, b *mania.Bindings) (mania.Object, error) {
	qq, ok := t.Structure.(mania.Quasiquoted)
	if !ok {
		return t.Structure, nil
	}
	return expandSub(qq.Value, b, nil)
}

// expandSub walks a quasiquote body substituting Unquoted leaves. idx, when
// non-nil, selects the current repetition index for ellipsis-bound symbols.
func expandSub(node mania.Object, b *mania.Bindings, idx *int) (mania.Object, error) {
	switch v := node.(type) {
	case mania.Unquoted:
		return lookupBinding(v.Value, b, idx)
	case *mania.Pair:
		if v.IsNil() {
			return v, nil
		}
		if tail, ok := mania.GetPair(v.Cdr()); ok && !tail.IsNil() && mania.IsEllipsis(tail.Car()) {
			return expandEllipsis(v.Car(), tail.Cdr(), b)
		}
		head, err := expandSub(v.Car(), b, idx)
		if err != nil {
			return nil, err
		}
		rest, err := expandSub(v.Cdr(), b, idx)
		if err != nil {
			return nil, err
		}
		return mania.Cons(head, rest), nil
	case mania.Quoted:
		inner, err := expandSub(v.Value, b, idx)
		if err != nil {
			return nil, err
		}
		return mania.Quoted{Value: inner}, nil
	case mania.Quasiquoted:
		inner, err := expandSub(v.Value, b, idx)
		if err != nil {
			return nil, err
		}
		return mania.Quasiquoted{Value: inner}, nil
	default:
		return node, nil
	}
}

func lookupBinding(sym mania.Object, b *mania.Bindings, idx *int) (mania.Object, error) {
	symObj, ok := mania.GetSymbol(sym)
	if !ok {
		return sym, nil
	}
	if idx != nil {
		if list, ok := b.LookupRepeat(symObj); ok {
			if *idx < 0 || *idx >= len(list) {
				return nil, mania.ExpandError{Reason: "ellipsis index out of range for " + symObj.Name()}
			}
			return list[*idx], nil
		}
	}
	if val, ok := b.Lookup(symObj); ok {
		return val, nil
	}
	if _, ok := b.LookupRepeat(symObj); ok {
		return nil, mania.ExpandError{Reason: "ellipsis-bound symbol " + symObj.Name() + " used outside ellipsis context"}
	}
	return nil, mania.NameError{Symbol: symObj}
}

// expandEllipsis expands headTmpl once per repetition of the first
// ellipsis-bound symbol it references, then appends the expansion of
// restTmpl. A headTmpl that references no repeat-bound symbol expands zero
// times (there is nothing to repeat over).
func expandEllipsis(headTmpl, restTmpl mania.Object, b *mania.Bindings) (mania.Object, error) {
	n, _ := repeatCount(headTmpl, b)
	elems := make([]mania.Object, 0, n)
	for i := 0; i < n; i++ {
		idx := i
		val, err := expandSub(headTmpl, b, &idx)
		if err != nil {
			return nil, err
		}
		elems = append(elems, val)
	}
	rest, err := expandSub(restTmpl, b, nil)
	if err != nil {
		return nil, err
	}
	result := rest
	for i := len(elems) - 1; i >= 0; i-- {
		result = mania.Cons(elems[i], result)
	}
	return result, nil
}

func repeatCount(node mania.Object, b *mania.Bindings) (int, bool) {
	switch v := node.(type) {
	case mania.Unquoted:
		if sym, ok := mania.GetSymbol(v.Value); ok {
			if list, ok := b.LookupRepeat(sym); ok {
				return len(list), true
			}
		}
		return 0, false
	case *mania.Pair:
		if v.IsNil() {
			return 0, false
		}
		if n, ok := repeatCount(v.Car(), b); ok {
			return n, true
		}
		return repeatCount(v.Cdr(), b)
	case mania.Quasiquoted:
		return repeatCount(v.Value, b)
	default:
		return 0, false
	}
}
