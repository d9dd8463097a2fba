package pattern

import "asc.im/mania"

// Dispatch tries a Macro's rules in order and returns the first whose
// pattern matches expr along with the resulting bindings (spec.md §4.2 /
// testable property #7: the first matching rule wins; a match error only
// escapes once every rule has failed).
func Dispatch(m *mania.Macro, expr mania.Object) (mania.Rule, *mania.Bindings, error) {
	var lastErr error
	for _, rule := range m.Rules {
		bindings, err := Match(rule.Pattern, expr)
		if err == nil {
			return rule, bindings, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = mania.MatchError{Pattern: expr, Expr: expr}
	}
	return mania.Rule{}, nil, lastErr
}

// ExpandToObjects dispatches expr against m and expands every template of
// the winning rule against the resulting bindings, returning one
// substituted S-expression per template (in rule order — the VM pushes
// their compiled frames in reverse so the first template runs first).
func ExpandToObjects(m *mania.Macro, expr mania.Object) ([]mania.Object, error) {
	rule, bindings, err := Dispatch(m, expr)
	if err != nil {
		return nil, err
	}
	out := make([]mania.Object, 0, len(rule.Templates))
	for _, t := range rule.Templates {
		val, err := Expand(t, bindings)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}
