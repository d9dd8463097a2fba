package mania

import "fmt"

// MatchError signals a pattern that failed to match an expression. It is
// recoverable within macro expansion: a Macro tries its rules in order and
// only re-raises once every rule has failed.
type MatchError struct {
	Pattern Object
	Expr    Object
}

func (e MatchError) Error() string {
	return fmt.Sprintf("pattern %v does not match %v", e.Pattern, e.Expr)
}

// ExpandError signals a malformed macro definition or use, or a forbidden
// identifier encountered while expanding one. It is fatal to the current
// expansion.
type ExpandError struct {
	Reason string
}

func (e ExpandError) Error() string { return "expand error: " + e.Reason }

// NameError signals a lookup failure, after colon-path fallback has also
// failed.
type NameError struct {
	Symbol *Symbol
}

func (e NameError) Error() string { return fmt.Sprintf("name not bound: %s", e.Symbol.Name()) }

// SyntaxError signals a malformed s-expression at compile time: an unquote
// outside quasiquote, a non-callable in head position, and similar.
type SyntaxError struct {
	Reason string
	Form   Object
}

func (e SyntaxError) Error() string {
	if e.Form == nil {
		return "syntax error: " + e.Reason
	}
	return fmt.Sprintf("syntax error: %s: %v", e.Reason, e.Form)
}

// ImportError signals that a module name is neither registered nor loaded.
type ImportError struct {
	Name string
}

func (e ImportError) Error() string { return fmt.Sprintf("import error: module %q not found", e.Name) }

// ErrStackUnderflow signals an operand-stack underflow: a structural bug in
// compiled code (an opcode popped more operands than were pushed).
type ErrStackUnderflow struct {
	Op string
}

func (e ErrStackUnderflow) Error() string { return "stack underflow in " + e.Op }

// ErrImproper is raised when an improper (dotted) list is found where a
// proper, Nil-terminated list is required.
type ErrImproper struct{ Pair *Pair }

func (e ErrImproper) Error() string { return fmt.Sprintf("improper list: %v", e.Pair) }
