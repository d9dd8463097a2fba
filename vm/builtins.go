package vm

import (
	"fmt"
	"io"
	"strings"

	"asc.im/mania"
	"asc.im/mania/compiler"
)

// NewBootScope builds the root scope every module's top-level code runs
// against: the special forms (define, lambda, let, if, and, define-syntax,
// define-module, import) plus a small set of native builtins (spec.md
// §6.1's minimal prelude). stdout is where println writes; format returns
// its result as a String and writes nothing.
func NewBootScope(stdout io.Writer) (*mania.Scope, error) {
	scope := mania.NewScope(nil)
	if err := compiler.DefineSpecialForms(scope); err != nil {
		return nil, err
	}

	defs := []*mania.NativeFunction{
		mania.MakeNativeFunction("println", builtinPrintln(stdout)),
		mania.MakeNativeFunction("format", builtinFormat),
		mania.MakeNativeFunction("head", builtinHead),
		mania.MakeNativeFunction("tail", builtinTail),
		mania.MakeNativeFunction("cons", builtinCons),
		mania.MakeNativeFunction("list", builtinList),
		mania.MakeNativeFunction("not", builtinNot),
		mania.MakeNativeFunction("+", builtinFold(mania.Add, mania.MakeInteger(0))),
		mania.MakeNativeFunction("*", builtinFold(mania.Mul, mania.MakeInteger(1))),
		mania.MakeNativeFunction("-", builtinSub),
		mania.MakeNativeFunction("/", builtinDiv),
		mania.MakeNativeFunction("==", builtinCompare(func(c int) bool { return c == 0 })),
		mania.MakeNativeFunction("/=", builtinCompare(func(c int) bool { return c != 0 })),
		mania.MakeNativeFunction(">", builtinCompare(func(c int) bool { return c > 0 })),
		mania.MakeNativeFunction("<", builtinCompare(func(c int) bool { return c < 0 })),
		mania.MakeNativeFunction(">=", builtinCompare(func(c int) bool { return c >= 0 })),
		mania.MakeNativeFunction("<=", builtinCompare(func(c int) bool { return c <= 0 })),
	}
	for _, nf := range defs {
		if err := scope.Define(mania.MakeSymbol(nf.Name), nf); err != nil {
			return nil, err
		}
	}
	return scope, nil
}

func builtinPrintln(stdout io.Writer) mania.NativeCallable {
	return func(args []mania.Object) (mania.Object, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = displayString(a)
		}
		fmt.Fprintln(stdout, strings.Join(parts, " "))
		return mania.MakeUndefined(), nil
	}
}

// displayString renders obj the way println/format's ~a directive does:
// strings unquoted, everything else via its canonical representation.
func displayString(obj mania.Object) string {
	if s, ok := mania.GetString(obj); ok {
		return string(s)
	}
	return obj.String()
}

// builtinFormat implements a small printf-like template: ~a displays an
// argument (unquoted), ~s writes it (quoted), ~% emits a newline, ~~ a
// literal tilde.
func builtinFormat(args []mania.Object) (mania.Object, error) {
	if len(args) == 0 {
		return nil, mania.SyntaxError{Reason: "format: expected a template string"}
	}
	tmpl, ok := mania.GetString(args[0])
	if !ok {
		return nil, mania.SyntaxError{Reason: "format: expected a template string", Form: args[0]}
	}
	rest := args[1:]
	var sb strings.Builder
	s := string(tmpl)
	for i := 0; i < len(s); i++ {
		if s[i] != '~' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'a', 'A':
			if len(rest) == 0 {
				return nil, mania.SyntaxError{Reason: "format: too few arguments for template"}
			}
			sb.WriteString(displayString(rest[0]))
			rest = rest[1:]
		case 's', 'S':
			if len(rest) == 0 {
				return nil, mania.SyntaxError{Reason: "format: too few arguments for template"}
			}
			sb.WriteString(rest[0].String())
			rest = rest[1:]
		case '%':
			sb.WriteByte('\n')
		case '~':
			sb.WriteByte('~')
		default:
			sb.WriteByte('~')
			sb.WriteByte(s[i])
		}
	}
	return mania.MakeString(sb.String()), nil
}

func builtinHead(args []mania.Object) (mania.Object, error) {
	p, err := argPair(args, 0, "head")
	if err != nil {
		return nil, err
	}
	return p.Car(), nil
}

func builtinTail(args []mania.Object) (mania.Object, error) {
	p, err := argPair(args, 0, "tail")
	if err != nil {
		return nil, err
	}
	return p.Cdr(), nil
}

func builtinCons(args []mania.Object) (mania.Object, error) {
	if len(args) != 2 {
		return nil, mania.SyntaxError{Reason: "cons: expected exactly two arguments"}
	}
	return mania.Cons(args[0], args[1]), nil
}

func builtinList(args []mania.Object) (mania.Object, error) {
	return mania.FromSlice(args), nil
}

func builtinNot(args []mania.Object) (mania.Object, error) {
	if len(args) != 1 {
		return nil, mania.SyntaxError{Reason: "not: expected exactly one argument"}
	}
	return mania.MakeBoolean(mania.IsFalse(args[0])), nil
}

func argPair(args []mania.Object, i int, name string) (*mania.Pair, error) {
	if i >= len(args) {
		return nil, mania.SyntaxError{Reason: name + ": missing argument"}
	}
	p, ok := mania.GetPair(args[i])
	if !ok {
		return nil, mania.SyntaxError{Reason: name + ": expected a list", Form: args[i]}
	}
	return p, nil
}

func builtinFold(op func(a, b mania.Number) mania.Number, identity mania.Number) mania.NativeCallable {
	return func(args []mania.Object) (mania.Object, error) {
		acc := identity
		for _, a := range args {
			n, ok := mania.GetNumber(a)
			if !ok {
				return nil, mania.SyntaxError{Reason: "expected a number", Form: a}
			}
			acc = op(acc, n)
		}
		return acc, nil
	}
}

func builtinSub(args []mania.Object) (mania.Object, error) {
	nums, err := argNumbers(args, "-")
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, mania.SyntaxError{Reason: "-: expected at least one argument"}
	}
	if len(nums) == 1 {
		return mania.Sub(mania.MakeInteger(0), nums[0]), nil
	}
	acc := nums[0]
	for _, n := range nums[1:] {
		acc = mania.Sub(acc, n)
	}
	return acc, nil
}

func builtinDiv(args []mania.Object) (mania.Object, error) {
	nums, err := argNumbers(args, "/")
	if err != nil {
		return nil, err
	}
	if len(nums) < 2 {
		return nil, mania.SyntaxError{Reason: "/: expected at least two arguments"}
	}
	acc := nums[0]
	for _, n := range nums[1:] {
		acc, err = mania.Div(acc, n)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func builtinCompare(cmp func(c int) bool) mania.NativeCallable {
	return func(args []mania.Object) (mania.Object, error) {
		nums, err := argNumbers(args, "compare")
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(nums); i++ {
			if !cmp(mania.NumCmp(nums[i-1], nums[i])) {
				return mania.False, nil
			}
		}
		return mania.True, nil
	}
}

func argNumbers(args []mania.Object, name string) ([]mania.Number, error) {
	nums := make([]mania.Number, len(args))
	for i, a := range args {
		n, ok := mania.GetNumber(a)
		if !ok {
			return nil, mania.SyntaxError{Reason: name + ": expected a number", Form: a}
		}
		nums[i] = n
	}
	return nums, nil
}
