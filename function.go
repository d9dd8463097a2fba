package mania

import (
	"fmt"
	"io"
)

// Function is a closure: a Code region plus the lexical Scope captured at
// the point the function was built (the BuildFunction opcode).
type Function struct {
	Code  Code
	Scope *Scope
	Name  string
}

// MakeFunction builds a Function closing over scope.
func MakeFunction(code Code, scope *Scope, name string) *Function {
	return &Function{Code: code, Scope: scope, Name: name}
}

func (f *Function) IsNil() bool  { return f == nil }
func (f *Function) IsAtom() bool { return true }
func (f *Function) IsEqual(other Object) bool {
	of, ok := other.(*Function)
	return ok && f == of
}
func (f *Function) String() string {
	if f.Name == "" {
		return "#<function>"
	}
	return fmt.Sprintf("#<function:%s>", f.Name)
}
func (f *Function) Print(w io.Writer) (int, error) { return io.WriteString(w, f.String()) }

// NativeCallable is the signature a NativeFunction invokes: arguments in
// forward order, a result object (Undefined if there is none to report).
type NativeCallable func(args []Object) (Object, error)

// NativeFunction is a host-provided callable.
type NativeFunction struct {
	Name string
	Fn   NativeCallable
}

// MakeNativeFunction wraps fn as a NativeFunction value.
func MakeNativeFunction(name string, fn NativeCallable) *NativeFunction {
	return &NativeFunction{Name: name, Fn: fn}
}

func (nf *NativeFunction) IsNil() bool  { return nf == nil }
func (nf *NativeFunction) IsAtom() bool { return true }
func (nf *NativeFunction) IsEqual(other Object) bool {
	onf, ok := other.(*NativeFunction)
	return ok && nf == onf
}
func (nf *NativeFunction) String() string { return fmt.Sprintf("#<native:%s>", nf.Name) }
func (nf *NativeFunction) Print(w io.Writer) (int, error) { return io.WriteString(w, nf.String()) }

// Call invokes the native function, substituting Undefined for a nil
// result.
func (nf *NativeFunction) Call(args []Object) (Object, error) {
	res, err := nf.Fn(args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return MakeUndefined(), nil
	}
	return res, nil
}
