package vm

import (
	"asc.im/mania"
	"asc.im/mania/bytecode"
	"asc.im/mania/compiler"
	"asc.im/mania/pattern"
)

// eval implements the Eval opcode: expr is popped source, interpreted
// according to spec.md §4.6. Compiling nested forms happens here, on the
// fly, against a Builder attached to the live module so previously issued
// Code windows never move.
func (vm *VM) eval(frame *Frame, module *mania.Module, expr mania.Object) error {
	switch v := expr.(type) {
	case *mania.Pair:
		if v.IsNil() {
			frame.Push(v)
			return nil
		}
		return vm.evalPair(frame, module, v)
	case *mania.Symbol:
		return vm.evalSymbol(frame, module, v)
	case mania.Quoted:
		frame.Push(v.Value)
		return nil
	case mania.Quasiquoted:
		if containsUnquoted(v.Value) {
			return mania.SyntaxError{Reason: "quasiquote at eval position is only valid once a macro has resolved every unquote", Form: expr}
		}
		frame.Push(expr)
		return nil
	case mania.Unquoted:
		return mania.SyntaxError{Reason: "unquote outside quasiquote", Form: expr}
	default:
		frame.Push(expr)
		return nil
	}
}

func containsUnquoted(node mania.Object) bool {
	switch v := node.(type) {
	case mania.Unquoted:
		return true
	case *mania.Pair:
		if v.IsNil() {
			return false
		}
		return containsUnquoted(v.Car()) || containsUnquoted(v.Cdr())
	case mania.Quoted:
		return containsUnquoted(v.Value)
	case mania.Quasiquoted:
		return containsUnquoted(v.Value)
	default:
		return false
	}
}

// evalPair handles a Pair expression: a Pair head synthesizes a call of the
// (also unevaluated) head against the evaluated arguments; a Symbol head is
// looked up first in case it names a Macro or NativeMacro special form.
func (vm *VM) evalPair(frame *Frame, module *mania.Module, p *mania.Pair) error {
	if sym, ok := mania.GetSymbol(p.Car()); ok {
		val, err := resolveSymbol(frame, sym)
		if err == nil {
			switch callee := val.(type) {
			case *mania.Macro:
				return vm.expandMacro(frame, module, callee, p)
			case *compiler.NativeMacro:
				return vm.expandNativeMacro(frame, module, callee, p.Tail())
			}
		}
	}
	return vm.synthesizeCall(frame, module, p.ToSlice())
}

// evalSymbol handles a bare Symbol expression: ordinary variable lookup,
// except that a binding that turns out to be a Macro is expanded against
// the symbol alone (for a zero-argument macro use written without
// parentheses); a pattern failure there just pushes the Macro value itself.
func (vm *VM) evalSymbol(frame *Frame, module *mania.Module, sym *mania.Symbol) error {
	val, err := resolveSymbol(frame, sym)
	if err != nil {
		return err
	}
	macro, ok := val.(*mania.Macro)
	if !ok {
		frame.Push(val)
		return nil
	}
	results, err := pattern.ExpandToObjects(macro, sym)
	if _, isMatchErr := err.(mania.MatchError); isMatchErr {
		frame.Push(macro)
		return nil
	}
	if err != nil {
		return err
	}
	return vm.pushExpansions(frame, module, results)
}

// expandMacro expands m against the whole call form expr and pushes one
// frame per resulting template, outermost/first-template on top so it runs
// first.
func (vm *VM) expandMacro(frame *Frame, module *mania.Module, m *mania.Macro, expr mania.Object) error {
	results, err := pattern.ExpandToObjects(m, expr)
	if err != nil {
		return err
	}
	return vm.pushExpansions(frame, module, results)
}

func (vm *VM) pushExpansions(frame *Frame, module *mania.Module, results []mania.Object) error {
	b := compiler.Attach(module)
	codes := make([]mania.Code, len(results))
	for i, r := range results {
		codes[i] = compiler.CompileFragment(b, r)
	}
	b.Flush()
	for i := len(codes) - 1; i >= 0; i-- {
		vm.pushFrame(NewFrame(codes[i], frame.Scope, vm.top))
	}
	return nil
}

// expandNativeMacro runs a host-implemented special form (define, lambda,
// let, if, ...) against a Builder attached to module and pushes the
// resulting fragment(s).
func (vm *VM) expandNativeMacro(frame *Frame, module *mania.Module, m *compiler.NativeMacro, args *mania.Pair) error {
	b := compiler.Attach(module)
	codes, err := m.Expand(b, args)
	if err != nil {
		return err
	}
	b.Flush()
	for i := len(codes) - 1; i >= 0; i-- {
		vm.pushFrame(NewFrame(codes[i], frame.Scope, vm.top))
	}
	return nil
}

// synthesizeCall compiles children (head then args, in order) each capped
// with Eval, then a final Call/Apply, and pushes the resulting fragment as
// a new frame sharing the current lexical scope. A trailing Ellipsis
// element marks the call as variadic: Apply splices the last evaluated
// argument's elements in rather than passing it as a single value.
func (vm *VM) synthesizeCall(frame *Frame, module *mania.Module, children []mania.Object) error {
	variadic := len(children) > 0 && mania.IsEllipsis(children[len(children)-1])
	if variadic {
		children = children[:len(children)-1]
	}
	if len(children) == 0 {
		return mania.SyntaxError{Reason: "empty call form"}
	}

	b := compiler.Attach(module)
	entry := b.Pos()
	for _, c := range children {
		compiler.Compile(b, c)
		b.Emit(bytecode.Eval)
	}
	n := len(children) - 1
	if variadic {
		b.Emit(bytecode.Apply, n)
	} else {
		b.Emit(bytecode.Call, n)
	}
	frag := mania.MakeCode(module, entry, b.Pos()-entry)
	b.Flush()
	vm.pushFrame(NewFrame(frag, frame.Scope, vm.top))
	return nil
}
