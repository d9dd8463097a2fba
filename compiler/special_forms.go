package compiler

import (
	"asc.im/mania"
	"asc.im/mania/bytecode"
)

// DefineSpecialForms binds the reserved head forms (spec.md §6.2) as
// NativeMacros in scope: define-module, define, define-syntax, lambda, let,
// if, and, import. Each callable appends bytecode to the Builder the VM
// attaches to the currently executing module and returns the Code
// fragment(s) to push as new frames — the same mechanism package pattern
// uses for user-defined macros, just with Go instead of Pattern/Template.
func DefineSpecialForms(scope *mania.Scope) error {
	forms := []*NativeMacro{
		MakeNativeMacro("define", defineForm),
		MakeNativeMacro("lambda", lambdaForm),
		MakeNativeMacro("let", letForm),
		MakeNativeMacro("if", ifForm),
		MakeNativeMacro("and", andForm),
		MakeNativeMacro("define-syntax", defineSyntaxForm),
		MakeNativeMacro("define-module", defineModuleForm),
		MakeNativeMacro("import", importForm),
	}
	for _, f := range forms {
		if err := scope.Define(mania.MakeSymbol(f.Name), f); err != nil {
			return err
		}
	}
	return nil
}

func fragment(b *Builder, entry int) []mania.Code {
	return []mania.Code{codeIn(b, entry)}
}

// argsListSymbol is the internal binding invoke() seeds a Function's frame
// with: the call's arguments as a single Nil-terminated list, oldest first.
// The reader and mania.IsValidIdentifier both accept this name, so a user
// parameter also spelled %args collides with it (its Store fails as a
// redefinition).
var argsListSymbol = mania.MakeSymbol("%args")

// appendFunctionBody appends a parameter-binding prologue followed by a
// begin-style body to b's instruction stream and returns its entry point.
// The body's last instruction is Return (spec.md §4.6 picks up from there,
// restoring the caller frame with the result value).
//
// The prologue destructures %args against the fixed parameter count; a
// variadic tail collects the surplus into a fresh Nil-terminated list
// (spec.md §4.4's "BuildPair/Reverse/JumpIfSize/JumpIfEmpty guards").
func appendFunctionBody(b *Builder, params *mania.Pair, body *mania.Pair) int {
	entry := b.Pos()
	fixed, variadic := paramSymbols(params)
	b.Emit(bytecode.Store, b.Intern(argsListSymbol))

	if variadic != nil {
		// Collect every argument past the fixed count into variadic, then
		// leave exactly len(fixed) arguments unpacked onto the stack for
		// the Store loop below.
		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		b.Emit(bytecode.Reverse)
		b.Emit(bytecode.Store, b.Intern(argsListSymbol))
		b.Emit(bytecode.LoadConstant, b.Intern(mania.Nil()))
		b.Emit(bytecode.Store, b.Intern(variadic))

		loopStart := b.Pos()
		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		sizeJump := b.Emit(bytecode.JumpIfSize, len(fixed), 0)
		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		emptyJump := b.Emit(bytecode.JumpIfEmpty, 0)

		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		b.Emit(bytecode.Head)
		b.Emit(bytecode.Load, b.Intern(variadic))
		b.Emit(bytecode.BuildPair)
		b.Emit(bytecode.Store, b.Intern(variadic))
		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		b.Emit(bytecode.Tail)
		b.Emit(bytecode.Store, b.Intern(argsListSymbol))
		b.Emit(bytecode.Jump, loopStart)

		done := b.Pos()
		b.Patch(sizeJump, 1, done)
		b.Patch(emptyJump, 0, done)

		// %args (reversed surplus already peeled off) still holds exactly
		// len(fixed) elements in reverse order; restore call order and
		// flatten onto the stack for the fixed-parameter Store loop.
		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		b.Emit(bytecode.Reverse)
		b.Emit(bytecode.Unpack)
	} else {
		b.Emit(bytecode.Load, b.Intern(argsListSymbol))
		b.Emit(bytecode.Unpack)
	}
	for i := len(fixed) - 1; i >= 0; i-- {
		b.Emit(bytecode.Store, b.Intern(fixed[i]))
	}
	forms := body.ToSlice()
	if len(forms) == 0 {
		b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeUndefined()))
	}
	for i, f := range forms {
		Compile(b, f)
		b.Emit(bytecode.Eval)
		if i < len(forms)-1 {
			b.Emit(bytecode.Pop, 1)
		}
	}
	b.Emit(bytecode.Return)
	return entry
}

// paramSymbols splits a lambda parameter list into its fixed symbols and an
// optional trailing variadic symbol, written "(a b rest ...)".
func paramSymbols(params *mania.Pair) (fixed []*mania.Symbol, variadic *mania.Symbol) {
	items := params.ToSlice()
	if n := len(items); n >= 2 && mania.IsEllipsis(items[n-1]) {
		if sym, ok := mania.GetSymbol(items[n-2]); ok {
			variadic = sym
		}
		items = items[:n-2]
	}
	for _, it := range items {
		if sym, ok := mania.GetSymbol(it); ok {
			fixed = append(fixed, sym)
		}
	}
	return fixed, variadic
}

// compileFunctionValue appends params/body as a function body elsewhere in
// b's stream (behind a Jump, so the enclosing code skips over it), then
// emits the LoadCode+BuildFunction pair that leaves the resulting Function
// on the stack at the current position.
func compileFunctionValue(b *Builder, params *mania.Pair, body *mania.Pair) {
	skip := b.Emit(bytecode.Jump, 0)
	bodyEntry := appendFunctionBody(b, params, body)
	bodySize := b.Pos() - bodyEntry
	b.Patch(skip, 0, b.Pos())
	b.Emit(bytecode.LoadCode, bodyEntry, bodySize)
	b.Emit(bytecode.BuildFunction)
}

func lambdaForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	params, ok := mania.GetPair(args.Car())
	if !ok {
		return nil, mania.SyntaxError{Reason: "lambda: expected a parameter list", Form: args}
	}
	entry := b.Pos()
	compileFunctionValue(b, params, args.Tail())
	return fragment(b, entry), nil
}

// defineForm handles both `(define name expr)` and the function-definition
// sugar `(define (name . params) body...)`.
func defineForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	head := args.Car()
	rest := args.Tail()
	entry := b.Pos()

	var name *mania.Symbol
	if headPair, isPair := mania.GetPair(head); isPair && !headPair.IsNil() {
		sym, ok := mania.GetSymbol(headPair.Car())
		if !ok {
			return nil, mania.SyntaxError{Reason: "define: bad function name", Form: args}
		}
		name = sym
		compileFunctionValue(b, headPair.Tail(), rest)
	} else {
		sym, ok := mania.GetSymbol(head)
		if !ok {
			return nil, mania.SyntaxError{Reason: "define: expected a symbol", Form: args}
		}
		name = sym
		if mania.IsNil(rest) {
			b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeUndefined()))
		} else {
			Compile(b, rest.Car())
			b.Emit(bytecode.Eval)
		}
	}
	if !mania.IsValidIdentifier(name.Name()) {
		return nil, mania.ExpandError{Reason: "define: invalid identifier " + name.Name()}
	}
	b.Emit(bytecode.Store, b.Intern(name))
	b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeUndefined()))
	return fragment(b, entry), nil
}

// letForm supports both plain `(let ((n v)...) body...)` and named let
// `(let loop ((n v)...) body...)`, the latter desugaring to an immediately
// invoked, self-referential function.
func letForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	entry := b.Pos()

	first := args.Car()
	var loopName *mania.Symbol
	bindingsObj := first
	rest := args.Tail()
	if sym, ok := mania.GetSymbol(first); ok {
		loopName = sym
		bindingsObj = rest.Car()
		rest = rest.Tail()
	}
	bindings, ok := mania.GetPair(bindingsObj)
	if !ok {
		return nil, mania.SyntaxError{Reason: "let: expected a binding list", Form: args}
	}

	var params mania.ListBuilder
	var inits []mania.Object
	for _, b0 := range bindings.ToSlice() {
		bindingPair, ok := mania.GetPair(b0)
		if !ok || bindingPair.Length() != 2 {
			return nil, mania.SyntaxError{Reason: "let: malformed binding", Form: b0}
		}
		params.Add(bindingPair.Car())
		val, _ := bindingPair.Tail().Nth(0)
		inits = append(inits, val)
	}
	paramList := params.List()

	compileFunctionValue(b, paramList, rest)
	if loopName != nil {
		b.Emit(bytecode.Duplicate, 0)
		b.Emit(bytecode.Store, b.Intern(loopName))
	}
	for _, init := range inits {
		Compile(b, init)
		b.Emit(bytecode.Eval)
	}
	b.Emit(bytecode.Call, len(inits))
	return fragment(b, entry), nil
}

func ifForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	if args.Length() < 2 {
		return nil, mania.SyntaxError{Reason: "if: expected a condition and a consequent", Form: args}
	}
	entry := b.Pos()
	cond, _ := args.Nth(0)
	then, _ := args.Nth(1)
	hasElse := args.Length() >= 3

	Compile(b, cond)
	b.Emit(bytecode.Eval)
	jumpFalse := b.Emit(bytecode.JumpIfFalse, 0)
	Compile(b, then)
	b.Emit(bytecode.Eval)
	jumpEnd := b.Emit(bytecode.Jump, 0)
	elsePos := b.Pos()
	b.Patch(jumpFalse, 0, elsePos)
	if hasElse {
		elseExpr, _ := args.Nth(2)
		Compile(b, elseExpr)
		b.Emit(bytecode.Eval)
	} else {
		b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeUndefined()))
	}
	endPos := b.Pos()
	b.Patch(jumpEnd, 0, endPos)
	return fragment(b, entry), nil
}

func andForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	if args.Length() != 2 {
		return nil, mania.SyntaxError{Reason: "and: expected exactly two operands", Form: args}
	}
	entry := b.Pos()
	left, _ := args.Nth(0)
	right, _ := args.Nth(1)

	Compile(b, left)
	b.Emit(bytecode.Eval)
	b.Emit(bytecode.Duplicate, 0)
	jump := b.Emit(bytecode.JumpIfFalse, 0)
	b.Emit(bytecode.Pop, 1)
	Compile(b, right)
	b.Emit(bytecode.Eval)
	end := b.Pos()
	b.Patch(jump, 0, end)
	return fragment(b, entry), nil
}

// defineSyntaxForm builds a Macro from `(define-syntax name (pattern
// template...) ...)` rules via BuildPattern/BuildTemplate/BuildRule/
// BuildMacro and binds it.
func defineSyntaxForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	nameSym, ok := mania.GetSymbol(args.Car())
	if !ok {
		return nil, mania.SyntaxError{Reason: "define-syntax: expected a name", Form: args}
	}
	entry := b.Pos()
	ruleExprs := args.Tail().ToSlice()

	b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeString(nameSym.Name())))
	for _, ruleExpr := range ruleExprs {
		rulePair, ok := mania.GetPair(ruleExpr)
		if !ok || rulePair.IsNil() {
			return nil, mania.SyntaxError{Reason: "define-syntax: malformed rule", Form: ruleExpr}
		}
		patExpr := rulePair.Car()
		templateExprs := rulePair.Tail().ToSlice()

		Compile(b, patExpr)
		b.Emit(bytecode.BuildPattern)
		for _, t := range templateExprs {
			Compile(b, t)
			b.Emit(bytecode.BuildTemplate, 1)
		}
		b.Emit(bytecode.BuildList, len(templateExprs))
		b.Emit(bytecode.BuildRule)
	}
	b.Emit(bytecode.BuildMacro, len(ruleExprs))
	b.Emit(bytecode.Store, b.Intern(nameSym))
	b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeUndefined()))
	return fragment(b, entry), nil
}

// defineModuleForm compiles `(define-module name (exports...) body...)`:
// the body runs for its definitions' side effects, then name and the
// exports list are pushed and BuildModule/Exit close out the module.
func defineModuleForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	nameSym, ok := mania.GetSymbol(args.Car())
	if !ok {
		return nil, mania.SyntaxError{Reason: "define-module: expected a name", Form: args}
	}
	rest := args.Tail()
	exports, ok := mania.GetPair(rest.Car())
	if !ok {
		return nil, mania.SyntaxError{Reason: "define-module: expected an export list", Form: args}
	}
	body := rest.Tail()

	entry := b.Pos()
	for _, f := range body.ToSlice() {
		Compile(b, f)
		b.Emit(bytecode.Eval)
		b.Emit(bytecode.Pop, 1)
	}
	Compile(b, exports)
	b.Emit(bytecode.LoadConstant, b.Intern(nameSym))
	b.Emit(bytecode.BuildModule)
	b.Emit(bytecode.Exit)
	return fragment(b, entry), nil
}

// importForm compiles `(import 'name)` or `(import name (a b c))`: a
// LoadModule, and for named imports, a Duplicate/LoadField/Store per field.
func importForm(b *Builder, args *mania.Pair) ([]mania.Code, error) {
	nameExpr := args.Car()
	if q, ok := nameExpr.(mania.Quoted); ok {
		nameExpr = q.Value
	}
	nameSym, ok := mania.GetSymbol(nameExpr)
	if !ok {
		return nil, mania.SyntaxError{Reason: "import: expected a module name", Form: args}
	}

	entry := b.Pos()
	b.Emit(bytecode.LoadModule, b.Intern(nameSym))
	rest := args.Tail()
	if !mania.IsNil(rest) {
		fields, ok := mania.GetPair(rest.Car())
		if !ok {
			return nil, mania.SyntaxError{Reason: "import: expected a field list", Form: args}
		}
		for _, f := range fields.ToSlice() {
			fieldSym, ok := mania.GetSymbol(f)
			if !ok {
				return nil, mania.SyntaxError{Reason: "import: expected a symbol", Form: f}
			}
			b.Emit(bytecode.Duplicate, 0)
			b.Emit(bytecode.LoadField, b.Intern(fieldSym))
			b.Emit(bytecode.Store, b.Intern(fieldSym))
		}
		b.Emit(bytecode.Pop, 1)
	}
	b.Emit(bytecode.LoadConstant, b.Intern(mania.MakeUndefined()))
	return fragment(b, entry), nil
}
