package vm

import (
	"math"
	"math/big"

	"asc.im/mania"
	"asc.im/mania/bytecode"
)

// ThrownError wraps a value thrown by Throw that escaped every SetupCatch
// handler in the frame chain.
type ThrownError struct{ Value mania.Object }

func (e ThrownError) Error() string { return "uncaught throw: " + e.Value.String() }

// execute dispatches a single decoded instruction against frame. instrStart
// is the position of the opcode byte itself, used by ops that need to
// rewind and retry (Receive, LoadModule) when they signal a suspend.
func (vm *VM) execute(frame *Frame, module *mania.Module, instr bytecode.Instruction, instrStart int) (Signal, error) {
	switch instr.Op {

	case bytecode.Nop:
		return SignalNone, nil

	case bytecode.Duplicate:
		return SignalNone, frame.Duplicate(instr.Operands[0])
	case bytecode.Rotate:
		return SignalNone, frame.Rotate(instr.Operands[0])
	case bytecode.Pop:
		return SignalNone, frame.Drop(instr.Operands[0])

	case bytecode.Store:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		sym, ok := mania.GetSymbol(constantAt(module, instr.Operands[0]))
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "store: constant is not a symbol"}
		}
		return SignalNone, frame.Scope.Define(sym, v)

	case bytecode.Load:
		sym, ok := mania.GetSymbol(constantAt(module, instr.Operands[0]))
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "load: constant is not a symbol"}
		}
		val, err := resolveSymbol(frame, sym)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(val)
		return SignalNone, nil

	case bytecode.LoadField:
		host, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		sym, ok := mania.GetSymbol(constantAt(module, instr.Operands[0]))
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "load-field: constant is not a symbol"}
		}
		fl, ok := host.(mania.FieldLookup)
		if !ok {
			return SignalNone, mania.NameError{Symbol: sym}
		}
		val, found := fl.LookupField(sym.Name())
		if !found {
			return SignalNone, mania.NameError{Symbol: sym}
		}
		frame.Push(val)
		return SignalNone, nil

	case bytecode.LoadConstant:
		frame.Push(constantAt(module, instr.Operands[0]))
		return SignalNone, nil

	case bytecode.LoadCode:
		frame.Push(mania.MakeCode(module, instr.Operands[0], instr.Operands[1]))
		return SignalNone, nil

	case bytecode.LoadModule:
		sym, ok := mania.GetSymbol(constantAt(module, instr.Operands[0]))
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "load-module: constant is not a symbol"}
		}
		if vm.Loader == nil {
			return SignalNone, mania.ImportError{Name: sym.Name()}
		}
		mod, ready, err := vm.Loader.LoadModule(sym.Name())
		if err != nil {
			return SignalNone, err
		}
		if !ready {
			vm.WantsModule = sym.Name()
			frame.Position = instrStart
			return SignalLoadModule, nil
		}
		frame.Push(mod)
		return SignalNone, nil

	case bytecode.Negate:
		return SignalNone, unaryArith(frame, negate)
	case bytecode.Add:
		return SignalNone, binaryNum(frame, mania.Add)
	case bytecode.Sub:
		return SignalNone, binaryNum(frame, mania.Sub)
	case bytecode.Mul:
		return SignalNone, binaryNum(frame, mania.Mul)
	case bytecode.Div:
		return SignalNone, binaryNumErr(frame, mania.Div)
	case bytecode.Pow:
		return SignalNone, binaryNum(frame, mania.Pow)
	case bytecode.Mod:
		return SignalNone, binaryNumErr(frame, mania.Mod)
	case bytecode.Rem:
		return SignalNone, binaryNumErr(frame, mania.Rem)
	case bytecode.Round:
		return SignalNone, unaryArith(frame, roundOp(math.Round))
	case bytecode.Floor:
		return SignalNone, unaryArith(frame, roundOp(math.Floor))
	case bytecode.Ceil:
		return SignalNone, unaryArith(frame, roundOp(math.Ceil))

	case bytecode.BitNot:
		i, err := popInt(frame)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeIntegerFromBig(new(big.Int).Not(i.Big())))
		return SignalNone, nil
	case bytecode.BitAnd:
		return SignalNone, binaryInt(frame, func(a, b *big.Int) *big.Int { return new(big.Int).And(a, b) })
	case bytecode.BitOr:
		return SignalNone, binaryInt(frame, func(a, b *big.Int) *big.Int { return new(big.Int).Or(a, b) })
	case bytecode.BitXor:
		return SignalNone, binaryInt(frame, func(a, b *big.Int) *big.Int { return new(big.Int).Xor(a, b) })
	case bytecode.BitShiftLeft:
		return SignalNone, binaryInt(frame, func(a, b *big.Int) *big.Int { return new(big.Int).Lsh(a, uint(b.Int64())) })
	case bytecode.BitShiftRight:
		return SignalNone, binaryInt(frame, func(a, b *big.Int) *big.Int { return new(big.Int).Rsh(a, uint(b.Int64())) })

	case bytecode.LogicNot:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeBoolean(mania.IsFalse(v)))
		return SignalNone, nil
	case bytecode.LogicAnd:
		a, b, err := popPair(frame)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeBoolean(mania.IsTrue(a) && mania.IsTrue(b)))
		return SignalNone, nil
	case bytecode.LogicOr:
		a, b, err := popPair(frame)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeBoolean(mania.IsTrue(a) || mania.IsTrue(b)))
		return SignalNone, nil
	case bytecode.LogicXor:
		a, b, err := popPair(frame)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeBoolean(mania.IsTrue(a) != mania.IsTrue(b)))
		return SignalNone, nil

	case bytecode.Type:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeSymbol(typeName(v)))
		return SignalNone, nil

	case bytecode.Equal:
		a, b, err := popPair(frame)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeBoolean(a.IsEqual(b)))
		return SignalNone, nil
	case bytecode.NotEqual:
		a, b, err := popPair(frame)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.MakeBoolean(!a.IsEqual(b)))
		return SignalNone, nil
	case bytecode.Greater:
		return SignalNone, compareNum(frame, func(c int) bool { return c > 0 })
	case bytecode.GreaterEqual:
		return SignalNone, compareNum(frame, func(c int) bool { return c >= 0 })
	case bytecode.Less:
		return SignalNone, compareNum(frame, func(c int) bool { return c < 0 })
	case bytecode.LessEqual:
		return SignalNone, compareNum(frame, func(c int) bool { return c <= 0 })

	case bytecode.Jump:
		frame.Position = instr.Operands[0]
		return SignalNone, nil
	case bytecode.JumpIfNil:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		if mania.IsNil(v) {
			frame.Position = instr.Operands[0]
		}
		return SignalNone, nil
	case bytecode.JumpIfTrue:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		if mania.IsTrue(v) {
			frame.Position = instr.Operands[0]
		}
		return SignalNone, nil
	case bytecode.JumpIfFalse:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		if mania.IsFalse(v) {
			frame.Position = instr.Operands[0]
		}
		return SignalNone, nil
	case bytecode.JumpIfEmpty:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		if mania.IsNil(v) {
			frame.Position = instr.Operands[0]
		}
		return SignalNone, nil
	case bytecode.JumpIfNotEmpty:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		if !mania.IsNil(v) {
			frame.Position = instr.Operands[0]
		}
		return SignalNone, nil
	case bytecode.JumpIfSize:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		p, ok := mania.GetPair(v)
		if ok && p.LengthEqual(instr.Operands[0]) {
			frame.Position = instr.Operands[1]
		}
		return SignalNone, nil

	case bytecode.Call:
		return SignalNone, vm.execCall(frame, instr.Operands[0])
	case bytecode.Apply:
		return SignalNone, vm.execApply(frame, instr.Operands[0])

	case bytecode.Return:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		vm.restoreFrame(v)
		return SignalNone, nil
	case bytecode.Restore:
		vm.restoreFrame(nil)
		return SignalNone, nil

	case bytecode.Throw:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		for f := frame; f != nil; f = f.Parent {
			if n := len(f.catch); n > 0 {
				pos := f.catch[n-1]
				f.catch = f.catch[:n-1]
				f.Position = pos
				f.Push(v)
				vm.top = f
				return SignalNone, nil
			}
		}
		return SignalNone, ThrownError{Value: v}
	case bytecode.SetupCatch:
		frame.catch = append(frame.catch, instr.Operands[0])
		return SignalNone, nil
	case bytecode.EndCatch:
		if len(frame.catch) == 0 {
			return SignalNone, mania.SyntaxError{Reason: "end-catch: no active catch handler"}
		}
		frame.catch = frame.catch[:len(frame.catch)-1]
		return SignalNone, nil

	case bytecode.Spawn:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		code, ok := v.(mania.Code)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "spawn: expected code", Form: v}
		}
		vm.SpawnCode = code
		return SignalSpawn, nil
	case bytecode.Exit:
		if val, err := frame.Pop(); err == nil {
			vm.Result = val
		}
		vm.top = nil
		return SignalExit, nil
	case bytecode.Send:
		msg, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		pid, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		vm.SendReq = SendRequest{Pid: pid, Message: msg}
		return SignalSend, nil
	case bytecode.Receive:
		if vm.Mailbox != nil {
			if msg, ok := vm.Mailbox.Dequeue(); ok {
				frame.Push(msg)
				return SignalNone, nil
			}
		}
		frame.Position = instrStart
		return SignalReceive, nil
	case bytecode.Block:
		return SignalBlock, nil
	case bytecode.Yield:
		return SignalYield, nil

	case bytecode.Head:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		p, ok := mania.GetPair(v)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "head: expected a list", Form: v}
		}
		frame.Push(p.Car())
		return SignalNone, nil
	case bytecode.Tail:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		p, ok := mania.GetPair(v)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "tail: expected a list", Form: v}
		}
		frame.Push(p.Cdr())
		return SignalNone, nil
	case bytecode.Reverse:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		p, ok := mania.GetPair(v)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "reverse: expected a list", Form: v}
		}
		rev, err := p.Reverse()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(rev)
		return SignalNone, nil
	case bytecode.Unpack:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		p, ok := mania.GetPair(v)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "unpack: expected a list", Form: v}
		}
		for _, item := range p.ToSlice() {
			frame.Push(item)
		}
		return SignalNone, nil

	case bytecode.BuildPair:
		cdr, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		car, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.Cons(car, cdr))
		return SignalNone, nil
	case bytecode.BuildList:
		items, err := frame.PopN(instr.Operands[0])
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.FromSlice(items))
		return SignalNone, nil
	case bytecode.BuildQuoted:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.Quoted{Value: v})
		return SignalNone, nil
	case bytecode.BuildQuasiquoted:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.Quasiquoted{Value: v})
		return SignalNone, nil
	case bytecode.BuildUnquoted:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.Unquoted{Value: v})
		return SignalNone, nil
	case bytecode.BuildFunction:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		code, ok := v.(mania.Code)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "build-function: expected code", Form: v}
		}
		frame.Push(mania.MakeFunction(code, frame.Scope, ""))
		return SignalNone, nil
	case bytecode.BuildMacro:
		n := instr.Operands[0]
		ruleVals, err := frame.PopN(n)
		if err != nil {
			return SignalNone, err
		}
		nameVal, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		name, _ := mania.GetString(nameVal)
		rules := make([]mania.Rule, 0, n)
		for _, rv := range ruleVals {
			if r, ok := rv.(mania.Rule); ok {
				rules = append(rules, r)
			}
		}
		frame.Push(mania.MakeMacro(string(name), rules))
		return SignalNone, nil
	case bytecode.BuildRule:
		tmplListVal, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		patVal, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		pat, _ := patVal.(mania.Pattern)
		tmplList, _ := mania.GetPair(tmplListVal)
		var templates []mania.Template
		for _, v := range tmplList.ToSlice() {
			if t, ok := v.(mania.Template); ok {
				templates = append(templates, t)
			}
		}
		frame.Push(mania.Rule{Pattern: pat, Templates: templates})
		return SignalNone, nil
	case bytecode.BuildPattern:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.Pattern{Structure: v})
		return SignalNone, nil
	case bytecode.BuildTemplate:
		n := instr.Operands[0]
		if n <= 1 {
			v, err := frame.Pop()
			if err != nil {
				return SignalNone, err
			}
			frame.Push(mania.Template{Structure: v})
			return SignalNone, nil
		}
		parts, err := frame.PopN(n)
		if err != nil {
			return SignalNone, err
		}
		frame.Push(mania.Template{Structure: mania.FromSlice(parts)})
		return SignalNone, nil
	case bytecode.BuildContinuation:
		target := frame
		frame.Push(mania.MakeNativeFunction("continuation", func(args []mania.Object) (mania.Object, error) {
			val := mania.Object(mania.MakeUndefined())
			if len(args) > 0 {
				val = args[0]
			}
			return nil, escapeError{frame: target, value: val}
		}))
		return SignalNone, nil
	case bytecode.BuildModule:
		nameVal, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		name, ok := mania.GetSymbol(nameVal)
		if !ok {
			return SignalNone, mania.SyntaxError{Reason: "build-module: expected a name symbol", Form: nameVal}
		}
		exportsVal, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		exports, _ := mania.GetPair(exportsVal)
		exportScope := mania.NewScope(nil)
		for _, e := range exports.ToSlice() {
			sym, ok := mania.GetSymbol(e)
			if !ok {
				continue
			}
			if val, found := frame.Scope.Resolve(sym); found {
				_ = exportScope.Define(sym, val)
			}
		}
		module.SetScope(exportScope)
		if vm.Registry != nil {
			vm.Registry.RegisterModule(name.Name(), module)
		}
		frame.Push(module)
		return SignalNone, nil

	case bytecode.Eval:
		v, err := frame.Pop()
		if err != nil {
			return SignalNone, err
		}
		return SignalNone, vm.eval(frame, module, v)

	default:
		return SignalNone, mania.SyntaxError{Reason: "unimplemented opcode: " + instr.Op.String()}
	}
}

func constantAt(module *mania.Module, idx int) mania.Object {
	if idx < 0 || idx >= len(module.Constants) {
		return mania.MakeUndefined()
	}
	return module.Constants[idx]
}

// resolveSymbol looks sym up in frame's scope chain, falling back to
// colon-path field navigation (a:b export access) when the
// plain lookup fails and sym's name actually contains a namespace
// separator.
func resolveSymbol(frame *Frame, sym *mania.Symbol) (mania.Object, error) {
	if val, ok := frame.Scope.Resolve(sym); ok {
		return val, nil
	}
	name := sym.Name()
	if idx := indexByte(name, ':'); idx > 0 {
		root, ok := frame.Scope.Resolve(mania.MakeSymbol(name[:idx]))
		if !ok {
			return nil, mania.NameError{Symbol: sym}
		}
		return mania.ResolveColonPath(root, sym)
	}
	return nil, mania.NameError{Symbol: sym}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func typeName(v mania.Object) string {
	switch v.(type) {
	case *mania.Pair:
		if mania.IsNil(v) {
			return "nil"
		}
		return "pair"
	case *mania.Symbol:
		return "symbol"
	case mania.String:
		return "string"
	case *mania.Integer:
		return "integer"
	case mania.Float:
		return "float"
	case mania.Bool:
		return "bool"
	case mania.Undefined:
		return "undefined"
	case *mania.Function:
		return "function"
	case *mania.NativeFunction:
		return "native-function"
	case *mania.Macro:
		return "macro"
	case *mania.Module:
		return "module"
	case mania.Code:
		return "code"
	case *mania.Stream:
		return "stream"
	case mania.Quoted:
		return "quoted"
	case mania.Quasiquoted:
		return "quasiquoted"
	case mania.Unquoted:
		return "unquoted"
	default:
		return "object"
	}
}

func popPair(frame *Frame) (mania.Object, mania.Object, error) {
	b, err := frame.Pop()
	if err != nil {
		return nil, nil, err
	}
	a, err := frame.Pop()
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func popNumbers(frame *Frame) (mania.Number, mania.Number, error) {
	a, b, err := popPair(frame)
	if err != nil {
		return nil, nil, err
	}
	an, ok := mania.GetNumber(a)
	if !ok {
		return nil, nil, mania.SyntaxError{Reason: "expected a number", Form: a}
	}
	bn, ok := mania.GetNumber(b)
	if !ok {
		return nil, nil, mania.SyntaxError{Reason: "expected a number", Form: b}
	}
	return an, bn, nil
}

func binaryNum(frame *Frame, op func(a, b mania.Number) mania.Number) error {
	a, b, err := popNumbers(frame)
	if err != nil {
		return err
	}
	frame.Push(op(a, b))
	return nil
}

func binaryNumErr(frame *Frame, op func(a, b mania.Number) (mania.Number, error)) error {
	a, b, err := popNumbers(frame)
	if err != nil {
		return err
	}
	res, err := op(a, b)
	if err != nil {
		return err
	}
	frame.Push(res)
	return nil
}

func compareNum(frame *Frame, cmp func(c int) bool) error {
	a, b, err := popNumbers(frame)
	if err != nil {
		return err
	}
	frame.Push(mania.MakeBoolean(cmp(mania.NumCmp(a, b))))
	return nil
}

func popInt(frame *Frame) (*mania.Integer, error) {
	v, err := frame.Pop()
	if err != nil {
		return nil, err
	}
	i, ok := v.(*mania.Integer)
	if !ok {
		return nil, mania.SyntaxError{Reason: "expected an integer", Form: v}
	}
	return i, nil
}

func binaryInt(frame *Frame, op func(a, b *big.Int) *big.Int) error {
	b, err := popInt(frame)
	if err != nil {
		return err
	}
	a, err := popInt(frame)
	if err != nil {
		return err
	}
	frame.Push(mania.MakeIntegerFromBig(op(a.Big(), b.Big())))
	return nil
}

func unaryArith(frame *Frame, op func(mania.Number) mania.Number) error {
	v, err := frame.Pop()
	if err != nil {
		return err
	}
	n, ok := mania.GetNumber(v)
	if !ok {
		return mania.SyntaxError{Reason: "expected a number", Form: v}
	}
	frame.Push(op(n))
	return nil
}

func negate(n mania.Number) mania.Number {
	switch v := n.(type) {
	case *mania.Integer:
		return mania.MakeIntegerFromBig(new(big.Int).Neg(v.Big()))
	case mania.Float:
		return -v
	default:
		return n
	}
}

func roundOp(f func(float64) float64) func(mania.Number) mania.Number {
	return func(n mania.Number) mania.Number {
		switch v := n.(type) {
		case *mania.Integer:
			return v
		case mania.Float:
			return mania.MakeInteger(int64(f(float64(v))))
		default:
			return n
		}
	}
}

// execCall implements Call(n): pop n arguments (oldest first), pop the
// callable, and invoke it. A Function callee's new frame receives the
// arguments as a single list, not as n stack slots (see invoke).
func (vm *VM) execCall(frame *Frame, n int) error {
	args, err := frame.PopN(n)
	if err != nil {
		return err
	}
	callee, err := frame.Pop()
	if err != nil {
		return err
	}
	return vm.invoke(frame, callee, args)
}

// execApply implements Apply(n): like Call, but the last of the n popped
// arguments is a list whose elements are spliced in in its place.
func (vm *VM) execApply(frame *Frame, n int) error {
	args, err := frame.PopN(n)
	if err != nil {
		return err
	}
	callee, err := frame.Pop()
	if err != nil {
		return err
	}
	var final []mania.Object
	if n > 0 {
		final = append(final, args[:n-1]...)
		lst, ok := mania.GetPair(args[n-1])
		if !ok {
			return mania.SyntaxError{Reason: "apply: last argument must be a list", Form: args[n-1]}
		}
		final = append(final, lst.ToSlice()...)
	}
	return vm.invoke(frame, callee, final)
}

func (vm *VM) invoke(frame *Frame, callee mania.Object, args []mania.Object) error {
	switch fn := callee.(type) {
	case *mania.NativeFunction:
		res, err := fn.Call(args)
		if err != nil {
			return err
		}
		frame.Push(res)
		return nil
	case *mania.Function:
		newFrame := NewFrame(fn.Code, mania.NewScope(fn.Scope), nil)
		newFrame.Push(mania.FromSlice(args))
		vm.pushFrame(newFrame)
		return nil
	default:
		return mania.SyntaxError{Reason: "call: not callable", Form: callee}
	}
}
