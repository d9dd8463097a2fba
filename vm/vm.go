package vm

import (
	"fmt"

	"asc.im/mania"
	"asc.im/mania/bytecode"
)

// Signal reports why Run returned control to the host before exhausting its
// tick budget (spec.md §5: every process runs in ticks, never to
// completion, so the scheduler can round-robin fairly).
type Signal int

const (
	SignalNone Signal = iota
	SignalExit
	SignalBlock
	SignalYield
	SignalSpawn
	SignalSend
	SignalReceive
	SignalLoadModule
)

func (s Signal) String() string {
	switch s {
	case SignalExit:
		return "exit"
	case SignalBlock:
		return "block"
	case SignalYield:
		return "yield"
	case SignalSpawn:
		return "spawn"
	case SignalSend:
		return "send"
	case SignalReceive:
		return "receive"
	case SignalLoadModule:
		return "load-module"
	default:
		return "none"
	}
}

// SendRequest is a pending Send opcode's payload, left for the host process
// to deliver to the addressed pid's mailbox.
type SendRequest struct {
	Pid     mania.Object
	Message mania.Object
}

// Mailbox is implemented by the host process: Receive dequeues from it, or
// the VM signals SignalReceive to ask the host to suspend this process
// until a message arrives.
type Mailbox interface {
	Dequeue() (mania.Object, bool)
}

// Loader resolves LoadModule. ok is false when name is only registered, not
// yet loaded — the VM then signals SignalLoadModule so the host can suspend
// this process until the module finishes loading (spec.md §4.7).
type Loader interface {
	LoadModule(name string) (module *mania.Module, ok bool, err error)
}

// Registry receives modules published by BuildModule.
type Registry interface {
	RegisterModule(name string, m *mania.Module)
}

// VM drives a single process's frame stack through compiled bytecode. It
// holds no knowledge of scheduling itself — Run executes a bounded number of
// instructions and returns a Signal describing what the host (package
// process) should do next.
type VM struct {
	top *Frame

	Mailbox  Mailbox
	Loader   Loader
	Registry Registry

	SpawnCode  mania.Code  // valid when Run returns SignalSpawn
	SendReq    SendRequest // valid when Run returns SignalSend
	WantsModule string     // module name pending load, valid on SignalLoadModule

	Result mania.Object // the process's final value, set once Run returns SignalExit
}

// New creates a VM whose first frame runs code in scope.
func New(code mania.Code, scope *mania.Scope) *VM {
	return &VM{top: NewFrame(code, scope, nil)}
}

// escapeError implements a one-shot escape continuation (BuildContinuation):
// throwing it unwinds directly to the frame that captured it.
type escapeError struct {
	frame *Frame
	value mania.Object
}

func (e escapeError) Error() string { return "continuation escape" }

// Run executes up to ticks instructions, stopping early on any signal that
// needs the host's attention. Exhausting the tick budget without otherwise
// stopping is reported as SignalYield (spec.md §5's cooperative tick model).
func (vm *VM) Run(ticks int) (Signal, error) {
	for i := 0; i < ticks; i++ {
		if vm.top == nil {
			return SignalExit, nil
		}
		if vm.top.Done() {
			val, err := vm.top.Pop()
			if err != nil {
				val = nil
			}
			vm.restoreFrame(val)
			continue
		}
		sig, err := vm.step()
		if err != nil {
			if esc, ok := err.(escapeError); ok {
				vm.top = esc.frame.Parent
				if vm.top != nil {
					vm.top.Push(esc.value)
				} else {
					vm.Result = esc.value
				}
				continue
			}
			return SignalNone, err
		}
		if sig != SignalNone {
			return sig, nil
		}
	}
	return SignalYield, nil
}

// PushValue pushes v onto the currently running frame's stack. The host
// process uses this after handling SignalSpawn to deliver the newly assigned
// pid back to the code that spawned it (the Spawn opcode itself only hands
// control to the host; it cannot know the pid).
func (vm *VM) PushValue(v mania.Object) {
	if vm.top != nil {
		vm.top.Push(v)
	}
}

// restoreFrame pops the finishing frame and, if it produced a value and a
// parent exists, pushes it there. With no parent, the VM's run is over.
func (vm *VM) restoreFrame(value mania.Object) {
	parent := vm.top.Parent
	if parent != nil {
		if value != nil {
			parent.Push(value)
		}
		vm.top = parent
		return
	}
	vm.top = nil
	if value != nil {
		vm.Result = value
	}
}

// pushFrame installs newFrame as the running frame, applying the tail-call
// frame-fusion rule (spec.md §4.3/§9's "single non-obvious invariant that
// enables usable recursion"): every ancestor that would do nothing but
// relay control (and, via Return, a value) further up once resumed is
// dropped from the chain, not just the immediate parent. Without walking
// the whole collapsible prefix, a tail loop's own activation frame — whose
// sole pending instruction is Return — never gets elided merely because it
// is a grandparent rather than the direct parent at the moment a new frame
// is pushed, and the chain grows by one frame per iteration.
func (vm *VM) pushFrame(newFrame *Frame) {
	prev := vm.top
	newFrame.Parent = prev
	if prev == nil {
		vm.top = newFrame
		return
	}

	newTail := lastOp(newFrame.Code)
	rewritten := false
	for {
		ancestor := newFrame.Parent
		if ancestor == nil {
			break
		}
		ancestorOp, ancestorHasNext := peekOp(ancestor)
		ancestorAtTailPosition := !ancestorHasNext || ancestorOp == bytecode.Return || ancestorOp == bytecode.Restore
		if !ancestorAtTailPosition {
			break
		}
		if ancestorHasNext && ancestorOp == bytecode.Return && newTail == bytecode.Restore && !rewritten {
			// ancestor will pop a value once resumed, but newFrame's tail
			// forwards none: rewrite so it forwards one instead.
			rewriteRestoreToReturn(newFrame.Code)
			newTail = bytecode.Return
			rewritten = true
		}
		if ancestorHasNext && newTail != bytecode.Return && newTail != bytecode.Restore {
			break
		}
		newFrame.Parent = ancestor.Parent
	}
	vm.top = newFrame
}

// rewriteRestoreToReturn replaces every Restore opcode byte in code's
// instruction window with Return. Both are zero-operand, one-byte
// instructions, so the rewrite is an in-place byte substitution.
func rewriteRestoreToReturn(code mania.Code) {
	module := code.Module()
	if module == nil {
		return
	}
	for pos := code.EntryPoint; pos < code.End(); {
		instr, next, err := bytecode.Decode(module.Instructions, pos)
		if err != nil {
			break
		}
		if instr.Op == bytecode.Restore {
			module.Instructions[pos] = byte(bytecode.Return)
		}
		pos = next
	}
}

// peekOp decodes the instruction at frame's current position without
// consuming it (the instruction the frame will execute once control returns
// to it), reporting false if the frame has already run off the end of its
// code window.
func peekOp(frame *Frame) (bytecode.Op, bool) {
	if frame.Done() {
		return 0, false
	}
	module := frame.Code.Module()
	if module == nil {
		return 0, false
	}
	instr, _, err := bytecode.Decode(module.Instructions, frame.Position)
	if err != nil {
		return 0, false
	}
	return instr.Op, true
}

// lastOp decodes code's final instruction.
func lastOp(code mania.Code) bytecode.Op {
	module := code.Module()
	if module == nil {
		return bytecode.Nop
	}
	op := bytecode.Nop
	for pos := code.EntryPoint; pos < code.End(); {
		instr, next, err := bytecode.Decode(module.Instructions, pos)
		if err != nil {
			break
		}
		op = instr.Op
		pos = next
	}
	return op
}

// step decodes and executes a single instruction of the running frame.
func (vm *VM) step() (Signal, error) {
	frame := vm.top
	module := frame.Code.Module()
	if module == nil {
		return SignalNone, fmt.Errorf("vm: frame's module has been collected")
	}
	instrStart := frame.Position
	instr, next, err := bytecode.Decode(module.Instructions, instrStart)
	if err != nil {
		return SignalNone, err
	}
	frame.Position = next
	return vm.execute(frame, module, instr, instrStart)
}
