// Package process implements the cooperative scheduling layer above the VM:
// Process, Scheduler and Node (spec.md §4.7, §5).
package process

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"asc.im/mania"
	"asc.im/mania/vm"
)

// Status is a Process's scheduling state.
type Status int

const (
	Running Status = iota
	Exiting
	WaitingForMessage
	WaitingForModule
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Exiting:
		return "exiting"
	case WaitingForMessage:
		return "waiting-for-message"
	case WaitingForModule:
		return "waiting-for-module"
	default:
		return "unknown"
	}
}

// Pid identifies a Process across the Node.
type Pid uint64

func (p Pid) IsNil() bool  { return false }
func (p Pid) IsAtom() bool { return true }
func (p Pid) IsEqual(other mania.Object) bool {
	op, ok := other.(Pid)
	return ok && p == op
}
func (p Pid) String() string { return fmt.Sprintf("#<pid:%d>", uint64(p)) }

// Process owns a VM, its scheduling status, a message mailbox, a priority
// counter (lower runs sooner) and a deferred-kill flag. Status and priority
// are guarded by statusMu, the mailbox by mailboxMu, and the kill flag by
// its own killMu so Kill never blocks behind a long-running turn.
type Process struct {
	Pid   Pid
	Name  string
	VM    *vm.VM
	node  *Node

	statusMu sync.Mutex
	status   Status
	priority int

	mailboxMu sync.Mutex
	mailbox   []mania.Object

	killMu      sync.Mutex
	pendingKill bool

	awaitedModule string
}

func newProcess(pid Pid, name string, code mania.Code, scope *mania.Scope, node *Node) *Process {
	p := &Process{Pid: pid, Name: name, node: node, status: Running}
	machine := vm.New(code, scope)
	machine.Mailbox = p
	machine.Loader = node
	machine.Registry = node
	p.VM = machine
	return p
}

// Status reports the process's current scheduling state.
func (p *Process) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

// Priority reports the process's current priority (lower runs sooner).
func (p *Process) Priority() int {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.priority
}

// Kill requests termination. If the status lock is free it is applied
// immediately; otherwise it is recorded and consumed at the process's next
// run (spec.md §5: "kill(pid) sets EXITING at the next safe point").
func (p *Process) Kill() {
	if p.statusMu.TryLock() {
		p.status = Exiting
		p.statusMu.Unlock()
		return
	}
	p.killMu.Lock()
	p.pendingKill = true
	p.killMu.Unlock()
}

// Enqueue delivers msg to the process's mailbox and, if it was waiting for
// one, promotes it back to Running.
func (p *Process) Enqueue(msg mania.Object) {
	p.mailboxMu.Lock()
	p.mailbox = append(p.mailbox, msg)
	p.mailboxMu.Unlock()

	p.statusMu.Lock()
	if p.status == WaitingForMessage {
		p.status = Running
	}
	p.statusMu.Unlock()
}

// Dequeue implements vm.Mailbox.
func (p *Process) Dequeue() (mania.Object, bool) {
	p.mailboxMu.Lock()
	defer p.mailboxMu.Unlock()
	if len(p.mailbox) == 0 {
		return nil, false
	}
	msg := p.mailbox[0]
	p.mailbox = p.mailbox[1:]
	return msg, true
}

// notifyModuleLoaded promotes a WaitingForModule process whose awaited
// module just finished compiling.
func (p *Process) notifyModuleLoaded(name string) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	if p.status == WaitingForModule && p.awaitedModule == name {
		p.status = Running
	}
}

// run holds the status lock, runs the VM for up to ticks instructions, and
// reacts to whatever signal it returns. It promotes a pending kill to
// Exiting once the turn is done, per spec.md's deferred-kill semantics.
func (p *Process) run(ticks int) {
	p.statusMu.Lock()
	defer func() {
		p.killMu.Lock()
		if p.pendingKill {
			p.status = Exiting
			p.pendingKill = false
		}
		p.statusMu.Unlock()
		p.killMu.Unlock()
	}()

	sig, err := p.VM.Run(ticks)
	p.priority += ticks
	if err != nil {
		log.WithFields(log.Fields{"pid": p.Pid, "name": p.Name, "error": err}).
			Error("unhandled instruction-level exception")
		p.status = Exiting
		return
	}

	switch sig {
	case vm.SignalExit:
		p.priority = 0
		p.status = Exiting
		log.WithFields(log.Fields{"pid": p.Pid, "name": p.Name}).Info("process exit")
	case vm.SignalBlock, vm.SignalYield, vm.SignalNone:
		p.status = Running
	case vm.SignalReceive:
		p.status = WaitingForMessage
	case vm.SignalLoadModule:
		p.awaitedModule = p.VM.WantsModule
		p.status = WaitingForModule
		log.WithFields(log.Fields{"pid": p.Pid, "module": p.awaitedModule}).Info("deferred module load")
	case vm.SignalSpawn:
		child := p.node.spawnProcess("", p.VM.SpawnCode)
		p.VM.PushValue(child.Pid)
		p.status = Running
	case vm.SignalSend:
		req := p.VM.SendReq
		p.node.deliver(req.Pid, req.Message)
		p.status = Running
	}
}
