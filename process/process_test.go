package process

import (
	"io"
	"testing"
	"time"

	"asc.im/mania"
	"asc.im/mania/bytecode"
	"asc.im/mania/compiler"
	"asc.im/mania/vm"
)

func sym(s string) *mania.Symbol { return mania.MakeSymbol(s) }

func countdownModule(name string, limit int64) *mania.Module {
	// (let loop ((i 0) (acc 0)) (if (== i limit) acc (loop (+ i 1) (+ acc i))))
	bindings := mania.MakeList(
		mania.MakeList(sym("i"), mania.MakeInteger(0)),
		mania.MakeList(sym("acc"), mania.MakeInteger(0)),
	)
	body := mania.MakeList(sym("if"),
		mania.MakeList(sym("=="), sym("i"), mania.MakeInteger(limit)),
		sym("acc"),
		mania.MakeList(sym("loop"),
			mania.MakeList(sym("+"), sym("i"), mania.MakeInteger(1)),
			mania.MakeList(sym("+"), sym("acc"), sym("i"))))
	letExpr := mania.Cons(sym("let"), mania.Cons(sym("loop"), mania.Cons(bindings, mania.Cons(body, mania.Nil()))))
	return compiler.CompileModule(name, []mania.Object{letExpr})
}

// TestSchedulerFairness covers spec.md §8 property 8: two equal-priority
// processes both make progress within a bounded number of turns.
func TestSchedulerFairness(t *testing.T) {
	scope, err := vm.NewBootScope(io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	node := NewNode(Config{TickLimit: 64, Schedulers: 1}, scope)

	modA := countdownModule("a", 500)
	modB := countdownModule("b", 500)
	pa := node.Spawn("a", modA.EntryCode())
	pb := node.Spawn("b", modB.EntryCode())

	node.Run()

	var want mania.Number = mania.MakeInteger(0)
	for i := int64(0); i < 500; i++ {
		want = mania.Add(want, mania.MakeInteger(i))
	}
	if pa.VM.Result == nil || !pa.VM.Result.IsEqual(want) {
		t.Errorf("process a: got %v, want %v", pa.VM.Result, want)
	}
	if pb.VM.Result == nil || !pb.VM.Result.IsEqual(want) {
		t.Errorf("process b: got %v, want %v", pb.VM.Result, want)
	}
}

// TestKillTakesEffectBeforeNextTick covers the second half of property 8:
// a kill issued between turns takes effect before the process's next tick
// (the status lock is free, so Kill sets Exiting at once), and the process
// never resumes again.
func TestKillTakesEffectBeforeNextTick(t *testing.T) {
	scope, err := vm.NewBootScope(io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	node := NewNode(Config{TickLimit: 4, Schedulers: 1}, scope)
	mod := countdownModule("loop", 1<<30) // effectively never finishes on its own
	p := node.Spawn("loop", mod.EntryCode())

	s := node.schedulers[0]
	s.turn(node.cfg.TickLimit)
	if p.Status() != Running {
		t.Fatalf("expected process still running after one turn, got %v", p.Status())
	}
	p.Kill()
	s.turn(node.cfg.TickLimit)
	if p.Status() != Exiting {
		t.Fatalf("expected process exiting after kill, got %v", p.Status())
	}
}

// TestDeferredModuleLoad covers spec.md §8 property 9: a module that is
// only registered (not yet decoded) causes the first LoadModule call to
// report "not ready"; once decoding finishes, a later call sees it loaded.
func TestDeferredModuleLoad(t *testing.T) {
	scope, err := vm.NewBootScope(io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	node := NewNode(Config{TickLimit: 64, Schedulers: 1}, scope)

	exports := mania.MakeList(sym("value"))
	defineVal := mania.MakeList(sym("define"), sym("value"), mania.MakeInteger(42))
	defineModule := mania.Cons(sym("define-module"), mania.Cons(sym("answer"), mania.Cons(exports, mania.Cons(defineVal, mania.Nil()))))
	source := compiler.CompileModule("answer", []mania.Object{defineModule})
	data, err := bytecode.DumpModule(source)
	if err != nil {
		t.Fatal(err)
	}

	node.loadMu.Lock()
	node.registered["answer"] = data
	node.loadMu.Unlock()

	_, ok, err := node.LoadModule("answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected first LoadModule call to defer, not resolve immediately")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok, _ := node.LoadModule("answer"); ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("module never finished loading")
}
