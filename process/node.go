package process

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"asc.im/mania"
	"asc.im/mania/bytecode"
)

// Config is Node's explicit constructor configuration (spec.md §6.3: "The
// Node takes a tick limit, a scheduler count, and a list of filesystem
// paths"). There is no config-file story — a plain struct, matching the
// teacher's own constructor-argument style.
type Config struct {
	TickLimit  int
	Schedulers int
	Paths      []string
}

// Node owns the scheduler pool plus the module registries and pid counter
// shared across the whole running system (spec.md §4.7).
type Node struct {
	cfg        Config
	bootScope  *mania.Scope
	schedulers []*Scheduler

	nextPid atomic.Uint64

	loadMu     sync.Mutex
	registered map[string][]byte
	loaded     map[string]*mania.Module
}

// NewNode creates a Node with cfg.Schedulers schedulers (at least one), all
// user code running against a fresh scope parented at bootScope.
func NewNode(cfg Config, bootScope *mania.Scope) *Node {
	if cfg.Schedulers < 1 {
		cfg.Schedulers = 1
	}
	n := &Node{
		cfg:        cfg,
		bootScope:  bootScope,
		registered: map[string][]byte{},
		loaded:     map[string]*mania.Module{},
	}
	for i := 0; i < cfg.Schedulers; i++ {
		n.schedulers = append(n.schedulers, newScheduler(i))
	}
	return n
}

// LoadPaths walks cfg.Paths recursively, registering every ".bam" file
// found by the module name embedded in its header (spec.md §6.3). Discovery
// itself is eager; decoding a registered module is deferred to its first
// LoadModule call, per §4.7.
func (n *Node) LoadPaths() error {
	for _, root := range n.cfg.Paths {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".bam") {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			name, err := bytecode.PeekModuleName(data)
			if err != nil {
				return err
			}
			n.loadMu.Lock()
			n.registered[name] = data
			n.loadMu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Spawn starts a process running code's entire window in a fresh scope
// parented at the boot scope (the entry point for modules loaded from
// disk, and the public face of what the Spawn opcode does internally).
func (n *Node) Spawn(name string, code mania.Code) *Process {
	return n.spawnProcess(name, code)
}

func (n *Node) spawnProcess(name string, code mania.Code) *Process {
	pid := Pid(n.nextPid.Add(1))
	scope := mania.NewScope(n.bootScope)
	sched := n.leastLoadedScheduler()
	p := newProcess(pid, name, code, scope, n)
	sched.enqueue(p)
	log.WithFields(log.Fields{"pid": pid, "name": name}).Info("process start")
	return p
}

// leastLoadedScheduler implements spec.md §4.7's "spawn_process picks the
// scheduler with the fewest registered processes".
func (n *Node) leastLoadedScheduler() *Scheduler {
	best := n.schedulers[0]
	bestCount := best.registeredCount()
	for _, s := range n.schedulers[1:] {
		if c := s.registeredCount(); c < bestCount {
			best, bestCount = s, c
		}
	}
	return best
}

// LoadModule implements vm.Loader. A loaded module returns immediately; a
// registered-but-undecoded one is decoded off the calling process's turn (a
// deferred load, per spec.md §4.7) and the caller is told to suspend; an
// unknown name is an ImportError.
func (n *Node) LoadModule(name string) (*mania.Module, bool, error) {
	n.loadMu.Lock()
	if m, ok := n.loaded[name]; ok {
		n.loadMu.Unlock()
		return m, true, nil
	}
	data, ok := n.registered[name]
	if !ok {
		n.loadMu.Unlock()
		return nil, false, mania.ImportError{Name: name}
	}
	delete(n.registered, name)
	n.loadMu.Unlock()

	go n.decodeAndRegister(name, data)
	return nil, false, nil
}

func (n *Node) decodeAndRegister(name string, data []byte) {
	m, err := bytecode.LoadModule(data)
	if err != nil {
		log.WithFields(log.Fields{"module": name, "error": err}).Error("module decode failed")
		return
	}
	n.RegisterModule(name, m)
}

// RegisterModule implements vm.Registry: installs m as loaded under name and
// wakes every process across every scheduler waiting on it (covers both
// deferred LoadModule decoding and a running process's own define-module).
func (n *Node) RegisterModule(name string, m *mania.Module) {
	n.loadMu.Lock()
	n.loaded[name] = m
	n.loadMu.Unlock()

	for _, s := range n.schedulers {
		s.notifyModuleLoaded(name)
	}
}

// deliver routes a Send opcode's payload to the addressed pid's mailbox,
// silently dropping it if no such process is currently registered (a dead
// pid is not an error at the VM level; spec.md makes no delivery guarantee
// beyond FIFO to a live queue).
func (n *Node) deliver(target mania.Object, msg mania.Object) {
	pid, ok := target.(Pid)
	if !ok {
		return
	}
	for _, s := range n.schedulers {
		if p, found := s.lookup(pid); found {
			p.Enqueue(msg)
			return
		}
	}
}

// Run drives every scheduler on its own goroutine (spec.md §4.7: "each
// scheduler executes on its own OS thread"), taking turns of cfg.TickLimit
// instructions each until every scheduler reports no live processes left.
func (n *Node) Run() {
	var wg sync.WaitGroup
	for _, s := range n.schedulers {
		wg.Add(1)
		go func(s *Scheduler) {
			defer wg.Done()
			for {
				s.turn(n.cfg.TickLimit)
				if s.idle() {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(s)
	}
	wg.Wait()
}
