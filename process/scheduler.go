package process

import (
	"sort"
	"sync"
)

// Scheduler owns one OS thread's worth of cooperative processes (spec.md
// §4.7/§5: "each scheduler executes on its own OS thread; processes within a
// scheduler are strictly single-threaded cooperative"). New processes queue
// under spawnMu until the next turn merges them in.
type Scheduler struct {
	id int

	spawnMu  sync.Mutex
	incoming []*Process

	mu        sync.Mutex
	processes []*Process
	registry  map[Pid]*Process
}

func newScheduler(id int) *Scheduler {
	return &Scheduler{id: id, registry: map[Pid]*Process{}}
}

// enqueue registers a freshly spawned process for inclusion on the next turn.
func (s *Scheduler) enqueue(p *Process) {
	s.spawnMu.Lock()
	s.incoming = append(s.incoming, p)
	s.spawnMu.Unlock()
}

// registeredCount is used by Node.spawnProcess to pick the least-loaded
// scheduler.
func (s *Scheduler) registeredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawnMu.Lock()
	defer s.spawnMu.Unlock()
	return len(s.processes) + len(s.incoming)
}

func (s *Scheduler) lookup(pid Pid) (*Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.registry[pid]
	return p, ok
}

// turn merges newly spawned processes, runs every Running one for ticks
// instructions, deregisters exited ones, then re-sorts by ascending
// priority so starved processes run sooner next turn. Waiting processes are
// not checked here; Process.Enqueue and notifyModuleLoaded set them back to
// Running.
func (s *Scheduler) turn(ticks int) {
	s.mu.Lock()
	s.spawnMu.Lock()
	for _, p := range s.incoming {
		s.processes = append(s.processes, p)
		s.registry[p.Pid] = p
	}
	s.incoming = nil
	s.spawnMu.Unlock()
	processes := append([]*Process(nil), s.processes...)
	s.mu.Unlock()

	var live []*Process
	for _, p := range processes {
		if p.Status() == Running {
			p.run(ticks)
		}
		if p.Status() == Exiting {
			continue
		}
		live = append(live, p)
	}

	sort.SliceStable(live, func(i, j int) bool { return live[i].Priority() < live[j].Priority() })

	s.mu.Lock()
	s.processes = live
	for pid := range s.registry {
		if _, ok := find(live, pid); !ok {
			delete(s.registry, pid)
		}
	}
	s.mu.Unlock()
}

// notifyModuleLoaded promotes any process (running or not yet merged in)
// waiting on name.
func (s *Scheduler) notifyModuleLoaded(name string) {
	s.mu.Lock()
	for _, p := range s.processes {
		p.notifyModuleLoaded(name)
	}
	s.mu.Unlock()

	s.spawnMu.Lock()
	for _, p := range s.incoming {
		p.notifyModuleLoaded(name)
	}
	s.spawnMu.Unlock()
}

// idle reports whether the scheduler currently has no processes at all,
// merged or pending.
func (s *Scheduler) idle() bool {
	s.mu.Lock()
	n := len(s.processes)
	s.mu.Unlock()
	s.spawnMu.Lock()
	n += len(s.incoming)
	s.spawnMu.Unlock()
	return n == 0
}

func find(processes []*Process, pid Pid) (*Process, bool) {
	for _, p := range processes {
		if p.Pid == pid {
			return p, true
		}
	}
	return nil, false
}
