package engine

import (
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// handle tracks one live engine process.
type handle struct {
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time

	// stopRequested marks the run as externally cancelled. Once set, the
	// stop path owns the terminal status and the registry entry.
	stopRequested atomic.Bool

	// done closes once the process has been reaped.
	done chan struct{}
}

func (h *handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// awaitExit waits up to d for the process to be reaped.
func (h *handle) awaitExit(d time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(d):
		return false
	}
}

// registry is the supervisor-owned table of live runs, keyed by use case id.
type registry struct {
	mu   sync.Mutex
	runs map[string]*handle
}

func newRegistry() *registry {
	return &registry{runs: make(map[string]*handle)}
}

// add claims the id for h. It fails when a run is already registered.
func (r *registry) add(id string, h *handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; ok {
		return false
	}
	r.runs[id] = h
	return true
}

func (r *registry) get(id string) (*handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.runs[id]
	return h, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
}

// snapshot copies the current table for iteration without the lock held.
func (r *registry) snapshot() map[string]*handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*handle, len(r.runs))
	for id, h := range r.runs {
		out[id] = h
	}
	return out
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
