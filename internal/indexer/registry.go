package indexer

import (
	"errors"
	"sync/atomic"
)

// ErrAlreadyRunning is returned when a sync run is requested while another
// run holds the registry. The request is rejected before any state changes.
var ErrAlreadyRunning = errors.New("a sync run is already in progress")

// Registry enforces the single-active-run invariant with a compare-and-swap
// on the run token, replacing ambient global "is running" state.
type Registry struct {
	counter atomic.Uint64
	active  atomic.Uint64 // 0 means idle
}

// Acquire claims the registry and returns a run token, or ErrAlreadyRunning.
func (r *Registry) Acquire() (uint64, error) {
	token := r.counter.Add(1)
	if !r.active.CompareAndSwap(0, token) {
		return 0, ErrAlreadyRunning
	}
	return token, nil
}

// Release frees the registry if the token still holds it.
func (r *Registry) Release(token uint64) {
	r.active.CompareAndSwap(token, 0)
}

// Active reports whether a run currently holds the registry.
func (r *Registry) Active() bool {
	return r.active.Load() != 0
}
