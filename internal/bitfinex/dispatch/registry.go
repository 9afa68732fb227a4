package dispatch

import (
	"reflect"
	"sync"
)

// Callback consumes one event for one symbol.
type Callback[S comparable, E any] func(symbol S, event E)

// Registry maps symbols to their registered callbacks and fans incoming
// events out on a shared worker pool. One instance exists per event
// category (ticker, candlestick, executed trade).
type Registry[S comparable, E any] struct {
	mu        sync.Mutex
	callbacks map[S][]entry[S, E]
	pool      *Pool
}

// Callbacks are matched for removal by their code pointer. Entries keep the
// pointer alongside the func because func values are not comparable.
type entry[S comparable, E any] struct {
	fn  Callback[S, E]
	ptr uintptr
}

func NewRegistry[S comparable, E any](pool *Pool) *Registry[S, E] {
	return &Registry[S, E]{
		callbacks: make(map[S][]entry[S, E]),
		pool:      pool,
	}
}

// Register adds a callback for the symbol. Duplicate registrations are kept
// and fire independently; deduplication is the caller's concern.
func (r *Registry[S, E]) Register(symbol S, cb Callback[S, E]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callbacks[symbol] = append(r.callbacks[symbol], entry[S, E]{
		fn:  cb,
		ptr: reflect.ValueOf(cb).Pointer(),
	})
}

// Remove drops one registration matching the callback and reports whether a
// removal occurred. Removing from a symbol with no registrations is a no-op.
func (r *Registry[S, E]) Remove(symbol S, cb Callback[S, E]) bool {
	ptr := reflect.ValueOf(cb).Pointer()

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.callbacks[symbol]
	for i := range entries {
		if entries[i].ptr != ptr {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(r.callbacks, symbol)
		} else {
			r.callbacks[symbol] = entries
		}
		return true
	}
	return false
}

// DispatchOne schedules cb(symbol, event) for every callback registered
// under the symbol at the time of the call. The registration set is
// snapshotted under the lock, so a callback added concurrently may or may
// not see this event but is never invoked twice for it.
func (r *Registry[S, E]) DispatchOne(symbol S, event E) {
	r.mu.Lock()
	registered := r.callbacks[symbol]
	snapshot := make([]entry[S, E], len(registered))
	copy(snapshot, registered)
	r.mu.Unlock()

	for _, e := range snapshot {
		fn := e.fn
		r.pool.Submit(func() {
			fn(symbol, event)
		})
	}
}

// DispatchBatch dispatches the events in submission order. With more than
// one pool worker, completion order across the batch is not guaranteed.
func (r *Registry[S, E]) DispatchBatch(symbol S, events []E) {
	for _, event := range events {
		r.DispatchOne(symbol, event)
	}
}

// Size returns the number of callbacks registered for the symbol.
func (r *Registry[S, E]) Size(symbol S) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.callbacks[symbol])
}
