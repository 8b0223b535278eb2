package timer

import (
	"sync"
	"time"
)

// KeyedScheduler maintains at most one live scheduled event per key on top
// of a shared Scheduler. Scheduling on an occupied key cancels the previous
// event first, so the single-event-per-key invariant holds without the
// caller tracking IDs. Statically known per-entity concerns are better
// served by a plain named EventID field; the keyed form exists for
// genuinely unbounded families, such as one expiry timer per invited group
// member.
//
// Safe for concurrent use.
type KeyedScheduler[K comparable] struct {
	mu      sync.Mutex
	s       *Scheduler
	entries map[K]*keyedEntry
}

// keyedEntry ties a registration to its key. The callback captures the entry
// pointer, not the event ID: the ID is only assigned after the event is
// already registered (and may already be firing on another goroutine), while
// the pointer is fixed before registration. release compares entry identity,
// so a stopping fire of a replaced registration never frees its successor.
type keyedEntry struct {
	id EventID
}

// NewKeyed creates a keyed view over s.
func NewKeyed[K comparable](s *Scheduler) *KeyedScheduler[K] {
	if s == nil {
		panic("timer: NewKeyed with nil scheduler")
	}
	return &KeyedScheduler[K]{
		s:       s,
		entries: make(map[K]*keyedEntry),
	}
}

// Schedule registers fn under key, replacing any pending event for that key.
// When the event stops (fires without rescheduling, or is cancelled), the
// key becomes free again.
func (ks *KeyedScheduler[K]) Schedule(key K, fn Callback, delay time.Duration) EventID {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if old, ok := ks.entries[key]; ok {
		ks.s.Cancel(old.id)
		delete(ks.entries, key)
	}

	e := &keyedEntry{}
	wrapped := func() time.Duration {
		next := fn()
		if next <= Stop {
			ks.release(key, e)
		}
		return next
	}
	e.id = ks.s.Schedule(wrapped, delay)
	ks.entries[key] = e
	return e.id
}

// Cancel removes the pending event for key. Returns false if the key has no
// live event.
func (ks *KeyedScheduler[K]) Cancel(key K) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	e, ok := ks.entries[key]
	if !ok {
		return false
	}
	delete(ks.entries, key)
	return ks.s.Cancel(e.id)
}

// Active reports whether key currently has a live event.
func (ks *KeyedScheduler[K]) Active(key K) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	_, ok := ks.entries[key]
	return ok
}

// Len returns the number of keys with a live event.
func (ks *KeyedScheduler[K]) Len() int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return len(ks.entries)
}

// release clears the key after a stopping fire, unless the key has already
// been rescheduled under a newer registration. A zero-delay event can fire
// while Schedule still holds the lock; release then blocks until the entry
// is in the map, so the key is always freed.
func (ks *KeyedScheduler[K]) release(key K, e *keyedEntry) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if cur, ok := ks.entries[key]; ok && cur == e {
		delete(ks.entries, key)
	}
}
