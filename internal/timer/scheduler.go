// Package timer provides the time primitives that drive entity behavior:
// a cancellable event scheduler stepped by the world tick loop, a keyed
// wrapper for unbounded timer families, and the gated ticker that converts
// irregular frame deltas into fixed-cadence batched updates.
//
// None of the types in this package read the system clock. Time is an opaque
// monotonic duration supplied by the caller, which keeps every consumer
// deterministic under test.
package timer

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"
)

// Stop is the sentinel returned by a Callback to indicate the event must not
// be rescheduled. Any non-positive delay is treated the same way.
const Stop time.Duration = 0

// EventID identifies a scheduled event. IDs are monotonically increasing and
// never reused; an event keeps its ID across repeated firings.
type EventID uint64

// Callback is invoked when an event comes due. The returned duration is the
// delay until the next firing, measured from the firing time. Returning Stop
// removes the event.
type Callback func() time.Duration

// event is a table entry. index is the position in the firing heap, -1 once
// the event has been popped or cancelled.
type event struct {
	id    EventID
	due   time.Duration
	fn    Callback
	index int
}

// Scheduler is a table of cancellable, optionally repeating delayed events.
// One Scheduler instance is owned by the world context and passed by
// reference to every consumer; independent worlds (and tests) run their own.
//
// Schedule and Cancel are safe to call from any goroutine. Step must be
// called from a single goroutine (the world tick loop). Callbacks execute
// outside the internal lock, so a callback may itself call Schedule or
// Cancel without deadlocking.
//
// Cancellation is remove-before-fire only: once Step has collected an event
// for firing, the callback runs to completion and Cancel reports false.
type Scheduler struct {
	mu     sync.Mutex
	nextID EventID
	now    time.Duration
	events map[EventID]*event
	queue  eventQueue
}

// NewScheduler creates an empty scheduler whose clock starts at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{
		events: make(map[EventID]*event),
	}
}

// Schedule registers fn to fire after delay, relative to the scheduler's
// current clock, and returns the event's ID. A non-positive delay fires on
// the next Step.
func (s *Scheduler) Schedule(fn Callback, delay time.Duration) EventID {
	if fn == nil {
		panic("timer: Schedule with nil callback")
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ev := &event{
		id:  s.nextID,
		due: s.now + delay,
		fn:  fn,
	}
	s.events[ev.id] = ev
	heap.Push(&s.queue, ev)
	return ev.id
}

// Cancel removes the event with the given ID before it fires. Returns true
// if the event was pending, false if the ID is unknown, already fired, or
// currently firing. Cancelling an unknown ID is a no-op, not an error.
func (s *Scheduler) Cancel(id EventID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return false
	}
	delete(s.events, id)
	heap.Remove(&s.queue, ev.index)
	return true
}

// Step advances the scheduler clock to now and fires every event whose due
// time has elapsed, in due-time order with ties broken by ascending ID.
// Events scheduled while Step runs wait for the next Step even if already
// due, which keeps a zero-delay reschedule from looping forever.
//
// A callback that panics is logged and treated as having returned Stop; the
// remaining events of the batch still fire.
func (s *Scheduler) Step(now time.Duration) {
	s.mu.Lock()
	if now > s.now {
		s.now = now
	}

	var due []*event
	for s.queue.Len() > 0 && s.queue[0].due <= s.now {
		ev := heap.Pop(&s.queue).(*event)
		delete(s.events, ev.id)
		due = append(due, ev)
	}
	s.mu.Unlock()

	for _, ev := range due {
		next := s.fire(ev)
		if next <= Stop {
			continue
		}

		s.mu.Lock()
		ev.due = s.now + next
		s.events[ev.id] = ev
		heap.Push(&s.queue, ev)
		s.mu.Unlock()
	}
}

// fire runs one callback with panic isolation.
func (s *Scheduler) fire(ev *event) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled event panicked",
				"eventID", ev.id,
				"panic", r)
			next = Stop
		}
	}()
	return ev.fn()
}

// Now returns the scheduler's clock as of the last Step.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// eventQueue is a min-heap ordered by due time, then by ID for deterministic
// same-tick ordering. Implements container/heap.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].id < q[j].id
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}
