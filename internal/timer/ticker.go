package timer

import "time"

// UpdateFunc advances some piece of state by processed time. The effect must
// be linear in processed: one call with 3×interval is observationally
// identical to three calls with 1×interval. That contract is what allows the
// ticker to batch backlogged intervals into a single call.
type UpdateFunc func(processed time.Duration)

// GatedTicker turns irregular per-tick elapsed deltas into fixed-cadence
// updates. Elapsed time accumulates until at least one full interval is
// buffered, then the update function receives the whole backlog as one
// batched call and the sub-interval remainder is retained. An optional
// one-shot initial delay runs before the steady cadence, which lets a
// concern start reacting on its own schedule (first regen pulse after
// sitting down, grace period after knockout).
//
// A GatedTicker is driven synchronously from a single goroutine, performs no
// allocation and never blocks. It is not safe for concurrent use.
type GatedTicker struct {
	interval time.Duration
	update   UpdateFunc

	acc time.Duration

	awaitingInitial bool
	initialTarget   time.Duration
	initialAcc      time.Duration
}

// NewGatedTicker creates a ticker in steady state with the given cadence.
// Panics if interval is not positive or update is nil.
func NewGatedTicker(interval time.Duration, update UpdateFunc) *GatedTicker {
	if interval <= 0 {
		panic("timer: gated ticker interval must be positive")
	}
	if update == nil {
		panic("timer: gated ticker update must not be nil")
	}
	return &GatedTicker{
		interval: interval,
		update:   update,
	}
}

// Step feeds elapsed time into the ticker.
//
// While an initial delay is armed, elapsed accumulates toward it; the moment
// the target is reached the update function is invoked exactly once with
// processed equal to the full initial delay, any overshoot carries into the
// steady accumulator, and the ticker enters steady state. In steady state
// the update fires once with processed = k×interval whenever k≥1 whole
// intervals are buffered, keeping the remainder.
func (t *GatedTicker) Step(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	if t.awaitingInitial {
		t.initialAcc += elapsed
		if t.initialAcc < t.initialTarget {
			return
		}
		overshoot := t.initialAcc - t.initialTarget
		t.awaitingInitial = false
		t.initialAcc = 0
		t.update(t.initialTarget)
		if overshoot == 0 {
			return
		}
		elapsed = overshoot
	}

	t.acc += elapsed
	if t.acc < t.interval {
		return
	}
	processed := t.acc - t.acc%t.interval
	t.acc -= processed
	t.update(processed)
}

// ArmInitialDelay (re)arms the one-shot initial phase with the given target
// and clears accumulated progress toward it. A non-positive delay disarms
// the phase, returning the ticker straight to steady cadence.
func (t *GatedTicker) ArmInitialDelay(delay time.Duration) {
	t.initialAcc = 0
	if delay <= 0 {
		t.awaitingInitial = false
		t.initialTarget = 0
		return
	}
	t.awaitingInitial = true
	t.initialTarget = delay
}

// Reset discards buffered backlog in both phases without firing the update.
// Progress toward an armed initial delay restarts from zero.
func (t *GatedTicker) Reset() {
	t.acc = 0
	t.initialAcc = 0
}

// Interval returns the steady-state cadence.
func (t *GatedTicker) Interval() time.Duration {
	return t.interval
}

// AwaitingInitialDelay reports whether the one-shot initial phase is armed
// and not yet complete.
func (t *GatedTicker) AwaitingInitialDelay() bool {
	return t.awaitingInitial
}
