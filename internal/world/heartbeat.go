package world

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/mudgo/internal/timer"
)

// Heartbeat is the world's single logical tick thread. Each iteration it
// measures the real elapsed time, advances the monotonic world clock, steps
// the shared event scheduler and then every registered character.
//
// Tick drives one iteration synchronously; Run wraps it in a time.Ticker
// loop. Tests call Tick directly with synthetic elapsed values and never
// touch the wall clock.
type Heartbeat struct {
	world     *World
	scheduler *timer.Scheduler
	interval  time.Duration

	mu    sync.Mutex
	clock time.Duration
}

// NewHeartbeat creates a heartbeat for the given world. The scheduler is
// owned by the heartbeat's tick loop from here on.
func NewHeartbeat(world *World, scheduler *timer.Scheduler, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		panic("world: heartbeat interval must be positive")
	}
	return &Heartbeat{
		world:     world,
		scheduler: scheduler,
		interval:  interval,
	}
}

// Scheduler returns the shared event scheduler driven by this heartbeat.
func (h *Heartbeat) Scheduler() *timer.Scheduler {
	return h.scheduler
}

// Clock returns the world clock as of the last tick.
func (h *Heartbeat) Clock() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

// Tick advances the world by elapsed: scheduler first, so countdowns land
// before the per-character tickers run, then every character.
func (h *Heartbeat) Tick(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	h.mu.Lock()
	h.clock += elapsed
	now := h.clock
	h.mu.Unlock()

	h.scheduler.Step(now)
	for _, c := range h.world.Snapshot() {
		c.OnTick(elapsed)
	}
}

// Run loops Tick at the configured interval until ctx is cancelled. The
// elapsed time fed into Tick is measured, not assumed, so a slow tick is
// caught up by the gated tickers instead of being lost.
func (h *Heartbeat) Run(ctx context.Context) error {
	slog.Info("heartbeat started", "interval", h.interval)
	defer slog.Info("heartbeat stopped")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			h.Tick(now.Sub(last))
			last = now
		}
	}
}
