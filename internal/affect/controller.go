package affect

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/udisondev/mudgo/internal/stat"
)

// TryConsumeFunc attempts to deduct amount from the resource backing affect
// upkeep (SP in practice). Returns false when the resource is insufficient;
// the affect then lapses immediately.
type TryConsumeFunc func(amount int32) bool

// NotifyFunc observes one affect entering or leaving the active list. The
// entity layer uses the pair to apply and strip stat modifiers and to queue
// client sync.
type NotifyFunc func(a *Affect)

// Controller is the active affect list of one entity.
//
// Mutation happens on the world tick goroutine, but snapshots may be read
// from other contexts (diagnostics, formatting), so the controller is
// internally locked and Active returns value copies rather than live
// pointers. Notification callbacks fire while the lock is held and must not
// re-enter the controller.
type Controller struct {
	mu         sync.Mutex
	active     []*Affect
	tryConsume TryConsumeFunc
	onAdded    NotifyFunc
	onRemoved  NotifyFunc

	flags      Flag
	flagsValid bool
}

// NewController creates an empty controller. tryConsume backs upkeep during
// Decay and must not be nil; the notification callbacks may be.
func NewController(tryConsume TryConsumeFunc, onAdded, onRemoved NotifyFunc) *Controller {
	if tryConsume == nil {
		panic("affect: NewController with nil TryConsume")
	}
	return &Controller{
		tryConsume: tryConsume,
		onAdded:    onAdded,
		onRemoved:  onRemoved,
	}
}

// Upsert installs a, replacing or refreshing any affect with the same
// (kind, type, point) identity:
//
//   - identical immutable payload: the existing entry's remaining duration
//     and cost accumulator are overwritten in place and NO notifications
//     fire, so re-applying the same buff never flickers;
//   - payload differs: the existing entry is removed and a added, firing
//     one removed and one added notification;
//   - no identity match: a is added with one added notification.
func (c *Controller) Upsert(a *Affect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cur := range c.active {
		if !cur.SameIdentity(a) {
			continue
		}
		if cur.SamePayload(a) {
			cur.Remaining = a.Remaining
			cur.costAcc = a.costAcc
			c.flagsValid = false
			return
		}
		c.active[i] = a
		c.flagsValid = false
		c.notifyRemoved(cur)
		c.notifyAdded(a)
		return
	}

	c.active = append(c.active, a)
	c.flagsValid = false
	c.notifyAdded(a)
}

// Remove drops the given affects by instance identity, firing a removed
// notification for each one that was present.
func (c *Controller) Remove(affects ...*Affect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeMatching(func(cur *Affect) bool {
		for _, a := range affects {
			if cur == a {
				return true
			}
		}
		return false
	})
}

// RemoveByType drops the affect with the exact (kind, type, point) identity.
// Returns whether one was present.
func (c *Controller) RemoveByType(kind Kind, typ int32, point stat.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.active)
	c.removeMatching(func(cur *Affect) bool {
		return cur.Kind == kind && cur.Type == typ && cur.Point == point
	})
	return len(c.active) != before
}

// RemoveAllOfType drops every affect with the given kind and type tag,
// regardless of target point.
func (c *Controller) RemoveAllOfType(kind Kind, typ int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeMatching(func(cur *Affect) bool {
		return cur.Kind == kind && cur.Type == typ
	})
}

// Clear removes every active affect. With keepDeathPersistent set, affects
// flagged to survive death stay (the death sweep path).
func (c *Controller) Clear(keepDeathPersistent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeMatching(func(cur *Affect) bool {
		return !(keepDeathPersistent && cur.KeepOnDeath)
	})
}

// Decay advances every active affect by elapsed: finite remaining durations
// shrink (clamped at zero), upkeep accrues and is drained through
// TryConsume. Affects that ran out of time or failed upkeep are collected
// during the scan and removed in one batch afterwards, so the active list is
// never mutated mid-iteration.
//
// Driven once per world tick through a GatedTicker; the effect is linear in
// elapsed, which keeps batched catch-up ticks equivalent to small ones.
func (c *Controller) Decay(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []*Affect
	for _, a := range c.active {
		if !a.IsPermanent() {
			a.Remaining -= elapsed
			if a.Remaining <= 0 {
				a.Remaining = 0
				expired = append(expired, a)
				continue
			}
		}

		if a.CostPerSec <= 0 {
			continue
		}
		a.costAcc += a.CostPerSec * elapsed.Seconds()
		whole := math.Floor(a.costAcc)
		if whole < 1 {
			continue
		}
		if c.tryConsume(int32(whole)) {
			a.costAcc -= whole
			continue
		}
		// Upkeep lapsed: the affect expires now even with time left.
		slog.Debug("affect upkeep failed",
			"kind", a.Kind,
			"type", a.Type,
			"point", a.Point,
			"needed", int32(whole))
		expired = append(expired, a)
	}

	if len(expired) > 0 {
		c.removeMatching(func(cur *Affect) bool {
			for _, a := range expired {
				if cur == a {
					return true
				}
			}
			return false
		})
	}
}

// ActiveFlags returns the bit-OR of all active affects' flags. The aggregate
// is cached between mutations: reads are hot (every status sync), writes are
// cold.
func (c *Controller) ActiveFlags() Flag {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.flagsValid {
		c.flags = FlagNone
		for _, a := range c.active {
			c.flags |= a.Flags
		}
		c.flagsValid = true
	}
	return c.flags
}

// Active returns a snapshot of the active affects as value copies. Mutating
// the returned slice or its elements has no effect on the controller.
func (c *Controller) Active() []Affect {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Affect, len(c.active))
	for i, a := range c.active {
		out[i] = *a
	}
	return out
}

// Count returns the number of active affects.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// removeMatching filters the active list in place, firing a removed
// notification per dropped affect. Must be called with mu held.
func (c *Controller) removeMatching(match func(*Affect) bool) {
	n := 0
	removed := false
	for _, cur := range c.active {
		if match(cur) {
			removed = true
			c.notifyRemoved(cur)
		} else {
			c.active[n] = cur
			n++
		}
	}
	for i := n; i < len(c.active); i++ {
		c.active[i] = nil
	}
	c.active = c.active[:n]
	if removed {
		c.flagsValid = false
	}
}

func (c *Controller) notifyAdded(a *Affect) {
	if c.onAdded != nil {
		c.onAdded(a)
	}
}

func (c *Controller) notifyRemoved(a *Affect) {
	if c.onRemoved != nil {
		c.onRemoved(a)
	}
}
