// Package affect implements the active effect list of an entity: time-bounded
// (or permanent) gameplay modifiers identified by kind, type tag and target
// stat point. The Controller owns mutation and decay; the stat deltas an
// affect carries are applied to the stat engine by the entity layer in
// response to the add/remove notifications.
package affect

import (
	"time"

	"github.com/udisondev/mudgo/internal/stat"
)

// Kind separates plain affects (items, environment, GM commands) from
// skill-sourced ones. Two affects with the same type tag but different kinds
// never collide.
type Kind uint8

const (
	KindPlain Kind = iota
	KindSkill
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindSkill:
		return "skill"
	default:
		return "kind(?)"
	}
}

// Flag is a bit set of semantic markers carried by an affect. The aggregate
// of all active affects' flags is what the client-sync layer reads, so the
// bits mirror visible character states.
type Flag uint32

const (
	FlagHaste Flag = 1 << iota
	FlagSlow
	FlagShield
	FlagPoison
	FlagInvisible
	FlagSilence
)

const FlagNone Flag = 0

// Permanent marks an affect that never decays to zero on its own. The value
// is an opaque sentinel: no arithmetic is done on it, upkeep still applies.
const Permanent time.Duration = -1

// Affect is one active entry of a Controller. Remaining and the cost
// accumulator are the only fields that mutate during an affect's lifetime;
// everything else is fixed at creation, which is what makes the Upsert
// refresh-vs-replace decision a plain struct comparison.
type Affect struct {
	Kind  Kind
	Type  int32 // skill id for KindSkill, item/environment tag for KindPlain
	Point stat.Point
	Delta int32

	// Remaining is the time left before natural expiry, or Permanent.
	Remaining time.Duration

	// CostPerSec is the upkeep drained through TryConsume; costAcc holds the
	// fractional part not yet consumed.
	CostPerSec float64
	costAcc    float64

	Persist     bool // saved to the character's row on logout
	KeepOnDeath bool // survives the death sweep
	Flags       Flag

	// SourceID is the object id of the attacker that applied the affect,
	// zero when there is none.
	SourceID uint32
}

// SameIdentity reports whether b occupies the same slot in an affect list:
// identity is (kind, type, target point).
func (a *Affect) SameIdentity(b *Affect) bool {
	return a.Kind == b.Kind && a.Type == b.Type && a.Point == b.Point
}

// SamePayload reports whether b differs from a only in the two mutable
// fields (remaining duration, cost accumulator). Upsert refreshes in place
// exactly when this holds.
func (a *Affect) SamePayload(b *Affect) bool {
	x, y := *a, *b
	x.Remaining, y.Remaining = 0, 0
	x.costAcc, y.costAcc = 0, 0
	return x == y
}

// IsPermanent reports whether the affect never decays on its own.
func (a *Affect) IsPermanent() bool {
	return a.Remaining == Permanent
}

// CostAccumulator returns the fractional upkeep not yet consumed.
func (a *Affect) CostAccumulator() float64 {
	return a.costAcc
}
