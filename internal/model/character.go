package model

import (
	"sync/atomic"
	"time"

	"github.com/udisondev/mudgo/internal/affect"
	"github.com/udisondev/mudgo/internal/stat"
	"github.com/udisondev/mudgo/internal/timer"
)

// knockoutRecoverDivisor: healing above maxHP/this while knocked out cancels
// the pending death.
const knockoutRecoverDivisor = 10

// Character is a living entity: vitals clamped to engine-computed maxima, an
// active affect list, regen and decay tickers, and named scheduler slots for
// the knockout-to-death and logout countdowns.
//
// All per-tick mutation (OnTick and everything it drives) happens on the
// world tick goroutine. Vitals are mutex-guarded because snapshots are read
// from other contexts (persistence, diagnostics); level and the boolean
// states are atomics so the stat base suppliers can read them without
// touching the vitals lock.
type Character struct {
	*WorldObject

	characterID int64 // database row id, 0 until persisted
	class       ClassTemplate
	tuning      Tuning
	scheduler   *timer.Scheduler

	level      atomic.Int32
	dead       atomic.Bool
	knockedOut atomic.Bool
	resting    atomic.Bool

	// Guarded by the WorldObject mutex.
	hp int32
	sp int32

	stats   *stat.Engine
	affects *affect.Controller

	hpRegen     *timer.GatedTicker
	spRegen     *timer.GatedTicker
	affectDecay *timer.GatedTicker
	hpFrac      float64
	spFrac      float64

	// Named scheduler slots; zero means no pending event.
	knockoutEvent timer.EventID
	logoutEvent   timer.EventID

	// Derived caches re-computed on stat change, read lock-free by the sync
	// layer.
	moveSpeed   atomic.Int32
	attackSpeed atomic.Int32

	onStatChanged   func(stat.Point)
	onAffectAdded   func(affect.Affect)
	onAffectRemoved func(affect.Affect)
	onDeath         func()
	onLogout        func()
}

// NewCharacter creates a character of the given class at full vitals. The
// scheduler is the world's shared event scheduler; every character registers
// its countdown events there.
func NewCharacter(objectID uint32, name string, loc Location, level int32, class ClassTemplate, tuning Tuning, scheduler *timer.Scheduler) *Character {
	if scheduler == nil {
		panic("model: NewCharacter with nil scheduler")
	}
	if level < 1 {
		level = 1
	}

	c := &Character{
		WorldObject: NewWorldObject(objectID, name, loc),
		class:       class,
		tuning:      tuning,
		scheduler:   scheduler,
	}
	c.level.Store(level)

	c.stats = stat.NewEngine(c.statChanged)
	c.installBaseSuppliers()

	c.affects = affect.NewController(c.TryConsumeSP, c.affectAdded, c.affectRemoved)

	c.hpRegen = timer.NewGatedTicker(tuning.HPRegenInterval, c.regenHP)
	c.spRegen = timer.NewGatedTicker(tuning.SPRegenInterval, c.regenSP)
	c.affectDecay = timer.NewGatedTicker(tuning.AffectDecayInterval, c.affects.Decay)

	c.hp = c.stats.Value(stat.PointMaxHP)
	c.sp = c.stats.Value(stat.PointMaxSP)
	c.rederiveSpeeds()
	return c
}

// installBaseSuppliers wires the class formulas into the stat engine and
// registers the invalidation edges the suppliers imply.
func (c *Character) installBaseSuppliers() {
	e := c.stats

	e.SetBase(stat.PointStrength, func() int32 { return c.class.Strength })
	e.SetBase(stat.PointAgility, func() int32 { return c.class.Agility })
	e.SetBase(stat.PointVitality, func() int32 { return c.class.Vitality })
	e.SetBase(stat.PointIntellect, func() int32 { return c.class.Intellect })

	e.SetBase(stat.PointMaxHP, func() int32 {
		base := float64(c.class.HPBase + c.class.HPPerLevel*(c.level.Load()-1))
		vitMod := 1.0 + float64(e.Value(stat.PointVitality)-30)/100.0
		return int32(base * vitMod)
	})
	e.SetBase(stat.PointMaxSP, func() int32 {
		base := float64(c.class.SPBase + c.class.SPPerLevel*(c.level.Load()-1))
		intMod := 1.0 + float64(e.Value(stat.PointIntellect)-30)/100.0
		return int32(base * intMod)
	})
	e.SetBase(stat.PointHPRegen, func() int32 {
		return 1 + e.Value(stat.PointMaxHP)/64
	})
	e.SetBase(stat.PointSPRegen, func() int32 {
		return 1 + e.Value(stat.PointMaxSP)/64
	})
	e.SetBase(stat.PointAttack, func() int32 {
		level := c.level.Load()
		levelMod := float64(level+89) / 100.0
		return int32(float64(10+e.Value(stat.PointStrength)/2) * levelMod)
	})
	e.SetBase(stat.PointDefense, func() int32 {
		level := c.level.Load()
		levelMod := float64(level+89) / 100.0
		return int32(float64(80+level*3) * levelMod)
	})
	e.SetBase(stat.PointAttackSpeed, func() int32 {
		return 300 + 2*e.Value(stat.PointAgility)
	})
	e.SetBase(stat.PointMoveSpeed, func() int32 {
		return 100 + e.Value(stat.PointAgility)/2
	})

	e.RegisterDependency(stat.PointMaxHP, stat.PointVitality)
	e.RegisterDependency(stat.PointMaxSP, stat.PointIntellect)
	e.RegisterDependency(stat.PointHPRegen, stat.PointMaxHP)
	e.RegisterDependency(stat.PointSPRegen, stat.PointMaxSP)
	e.RegisterDependency(stat.PointAttack, stat.PointStrength)
	e.RegisterDependency(stat.PointAttackSpeed, stat.PointAgility)
	e.RegisterDependency(stat.PointMoveSpeed, stat.PointAgility)
}

// OnTick drives every per-tick concern of this character. Called once per
// world tick from the heartbeat goroutine with the tick's elapsed time.
func (c *Character) OnTick(elapsed time.Duration) {
	if !c.dead.Load() && !c.knockedOut.Load() {
		c.hpRegen.Step(elapsed)
		c.spRegen.Step(elapsed)
	}
	// Death-persistent affects keep decaying on a corpse.
	c.affectDecay.Step(elapsed)
}

// --- vitals ---

// HP returns current HP.
func (c *Character) HP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hp
}

// SP returns current SP.
func (c *Character) SP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sp
}

// MaxHP returns the engine-computed HP maximum.
func (c *Character) MaxHP() int32 {
	return c.stats.Value(stat.PointMaxHP)
}

// MaxSP returns the engine-computed SP maximum.
func (c *Character) MaxSP() int32 {
	return c.stats.Value(stat.PointMaxSP)
}

// SetVitals overwrites current HP/SP, clamped to [0, max]. Used when
// restoring a persisted character.
func (c *Character) SetVitals(hp, sp int32) {
	maxHP := c.stats.Value(stat.PointMaxHP)
	maxSP := c.stats.Value(stat.PointMaxSP)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hp = clamp(hp, 0, maxHP)
	c.sp = clamp(sp, 0, maxSP)
}

// TakeDamage reduces HP and, on reaching zero, puts the character into
// knockout with a pending death event. Being attacked also cancels a running
// logout countdown.
func (c *Character) TakeDamage(amount int32) {
	if amount <= 0 || c.dead.Load() {
		return
	}

	c.CancelLogout()

	c.mu.Lock()
	c.hp = max(c.hp-amount, 0)
	knocked := c.hp == 0 && !c.knockedOut.Load()
	c.mu.Unlock()

	if knocked {
		c.enterKnockout()
	}
}

// Heal raises HP toward the maximum. Healing a knocked-out character above
// the recovery threshold cancels the pending death.
func (c *Character) Heal(amount int32) {
	if amount <= 0 || c.dead.Load() {
		return
	}
	maxHP := c.stats.Value(stat.PointMaxHP)

	c.mu.Lock()
	c.hp = min(c.hp+amount, maxHP)
	recovered := c.knockedOut.Load() && c.hp > maxHP/knockoutRecoverDivisor
	c.mu.Unlock()

	if recovered {
		c.leaveKnockout()
	}
}

// RestoreSP raises SP toward the maximum.
func (c *Character) RestoreSP(amount int32) {
	if amount <= 0 || c.dead.Load() {
		return
	}
	maxSP := c.stats.Value(stat.PointMaxSP)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sp = min(c.sp+amount, maxSP)
}

// TryConsumeSP deducts amount if enough SP is available. This is the upkeep
// predicate the affect controller drains through.
func (c *Character) TryConsumeSP(amount int32) bool {
	if amount <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sp < amount {
		return false
	}
	c.sp -= amount
	return true
}

// IsDead reports whether the character has died.
func (c *Character) IsDead() bool {
	return c.dead.Load()
}

// IsKnockedOut reports whether the character lies at zero HP awaiting death.
func (c *Character) IsKnockedOut() bool {
	return c.knockedOut.Load()
}

// --- knockout / death ---

func (c *Character) enterKnockout() {
	c.knockedOut.Store(true)
	c.knockoutEvent = c.scheduler.Schedule(func() time.Duration {
		c.knockoutEvent = 0
		c.die()
		return timer.Stop
	}, c.tuning.KnockoutDelay)
}

func (c *Character) leaveKnockout() {
	c.knockedOut.Store(false)
	if c.knockoutEvent != 0 {
		c.scheduler.Cancel(c.knockoutEvent)
		c.knockoutEvent = 0
	}
}

func (c *Character) die() {
	if !c.dead.CompareAndSwap(false, true) {
		return
	}
	c.knockedOut.Store(false)
	c.CancelLogout()

	c.mu.Lock()
	c.hp = 0
	c.mu.Unlock()

	// Death sweep: curses and the like stay, everything else is stripped
	// (the removal notifications drop the stat modifiers).
	c.affects.Clear(true)

	if c.onDeath != nil {
		c.onDeath()
	}
}

// Revive brings a dead character back at a quarter of its maximum vitals.
func (c *Character) Revive() {
	if !c.dead.CompareAndSwap(true, false) {
		return
	}
	maxHP := c.stats.Value(stat.PointMaxHP)
	maxSP := c.stats.Value(stat.PointMaxSP)

	c.mu.Lock()
	c.hp = max(maxHP/4, 1)
	c.sp = maxSP / 4
	c.mu.Unlock()

	c.hpRegen.Reset()
	c.spRegen.Reset()
}

// --- resting ---

// Rest puts the character into the resting stance: the regen tickers restart
// behind a one-shot initial delay, then regenerate at double rate.
func (c *Character) Rest() {
	if c.dead.Load() || !c.resting.CompareAndSwap(false, true) {
		return
	}
	c.hpRegen.Reset()
	c.spRegen.Reset()
	c.hpRegen.ArmInitialDelay(c.tuning.RestRegenDelay)
	c.spRegen.ArmInitialDelay(c.tuning.RestRegenDelay)
}

// Stand leaves the resting stance, disarming any pending rest delay.
func (c *Character) Stand() {
	if !c.resting.CompareAndSwap(true, false) {
		return
	}
	c.hpRegen.ArmInitialDelay(0)
	c.spRegen.ArmInitialDelay(0)
}

// IsResting reports whether the character is sitting.
func (c *Character) IsResting() bool {
	return c.resting.Load()
}

// --- logout countdown ---

// RequestLogout starts the logout countdown. Returns false if one is already
// running or the character is dead.
func (c *Character) RequestLogout() bool {
	if c.dead.Load() || c.logoutEvent != 0 {
		return false
	}
	c.logoutEvent = c.scheduler.Schedule(func() time.Duration {
		c.logoutEvent = 0
		if c.onLogout != nil {
			c.onLogout()
		}
		return timer.Stop
	}, c.tuning.LogoutDelay)
	return true
}

// CancelLogout aborts a pending logout countdown. Returns whether one was
// pending.
func (c *Character) CancelLogout() bool {
	if c.logoutEvent == 0 {
		return false
	}
	cancelled := c.scheduler.Cancel(c.logoutEvent)
	c.logoutEvent = 0
	return cancelled
}

// --- regen ---

// regenHP is the HP ticker's update function. Linear in processed: the rate
// applies per second and the sub-unit remainder carries in hpFrac, so a
// batched catch-up call heals exactly what the skipped small calls would.
func (c *Character) regenHP(processed time.Duration) {
	rate := float64(c.stats.Value(stat.PointHPRegen))
	if c.resting.Load() {
		rate *= 2
	}
	c.hpFrac += rate * processed.Seconds()
	heal := int32(c.hpFrac)
	if heal > 0 {
		c.hpFrac -= float64(heal)
		c.Heal(heal)
	}
}

func (c *Character) regenSP(processed time.Duration) {
	rate := float64(c.stats.Value(stat.PointSPRegen))
	if c.resting.Load() {
		rate *= 2
	}
	c.spFrac += rate * processed.Seconds()
	restore := int32(c.spFrac)
	if restore > 0 {
		c.spFrac -= float64(restore)
		c.RestoreSP(restore)
	}
}

// --- stats and affects ---

// Stats exposes the character's stat engine. Tick-thread use only.
func (c *Character) Stats() *stat.Engine {
	return c.stats
}

// Affects exposes the character's active affect list.
func (c *Character) Affects() *affect.Controller {
	return c.affects
}

// ApplyAffect installs (or refreshes) an affect. The controller's add
// notification applies the stat delta.
func (c *Character) ApplyAffect(a *affect.Affect) {
	c.affects.Upsert(a)
}

// statChanged is the engine's on-changed callback: keep vitals inside the
// new maxima, re-derive the speed caches, then forward to the sync hook.
func (c *Character) statChanged(point stat.Point) {
	switch point {
	case stat.PointMaxHP, stat.PointMaxSP:
		c.clampVitals()
	case stat.PointMoveSpeed, stat.PointAttackSpeed, stat.PointAgility:
		c.rederiveSpeeds()
	}
	if c.onStatChanged != nil {
		c.onStatChanged(point)
	}
}

func (c *Character) affectAdded(a *affect.Affect) {
	c.stats.AddModifier(a.Point, a.Delta, a)
	if c.onAffectAdded != nil {
		c.onAffectAdded(*a)
	}
}

func (c *Character) affectRemoved(a *affect.Affect) {
	c.stats.RemoveModifier(a.Point, a)
	if c.onAffectRemoved != nil {
		c.onAffectRemoved(*a)
	}
}

func (c *Character) clampVitals() {
	maxHP := c.stats.Value(stat.PointMaxHP)
	maxSP := c.stats.Value(stat.PointMaxSP)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hp > maxHP {
		c.hp = maxHP
	}
	if c.sp > maxSP {
		c.sp = maxSP
	}
}

func (c *Character) rederiveSpeeds() {
	c.moveSpeed.Store(c.stats.Value(stat.PointMoveSpeed))
	c.attackSpeed.Store(c.stats.Value(stat.PointAttackSpeed))
}

// MoveSpeed returns the cached derived movement speed.
func (c *Character) MoveSpeed() int32 {
	return c.moveSpeed.Load()
}

// AttackSpeed returns the cached derived attack speed.
func (c *Character) AttackSpeed() int32 {
	return c.attackSpeed.Load()
}

// --- identity / misc ---

// Level returns the character's level.
func (c *Character) Level() int32 {
	return c.level.Load()
}

// SetLevel changes the level (clamped to 1..100) and invalidates every stat
// whose base formula reads it.
func (c *Character) SetLevel(level int32) {
	c.level.Store(clamp(level, 1, 100))
	c.stats.NotifyBaseChanged(stat.PointMaxHP)
	c.stats.NotifyBaseChanged(stat.PointMaxSP)
	c.stats.NotifyBaseChanged(stat.PointAttack)
	c.stats.NotifyBaseChanged(stat.PointDefense)
}

// Class returns the character's class template.
func (c *Character) Class() ClassTemplate {
	return c.class
}

// CharacterID returns the database row id, zero for an unsaved character.
func (c *Character) CharacterID() int64 {
	return c.characterID
}

// SetCharacterID records the database row id after the first insert.
func (c *Character) SetCharacterID(id int64) {
	c.characterID = id
}

// --- hooks ---

// SetOnStatChanged installs the stat sync hook. The callback may fire from
// any code path that mutates stats and must not block.
func (c *Character) SetOnStatChanged(fn func(stat.Point)) { c.onStatChanged = fn }

// SetOnAffectAdded installs the affect-added sync hook. The callback runs
// under the affect controller's lock and must not re-enter it.
func (c *Character) SetOnAffectAdded(fn func(affect.Affect)) { c.onAffectAdded = fn }

// SetOnAffectRemoved installs the affect-removed sync hook. Same re-entry
// contract as SetOnAffectAdded.
func (c *Character) SetOnAffectRemoved(fn func(affect.Affect)) { c.onAffectRemoved = fn }

// SetOnDeath installs the death hook.
func (c *Character) SetOnDeath(fn func()) { c.onDeath = fn }

// SetOnLogout installs the hook fired when the logout countdown completes.
func (c *Character) SetOnLogout(fn func()) { c.onLogout = fn }

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
