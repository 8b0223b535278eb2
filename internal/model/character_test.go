package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/mudgo/internal/affect"
	"github.com/udisondev/mudgo/internal/stat"
	"github.com/udisondev/mudgo/internal/timer"
)

// testTuning uses short cadences so tests drive whole lifecycles with a few
// simulated seconds.
func testTuning() Tuning {
	return Tuning{
		HPRegenInterval:     time.Second,
		SPRegenInterval:     time.Second,
		AffectDecayInterval: time.Second,
		RestRegenDelay:      2 * time.Second,
		KnockoutDelay:       5 * time.Second,
		LogoutDelay:         3 * time.Second,
	}
}

// worldHarness drives a scheduler and one character the way the heartbeat
// does, with a fully simulated clock.
type worldHarness struct {
	scheduler *timer.Scheduler
	clock     time.Duration
	chars     []*Character
}

func newHarness() *worldHarness {
	return &worldHarness{scheduler: timer.NewScheduler()}
}

func (h *worldHarness) spawn(t *testing.T, name string, class ClassTemplate) *Character {
	t.Helper()
	c := NewCharacter(uint32(len(h.chars)+1), name, NewLocation(0, 0, 0), 10, class, testTuning(), h.scheduler)
	h.chars = append(h.chars, c)
	return c
}

// advance simulates elapsed wall time in steps of the given size.
func (h *worldHarness) advance(elapsed, step time.Duration) {
	for elapsed > 0 {
		d := min(step, elapsed)
		elapsed -= d
		h.clock += d
		h.scheduler.Step(h.clock)
		for _, c := range h.chars {
			c.OnTick(d)
		}
	}
}

func TestCharacter_SpawnsAtFullVitals(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	assert.Equal(t, c.MaxHP(), c.HP())
	assert.Equal(t, c.MaxSP(), c.SP())
	assert.False(t, c.IsDead())
	assert.Positive(t, c.MoveSpeed())
	assert.Positive(t, c.AttackSpeed())
}

func TestCharacter_KnockoutThenDeath(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	died := false
	c.SetOnDeath(func() { died = true })

	c.TakeDamage(c.MaxHP())
	require.True(t, c.IsKnockedOut())
	require.False(t, c.IsDead())

	// One tick short of the knockout delay: still alive.
	h.advance(4*time.Second, 250*time.Millisecond)
	assert.False(t, c.IsDead())

	h.advance(2*time.Second, 250*time.Millisecond)
	assert.True(t, c.IsDead())
	assert.True(t, died)
	assert.False(t, c.IsKnockedOut())
}

func TestCharacter_HealAboveThresholdCancelsDeath(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	c.TakeDamage(c.MaxHP())
	require.True(t, c.IsKnockedOut())

	h.advance(2*time.Second, 500*time.Millisecond)
	c.Heal(c.MaxHP() / 2)
	assert.False(t, c.IsKnockedOut())

	// Well past the original knockout deadline: the cancelled event must
	// never fire.
	h.advance(10*time.Second, 500*time.Millisecond)
	assert.False(t, c.IsDead())
}

func TestCharacter_WeakHealDoesNotCancelKnockout(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	c.TakeDamage(c.MaxHP())
	c.Heal(1) // below maxHP/10
	assert.True(t, c.IsKnockedOut())

	h.advance(6*time.Second, 500*time.Millisecond)
	assert.True(t, c.IsDead())
}

func TestCharacter_LogoutCountdown(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	loggedOut := false
	c.SetOnLogout(func() { loggedOut = true })

	require.True(t, c.RequestLogout())
	assert.False(t, c.RequestLogout(), "second request while one is pending")

	h.advance(4*time.Second, 500*time.Millisecond)
	assert.True(t, loggedOut)

	// The slot is free again after completion.
	assert.True(t, c.RequestLogout())
}

func TestCharacter_DamageCancelsLogout(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	loggedOut := false
	c.SetOnLogout(func() { loggedOut = true })

	require.True(t, c.RequestLogout())
	c.TakeDamage(1)

	h.advance(10*time.Second, 500*time.Millisecond)
	assert.False(t, loggedOut, "hostile activity must cancel the countdown")
}

func TestCharacter_RegenBatchingInvariance(t *testing.T) {
	// The same total elapsed time delivered in ragged small ticks or in a
	// few coarse ones must regenerate the same amount.
	total := 30 * time.Second
	damage := int32(200)

	run := func(step time.Duration) int32 {
		h := newHarness()
		c := h.spawn(t, "ragnar", FighterTemplate())
		c.TakeDamage(damage)
		h.advance(total, step)
		return c.HP()
	}

	fine := run(33 * time.Millisecond)
	coarse := run(7 * time.Second)
	assert.Equal(t, fine, coarse, "regen must be invariant to tick granularity")
	assert.Greater(t, fine, FighterTemplate().HPBase, "regen should have healed something")
}

func TestCharacter_RestDelaysThenBoostsRegen(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())
	c.TakeDamage(150)
	hurt := c.HP()

	c.Rest()
	require.True(t, c.IsResting())

	// Inside the rest delay no regen pulse lands.
	h.advance(1500*time.Millisecond, 500*time.Millisecond)
	assert.Equal(t, hurt, c.HP())

	h.advance(6*time.Second, 500*time.Millisecond)
	assert.Greater(t, c.HP(), hurt)

	c.Stand()
	assert.False(t, c.IsResting())
}

func TestCharacter_AffectAppliesAndExpires(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())
	baseSpeed := c.MoveSpeed()

	c.ApplyAffect(&affect.Affect{
		Kind:      affect.KindSkill,
		Type:      1204,
		Point:     stat.PointMoveSpeed,
		Delta:     33,
		Remaining: 5 * time.Second,
		Flags:     affect.FlagHaste,
	})

	assert.Equal(t, baseSpeed+33, c.MoveSpeed())
	assert.Equal(t, affect.FlagHaste, c.Affects().ActiveFlags())

	h.advance(6*time.Second, time.Second)
	assert.Equal(t, baseSpeed, c.MoveSpeed(), "expiry must strip the modifier")
	assert.Equal(t, affect.FlagNone, c.Affects().ActiveFlags())
}

func TestCharacter_AffectUpkeepDrainsSPAndLapses(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "morgana", MysticTemplate())

	c.ApplyAffect(&affect.Affect{
		Kind:       affect.KindSkill,
		Type:       1035,
		Point:      stat.PointDefense,
		Delta:      50,
		Remaining:  affect.Permanent,
		CostPerSec: 40,
	})

	require.Equal(t, 1, c.Affects().Count())
	spBefore := c.SP()

	h.advance(3*time.Second, time.Second)
	assert.Less(t, c.SP(), spBefore, "upkeep should drain SP")

	// Burn the pool: upkeep fails and the affect lapses despite being
	// permanent.
	require.True(t, c.TryConsumeSP(c.SP()))
	h.advance(5*time.Second, time.Second)
	assert.Zero(t, c.Affects().Count(), "affect must lapse when upkeep fails")
}

func TestCharacter_DeathSweepKeepsFlaggedAffects(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	c.ApplyAffect(&affect.Affect{
		Kind:      affect.KindSkill,
		Type:      1204,
		Point:     stat.PointMoveSpeed,
		Delta:     33,
		Remaining: time.Hour,
	})
	c.ApplyAffect(&affect.Affect{
		Kind:        affect.KindSkill,
		Type:        4082,
		Point:       stat.PointDefense,
		Delta:       -30,
		Remaining:   time.Hour,
		KeepOnDeath: true,
	})

	c.TakeDamage(c.MaxHP())
	h.advance(6*time.Second, time.Second)
	require.True(t, c.IsDead())

	active := c.Affects().Active()
	require.Len(t, active, 1)
	assert.EqualValues(t, 4082, active[0].Type)
}

func TestCharacter_StatChangeClampsVitals(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	src := "hp-ring"
	c.Stats().AddModifier(stat.PointMaxHP, 100, src)
	c.Heal(1000)
	assert.Equal(t, c.MaxHP(), c.HP())

	// Dropping the bonus pulls current HP back under the lower maximum.
	c.Stats().RemoveModifier(stat.PointMaxHP, src)
	assert.LessOrEqual(t, c.HP(), c.MaxHP())
}

func TestCharacter_SetLevelPropagates(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	var changed []stat.Point
	c.SetOnStatChanged(func(p stat.Point) { changed = append(changed, p) })

	before := c.MaxHP()
	c.SetLevel(40)
	assert.Greater(t, c.MaxHP(), before)
	assert.Contains(t, changed, stat.PointMaxHP)
	assert.Contains(t, changed, stat.PointHPRegen, "regen depends on MaxHP transitively")
}

func TestCharacter_ReviveRestoresQuarterVitals(t *testing.T) {
	h := newHarness()
	c := h.spawn(t, "ragnar", FighterTemplate())

	c.TakeDamage(c.MaxHP())
	h.advance(6*time.Second, time.Second)
	require.True(t, c.IsDead())

	c.Revive()
	assert.False(t, c.IsDead())
	assert.Equal(t, max(c.MaxHP()/4, 1), c.HP())

	// A revived character regenerates again.
	h.advance(10*time.Second, time.Second)
	assert.Greater(t, c.HP(), c.MaxHP()/4)
}
