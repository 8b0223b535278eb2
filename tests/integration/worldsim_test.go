// Package integration drives the simulation core across package boundaries:
// heartbeat, scheduler, characters, affects and groups in one world, with a
// fully synthetic clock.
package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/mudgo/internal/affect"
	"github.com/udisondev/mudgo/internal/game/group"
	"github.com/udisondev/mudgo/internal/model"
	"github.com/udisondev/mudgo/internal/stat"
	"github.com/udisondev/mudgo/internal/timer"
	"github.com/udisondev/mudgo/internal/world"
)

type sim struct {
	world     *world.World
	heartbeat *world.Heartbeat
	groups    *group.Manager
	ids       *world.ObjectIDFactory
	scheduler *timer.Scheduler
}

func newSim() *sim {
	s := timer.NewScheduler()
	w := world.New()
	return &sim{
		world:     w,
		heartbeat: world.NewHeartbeat(w, s, 100*time.Millisecond),
		groups:    group.NewManager(s, 30*time.Second),
		ids:       world.NewObjectIDFactory(),
		scheduler: s,
	}
}

func (s *sim) spawn(name string, class model.ClassTemplate) *model.Character {
	tuning := model.Tuning{
		HPRegenInterval:     time.Second,
		SPRegenInterval:     time.Second,
		AffectDecayInterval: time.Second,
		RestRegenDelay:      2 * time.Second,
		KnockoutDelay:       10 * time.Second,
		LogoutDelay:         5 * time.Second,
	}
	c := model.NewCharacter(s.ids.NextCharacterID(), name, model.NewLocation(0, 0, 0),
		10, class, tuning, s.scheduler)
	s.world.Add(c)
	return c
}

// run advances the simulation in fixed heartbeat-sized ticks.
func (s *sim) run(elapsed time.Duration) {
	const tick = 100 * time.Millisecond
	for elapsed > 0 {
		d := min(tick, elapsed)
		elapsed -= d
		s.heartbeat.Tick(d)
	}
}

func TestSimulation_FullCombatAndRecoveryCycle(t *testing.T) {
	s := newSim()
	tank := s.spawn("ragnar", model.FighterTemplate())
	healer := s.spawn("morgana", model.MysticTemplate())

	// Group up.
	require.NoError(t, s.groups.Invite(tank, healer))
	_, err := s.groups.Accept(healer)
	require.NoError(t, err)
	require.Equal(t, 2, s.groups.GroupOf(tank).Size())

	// A haste buff lands on the tank.
	tank.ApplyAffect(&affect.Affect{
		Kind:      affect.KindSkill,
		Type:      1204,
		Point:     stat.PointMoveSpeed,
		Delta:     33,
		Remaining: time.Minute,
		Flags:     affect.FlagHaste,
	})
	hastedSpeed := tank.MoveSpeed()

	// The tank is beaten down into knockout.
	tank.TakeDamage(tank.MaxHP())
	require.True(t, tank.IsKnockedOut())

	// The healer saves them inside the knockout window.
	s.run(4 * time.Second)
	tank.Heal(tank.MaxHP() / 2)
	require.False(t, tank.IsKnockedOut())

	// Long past the original death deadline: alive, regenerating, buffed.
	s.run(20 * time.Second)
	assert.False(t, tank.IsDead())
	assert.Greater(t, tank.HP(), tank.MaxHP()/2)
	assert.Equal(t, hastedSpeed, tank.MoveSpeed())
	assert.Equal(t, affect.FlagHaste, tank.Affects().ActiveFlags())
}

func TestSimulation_DeathDropsGroupMemberAffects(t *testing.T) {
	s := newSim()
	victim := s.spawn("bjorn", model.FighterTemplate())

	victim.ApplyAffect(&affect.Affect{
		Kind:      affect.KindSkill,
		Type:      1045,
		Point:     stat.PointMaxHP,
		Delta:     60,
		Remaining: time.Hour,
	})
	buffedMax := victim.MaxHP()

	victim.TakeDamage(buffedMax)
	s.run(11 * time.Second)

	require.True(t, victim.IsDead())
	assert.Zero(t, victim.Affects().Count(), "death sweep clears unflagged affects")
	assert.Less(t, victim.MaxHP(), buffedMax, "buff modifier stripped with the affect")
}

func TestSimulation_LogoutRemovesFromWorld(t *testing.T) {
	s := newSim()
	c := s.spawn("ragnar", model.FighterTemplate())

	c.SetOnLogout(func() {
		s.world.Remove(c.ObjectID())
		s.groups.Leave(c)
	})

	require.True(t, c.RequestLogout())
	s.run(6 * time.Second)
	assert.Zero(t, s.world.Count())
}

func TestSimulation_ManyCharactersStayConsistent(t *testing.T) {
	s := newSim()

	const n = 200
	chars := make([]*model.Character, 0, n)
	for i := 0; i < n; i++ {
		c := s.spawn(fmt.Sprintf("char-%03d", i), model.FighterTemplate())
		c.TakeDamage(int32(i % 150))
		chars = append(chars, c)
	}

	s.run(time.Minute)

	for _, c := range chars {
		require.False(t, c.IsDead(), "%s died without reaching zero HP", c.Name())
		assert.LessOrEqual(t, c.HP(), c.MaxHP())
		assert.Positive(t, c.HP())
	}
	assert.Zero(t, s.scheduler.Len(), "no stray events after the run")
}
