package group

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/mudgo/internal/model"
	"github.com/udisondev/mudgo/internal/timer"
)

var (
	ErrAlreadyGrouped = errors.New("group: character is already in a group")
	ErrGroupFull      = errors.New("group: group is full")
	ErrNoInvite       = errors.New("group: no pending invite")
	ErrSelfInvite     = errors.New("group: cannot invite yourself")
)

// invite is one pending group invitation, keyed by the invitee's object ID.
type invite struct {
	inviter *model.Character
	invitee *model.Character
}

// Manager tracks all groups and pending invites on the server.
//
// Thread-safe. Invite expiry events fire on the world tick goroutine through
// the shared scheduler.
type Manager struct {
	mu            sync.RWMutex
	groups        map[int32]*Group
	groupByMember map[uint32]*Group
	pending       map[uint32]invite
	nextID        atomic.Int32

	invites       *timer.KeyedScheduler[uint32]
	inviteTimeout time.Duration

	// onInviteExpired, if set, observes invitations that ran out unanswered.
	onInviteExpired func(inviter, invitee *model.Character)
}

// NewManager creates a group manager registering its invite timers on the
// given scheduler.
func NewManager(scheduler *timer.Scheduler, inviteTimeout time.Duration) *Manager {
	if inviteTimeout <= 0 {
		panic("group: invite timeout must be positive")
	}
	return &Manager{
		groups:        make(map[int32]*Group),
		groupByMember: make(map[uint32]*Group),
		pending:       make(map[uint32]invite),
		invites:       timer.NewKeyed[uint32](scheduler),
		inviteTimeout: inviteTimeout,
	}
}

// SetOnInviteExpired installs the expiry observer.
func (m *Manager) SetOnInviteExpired(fn func(inviter, invitee *model.Character)) {
	m.onInviteExpired = fn
}

// Invite offers invitee a place in inviter's group, starting the expiry
// countdown. A newer invite to the same character replaces the older one,
// timer included.
func (m *Manager) Invite(inviter, invitee *model.Character) error {
	if inviter == invitee {
		return ErrSelfInvite
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groupByMember[invitee.ObjectID()]; ok {
		return ErrAlreadyGrouped
	}
	if g, ok := m.groupByMember[inviter.ObjectID()]; ok && g.Size() >= MaxMembers {
		return ErrGroupFull
	}

	key := invitee.ObjectID()
	m.pending[key] = invite{inviter: inviter, invitee: invitee}
	m.invites.Schedule(key, func() time.Duration {
		m.expireInvite(key)
		return timer.Stop
	}, m.inviteTimeout)

	slog.Debug("group invite sent",
		"inviter", inviter.Name(),
		"invitee", invitee.Name())
	return nil
}

// Accept resolves invitee's pending invite: the inviter's group is created
// on demand and the invitee joins it. The expiry timer is cancelled first,
// so a race with expiry settles to exactly one outcome.
func (m *Manager) Accept(invitee *model.Character) (*Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := invitee.ObjectID()
	inv, ok := m.pending[key]
	if !ok {
		return nil, ErrNoInvite
	}
	delete(m.pending, key)
	m.invites.Cancel(key)

	g, ok := m.groupByMember[inv.inviter.ObjectID()]
	if !ok {
		g = m.createGroup(inv.inviter)
	}
	if !g.add(invitee) {
		return nil, ErrGroupFull
	}
	m.groupByMember[key] = g

	slog.Info("character joined group",
		"group", g.ID(),
		"character", invitee.Name(),
		"size", g.Size())
	return g, nil
}

// Decline drops invitee's pending invite and its timer.
func (m *Manager) Decline(invitee *model.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := invitee.ObjectID()
	if _, ok := m.pending[key]; !ok {
		return ErrNoInvite
	}
	delete(m.pending, key)
	m.invites.Cancel(key)
	return nil
}

// HasPendingInvite reports whether the character has an unanswered invite.
func (m *Manager) HasPendingInvite(invitee *model.Character) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pending[invitee.ObjectID()]
	return ok
}

// Leave removes c from its group. A group shrinking below two members
// disbands; a departing leader hands leadership to the next member.
func (m *Manager) Leave(c *model.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groupByMember[c.ObjectID()]
	if !ok {
		return
	}
	delete(m.groupByMember, c.ObjectID())

	remaining, leaderLeft := g.remove(c)
	if remaining < 2 {
		m.disband(g)
		return
	}
	if leaderLeft {
		slog.Info("group leader changed",
			"group", g.ID(),
			"leader", g.Leader().Name())
	}
}

// GroupOf returns the group c belongs to, or nil.
func (m *Manager) GroupOf(c *model.Character) *Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groupByMember[c.ObjectID()]
}

// GroupCount returns the number of active groups.
func (m *Manager) GroupCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups)
}

// createGroup registers a fresh group around leader. Must hold mu.
func (m *Manager) createGroup(leader *model.Character) *Group {
	g := &Group{
		id:      m.nextID.Add(1),
		leader:  leader,
		members: []*model.Character{leader},
	}
	m.groups[g.id] = g
	m.groupByMember[leader.ObjectID()] = g
	return g
}

// disband drops g and all member mappings. Must hold mu.
func (m *Manager) disband(g *Group) {
	for _, member := range g.Members() {
		delete(m.groupByMember, member.ObjectID())
	}
	delete(m.groups, g.id)
	slog.Info("group disbanded", "group", g.ID())
}

// expireInvite is the keyed timer's callback: the invitation lapses as an
// automatic decline.
func (m *Manager) expireInvite(key uint32) {
	m.mu.Lock()
	inv, ok := m.pending[key]
	if ok {
		delete(m.pending, key)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	slog.Debug("group invite expired",
		"inviter", inv.inviter.Name(),
		"invitee", inv.invitee.Name())
	if m.onInviteExpired != nil {
		m.onInviteExpired(inv.inviter, inv.invitee)
	}
}
