// Package group implements adventuring groups and their invite flow. Pending
// invites are an unbounded timer family (one per invited character), so they
// live on a keyed scheduler instead of named event slots.
package group

import (
	"sync"

	"github.com/udisondev/mudgo/internal/model"
)

// MaxMembers is the group size cap, leader included.
const MaxMembers = 9

// Group is one adventuring group: a leader plus members.
type Group struct {
	id int32

	mu      sync.RWMutex
	leader  *model.Character
	members []*model.Character
}

// ID returns the group's id.
func (g *Group) ID() int32 {
	return g.id
}

// Leader returns the current leader.
func (g *Group) Leader() *model.Character {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.leader
}

// Members returns a snapshot of all members, leader first.
func (g *Group) Members() []*model.Character {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*model.Character, len(g.members))
	copy(out, g.members)
	return out
}

// Size returns the member count, leader included.
func (g *Group) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// add appends c. Returns false when the group is full.
func (g *Group) add(c *model.Character) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.members) >= MaxMembers {
		return false
	}
	g.members = append(g.members, c)
	return true
}

// remove drops c. Returns the remaining size and whether the leader left;
// the manager promotes the next member or disbands accordingly.
func (g *Group) remove(c *model.Character) (remaining int, leaderLeft bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, m := range g.members {
		if m != c {
			g.members[n] = m
			n++
		}
	}
	g.members = g.members[:n]

	if g.leader == c {
		leaderLeft = true
		if n > 0 {
			g.leader = g.members[0]
		} else {
			g.leader = nil
		}
	}
	return n, leaderLeft
}
