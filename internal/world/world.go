package world

import (
	"sync"

	"github.com/udisondev/mudgo/internal/model"
)

// World is the registry of live characters. The heartbeat iterates it every
// tick; other goroutines (persistence, diagnostics) read snapshots.
type World struct {
	mu         sync.RWMutex
	characters map[uint32]*model.Character
}

// New creates an empty world.
func New() *World {
	return &World{
		characters: make(map[uint32]*model.Character),
	}
}

// Add registers a character under its object ID. Returns false if the ID is
// already taken.
func (w *World) Add(c *model.Character) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.characters[c.ObjectID()]; ok {
		return false
	}
	w.characters[c.ObjectID()] = c
	return true
}

// Remove unregisters the character with the given object ID. Returns the
// removed character, or nil if unknown.
func (w *World) Remove(objectID uint32) *model.Character {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.characters[objectID]
	if !ok {
		return nil
	}
	delete(w.characters, objectID)
	return c
}

// Get returns the character with the given object ID, or nil.
func (w *World) Get(objectID uint32) *model.Character {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.characters[objectID]
}

// Count returns the number of registered characters.
func (w *World) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.characters)
}

// Snapshot returns the registered characters as a new slice. The heartbeat
// ticks off this copy so character callbacks can add or remove world entries
// without holding the registry lock.
func (w *World) Snapshot() []*model.Character {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*model.Character, 0, len(w.characters))
	for _, c := range w.characters {
		out = append(out, c)
	}
	return out
}
