package model

import "sync"

// WorldObject is the base of every object placed in the world: a unique
// object id, a display name and a location.
type WorldObject struct {
	objectID uint32
	name     string
	location Location

	mu sync.RWMutex
}

// NewWorldObject creates an object at the given location.
func NewWorldObject(objectID uint32, name string, loc Location) *WorldObject {
	return &WorldObject{
		objectID: objectID,
		name:     name,
		location: loc,
	}
}

// ObjectID returns the object's unique id. Immutable after creation, so no
// lock is taken.
func (w *WorldObject) ObjectID() uint32 {
	return w.objectID
}

// Name returns the object's name.
func (w *WorldObject) Name() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.name
}

// SetName replaces the object's name.
func (w *WorldObject) SetName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name = name
}

// Location returns a copy of the object's position.
func (w *WorldObject) Location() Location {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.location
}

// SetLocation moves the object.
func (w *WorldObject) SetLocation(loc Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.location = loc
}
