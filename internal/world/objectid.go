// Package world holds the live object registry and the heartbeat loop that
// drives every per-tick concern of the simulation.
package world

import "sync/atomic"

// ObjectIDFactory hands out unique object IDs for world entities. One
// factory per world instance; independent simulations (and tests) construct
// their own instead of sharing process-global state.
//
// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: reserved (0 = invalid)
//	0x10000000 - 0x1FFFFFFF: characters
//	0x20000000 - 0x2FFFFFFF: NPCs
type ObjectIDFactory struct {
	nextCharacterID atomic.Uint32
	nextNPCID       atomic.Uint32
}

// NewObjectIDFactory creates a factory with counters at the range starts.
func NewObjectIDFactory() *ObjectIDFactory {
	f := &ObjectIDFactory{}
	f.nextCharacterID.Store(0x10000000)
	f.nextNPCID.Store(0x20000000)
	return f
}

// NextCharacterID returns the next unique character object ID.
func (f *ObjectIDFactory) NextCharacterID() uint32 {
	return f.nextCharacterID.Add(1)
}

// NextNPCID returns the next unique NPC object ID.
func (f *ObjectIDFactory) NextNPCID() uint32 {
	return f.nextNPCID.Add(1)
}
