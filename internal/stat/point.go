// Package stat implements lazily-cached, modifiable entity attributes.
// Every attribute (a Point) composes a base-value supplier with flat
// additive deltas from independent sources, and a shallow dependency graph
// propagates cache invalidation when a base input changes.
//
// The package holds no locks: an Engine instance belongs to one entity and
// is mutated only from the world tick goroutine.
package stat

import "fmt"

// Point identifies a named numeric attribute of an entity. The enumeration
// is closed; lookups go through a compile-time table rather than reflection.
type Point uint8

const (
	PointStrength Point = iota
	PointAgility
	PointVitality
	PointIntellect
	PointMaxHP
	PointMaxSP
	PointHPRegen
	PointSPRegen
	PointAttack
	PointDefense
	PointAttackSpeed
	PointMoveSpeed

	pointCount // keep last
)

var pointNames = [pointCount]string{
	PointStrength:    "strength",
	PointAgility:     "agility",
	PointVitality:    "vitality",
	PointIntellect:   "intellect",
	PointMaxHP:       "maxHP",
	PointMaxSP:       "maxSP",
	PointHPRegen:     "hpRegen",
	PointSPRegen:     "spRegen",
	PointAttack:      "attack",
	PointDefense:     "defense",
	PointAttackSpeed: "attackSpeed",
	PointMoveSpeed:   "moveSpeed",
}

var pointsByName = func() map[string]Point {
	m := make(map[string]Point, pointCount)
	for p := Point(0); p < pointCount; p++ {
		m[pointNames[p]] = p
	}
	return m
}()

// Valid reports whether p is a member of the closed enumeration.
func (p Point) Valid() bool {
	return p < pointCount
}

// String returns the canonical point name, or "point(N)" for out-of-range
// values.
func (p Point) String() string {
	if !p.Valid() {
		return fmt.Sprintf("point(%d)", uint8(p))
	}
	return pointNames[p]
}

// PointByName resolves a canonical name back to its Point. Used when
// restoring persisted rows whose point column is stored by name.
func PointByName(name string) (Point, bool) {
	p, ok := pointsByName[name]
	return p, ok
}

// Points returns all members of the enumeration in declaration order.
func Points() []Point {
	ps := make([]Point, pointCount)
	for p := Point(0); p < pointCount; p++ {
		ps[p] = p
	}
	return ps
}
