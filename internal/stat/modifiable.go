package stat

import "log/slog"

// BaseFunc supplies a point's base value. It may read other stats through the
// owning Engine, forming a dependency chain; register such edges with
// Engine.RegisterDependency so invalidation reaches the dependent.
type BaseFunc func() int32

// ModifiableStat composes a base value with flat additive deltas from
// independent sources. The computed value is cached and the cache is
// invalidated on every mutation, so a read never observes a stale value.
//
// Source identity is the bucket key: one source may contribute many deltas
// and all of them are dropped together on RemoveModifier. Not safe for
// concurrent use; the owning Engine is confined to one goroutine.
type ModifiableStat struct {
	point     Point
	base      BaseFunc
	buckets   map[any][]int32
	cached    int32
	valid     bool
	onChanged func()
}

// NewModifiableStat creates a stat for point backed by the given base
// supplier. onChanged, if non-nil, fires after every mutation that
// invalidates the cache. Panics on a nil base.
func NewModifiableStat(point Point, base BaseFunc, onChanged func()) *ModifiableStat {
	if base == nil {
		panic("stat: NewModifiableStat with nil base supplier")
	}
	return &ModifiableStat{
		point:     point,
		base:      base,
		onChanged: onChanged,
	}
}

// Point returns the point this stat materializes.
func (s *ModifiableStat) Point() Point {
	return s.point
}

// AddModifier records a flat delta owned by source. A zero delta is a
// contract violation and is dropped with a debug log line rather than
// polluting the bucket.
func (s *ModifiableStat) AddModifier(delta int32, source any) {
	if delta == 0 {
		slog.Debug("ignoring zero stat modifier", "point", s.point)
		return
	}
	if s.buckets == nil {
		s.buckets = make(map[any][]int32)
	}
	s.buckets[source] = append(s.buckets[source], delta)
	s.invalidate()
}

// RemoveModifier drops every delta owned by source. Returns whether anything
// was removed; the cache is only invalidated when it reports true.
func (s *ModifiableStat) RemoveModifier(source any) bool {
	if _, ok := s.buckets[source]; !ok {
		return false
	}
	delete(s.buckets, source)
	s.invalidate()
	return true
}

// Value returns the cached computed value, recomputing it as
// base + sum of all bucket deltas when the cache is stale.
func (s *ModifiableStat) Value() int32 {
	if s.valid {
		return s.cached
	}
	v := s.base()
	for _, bucket := range s.buckets {
		for _, delta := range bucket {
			v += delta
		}
	}
	s.cached = v
	s.valid = true
	return v
}

// Invalidate discards the cached value without touching the buckets. Used
// when a base input changed underneath the supplier.
func (s *ModifiableStat) Invalidate() {
	s.invalidate()
}

func (s *ModifiableStat) invalidate() {
	s.valid = false
	if s.onChanged != nil {
		s.onChanged()
	}
}
