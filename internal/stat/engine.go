package stat

// OnChangedFunc is notified whenever a point's computed value may have
// changed: a modifier was added or removed, or an invalidation reached the
// point through the dependency graph. Consumers typically re-derive cached
// movement/attack speed and queue a status sync.
type OnChangedFunc func(point Point)

// Engine owns every materialized stat of one entity. Points materialize
// lazily on first access, so a point that is never read costs nothing.
//
// The dependency graph is invalidation-only: RegisterDependency(dependent,
// base) means "when base changes, dependent's cache is stale too". The
// engine does not detect cycles; suppliers reading each other in a loop is
// a caller contract violation and shows up as stale values, not a crash.
// Invalidation walks the graph transitively with a visited set, so diamond
// shapes and long chains settle in one NotifyBaseChanged call.
//
// Not internally locked: an Engine belongs to one entity and is mutated only
// from the world tick goroutine.
type Engine struct {
	bases      map[Point]BaseFunc
	stats      map[Point]*ModifiableStat
	dependents map[Point][]Point
	onChanged  OnChangedFunc
}

// NewEngine creates an empty engine. onChanged may be nil.
func NewEngine(onChanged OnChangedFunc) *Engine {
	return &Engine{
		bases:      make(map[Point]BaseFunc),
		stats:      make(map[Point]*ModifiableStat),
		dependents: make(map[Point][]Point),
		onChanged:  onChanged,
	}
}

// SetBase installs the base-value supplier for point. Replacing a supplier
// invalidates the point if it is already materialized.
func (e *Engine) SetBase(point Point, base BaseFunc) {
	if base == nil {
		panic("stat: SetBase with nil supplier")
	}
	e.bases[point] = base
	if s, ok := e.stats[point]; ok {
		s.base = base
		s.Invalidate()
	}
}

// RegisterDependency declares that dependent's base supplier reads each of
// the given base points. The edge is used only to propagate invalidation.
func (e *Engine) RegisterDependency(dependent Point, bases ...Point) {
	for _, base := range bases {
		e.dependents[base] = append(e.dependents[base], dependent)
	}
}

// Value computes point's current value, materializing the stat on first
// access. Panics if no base supplier was installed for the point.
func (e *Engine) Value(point Point) int32 {
	return e.stat(point).Value()
}

// AddModifier records a flat delta on point owned by source. Registered
// dependents of the point are invalidated along with it.
func (e *Engine) AddModifier(point Point, delta int32, source any) {
	e.stat(point).AddModifier(delta, source)
	e.invalidateDependents(point)
}

// RemoveModifier drops source's deltas from point. Returns whether anything
// was removed.
func (e *Engine) RemoveModifier(point Point, source any) bool {
	if !e.stat(point).RemoveModifier(source) {
		return false
	}
	e.invalidateDependents(point)
	return true
}

// RemoveAllModifiersWithSource sweeps source's deltas from every
// materialized point. Unmaterialized points cannot hold modifiers, so the
// sweep never allocates them.
func (e *Engine) RemoveAllModifiersWithSource(source any) {
	for point, s := range e.stats {
		if s.RemoveModifier(source) {
			e.invalidateDependents(point)
		}
	}
}

// NotifyBaseChanged invalidates point and every transitive dependent,
// firing the on-changed callback once per affected materialized point.
// Call it when an input outside the engine (level up, equipment swap)
// shifted what a base supplier will return.
func (e *Engine) NotifyBaseChanged(point Point) {
	visited := make(map[Point]bool)
	e.propagate(point, visited)
}

// invalidateDependents propagates a mutation on point into its registered
// dependents without re-invalidating point itself (its own stat already
// fired).
func (e *Engine) invalidateDependents(point Point) {
	if len(e.dependents[point]) == 0 {
		return
	}
	visited := map[Point]bool{point: true}
	for _, dep := range e.dependents[point] {
		e.propagate(dep, visited)
	}
}

func (e *Engine) propagate(point Point, visited map[Point]bool) {
	if visited[point] {
		return
	}
	visited[point] = true
	if s, ok := e.stats[point]; ok {
		s.Invalidate()
	} else if e.onChanged != nil {
		// Not materialized: nothing to invalidate, but consumers still want
		// to hear that the point's next read will differ.
		e.onChanged(point)
	}
	for _, dep := range e.dependents[point] {
		e.propagate(dep, visited)
	}
}

// Materialized reports whether point has been accessed at least once.
func (e *Engine) Materialized(point Point) bool {
	_, ok := e.stats[point]
	return ok
}

// stat returns the materialized stat for point, creating it on demand.
func (e *Engine) stat(point Point) *ModifiableStat {
	if s, ok := e.stats[point]; ok {
		return s
	}
	base, ok := e.bases[point]
	if !ok {
		panic("stat: no base supplier for " + point.String())
	}
	var changed func()
	if e.onChanged != nil {
		p := point
		changed = func() { e.onChanged(p) }
	}
	s := NewModifiableStat(point, base, changed)
	e.stats[point] = s
	return s
}
