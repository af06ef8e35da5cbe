package ecs

import "fmt"

// View is a scoped handle over the entities whose mask holds every type in
// its access set. A View must not outlive the frame or call it was made for.
type View struct {
	world    *World
	access   Access
	required Mask
	writable Mask
	stores   []ComponentStore
}

// Query builds a View over a. Overlapping read and write sets are a
// declaration bug and fail with ErrConfiguration.
func (w *World) Query(a Access) (*View, error) {
	if err := w.Validate(a); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	v := &View{
		world:    w,
		access:   a,
		required: a.Mask(),
		writable: a.WriteMask(),
	}
	v.required.Each(func(c ComponentID) {
		v.stores = append(v.stores, w.registry.stores[c])
	})
	return v, nil
}

// MustQuery is Query for access sets known to be valid at construction time.
func (w *World) MustQuery(a Access) *View {
	v, err := w.Query(a)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *View) Access() Access { return v.access }
func (v *View) World() *World  { return v.world }

// driver returns the smallest store of the view, so iteration rejects as
// few candidates as possible.
func (v *View) driver() ComponentStore {
	var best ComponentStore
	for _, s := range v.stores {
		if best == nil || s.Len() < best.Len() {
			best = s
		}
	}
	return best
}

// Each calls fn for every matching entity. Order follows the dense order of
// the sparsest store and is not stable between frames.
func (v *View) Each(fn func(EntityID)) {
	d := v.driver()
	if d == nil {
		v.world.registry.Each(fn)
		return
	}
	reg := v.world.registry
	ids := d.Entities()
	for i := 0; i < len(ids); i++ {
		id := ids[i]
		if reg.maskAt(id).Contains(v.required) {
			fn(id)
		}
	}
}

// Count returns the number of matching entities.
func (v *View) Count() int {
	n := 0
	v.Each(func(EntityID) { n++ })
	return n
}

// Entities collects the matching entities.
func (v *View) Entities() []EntityID {
	out := make([]EntityID, 0, v.Count())
	v.Each(func(id EntityID) { out = append(out, id) })
	return out
}

func viewStore[T any](v *View, write bool) (*Store[T], bool) {
	s, ok := storeOf[T](v.world)
	if !ok {
		return nil, false
	}
	if v.world.checks {
		if !v.required.Has(s.id) {
			panic(fmt.Sprintf("ecs: undeclared access to %s", v.world.ComponentName(s.id)))
		}
		if write && !v.writable.Has(s.id) {
			panic(fmt.Sprintf("ecs: write to %s declared read-only", v.world.ComponentName(s.id)))
		}
	}
	return s, true
}

// Read returns a copy of the T value of id through v.
func Read[T any](v *View, id EntityID) (T, bool) {
	s, ok := viewStore[T](v, false)
	if !ok {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

// Write returns a mutable pointer to the T value of id through v. T must be
// in the view's write set.
func Write[T any](v *View, id EntityID) (*T, bool) {
	s, ok := viewStore[T](v, true)
	if !ok {
		return nil, false
	}
	return s.GetMut(id)
}

// Each1 iterates the view handing out a copy of the A value of every match.
func Each1[A any](v *View, fn func(EntityID, A)) {
	sa, ok := viewStore[A](v, false)
	if !ok {
		return
	}
	v.Each(func(id EntityID) {
		if a, ok := sa.Get(id); ok {
			fn(id, a)
		}
	})
}

// Each2 iterates entities that have both A and B, by value.
func Each2[A, B any](v *View, fn func(EntityID, A, B)) {
	sa, okA := viewStore[A](v, false)
	sb, okB := viewStore[B](v, false)
	if !okA || !okB {
		return
	}
	v.Each(func(id EntityID) {
		a, okA := sa.Get(id)
		b, okB := sb.Get(id)
		if okA && okB {
			fn(id, a, b)
		}
	})
}

// Each3 iterates entities that have components A, B, and C, by value.
func Each3[A, B, C any](v *View, fn func(EntityID, A, B, C)) {
	sa, okA := viewStore[A](v, false)
	sb, okB := viewStore[B](v, false)
	sc, okC := viewStore[C](v, false)
	if !okA || !okB || !okC {
		return
	}
	v.Each(func(id EntityID) {
		a, okA := sa.Get(id)
		b, okB := sb.Get(id)
		c, okC := sc.Get(id)
		if okA && okB && okC {
			fn(id, a, b, c)
		}
	})
}

// EachMut1 hands out a pointer to the A value of every match. A must be in
// the view's write set.
func EachMut1[A any](v *View, fn func(EntityID, *A)) {
	sa, ok := viewStore[A](v, true)
	if !ok {
		return
	}
	v.Each(func(id EntityID) {
		if a, ok := sa.GetMut(id); ok {
			fn(id, a)
		}
	})
}

// EachMut2 hands out a pointer to A, which must be writable, and a copy of B.
func EachMut2[A, B any](v *View, fn func(EntityID, *A, B)) {
	sa, okA := viewStore[A](v, true)
	sb, okB := viewStore[B](v, false)
	if !okA || !okB {
		return
	}
	v.Each(func(id EntityID) {
		a, okA := sa.GetMut(id)
		b, okB := sb.Get(id)
		if okA && okB {
			fn(id, a, b)
		}
	})
}
