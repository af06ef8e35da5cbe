package ecs_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

func TestQueryIntersection(t *testing.T) {
	w := ecs.NewWorld()
	posID := ecs.Register[Position](w)
	velID := ecs.Register[Velocity](w)

	var both []ecs.EntityID
	for i := 0; i < 10; i++ {
		id := spawn(t, w)
		ecs.AddComponent(w, id, Position{X: float32(i)})
		if i%3 == 0 {
			ecs.AddComponent(w, id, Velocity{X: 1})
			both = append(both, id)
		}
	}

	v, err := w.Query(ecs.Access{Read: []ecs.ComponentID{velID}, Write: []ecs.ComponentID{posID}})
	require.NoError(t, err)

	got := v.Entities()
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, both, got)

	ecs.EachMut2(v, func(_ ecs.EntityID, p *Position, vel Velocity) {
		p.X += vel.X
	})
	first, _ := ecs.Get[Position](w, both[0])
	assert.Equal(t, float32(1), first.X)
}

func TestQueryOverlappingAccessFails(t *testing.T) {
	w := ecs.NewWorld()
	posID := ecs.Register[Position](w)

	_, err := w.Query(ecs.Access{Read: []ecs.ComponentID{posID}, Write: []ecs.ComponentID{posID}})
	require.ErrorIs(t, err, ecs.ErrConfiguration)
	assert.Contains(t, err.Error(), "Position")
}

func TestQueryUnregisteredComponentFails(t *testing.T) {
	w := ecs.NewWorld()
	_, err := w.Query(ecs.Access{Read: []ecs.ComponentID{7}})
	require.ErrorIs(t, err, ecs.ErrConfiguration)
}

func TestQueryEmptyAccessVisitsAllEntities(t *testing.T) {
	w := ecs.NewWorld()
	spawn(t, w)
	spawn(t, w)
	v, err := w.Query(ecs.Access{})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Count())
}

func TestQueryUndeclaredAccessPanicsWithChecks(t *testing.T) {
	w := ecs.NewWorld(ecs.WithAccessChecks(true))
	posID := ecs.Register[Position](w)
	ecs.Register[Health](w)
	id := spawn(t, w)
	ecs.AddComponent(w, id, Position{})
	ecs.AddComponent(w, id, Health{})

	v := w.MustQuery(ecs.Access{Read: []ecs.ComponentID{posID}})

	assert.NotPanics(t, func() { _, _ = ecs.Read[Position](v, id) })
	assert.Panics(t, func() { _, _ = ecs.Read[Health](v, id) })
	assert.Panics(t, func() { _, _ = ecs.Write[Position](v, id) })
}

func TestQueryReadOnlyIterationCannotMutate(t *testing.T) {
	w := ecs.NewWorld(ecs.WithAccessChecks(true))
	hpID := ecs.Register[Health](w)
	id := spawn(t, w)
	ecs.AddComponent(w, id, Health{HP: 5})

	v := w.MustQuery(ecs.Access{Read: []ecs.ComponentID{hpID}})
	ecs.Each1(v, func(_ ecs.EntityID, h Health) {
		h.HP = 42
	})
	got, _ := ecs.Get[Health](w, id)
	assert.Equal(t, 5, got.HP)

	assert.Panics(t, func() {
		ecs.EachMut1(v, func(_ ecs.EntityID, h *Health) { h.HP = 42 })
	})
	got, _ = ecs.Get[Health](w, id)
	assert.Equal(t, 5, got.HP)
}

func TestQueryEachMutWritesThrough(t *testing.T) {
	w := ecs.NewWorld(ecs.WithAccessChecks(true))
	hpID := ecs.Register[Health](w)
	id := spawn(t, w)
	ecs.AddComponent(w, id, Health{HP: 5})

	v := w.MustQuery(ecs.Access{Write: []ecs.ComponentID{hpID}})
	ecs.EachMut1(v, func(_ ecs.EntityID, h *Health) { h.HP = 7 })
	got, _ := ecs.Get[Health](w, id)
	assert.Equal(t, 7, got.HP)
}

func TestQueryReadWriteHelpers(t *testing.T) {
	w := ecs.NewWorld(ecs.WithAccessChecks(true))
	hpID := ecs.Register[Health](w)
	id := spawn(t, w)
	ecs.AddComponent(w, id, Health{HP: 5})

	v := w.MustQuery(ecs.Access{Write: []ecs.ComponentID{hpID}})
	h, ok := ecs.Write[Health](v, id)
	require.True(t, ok)
	h.HP--

	got, ok := ecs.Read[Health](v, id)
	require.True(t, ok)
	assert.Equal(t, 4, got.HP)
}

func TestAccessConflicts(t *testing.T) {
	a := ecs.Access{Read: []ecs.ComponentID{1}, Write: []ecs.ComponentID{2}}
	tests := []struct {
		name string
		b    ecs.Access
		want bool
	}{
		{"read/read", ecs.Access{Read: []ecs.ComponentID{1}}, false},
		{"read/write", ecs.Access{Write: []ecs.ComponentID{1}}, true},
		{"write/read", ecs.Access{Read: []ecs.ComponentID{2}}, true},
		{"write/write", ecs.Access{Write: []ecs.ComponentID{2}}, true},
		{"disjoint", ecs.Access{Write: []ecs.ComponentID{3}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Conflicts(tt.b))
			assert.Equal(t, tt.want, tt.b.Conflicts(a))
		})
	}
}
