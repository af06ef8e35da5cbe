package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

func TestGridNearbyCoversNeighbourCells(t *testing.T) {
	g := NewGrid(10)
	a, b, c := ecs.NewEntityID(1, 1), ecs.NewEntityID(2, 1), ecs.NewEntityID(3, 1)
	g.Add(a, Vec3{X: 1, Z: 1})
	g.Add(b, Vec3{X: -5, Z: 12})
	g.Add(c, Vec3{X: 45, Z: 0})

	assert.ElementsMatch(t, []ecs.EntityID{a, b}, g.Nearby(Vec3{X: 0, Z: 0}))
	assert.ElementsMatch(t, []ecs.EntityID{c}, g.Nearby(Vec3{X: 40, Z: 5}))
	assert.Equal(t, 3, g.Len())
}

func TestGridNegativeCoordinatesFloor(t *testing.T) {
	g := NewGrid(10)
	id := ecs.NewEntityID(1, 1)
	g.Add(id, Vec3{X: -0.5})
	// -0.5 lands in cell -1, two cells from cell 1.
	assert.Empty(t, g.Nearby(Vec3{X: 15}))
	assert.Equal(t, []ecs.EntityID{id}, g.Nearby(Vec3{X: -15}))
}

func TestSpatialSystemIndexesGlobals(t *testing.T) {
	f := newFixture(t)
	s := NewSpatialSystem(f.world, 8)
	f.runner.Register(s)

	root := f.spawn(t, At(100, 0, 100))
	child := f.spawn(t, At(2, 0, 0))
	far := f.spawn(t, At(-100, 0, 0))
	assert.NoError(t, f.h.SetParent(child, root))

	f.tick(t) // adds Global
	f.tick(t)

	near := s.Grid().Nearby(Vec3{X: 101, Z: 100})
	assert.ElementsMatch(t, []ecs.EntityID{root, child}, near)
	assert.NotContains(t, near, far)
	assert.Equal(t, 3, s.Grid().Len())
}
