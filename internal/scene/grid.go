package scene

import (
	"math"
	"sync"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/system"
)

type cellKey struct {
	cx int32
	cz int32
}

// Grid buckets entities by the X/Z cell of their world position. A 3x3
// neighbourhood of cells covers any radius up to the cell size.
type Grid struct {
	size  float32
	cells map[cellKey][]ecs.EntityID
	n     int
}

func NewGrid(cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{size: cellSize, cells: make(map[cellKey][]ecs.EntityID)}
}

func (g *Grid) key(p Vec3) cellKey {
	return cellKey{
		cx: int32(math.Floor(float64(p.X / g.size))),
		cz: int32(math.Floor(float64(p.Z / g.size))),
	}
}

func (g *Grid) Add(id ecs.EntityID, p Vec3) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], id)
	g.n++
}

func (g *Grid) Len() int          { return g.n }
func (g *Grid) CellSize() float32 { return g.size }

// Nearby returns every entity in the 3x3 cells around p. Callers filter by
// exact distance.
func (g *Grid) Nearby(p Vec3) []ecs.EntityID {
	c := g.key(p)
	var out []ecs.EntityID
	for dx := int32(-1); dx <= 1; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			out = append(out, g.cells[cellKey{c.cx + dx, c.cz + dz}]...)
		}
	}
	return out
}

// SpatialSystem rebuilds a Grid from Global every frame and publishes it.
// A published Grid is never mutated again.
type SpatialSystem struct {
	access ecs.Access
	size   float32

	mu     sync.Mutex
	latest *Grid
}

func NewSpatialSystem(w *ecs.World, cellSize float32) *SpatialSystem {
	return &SpatialSystem{
		access: ecs.Access{Read: []ecs.ComponentID{ecs.Register[Global](w)}},
		size:   cellSize,
		latest: NewGrid(cellSize),
	}
}

func (s *SpatialSystem) Name() string        { return "spatial-index" }
func (s *SpatialSystem) Phase() system.Phase { return system.PhaseOutput }
func (s *SpatialSystem) Access() ecs.Access  { return s.access }

func (s *SpatialSystem) Update(ctx *system.Context) error {
	v, err := ctx.View()
	if err != nil {
		return err
	}
	g := NewGrid(s.size)
	ecs.Each1(v, func(id ecs.EntityID, gl Global) {
		g.Add(id, gl.Position)
	})

	s.mu.Lock()
	s.latest = g
	s.mu.Unlock()
	return nil
}

// Grid returns the index built by the most recent frame.
func (s *SpatialSystem) Grid() *Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
