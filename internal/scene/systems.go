package scene

import (
	"sort"
	"sync"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/system"
)

// HierarchySystem propagates Local transforms down the parent links into
// Global, visiting parents before children so one pass is enough.
type HierarchySystem struct {
	h      *Hierarchy
	access ecs.Access
	reads  ecs.Access
	links  ecs.Access
	writes ecs.Access
	worlds []Transform
}

func NewHierarchySystem(h *Hierarchy) *HierarchySystem {
	return &HierarchySystem{
		h: h,
		access: ecs.Access{
			Read:  []ecs.ComponentID{h.local, h.parent},
			Write: []ecs.ComponentID{h.global},
		},
		reads:  ecs.Access{Read: []ecs.ComponentID{h.local}},
		links:  ecs.Access{Read: []ecs.ComponentID{h.parent}},
		writes: ecs.Access{Write: []ecs.ComponentID{h.global}},
	}
}

func (s *HierarchySystem) Name() string        { return "hierarchy" }
func (s *HierarchySystem) Phase() system.Phase { return system.PhasePostUpdate }
func (s *HierarchySystem) Access() ecs.Access  { return s.access }

func (s *HierarchySystem) Update(ctx *system.Context) error {
	locals, err := ctx.Query(s.reads)
	if err != nil {
		return err
	}
	links, err := ctx.Query(s.links)
	if err != nil {
		return err
	}
	out, err := ctx.Query(s.writes)
	if err != nil {
		return err
	}
	if err := s.h.ensureOrder(locals, links); err != nil {
		return err
	}

	order, parents := s.h.order, s.h.parents
	if cap(s.worlds) < len(order) {
		s.worlds = make([]Transform, len(order))
	}
	s.worlds = s.worlds[:len(order)]

	for i, id := range order {
		l, _ := ecs.Read[Local](locals, id)
		if p := parents[i]; p >= 0 {
			s.worlds[i] = Compose(s.worlds[p], l.Transform)
		} else {
			s.worlds[i] = l.Transform
		}
		if g, ok := ecs.Write[Global](out, id); ok {
			g.Transform = s.worlds[i]
		} else {
			ecs.Add(ctx.Commands, id, Global{Transform: s.worlds[i]})
		}
	}
	return nil
}

// DrawItem is a read-only snapshot handed to the graphics collaborator.
type DrawItem struct {
	Entity ecs.EntityID
	Matrix [16]float32
	Mesh   string
	Layer  int
}

// ExtractSystem copies Global and Renderable into a draw list each frame.
// The render path only ever reads the published copy.
type ExtractSystem struct {
	access ecs.Access

	mu     sync.Mutex
	latest []DrawItem
	frame  uint64
}

func NewExtractSystem(w *ecs.World) *ExtractSystem {
	return &ExtractSystem{
		access: ecs.Access{Read: []ecs.ComponentID{
			ecs.Register[Global](w),
			ecs.Register[Renderable](w),
		}},
	}
}

func (s *ExtractSystem) Name() string        { return "render-extract" }
func (s *ExtractSystem) Phase() system.Phase { return system.PhaseOutput }
func (s *ExtractSystem) Access() ecs.Access  { return s.access }

func (s *ExtractSystem) Update(ctx *system.Context) error {
	v, err := ctx.View()
	if err != nil {
		return err
	}
	items := make([]DrawItem, 0, v.Count())
	ecs.Each2(v, func(id ecs.EntityID, g Global, r Renderable) {
		items = append(items, DrawItem{Entity: id, Matrix: g.Matrix(), Mesh: r.Mesh, Layer: r.Layer})
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].Layer != items[j].Layer {
			return items[i].Layer < items[j].Layer
		}
		return items[i].Entity < items[j].Entity
	})

	s.mu.Lock()
	s.latest = items
	s.frame = ctx.Frame
	s.mu.Unlock()
	return nil
}

// Latest returns the most recent draw list and the frame it came from.
func (s *ExtractSystem) Latest() ([]DrawItem, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.frame
}
