package scene

import "github.com/kestrel-engine/kestrel/internal/core/ecs"

// Local is the transform of an entity relative to its parent.
type Local struct{ Transform }

// Global is the derived transform in world space, written only by the
// hierarchy system.
type Global struct{ Transform }

// Parent links an entity to its parent. Only Hierarchy.SetParent can build a
// non-empty link, so every link passes the cycle check. The zero Parent makes
// the entity a root.
type Parent struct{ id ecs.EntityID }

// Of returns the linked parent.
func (p Parent) Of() ecs.EntityID { return p.id }

// Name is a human readable label, used by scene fixtures.
type Name struct{ Value string }

// Renderable tags entities the render path should draw.
type Renderable struct {
	Mesh  string
	Layer int
}
