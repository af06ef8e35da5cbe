package event

import "github.com/kestrel-engine/kestrel/internal/core/ecs"

// Structural changes applied at a frame boundary.

type EntitySpawned struct {
	Entity ecs.EntityID
}

type EntityDespawned struct {
	Entity ecs.EntityID
	Mask   ecs.Mask
}

type ComponentAdded struct {
	Entity    ecs.EntityID
	Component ecs.ComponentID
}

type ComponentRemoved struct {
	Entity    ecs.EntityID
	Component ecs.ComponentID
}

// ComponentReplaced reports a new value written over an existing one through
// AddComponent.
type ComponentReplaced struct {
	Entity    ecs.EntityID
	Component ecs.ComponentID
}

// FrameCompleted is emitted after the command buffers of a frame are applied.
type FrameCompleted struct {
	Frame    uint64
	Systems  int
	Commands int
}

// Forward returns a World observer that re-emits every change on b.
func Forward(b *Bus) func(ecs.Change) {
	return func(c ecs.Change) {
		switch c.Kind {
		case ecs.EntitySpawned:
			Emit(b, EntitySpawned{Entity: c.Entity})
		case ecs.EntityDespawned:
			Emit(b, EntityDespawned{Entity: c.Entity, Mask: c.Mask})
		case ecs.ComponentAdded:
			Emit(b, ComponentAdded{Entity: c.Entity, Component: c.Component})
		case ecs.ComponentRemoved:
			Emit(b, ComponentRemoved{Entity: c.Entity, Component: c.Component})
		case ecs.ComponentReplaced:
			Emit(b, ComponentReplaced{Entity: c.Entity, Component: c.Component})
		}
	}
}
