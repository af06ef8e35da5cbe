package asset

import (
	"go.uber.org/zap"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/system"
)

// MeshRef asks for the mesh at Path to be loaded.
type MeshRef struct{ Path string }

// MeshHandle is populated by LoadSystem once the mesh is resolved.
type MeshHandle struct{ Handle }

// LoadSystem resolves MeshRef components into MeshHandle ones. Entities that
// already have a handle are updated in place; the rest get one through
// Commands and see it next frame. Load failures are logged and not retried.
type LoadSystem struct {
	cache  *Cache
	access ecs.Access
	refs   ecs.Access
	out    ecs.Access
}

func NewLoadSystem(w *ecs.World, cache *Cache) *LoadSystem {
	ref := ecs.Register[MeshRef](w)
	handle := ecs.Register[MeshHandle](w)
	return &LoadSystem{
		cache:  cache,
		access: ecs.Access{Read: []ecs.ComponentID{ref}, Write: []ecs.ComponentID{handle}},
		refs:   ecs.Access{Read: []ecs.ComponentID{ref}},
		out:    ecs.Access{Write: []ecs.ComponentID{handle}},
	}
}

func (s *LoadSystem) Name() string        { return "asset-load" }
func (s *LoadSystem) Phase() system.Phase { return system.PhaseInput }
func (s *LoadSystem) Access() ecs.Access  { return s.access }

func (s *LoadSystem) Update(ctx *system.Context) error {
	refs, err := ctx.Query(s.refs)
	if err != nil {
		return err
	}
	out, err := ctx.Query(s.out)
	if err != nil {
		return err
	}
	ecs.Each1(refs, func(id ecs.EntityID, ref MeshRef) {
		h, err := s.cache.Resolve(ref.Path)
		if err != nil {
			ctx.Log.Debug("mesh unavailable", zap.Stringer("entity", id), zap.String("path", ref.Path), zap.Error(err))
			return
		}
		if cur, ok := ecs.Write[MeshHandle](out, id); ok {
			cur.Handle = h
			return
		}
		ecs.Add(ctx.Commands, id, MeshHandle{Handle: h})
	})
	return nil
}
