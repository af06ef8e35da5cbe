package scene

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

// Hierarchy owns the parent links of a World and the cached parent-before-
// child order derived from them. The order is recomputed only after the
// shape changed: a reparent, a despawn, or Local/Parent being added, removed
// or overwritten.
type Hierarchy struct {
	world  *ecs.World
	local  ecs.ComponentID
	global ecs.ComponentID
	parent ecs.ComponentID
	log    *zap.Logger

	dirty    bool
	order    []ecs.EntityID
	parents  []int32
	rebuilds int
}

// NewHierarchy registers the transform components on w and observes its
// changes, so the cached order is invalidated as soon as a change is applied.
func NewHierarchy(w *ecs.World, log *zap.Logger) *Hierarchy {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hierarchy{
		world:  w,
		local:  ecs.Register[Local](w),
		global: ecs.Register[Global](w),
		parent: ecs.Register[Parent](w),
		log:    log,
		dirty:  true,
	}
	w.Observe(h.observe)
	return h
}

func (h *Hierarchy) observe(c ecs.Change) {
	switch c.Kind {
	case ecs.EntityDespawned:
		h.dirty = true
	case ecs.ComponentAdded, ecs.ComponentRemoved:
		if c.Component == h.local || c.Component == h.parent {
			h.dirty = true
		}
	case ecs.ComponentReplaced:
		// Overwriting Local keeps the shape; a new Parent value does not.
		if c.Component == h.parent {
			h.dirty = true
		}
	}
}

// Components returns the IDs of Local, Global and Parent.
func (h *Hierarchy) Components() (local, global, parent ecs.ComponentID) {
	return h.local, h.global, h.parent
}

// MarkDirty forces the next traversal to recompute the order.
func (h *Hierarchy) MarkDirty() { h.dirty = true }

// Dirty reports whether the cached order is stale.
func (h *Hierarchy) Dirty() bool { return h.dirty }

// Rebuilds counts order recomputations.
func (h *Hierarchy) Rebuilds() int { return h.rebuilds }

// SetParent links child under parent. It fails with ecs.ErrStaleHandle for
// dead entities and with ecs.ErrConfiguration when the link would close a
// cycle. It must run outside a frame; systems use SetParentDeferred.
func (h *Hierarchy) SetParent(child, parent ecs.EntityID) error {
	if !h.world.Alive(child) {
		return fmt.Errorf("set parent of %s: %w", child, ecs.ErrStaleHandle)
	}
	if !h.world.Alive(parent) {
		return fmt.Errorf("set parent %s: %w", parent, ecs.ErrStaleHandle)
	}
	if child == parent {
		return fmt.Errorf("entity %s parented to itself: %w", child, ecs.ErrConfiguration)
	}
	if h.isAncestor(child, parent) {
		return fmt.Errorf("parenting %s under its descendant %s: %w", child, parent, ecs.ErrConfiguration)
	}
	ecs.AddComponent(h.world, child, Parent{id: parent})
	h.dirty = true
	h.log.Debug("reparented", zap.Stringer("child", child), zap.Stringer("parent", parent))
	return nil
}

// SetParentDeferred queues SetParent on cmds. A cycle surfaces as an error of
// the frame that applies the buffer.
func (h *Hierarchy) SetParentDeferred(cmds *ecs.Commands, child, parent ecs.EntityID) {
	cmds.Do(func(*ecs.World) error { return h.SetParent(child, parent) })
}

// ClearParent makes child a root.
func (h *Hierarchy) ClearParent(child ecs.EntityID) bool {
	_, ok := ecs.RemoveComponent[Parent](h.world, child)
	if ok {
		h.dirty = true
	}
	return ok
}

// ParentOf returns the live parent of child.
func (h *Hierarchy) ParentOf(child ecs.EntityID) (ecs.EntityID, bool) {
	p, ok := ecs.Get[Parent](h.world, child)
	if !ok || !h.world.Alive(p.id) {
		return 0, false
	}
	return p.id, true
}

// isAncestor walks up from node and reports whether anc is on the path.
func (h *Hierarchy) isAncestor(anc, node ecs.EntityID) bool {
	for steps := 0; steps <= h.world.Len(); steps++ {
		if node == anc {
			return true
		}
		p, ok := h.ParentOf(node)
		if !ok {
			return false
		}
		node = p
	}
	return true
}

// Order returns every entity carrying Local, each after its parent. The slice
// is owned by the hierarchy and replaced on recompute.
func (h *Hierarchy) Order() ([]ecs.EntityID, error) {
	v, err := h.world.Query(ecs.Access{Read: []ecs.ComponentID{h.local}})
	if err != nil {
		return nil, err
	}
	p, err := h.world.Query(ecs.Access{Read: []ecs.ComponentID{h.parent}})
	if err != nil {
		return nil, err
	}
	if err := h.ensureOrder(v, p); err != nil {
		return nil, err
	}
	return h.order, nil
}

// ensureOrder rebuilds order and the parent slot table from a view over
// Local (locals) and one over Parent (links).
func (h *Hierarchy) ensureOrder(locals, links *ecs.View) error {
	if !h.Dirty() {
		return nil
	}
	all := locals.Entities()
	slices.Sort(all)

	children := make(map[ecs.EntityID][]ecs.EntityID)
	roots := make([]ecs.EntityID, 0, len(all))
	for _, id := range all {
		p, ok := ecs.Read[Parent](links, id)
		if ok && h.world.Alive(p.id) && h.world.Registry().Mask(p.id).Has(h.local) {
			children[p.id] = append(children[p.id], id)
			continue
		}
		roots = append(roots, id)
	}

	order := make([]ecs.EntityID, 0, len(all))
	parents := make([]int32, 0, len(all))
	for _, r := range roots {
		order = append(order, r)
		parents = append(parents, -1)
	}
	for i := 0; i < len(order); i++ {
		for _, c := range children[order[i]] {
			order = append(order, c)
			parents = append(parents, int32(i))
		}
	}
	if len(order) != len(all) {
		return fmt.Errorf("hierarchy has a parent cycle among %d entities: %w", len(all)-len(order), ecs.ErrConfiguration)
	}

	h.order = order
	h.parents = parents
	h.dirty = false
	h.rebuilds++
	h.log.Debug("hierarchy order rebuilt", zap.Int("entities", len(order)), zap.Int("roots", len(roots)))
	return nil
}
