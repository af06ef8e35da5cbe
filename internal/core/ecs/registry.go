package ecs

import (
	"fmt"
	"math"
)

// ComponentStore is implemented by every Store[T] so the Registry can
// bulk-remove an entity's data from the stores its mask names.
type ComponentStore interface {
	ID() ComponentID
	Len() int
	Has(id EntityID) bool
	Entities() []EntityID
	erase(id EntityID) bool
}

// Registry allocates entity IDs with generational indices and a free list,
// tracks the component mask of every slot and owns the set of stores.
type Registry struct {
	generations []uint32
	masks       []Mask
	live        []bool
	freeList    []uint32
	stores      []ComponentStore
	alive       int
	retired     int
	maxEntities uint32
}

// NewRegistry creates a registry that hands out at most maxEntities slots.
// Zero means no limit beyond the 32-bit index space.
func NewRegistry(capacity int, maxEntities uint32) *Registry {
	if maxEntities == 0 {
		maxEntities = math.MaxUint32
	}
	return &Registry{
		generations: make([]uint32, 0, capacity),
		masks:       make([]Mask, 0, capacity),
		live:        make([]bool, 0, capacity),
		freeList:    make([]uint32, 0, capacity/4),
		stores:      make([]ComponentStore, 0, 16),
		maxEntities: maxEntities,
	}
}

// Create allocates a slot, reusing the most recently freed one first.
func (r *Registry) Create() (EntityID, error) {
	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.live[idx] = true
		r.alive++
		return NewEntityID(idx, r.generations[idx]), nil
	}
	if uint64(len(r.generations)) >= uint64(r.maxEntities) {
		return 0, fmt.Errorf("create entity (%d slots in use): %w", len(r.generations), ErrAllocationExhausted)
	}
	idx := uint32(len(r.generations))
	r.generations = append(r.generations, 1)
	r.masks = append(r.masks, Mask{})
	r.live = append(r.live, true)
	r.alive++
	return NewEntityID(idx, 1), nil
}

// Alive is an O(1) generation check.
func (r *Registry) Alive(id EntityID) bool {
	idx := id.Index()
	if int(idx) >= len(r.generations) {
		return false
	}
	return r.live[idx] && r.generations[idx] == id.Generation()
}

// Destroy invalidates id and removes its data from every store holding it.
// A stale id leaves the registry untouched.
func (r *Registry) Destroy(id EntityID) error {
	if !r.Alive(id) {
		return fmt.Errorf("destroy %s: %w", id, ErrStaleHandle)
	}
	idx := id.Index()
	r.masks[idx].Each(func(c ComponentID) {
		r.stores[c].erase(id)
	})
	r.masks[idx] = Mask{}
	r.live[idx] = false
	r.alive--
	if r.generations[idx] == math.MaxUint32 {
		// Wrapping would revive old handles; the slot is never reused.
		r.retired++
		return nil
	}
	r.generations[idx]++
	r.freeList = append(r.freeList, idx)
	return nil
}

// Mask returns the component mask of id, empty for stale handles.
func (r *Registry) Mask(id EntityID) Mask {
	if !r.Alive(id) {
		return Mask{}
	}
	return r.masks[id.Index()]
}

// Len returns the number of live entities.
func (r *Registry) Len() int { return r.alive }

// Retired returns the number of slots whose generation ran out.
func (r *Registry) Retired() int { return r.retired }

// Each calls fn for every live entity in index order.
func (r *Registry) Each(fn func(EntityID)) {
	for i, ok := range r.live {
		if ok {
			fn(NewEntityID(uint32(i), r.generations[i]))
		}
	}
}

// Store returns the store registered under c.
func (r *Registry) Store(c ComponentID) (ComponentStore, bool) {
	if int(c) >= len(r.stores) {
		return nil, false
	}
	return r.stores[c], true
}

func (r *Registry) register(store ComponentStore) {
	r.stores = append(r.stores, store)
}

func (r *Registry) setMaskBit(id EntityID, c ComponentID) {
	if r.Alive(id) {
		r.masks[id.Index()].Set(c)
	}
}

func (r *Registry) clearMaskBit(id EntityID, c ComponentID) {
	if r.Alive(id) {
		r.masks[id.Index()].Clear(c)
	}
}

// maskAt skips the liveness check; callers hold an id taken from a store.
func (r *Registry) maskAt(id EntityID) Mask {
	return r.masks[id.Index()]
}
