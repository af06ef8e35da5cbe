package ecs

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"
)

// ChangeKind names a structural change applied to the World.
type ChangeKind uint8

const (
	EntitySpawned ChangeKind = iota
	EntityDespawned
	ComponentAdded
	ComponentRemoved
	ComponentReplaced
)

// Change describes one applied change. Component is set for the component
// kinds; Mask carries the entity's mask at the moment of despawn.
// ComponentReplaced reports AddComponent over an existing value: the mask is
// unchanged but the value is new.
type Change struct {
	Kind      ChangeKind
	Entity    EntityID
	Component ComponentID
	Mask      Mask
}

// World is the top-level ECS container. It owns the Registry and through it
// every component store. World is not safe for concurrent structural
// mutation; systems running inside a frame mutate structure through Commands.
type World struct {
	registry  *Registry
	types     map[reflect.Type]ComponentID
	names     []string
	capacity  int
	maxIDs    uint32
	checks    bool
	inFrame   atomic.Bool
	observers []func(Change)
	log       *zap.Logger
}

type Option func(*World)

// WithMaxEntities caps the number of entity slots.
func WithMaxEntities(n uint32) Option {
	return func(w *World) { w.maxIDs = n }
}

// WithCapacity presizes the registry and every store created afterwards.
func WithCapacity(n int) Option {
	return func(w *World) { w.capacity = n }
}

// WithAccessChecks enables panics on undeclared component access and on
// direct structural mutation while a frame is running.
func WithAccessChecks(on bool) Option {
	return func(w *World) { w.checks = on }
}

func WithLogger(log *zap.Logger) Option {
	return func(w *World) { w.log = log }
}

func NewWorld(opts ...Option) *World {
	w := &World{
		types:    make(map[reflect.Type]ComponentID, 16),
		capacity: 1024,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.registry = NewRegistry(w.capacity, w.maxIDs)
	return w
}

func (w *World) Registry() *Registry { return w.registry }
func (w *World) Logger() *zap.Logger { return w.log }
func (w *World) AccessChecks() bool  { return w.checks }

// Observe adds fn to the callbacks run synchronously after every change, in
// registration order.
func (w *World) Observe(fn func(Change)) { w.observers = append(w.observers, fn) }

// BeginFrame and EndFrame bracket a running frame. They are called by the
// system runner.
func (w *World) BeginFrame() { w.inFrame.Store(true) }
func (w *World) EndFrame()   { w.inFrame.Store(false) }
func (w *World) InFrame() bool {
	return w.inFrame.Load()
}

func (w *World) notify(c Change) {
	for _, fn := range w.observers {
		fn(c)
	}
}

func (w *World) guardStructural(op string) {
	if w.checks && w.inFrame.Load() {
		panic(fmt.Sprintf("ecs: %s during a running frame; use Commands", op))
	}
}

// Register adds a store for T. Registering the same type twice returns the
// existing ID.
func Register[T any](w *World) ComponentID {
	t := reflect.TypeFor[T]()
	if id, ok := w.types[t]; ok {
		return id
	}
	w.guardStructural("register component")
	if len(w.names) >= MaxComponents {
		panic(fmt.Sprintf("ecs: more than %d component types", MaxComponents))
	}
	id := ComponentID(len(w.names))
	w.types[t] = id
	w.names = append(w.names, t.String())
	w.registry.register(newStore[T](id, w.capacity))
	w.log.Debug("registered component", zap.String("type", t.String()), zap.Uint16("id", uint16(id)))
	return id
}

// ComponentOf returns the ID of T if it has been registered.
func ComponentOf[T any](w *World) (ComponentID, bool) {
	id, ok := w.types[reflect.TypeFor[T]()]
	return id, ok
}

// ComponentName returns the Go type name registered under id.
func (w *World) ComponentName(id ComponentID) string {
	if int(id) >= len(w.names) {
		return fmt.Sprintf("component#%d", id)
	}
	return w.names[id]
}

// NumComponents returns the number of registered component types.
func (w *World) NumComponents() int { return len(w.names) }

func storeOf[T any](w *World) (*Store[T], bool) {
	id, ok := w.types[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return w.registry.stores[id].(*Store[T]), true
}

// Spawn creates an entity with an empty mask.
func (w *World) Spawn() (EntityID, error) {
	w.guardStructural("spawn")
	id, err := w.registry.Create()
	if err != nil {
		return 0, err
	}
	w.notify(Change{Kind: EntitySpawned, Entity: id})
	return id, nil
}

// Despawn destroys id and clears it from every store. It is the only
// operation that reports ErrStaleHandle.
func (w *World) Despawn(id EntityID) error {
	w.guardStructural("despawn")
	mask := w.registry.Mask(id)
	if err := w.registry.Destroy(id); err != nil {
		return err
	}
	w.notify(Change{Kind: EntityDespawned, Entity: id, Mask: mask})
	return nil
}

func (w *World) Alive(id EntityID) bool { return w.registry.Alive(id) }

// Len returns the number of live entities.
func (w *World) Len() int { return w.registry.Len() }

// AddComponent sets the T value of id, registering T on first use. Stale ids
// are ignored.
func AddComponent[T any](w *World, id EntityID, v T) (T, bool) {
	var zero T
	w.guardStructural("add component")
	if !w.registry.Alive(id) {
		return zero, false
	}
	c := Register[T](w)
	s := w.registry.stores[c].(*Store[T])
	prev, replaced := s.Insert(id, v)
	if replaced {
		w.notify(Change{Kind: ComponentReplaced, Entity: id, Component: c})
		return prev, true
	}
	w.registry.setMaskBit(id, c)
	w.notify(Change{Kind: ComponentAdded, Entity: id, Component: c})
	return prev, false
}

// RemoveComponent removes the T value of id and returns it.
func RemoveComponent[T any](w *World, id EntityID) (T, bool) {
	var zero T
	w.guardStructural("remove component")
	s, ok := storeOf[T](w)
	if !ok || !w.registry.Alive(id) {
		return zero, false
	}
	v, ok := s.Remove(id)
	if !ok {
		return zero, false
	}
	w.registry.clearMaskBit(id, s.id)
	w.notify(Change{Kind: ComponentRemoved, Entity: id, Component: s.id})
	return v, true
}

// Get returns a copy of the T value of id.
func Get[T any](w *World, id EntityID) (T, bool) {
	s, ok := storeOf[T](w)
	if !ok {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

func Has[T any](w *World, id EntityID) bool {
	s, ok := storeOf[T](w)
	return ok && s.Has(id)
}

// Count returns the number of entities holding T.
func Count[T any](w *World) int {
	s, ok := storeOf[T](w)
	if !ok {
		return 0
	}
	return s.Len()
}
