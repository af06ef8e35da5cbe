package ecs

import (
	"errors"
	"sync"

	"go.uber.org/multierr"
)

// Bundle is a component value attached to a deferred spawn.
type Bundle interface {
	insert(w *World, id EntityID)
}

type bundle[T any] struct{ v T }

func (b bundle[T]) insert(w *World, id EntityID) { AddComponent(w, id, b.v) }

// With wraps v for Commands.Spawn.
func With[T any](v T) Bundle { return bundle[T]{v: v} }

// Commands buffers structural changes issued while a frame is running. The
// runner applies every buffer at the frame boundary, after all systems have
// completed, so no query of the current frame observes them.
type Commands struct {
	mu  sync.Mutex
	ops []func(*World) error
}

func NewCommands() *Commands {
	return &Commands{ops: make([]func(*World) error, 0, 16)}
}

func (c *Commands) push(op func(*World) error) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// Spawn queues the creation of an entity carrying the given components.
func (c *Commands) Spawn(bundles ...Bundle) {
	c.push(func(w *World) error {
		id, err := w.Spawn()
		if err != nil {
			return err
		}
		for _, b := range bundles {
			b.insert(w, id)
		}
		return nil
	})
}

// Despawn queues the destruction of id. An id that is already stale when the
// buffer is applied is dropped silently.
func (c *Commands) Despawn(id EntityID) {
	c.push(func(w *World) error {
		if err := w.Despawn(id); err != nil && !errors.Is(err, ErrStaleHandle) {
			return err
		}
		return nil
	})
}

// Do queues an arbitrary World mutation.
func (c *Commands) Do(fn func(*World) error) {
	c.push(fn)
}

// Add queues AddComponent(id, v).
func Add[T any](c *Commands, id EntityID, v T) {
	c.push(func(w *World) error {
		AddComponent(w, id, v)
		return nil
	})
}

// Remove queues RemoveComponent[T](id).
func Remove[T any](c *Commands, id EntityID) {
	c.push(func(w *World) error {
		RemoveComponent[T](w, id)
		return nil
	})
}

// Flush applies every queued command in submission order and empties the
// buffer. All errors are returned combined; a failing command does not stop
// the ones after it.
func (c *Commands) Flush(w *World) error {
	c.mu.Lock()
	ops := c.ops
	c.ops = make([]func(*World) error, 0, cap(ops))
	c.mu.Unlock()

	var err error
	for _, op := range ops {
		err = multierr.Append(err, op(w))
	}
	return err
}
