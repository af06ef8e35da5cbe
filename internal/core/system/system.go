package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

// Phase is a coarse ordering band. Conflicting systems run in ascending
// phase order; within a phase, in registration order.
type Phase int

const (
	PhaseInput      Phase = iota // 0: load assets, apply input
	PhasePreUpdate               // 1: react to last frame's events
	PhaseUpdate                  // 2: game logic
	PhasePostUpdate              // 3: hierarchy propagation
	PhaseOutput                  // 4: render extraction
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// System is the interface every ECS system implements. Access must list
// every component the body touches: the graph built from it is the only
// thing keeping concurrent systems apart.
type System interface {
	Name() string
	Phase() Phase
	Access() ecs.Access
	Update(ctx *Context) error
}

// Orderer is implemented by systems that must run after other named systems
// even when their access sets do not conflict.
type Orderer interface {
	After() []string
}

// Context is handed to a system for one execution window.
type Context struct {
	World    *ecs.World
	Commands *ecs.Commands
	Delta    time.Duration
	Frame    uint64
	Log      *zap.Logger

	access ecs.Access
}

// Query returns a view over a, which must be covered by the system's
// declared access. Writes need a declared write; reads accept either.
func (c *Context) Query(a ecs.Access) (*ecs.View, error) {
	declared := c.access.Mask()
	writes := c.access.WriteMask()
	if !declared.Contains(a.ReadMask()) || !writes.Contains(a.WriteMask()) {
		return nil, fmt.Errorf("query %s exceeds declared %s: %w",
			c.World.DescribeAccess(a), c.World.DescribeAccess(c.access), ecs.ErrConfiguration)
	}
	return c.World.Query(a)
}

// View returns a view over the system's whole declared access.
func (c *Context) View() (*ecs.View, error) {
	return c.World.Query(c.access)
}

// Access returns the declared access of the running system.
func (c *Context) Access() ecs.Access { return c.access }

// Func adapts a plain function into a System.
type Func struct {
	name   string
	phase  Phase
	access ecs.Access
	after  []string
	fn     func(*Context) error
}

func NewFunc(name string, phase Phase, access ecs.Access, fn func(*Context) error) *Func {
	return &Func{name: name, phase: phase, access: access, fn: fn}
}

// RunAfter adds ordering hints and returns f.
func (f *Func) RunAfter(names ...string) *Func {
	f.after = append(f.after, names...)
	return f
}

func (f *Func) Name() string              { return f.name }
func (f *Func) Phase() Phase              { return f.phase }
func (f *Func) Access() ecs.Access        { return f.access }
func (f *Func) After() []string           { return f.after }
func (f *Func) Update(ctx *Context) error { return f.fn(ctx) }
