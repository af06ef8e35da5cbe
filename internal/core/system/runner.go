package system

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/event"
	"github.com/kestrel-engine/kestrel/internal/telemetry"
)

// Runner drives frames: it owns the registered systems, rebuilds the graph
// when the set changes and applies deferred commands at the frame boundary.
type Runner struct {
	world   *ecs.World
	sched   *Scheduler
	bus     *event.Bus
	rec     *telemetry.Recorder
	log     *zap.Logger
	systems []System

	graph   *Graph
	dirty   bool
	cmds    []*ecs.Commands
	loggers []*zap.Logger
	frame   uint64
}

type RunnerOption func(*Runner)

func WithBus(b *event.Bus) RunnerOption {
	return func(r *Runner) { r.bus = b }
}

func WithRecorder(rec *telemetry.Recorder) RunnerOption {
	return func(r *Runner) { r.rec = rec }
}

func WithRunnerLogger(log *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner binds a runner to w and sched and forwards every World change to
// the runner's event bus.
func NewRunner(w *ecs.World, sched *Scheduler, opts ...RunnerOption) *Runner {
	r := &Runner{
		world:   w,
		sched:   sched,
		systems: make([]System, 0, 16),
		log:     zap.NewNop(),
		rec:     telemetry.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = event.NewBus()
	}
	w.Observe(event.Forward(r.bus))
	return r
}

func (r *Runner) World() *ecs.World { return r.world }
func (r *Runner) Bus() *event.Bus   { return r.bus }
func (r *Runner) Frame() uint64     { return r.frame }

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.dirty = true
}

// Rebuild forces the graph to be rebuilt before the next frame, for systems
// whose access sets changed after registration.
func (r *Runner) Rebuild() { r.dirty = true }

// Graph returns the current graph, building it if needed.
func (r *Runner) Graph() (*Graph, error) {
	if r.graph != nil && !r.dirty {
		return r.graph, nil
	}
	g, err := Build(r.world, r.systems)
	if err != nil {
		return nil, err
	}
	r.graph = g
	r.dirty = false
	r.cmds = make([]*ecs.Commands, g.Len())
	r.loggers = make([]*zap.Logger, g.Len())
	for i := 0; i < g.Len(); i++ {
		r.cmds[i] = ecs.NewCommands()
		r.loggers[i] = r.log.With(zap.String("system", g.Name(i)))
	}
	r.log.Info("system graph built",
		zap.Int("systems", g.Len()),
		zap.Int("layers", len(g.Layers())),
	)
	return g, nil
}

// Tick runs one frame. Structural events of the previous frame are
// dispatched first; then the graph executes; then every command buffer is
// applied in graph order. A configuration error returns before any system
// runs.
func (r *Runner) Tick(ctx context.Context, dt time.Duration) error {
	g, err := r.Graph()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.bus.SwapBuffers()
	r.bus.DispatchAll()

	r.frame++
	frame := r.frame
	start := time.Now()

	r.world.BeginFrame()
	runErr := r.sched.Run(ctx, g, func(n int) error {
		s := g.System(n)
		sctx := &Context{
			World:    r.world,
			Commands: r.cmds[n],
			Delta:    dt,
			Frame:    frame,
			Log:      r.loggers[n],
			access:   g.Access(n),
		}
		t0 := time.Now()
		err := s.Update(sctx)
		r.rec.SystemTiming(s.Name(), time.Since(t0))
		if err != nil {
			return eris.Wrapf(err, "system %s generated an error", s.Name())
		}
		return nil
	})
	r.world.EndFrame()

	var flushErr error
	applied := 0
	for _, n := range g.Order() {
		applied += r.cmds[n].Len()
		flushErr = multierr.Append(flushErr, r.cmds[n].Flush(r.world))
	}
	event.Emit(r.bus, event.FrameCompleted{Frame: frame, Systems: g.Len(), Commands: applied})

	r.rec.FrameTiming(time.Since(start))
	r.rec.Entities(r.world.Len())
	r.rec.Commands(applied)

	return multierr.Combine(runErr, flushErr)
}

// Loop ticks at rate until ctx is cancelled or, when frames > 0, that many
// frames ran. Configuration errors stop the loop; system errors are logged
// and the next frame is scheduled.
func (r *Runner) Loop(ctx context.Context, rate time.Duration, frames uint64) error {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	last := time.Now()
	for ran := uint64(0); frames == 0 || ran < frames; ran++ {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := r.Tick(ctx, dt); err != nil {
				if errors.Is(err, ecs.ErrConfiguration) {
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
				r.log.Warn("frame failed", zap.Uint64("frame", r.frame), zap.Error(err))
			}
		}
	}
	return nil
}
