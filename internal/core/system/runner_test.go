package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/event"
	"github.com/kestrel-engine/kestrel/internal/telemetry"
)

func newRunner(t *testing.T, w *ecs.World, opts ...RunnerOption) *Runner {
	t.Helper()
	return NewRunner(w, startScheduler(t, 4), opts...)
}

func TestRunnerDeferredSpawnVisibleNextFrame(t *testing.T) {
	w, a, _, _ := fixtureWorld()
	r := newRunner(t, w)

	r.Register(NewFunc("spawner", PhaseUpdate, ecs.Access{}, func(ctx *Context) error {
		if ctx.Frame == 1 {
			ctx.Commands.Spawn(ecs.With(compA{V: 1}))
		}
		return nil
	}))
	var mu sync.Mutex
	seen := map[uint64]int{}
	r.Register(NewFunc("counter", PhaseUpdate, ecs.Access{Read: ids(a)}, func(ctx *Context) error {
		v, err := ctx.View()
		if err != nil {
			return err
		}
		mu.Lock()
		seen[ctx.Frame] = v.Count()
		mu.Unlock()
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, r.Tick(ctx, time.Millisecond))
	assert.Equal(t, 0, seen[1], "spawn must not be visible inside the frame that issued it")
	assert.Equal(t, 1, w.Len(), "spawn applied at the frame boundary")

	require.NoError(t, r.Tick(ctx, time.Millisecond))
	assert.Equal(t, 1, seen[2])
}

func TestRunnerConfigurationErrorBlocksFrame(t *testing.T) {
	w, a, _, _ := fixtureWorld()
	r := newRunner(t, w)
	ran := false
	r.Register(NewFunc("bad", PhaseUpdate, ecs.Access{Read: ids(a), Write: ids(a)}, func(*Context) error {
		ran = true
		return nil
	}))

	err := r.Tick(context.Background(), time.Millisecond)
	require.ErrorIs(t, err, ecs.ErrConfiguration)
	assert.False(t, ran)
	assert.Equal(t, uint64(0), r.Frame())
}

func TestRunnerReusesGraphUntilSetChanges(t *testing.T) {
	w, a, _, _ := fixtureWorld()
	r := newRunner(t, w)
	r.Register(NewFunc("one", PhaseUpdate, ecs.Access{Read: ids(a)}, nop))

	g1, err := r.Graph()
	require.NoError(t, err)
	g2, err := r.Graph()
	require.NoError(t, err)
	assert.Same(t, g1, g2)

	r.Register(NewFunc("two", PhaseUpdate, ecs.Access{Write: ids(a)}, nop))
	g3, err := r.Graph()
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)
	assert.Equal(t, 2, g3.Len())
}

func TestRunnerWrapsSystemErrors(t *testing.T) {
	w := ecs.NewWorld()
	r := newRunner(t, w)
	boom := errors.New("boom")
	r.Register(NewFunc("exploder", PhaseUpdate, ecs.Access{}, func(*Context) error { return boom }))

	err := r.Tick(context.Background(), time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploder")
	assert.Equal(t, uint64(1), r.Frame())
}

func TestContextQueryMustStayInsideDeclaredAccess(t *testing.T) {
	w, a, b, _ := fixtureWorld()
	r := newRunner(t, w)
	var queryErr, widenErr, readOfWriteErr error
	r.Register(NewFunc("narrow", PhaseUpdate, ecs.Access{Read: ids(a), Write: ids(b)}, func(ctx *Context) error {
		_, queryErr = ctx.Query(ecs.Access{Read: ids(a)})
		_, widenErr = ctx.Query(ecs.Access{Write: ids(a)})
		_, readOfWriteErr = ctx.Query(ecs.Access{Read: ids(b)})
		return nil
	}))
	require.NoError(t, r.Tick(context.Background(), time.Millisecond))
	assert.NoError(t, queryErr)
	assert.ErrorIs(t, widenErr, ecs.ErrConfiguration)
	assert.NoError(t, readOfWriteErr)
}

func TestRunnerDispatchesStructuralEventsNextFrame(t *testing.T) {
	w := ecs.NewWorld()
	bus := event.NewBus()
	r := newRunner(t, w, WithBus(bus))

	var spawned []ecs.EntityID
	var completed []uint64
	event.Subscribe(bus, func(ev event.EntitySpawned) { spawned = append(spawned, ev.Entity) })
	event.Subscribe(bus, func(ev event.FrameCompleted) { completed = append(completed, ev.Frame) })

	r.Register(NewFunc("spawner", PhaseUpdate, ecs.Access{}, func(ctx *Context) error {
		ctx.Commands.Spawn()
		return nil
	}))
	ctx := context.Background()
	require.NoError(t, r.Tick(ctx, time.Millisecond))
	assert.Empty(t, spawned)
	require.NoError(t, r.Tick(ctx, time.Millisecond))
	assert.Len(t, spawned, 1)
	assert.Equal(t, []uint64{1}, completed)
}

func TestRunnerLoopStopsAfterFrames(t *testing.T) {
	w := ecs.NewWorld()
	r := newRunner(t, w)
	r.Register(NewFunc("noop", PhaseUpdate, ecs.Access{}, nop))
	require.NoError(t, r.Loop(context.Background(), time.Millisecond, 3))
	assert.Equal(t, uint64(3), r.Frame())
}

func TestRunnerLoopReturnsConfigurationError(t *testing.T) {
	w, a, _, _ := fixtureWorld()
	r := newRunner(t, w)
	r.Register(NewFunc("bad", PhaseUpdate, ecs.Access{Read: ids(a), Write: ids(a)}, nop))
	err := r.Loop(context.Background(), time.Millisecond, 0)
	assert.ErrorIs(t, err, ecs.ErrConfiguration)
}

type timingClient struct {
	ddstatsd.NoOpClient
	mu    sync.Mutex
	names []string
}

func (c *timingClient) Timing(name string, _ time.Duration, tags []string, _ float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	return nil
}

func TestRunnerRecordsTimings(t *testing.T) {
	w := ecs.NewWorld()
	client := &timingClient{}
	r := newRunner(t, w, WithRecorder(telemetry.NewRecorder(client, nil)))
	r.Register(NewFunc("a", PhaseUpdate, ecs.Access{}, nop))
	r.Register(NewFunc("b", PhaseUpdate, ecs.Access{}, nop))
	require.NoError(t, r.Tick(context.Background(), time.Millisecond))
	assert.ElementsMatch(t, []string{"system", "system", "frame"}, client.names)
}
