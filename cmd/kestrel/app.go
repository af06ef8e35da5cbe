package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kestrel-engine/kestrel/internal/asset"
	"github.com/kestrel-engine/kestrel/internal/config"
	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/event"
	coresys "github.com/kestrel-engine/kestrel/internal/core/system"
	"github.com/kestrel-engine/kestrel/internal/data"
	"github.com/kestrel-engine/kestrel/internal/scene"
	"github.com/kestrel-engine/kestrel/internal/scripting"
	"github.com/kestrel-engine/kestrel/internal/telemetry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds everything a frame loop needs. Built by assemble; release with
// close.
type app struct {
	world   *ecs.World
	bus     *event.Bus
	sched   *coresys.Scheduler
	runner  *coresys.Runner
	hier    *scene.Hierarchy
	extract *scene.ExtractSystem
	spatial *scene.SpatialSystem
	scripts []*scripting.ScriptSystem
	rec     *telemetry.Recorder
	spawned int
}

func assemble(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{
		world: ecs.NewWorld(
			ecs.WithMaxEntities(cfg.World.MaxEntities),
			ecs.WithCapacity(cfg.World.Capacity),
			ecs.WithAccessChecks(cfg.World.AccessChecks),
			ecs.WithLogger(log),
		),
		bus:   event.NewBus(),
		sched: coresys.NewScheduler(cfg.Scheduler.Workers, log),
		rec:   telemetry.NewNoop(),
	}

	if cfg.Metrics.StatsdAddress != "" {
		rec, err := telemetry.Dial(cfg.Metrics.StatsdAddress, cfg.Metrics.Namespace, cfg.Metrics.Tags, log)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.rec = rec
	}

	a.runner = coresys.NewRunner(a.world, a.sched,
		coresys.WithBus(a.bus),
		coresys.WithRecorder(a.rec),
		coresys.WithRunnerLogger(log),
	)
	a.hier = scene.NewHierarchy(a.world, log)
	a.extract = scene.NewExtractSystem(a.world)
	a.spatial = scene.NewSpatialSystem(a.world, cfg.Scene.CellSize)

	cache := asset.NewCache(asset.NewFSLoader(os.DirFS(cfg.Assets.Root)))
	a.runner.Register(asset.NewLoadSystem(a.world, cache))
	a.runner.Register(scene.NewHierarchySystem(a.hier))
	a.runner.Register(a.extract)
	a.runner.Register(a.spatial)

	scripts, err := scripting.LoadDir(a.world, cfg.Scripts.Dir, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	a.scripts = scripts
	for _, s := range scripts {
		a.runner.Register(s)
	}

	if cfg.Scene.Path != "" {
		sc, err := data.LoadScene(cfg.Scene.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("scene file not found, starting empty", zap.String("path", cfg.Scene.Path))
		case err != nil:
			a.close()
			return nil, fmt.Errorf("load scene: %w", err)
		default:
			ids, err := sc.Spawn(a.world, a.hier)
			if err != nil {
				a.close()
				return nil, fmt.Errorf("spawn scene: %w", err)
			}
			a.spawned = len(ids)
		}
	}
	return a, nil
}

func (a *app) close() error {
	for _, s := range a.scripts {
		s.Close()
	}
	return multierr.Combine(a.sched.Close(), a.rec.Close())
}

func run(parent context.Context, out io.Writer, cfg *config.Config) error {
	log, err := newLogger(cfg.Logging, zapcore.Lock(os.Stderr))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("run", uuid.NewString()))

	con := newConsole(out)
	con.banner()

	con.section("World")
	a, err := assemble(cfg, log)
	if err != nil {
		return err
	}
	defer a.close()
	con.stat("Entities", a.world.Len())
	con.stat("Components", a.world.NumComponents())
	con.stat("Scripts", len(a.scripts))
	con.blank()

	con.section("Schedule")
	g, err := a.runner.Graph()
	if err != nil {
		return err
	}
	con.stat("Systems", g.Len())
	con.stat("Layers", len(g.Layers()))
	if err := a.sched.Start(); err != nil {
		return err
	}
	con.ok("%d workers started", a.sched.Workers())
	con.blank()

	event.Subscribe(a.bus, func(e event.FrameCompleted) {
		if e.Frame%600 == 0 {
			items, _ := a.extract.Latest()
			log.Debug("frame",
				zap.Uint64("frame", e.Frame),
				zap.Int("commands", e.Commands),
				zap.Int("draw_items", len(items)),
				zap.Int("indexed", a.spatial.Grid().Len()),
				zap.Int("entities", a.world.Len()),
			)
		}
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	con.ready("running at %s per frame", cfg.Frame.Rate)
	err = a.runner.Loop(ctx, cfg.Frame.Rate, cfg.Frame.Frames)

	st := a.sched.Stats()
	log.Info("shutting down",
		zap.Uint64("frames", a.runner.Frame()),
		zap.Uint64("executed", st.Executed),
		zap.Uint64("stolen", st.Stolen),
		zap.Int("hierarchy_rebuilds", a.hier.Rebuilds()),
	)
	return err
}

func graph(out io.Writer, cfg *config.Config, asJSON bool) error {
	a, err := assemble(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer a.close()

	g, err := a.runner.Graph()
	if err != nil {
		return err
	}
	if asJSON {
		bz, err := json.MarshalIndent(g.Nodes(a.world), "", "  ")
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}
		_, err = out.Write(append(bz, '\n'))
		return err
	}
	_, err = io.WriteString(out, g.Describe(a.world))
	return err
}
