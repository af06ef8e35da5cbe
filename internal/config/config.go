package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Frame     FrameConfig     `toml:"frame"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Scene     SceneConfig     `toml:"scene"`
	Scripts   ScriptsConfig   `toml:"scripts"`
	Assets    AssetsConfig    `toml:"assets"`
}

type WorldConfig struct {
	MaxEntities  uint32 `toml:"max_entities"` // 0 = limited only by the 32-bit index
	Capacity     int    `toml:"capacity"`     // presized slots per store
	AccessChecks bool   `toml:"access_checks"`
}

type SchedulerConfig struct {
	Workers int `toml:"workers"` // 0 = GOMAXPROCS
}

type FrameConfig struct {
	Rate   time.Duration `toml:"rate"`
	Frames uint64        `toml:"frames"` // 0 = run until interrupted
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	StatsdAddress string   `toml:"statsd_address"` // empty disables metrics
	Namespace     string   `toml:"namespace"`
	Tags          []string `toml:"tags"`
}

type SceneConfig struct {
	Path     string  `toml:"path"`
	CellSize float32 `toml:"cell_size"` // spatial index cell edge, world units
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type AssetsConfig struct {
	Root string `toml:"root"`
}

// Load reads path over the defaults. A missing file is an error; use Default
// to run without one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.World.Capacity < 0 {
		err = multierr.Append(err, fmt.Errorf("world.capacity must not be negative, got %d", c.World.Capacity))
	}
	if c.Scheduler.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("scheduler.workers must not be negative, got %d", c.Scheduler.Workers))
	}
	if c.Scene.CellSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("scene.cell_size must be positive, got %g", c.Scene.CellSize))
	}
	if c.Frame.Rate <= 0 {
		err = multierr.Append(err, fmt.Errorf("frame.rate must be positive, got %s", c.Frame.Rate))
	}
	var lvl zapcore.Level
	if e := lvl.UnmarshalText([]byte(c.Logging.Level)); e != nil {
		err = multierr.Append(err, fmt.Errorf("logging.level: %w", e))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	return err
}

func Default() *Config {
	return &Config{
		World: WorldConfig{
			Capacity:     1024,
			AccessChecks: false,
		},
		Scheduler: SchedulerConfig{
			Workers: 0,
		},
		Frame: FrameConfig{
			Rate:   16 * time.Millisecond,
			Frames: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "kestrel",
		},
		Scene: SceneConfig{
			Path:     "data/scene.yaml",
			CellSize: 16,
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Assets: AssetsConfig{
			Root: "assets",
		},
	}
}
