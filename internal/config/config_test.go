package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[world]
max_entities = 5000
access_checks = true

[scheduler]
workers = 3

[frame]
rate = "33ms"
frames = 10

[metrics]
statsd_address = "127.0.0.1:8125"
tags = ["env:test"]
`))
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), cfg.World.MaxEntities)
	assert.True(t, cfg.World.AccessChecks)
	assert.Equal(t, 1024, cfg.World.Capacity, "unset keys keep their default")
	assert.Equal(t, 3, cfg.Scheduler.Workers)
	assert.Equal(t, 33*time.Millisecond, cfg.Frame.Rate)
	assert.Equal(t, uint64(10), cfg.Frame.Frames)
	assert.Equal(t, "kestrel", cfg.Metrics.Namespace)
	assert.Equal(t, []string{"env:test"}, cfg.Metrics.Tags)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
[scheduler]
workers = -1

[frame]
rate = "0s"

[logging]
level = "loud"
format = "xml"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.workers")
	assert.Contains(t, err.Error(), "frame.rate")
	assert.Contains(t, err.Error(), "logging.format")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kestrel.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	require.NoError(t, Default().Validate())
}
