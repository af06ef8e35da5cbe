package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kestrel-engine/kestrel/internal/config"
)

func TestConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	con := newConsole(&buf)
	con.banner()
	con.section("World")
	con.stat("Entities", 12)
	con.ok("%d workers started", 4)
	con.ready("running at %s per frame", "16ms")

	out := buf.String()
	assert.Contains(t, out, "Kestrel  v"+version)
	assert.Contains(t, out, "── World ")
	assert.Contains(t, out, "Entities")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "4 workers started")
	assert.Contains(t, out, "running at 16ms per frame")
}

func TestConsoleFillHasFloor(t *testing.T) {
	con := newConsole(&bytes.Buffer{})
	assert.Equal(t, "···", con.fill("·", 100))
	assert.Len(t, con.fill("-", 6), con.width-6)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"kept"`)
	assert.Contains(t, lines[0], `"caller"`)
}

func TestNewLoggerConsoleOmitsCaller(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Debug("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), "console_test.go")
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(config.LoggingConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.ErrorContains(t, err, "logging.level")
}
