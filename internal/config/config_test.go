package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/token-timeline/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Timeline.Enabled)
	assert.Equal(t, 2016, cfg.Timeline.BufferCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Timeline.BucketResolution)
	assert.Equal(t, 168*time.Hour, cfg.Timeline.MaxRetention)
	assert.Equal(t, 10*time.Minute, cfg.Timeline.SweepInterval)
	assert.Equal(t, 200, cfg.Timeline.MaxDownsamplePoints)
	assert.Equal(t, time.Second, cfg.Timeline.BucketPadding)
	assert.True(t, cfg.Timeline.PredictionEnabled)
	assert.Equal(t, ":8090", cfg.Server.Listen)
	assert.Equal(t, "30s", cfg.Server.ReadTimeout)
	assert.Equal(t, "60s", cfg.Server.WriteTimeout)
	assert.Equal(t, "providers/providers.yaml", cfg.Providers.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
timeline:
  buffer_capacity: 288
  bucket_resolution: 1m
  max_retention: 24h
storage:
  path: /tmp/test.db
server:
  listen: ":9090"
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 288, cfg.Timeline.BufferCapacity)
	assert.Equal(t, time.Minute, cfg.Timeline.BucketResolution)
	assert.Equal(t, 24*time.Hour, cfg.Timeline.MaxRetention)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Absent keys keep their defaults.
	assert.Equal(t, 10*time.Minute, cfg.Timeline.SweepInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TTM_LOGGING_LEVEL", "error")
	t.Setenv("TTM_SERVER_LISTEN", ":7070")
	t.Setenv("TTM_TIMELINE_BUFFER_CAPACITY", "512")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, 512, cfg.Timeline.BufferCapacity)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestWatch_InvokesOnChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("timeline:\n  buffer_capacity: 100\n"), 0o644))

	changed := make(chan *config.Config, 1)
	err := config.Watch(cfgPath, func(cfg *config.Config) {
		select {
		case changed <- cfg:
		default:
		}
	}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfgPath, []byte("timeline:\n  buffer_capacity: 400\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 400, cfg.Timeline.BufferCapacity)
	case <-time.After(2 * time.Second):
		t.Fatal("config change was not observed")
	}
}
