package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "host", cfg.Backend)
	assert.Equal(t, 1, cfg.Launch.Threads)
	assert.Equal(t, 2*time.Second, cfg.GPU.ReadbackTimeout)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `backend: webgpu
device: 1
launch:
  threads: 64
  strict: true
gpu:
  readback_timeout: 5s
logging:
  level: debug
  file: ` + filepath.Join(dir, "out.log") + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "webgpu", cfg.Backend)
	assert.Equal(t, 1, cfg.Device)
	assert.Equal(t, 64, cfg.Launch.Threads)
	assert.True(t, cfg.Launch.Strict)
	assert.Equal(t, 5*time.Second, cfg.GPU.ReadbackTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(dir, "out.log"), cfg.Logging.File)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEVCOMPUTE_BACKEND", "webgpu")
	t.Setenv("DEVCOMPUTE_LAUNCH_THREADS", "8")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "webgpu", cfg.Backend)
	assert.Equal(t, 8, cfg.Launch.Threads)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty backend", func(c *Config) { c.Backend = "" }},
		{"negative device", func(c *Config) { c.Device = -1 }},
		{"zero threads", func(c *Config) { c.Launch.Threads = 0 }},
		{"zero timeout", func(c *Config) { c.GPU.ReadbackTimeout = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, "logs/a.log"), expandPath("~/logs/a.log"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}
