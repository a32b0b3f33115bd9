package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: ":9090"
  mode: release
mask:
  mode: adaptive
  block_size: 15
extrusion:
  height: 4.5
  background_height: 0
convert:
  parallel: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "adaptive", cfg.Mask.Mode)
	assert.Equal(t, 15, cfg.Mask.BlockSize)
	assert.Equal(t, 4.5, cfg.Extrusion.Height)
	assert.Zero(t, cfg.Extrusion.BackgroundHeight)
	assert.True(t, cfg.Convert.Parallel)

	// defaults fill the rest
	assert.Equal(t, 50.0, cfg.Mask.Threshold)
	assert.Equal(t, 2.0, cfg.Extrusion.BaseThickness)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "/files", cfg.Output.URLPrefix)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
