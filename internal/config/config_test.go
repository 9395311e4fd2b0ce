package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ".", cfg.Pages.DocRoot)
	assert.Equal(t, "index.gsp", cfg.Pages.Index)
	assert.Equal(t, ".gsp", cfg.Pages.Extension)
	assert.Equal(t, ".gspcache", cfg.Build.CacheDir)
	assert.Equal(t, 2*time.Minute, cfg.Build.Timeout)
	assert.Equal(t, "go", cfg.Build.GoBinary)
	assert.True(t, cfg.Build.SharedDepCache)
	assert.True(t, cfg.Development.HotReload)
	assert.Equal(t, 300*time.Millisecond, cfg.Development.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
}

func TestNormalize_DepCacheUnderCacheDir(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join(".gspcache", "deps"), cfg.Build.DepCacheDir)

	cfg = Default()
	cfg.Build.DepCacheDir = "/var/cache/gsp-deps"
	cfg.normalize()
	assert.Equal(t, "/var/cache/gsp-deps", cfg.Build.DepCacheDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port negative", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"extension without dot", func(c *Config) { c.Pages.Extension = "gsp" }, "pages.extension"},
		{"zero timeout", func(c *Config) { c.Build.Timeout = 0 }, "build.timeout"},
		{"empty go binary", func(c *Config) { c.Build.GoBinary = "" }, "build.go_binary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
