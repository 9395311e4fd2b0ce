// Package config provides configuration management for gsp using Viper,
// loading from .gsp.yml files, GSP_-prefixed environment variables, and
// command-line flags in that precedence order (flags highest).
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the gsp engine and dev server.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Pages       PagesConfig       `yaml:"pages" mapstructure:"pages"`
	Build       BuildConfig       `yaml:"build" mapstructure:"build"`
	Development DevelopmentConfig `yaml:"development" mapstructure:"development"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type PagesConfig struct {
	// DocRoot is the directory pages are served from.
	DocRoot string `yaml:"docroot" mapstructure:"docroot"`
	// Index is the page served for directory requests.
	Index string `yaml:"index" mapstructure:"index"`
	// Extension is the page file extension, including the dot.
	Extension string `yaml:"extension" mapstructure:"extension"`
}

type BuildConfig struct {
	// CacheDir holds per-key build workspaces and built artifacts.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// DepCacheDir is the toolchain dependency cache (GOMODCACHE/GOCACHE)
	// reused across builds. Empty means a "deps" subdirectory of CacheDir.
	DepCacheDir string `yaml:"dep_cache_dir" mapstructure:"dep_cache_dir"`
	// SharedDepCache shares the dependency cache across all pages. When
	// false each page key gets an isolated dependency cache.
	SharedDepCache bool `yaml:"shared_dep_cache" mapstructure:"shared_dep_cache"`
	// Timeout bounds a single toolchain invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// RuntimePath is the directory of the gsp module the generated pages
	// import. Empty means autodetect (current module, then executable dir).
	RuntimePath string `yaml:"runtime_path" mapstructure:"runtime_path"`
	// GoBinary is the toolchain command, normally "go".
	GoBinary string `yaml:"go_binary" mapstructure:"go_binary"`
}

type DevelopmentConfig struct {
	// HotReload rebuilds pages on save and notifies connected browsers.
	HotReload bool `yaml:"hot_reload" mapstructure:"hot_reload"`
	// Debounce groups rapid filesystem events before rebuilding.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SetDefaults registers every default on the given viper instance. The CLI
// calls this before binding flags so flag values win over defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("pages.docroot", ".")
	v.SetDefault("pages.index", "index.gsp")
	v.SetDefault("pages.extension", ".gsp")
	v.SetDefault("build.cache_dir", ".gspcache")
	v.SetDefault("build.dep_cache_dir", "")
	v.SetDefault("build.shared_dep_cache", true)
	v.SetDefault("build.timeout", 2*time.Minute)
	v.SetDefault("build.runtime_path", "")
	v.SetDefault("build.go_binary", "go")
	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.debounce", 300*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load unmarshals the global viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

// Validate checks config invariants that would otherwise surface as
// confusing failures deep in the pipeline.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Pages.Extension != "" && !strings.HasPrefix(c.Pages.Extension, ".") {
		return fmt.Errorf("pages.extension %q must start with a dot", c.Pages.Extension)
	}
	if c.Build.Timeout <= 0 {
		return fmt.Errorf("build.timeout must be positive, got %s", c.Build.Timeout)
	}
	if c.Build.GoBinary == "" {
		return fmt.Errorf("build.go_binary must not be empty")
	}
	return nil
}

func (c *Config) normalize() {
	if c.Build.DepCacheDir == "" {
		c.Build.DepCacheDir = filepath.Join(c.Build.CacheDir, "deps")
	}
	if c.Development.Debounce <= 0 {
		c.Development.Debounce = 300 * time.Millisecond
	}
}

// Default returns a Config populated with defaults only, without touching
// global viper state. Used by tests and by library embedders.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	cfg.normalize()
	return &cfg
}
