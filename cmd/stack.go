package cmd

import (
	"github.com/conneroisu/gsp/internal/build"
	"github.com/conneroisu/gsp/internal/config"
	"github.com/conneroisu/gsp/internal/engine"
	"github.com/conneroisu/gsp/internal/loader"
	"github.com/conneroisu/gsp/internal/logging"
)

// newStack wires the full pipeline (toolchain, build cache, loader,
// engine) from config. Every command that compiles pages goes through
// here.
func newStack(cfg *config.Config) (*engine.Engine, *build.Cache, logging.Logger, error) {
	log := logging.NewLogger(&logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	toolchain := &build.GoToolchain{
		Binary:         cfg.Build.GoBinary,
		DepCacheDir:    cfg.Build.DepCacheDir,
		SharedDepCache: cfg.Build.SharedDepCache,
	}

	cache, err := build.NewCache(build.Options{
		Dir:         cfg.Build.CacheDir,
		RuntimePath: build.ResolveRuntimePath(cfg.Build.RuntimePath),
		Timeout:     cfg.Build.Timeout,
		Toolchain:   toolchain,
		Logger:      log,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	eng := engine.New(cache, loader.New(log), log)
	return eng, cache, log, nil
}
