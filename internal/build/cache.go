// Package build derives content-based identities for pages, decides cache
// hit or miss against previously built artifacts, and on miss materializes
// a build workspace and drives the external toolchain to produce a
// loadable plugin. Builds for the same key are single-flighted; distinct
// keys build fully in parallel.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	gsperr "github.com/conneroisu/gsp/internal/errors"
	"github.com/conneroisu/gsp/internal/generator"
	"github.com/conneroisu/gsp/internal/logging"
	"golang.org/x/sync/singleflight"
)

// artifactExt is the built plugin suffix. Go plugins are .so on every
// platform that supports -buildmode=plugin.
const artifactExt = ".so"

// Entry is one immutable cache record: a key, the artifact it produced,
// and when. Entries are superseded by new keys, never mutated; they are
// evicted only by an explicit Clear.
type Entry struct {
	Key          string
	ArtifactPath string
	BuiltAt      time.Time
}

// Options configures a Cache.
type Options struct {
	// Dir is the cache root; workspaces go under Dir/pages and artifacts
	// under Dir/artifacts.
	Dir string
	// RuntimePath is the gsp module directory workspaces point their
	// replace directive at.
	RuntimePath string
	// Timeout bounds one toolchain invocation.
	Timeout time.Duration
	// Toolchain performs the actual compilation.
	Toolchain Toolchain
	Logger    logging.Logger
}

// Cache is the build cache. Safe for concurrent use.
type Cache struct {
	dir         string
	workDir     string
	artifactDir string
	runtimePath string
	timeout     time.Duration
	toolchain   Toolchain
	log         logging.Logger

	mu      sync.RWMutex
	entries map[string]*Entry

	group singleflight.Group

	// Counters for introspection; atomic, in the style of the rest of the
	// pipeline's stats.
	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
}

// NewCache creates a build cache rooted at opts.Dir.
func NewCache(opts Options) (*Cache, error) {
	if opts.Toolchain == nil {
		return nil, errors.New("build: toolchain is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewTestLogger()
	}
	c := &Cache{
		dir:         opts.Dir,
		workDir:     filepath.Join(opts.Dir, "pages"),
		artifactDir: filepath.Join(opts.Dir, "artifacts"),
		runtimePath: opts.RuntimePath,
		timeout:     opts.Timeout,
		toolchain:   opts.Toolchain,
		log:         log.WithComponent("build"),
		entries:     make(map[string]*Entry),
	}
	for _, dir := range []string{c.workDir, c.artifactDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
		}
	}
	return c, nil
}

// Key derives the content identity for a page: a SHA-256 over the raw page
// source, the canonical manifest, and the generated source bytes, each
// length-framed so boundaries cannot alias. Keying on generated bytes
// means a generator change invalidates all prior entries automatically.
func Key(source []byte, unit *generator.CompiledUnit) string {
	h := sha256.New()
	frame := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	frame(source)
	frame(unit.Manifest.Canonical())
	frame(unit.Source)
	return hex.EncodeToString(h.Sum(nil))
}

// EnsureBuilt returns the artifact path for the page, building it if no
// artifact exists for its key. Concurrent callers for the same key share
// one build; a failed build records nothing, so a fixed page retries on
// the next request.
func (c *Cache) EnsureBuilt(ctx context.Context, source []byte, unit *generator.CompiledUnit) (string, error) {
	key := Key(source, unit)

	c.mu.RLock()
	entry := c.entries[key]
	c.mu.RUnlock()
	if entry != nil {
		c.hits.Add(1)
		return entry.ArtifactPath, nil
	}

	path, err, _ := c.group.Do(key, func() (any, error) {
		return c.build(ctx, key, unit)
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

func (c *Cache) build(ctx context.Context, key string, unit *generator.CompiledUnit) (string, error) {
	// A caller that lost the singleflight race re-enters here after the
	// winner published; recheck before touching the toolchain.
	c.mu.RLock()
	entry := c.entries[key]
	c.mu.RUnlock()
	if entry != nil {
		c.hits.Add(1)
		return entry.ArtifactPath, nil
	}
	c.misses.Add(1)

	artifact := filepath.Join(c.artifactDir, key+artifactExt)

	// Artifacts persisted by an earlier process are reused without a
	// rebuild; the key already proves content identity.
	if _, err := os.Stat(artifact); err == nil {
		c.record(key, artifact)
		return artifact, nil
	}

	workspace := filepath.Join(c.workDir, key[:16])
	if err := materializeWorkspace(workspace, unit, c.runtimePath); err != nil {
		return "", gsperr.NewIOError("materializing build workspace", err)
	}

	// The flight is shared by every caller for this key, so it must not
	// die with whichever request happened to win it. The timeout is the
	// only thing that cancels the toolchain.
	buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	c.builds.Add(1)
	start := time.Now()
	diagnostics, err := c.toolchain.Build(buildCtx, workspace, artifact)
	if err != nil {
		// Ensure no partial artifact is ever published.
		_ = os.Remove(artifact)
		if errors.Is(buildCtx.Err(), context.DeadlineExceeded) {
			return "", gsperr.NewBuildError(gsperr.CodeBuildTimeout,
				fmt.Sprintf("build exceeded %s", c.timeout), diagnostics)
		}
		return "", gsperr.NewBuildError(gsperr.CodeCompileFailed,
			"toolchain compilation failed", diagnostics)
	}

	c.log.Info(ctx, "page built",
		"key", key[:12],
		"artifact", artifact,
		"duration", time.Since(start).String())

	c.record(key, artifact)
	return artifact, nil
}

func (c *Cache) record(key, artifact string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = &Entry{Key: key, ArtifactPath: artifact, BuiltAt: time.Now()}
}

// Lookup returns the recorded entry for key, if any.
func (c *Cache) Lookup(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Clear drops the in-memory entry table and removes all workspaces and
// artifacts from disk. This is the only eviction path; staleness is
// otherwise handled purely by key change.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	var first error
	for _, dir := range []string{c.workDir, c.artifactDir} {
		if err := os.RemoveAll(dir); err != nil && first == nil {
			first = err
		}
		if err := os.MkdirAll(dir, 0o750); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns hit, miss, and toolchain invocation counts.
func (c *Cache) Stats() (hits, misses, builds int64) {
	return c.hits.Load(), c.misses.Load(), c.builds.Load()
}
