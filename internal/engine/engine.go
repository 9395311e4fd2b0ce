// Package engine composes the gsp pipeline: given a page path it ensures a
// fresh compiled artifact exists, obtains a loaded handle, and executes it
// against a request context.
//
// Per page the engine runs the state machine
// Uncompiled -> Building -> Ready -> (source changed) -> Building -> ...,
// with Building -> Failed on compile errors and Failed pages re-attempting
// on the next request. The current handle for a page is swapped
// atomically: new invocations always see either the old or the new handle,
// and a superseded handle is retired only after the swap, so in-flight
// requests complete against the artifact they started with.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	gsperr "github.com/conneroisu/gsp/internal/errors"
	"github.com/conneroisu/gsp/internal/generator"
	"github.com/conneroisu/gsp/internal/loader"
	"github.com/conneroisu/gsp/internal/logging"
	"github.com/conneroisu/gsp/internal/parser"
	"github.com/conneroisu/gsp/pkg/gsprt"
)

// State is a page's position in the compile lifecycle.
type State int32

const (
	StateUncompiled State = iota
	StateBuilding
	StateReady
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUncompiled:
		return "uncompiled"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Builder ensures a compiled artifact exists for a page. Implemented by
// the build cache; faked in tests.
type Builder interface {
	EnsureBuilt(ctx context.Context, source []byte, unit *generator.CompiledUnit) (string, error)
}

// ArtifactLoader loads, retires, and invokes artifacts. Implemented by the
// loader; faked in tests.
type ArtifactLoader interface {
	Load(path string) (*loader.Handle, error)
	Retire(h *loader.Handle)
	Invoke(ctx context.Context, h *loader.Handle, req *gsprt.Request) (*gsprt.Response, error)
}

// sourceSig is a page's last-observed modification signature. A changed
// signature is the only trigger for re-reading source; key change then
// handles invalidation naturally.
type sourceSig struct {
	modTime int64
	size    int64
}

type pageEntry struct {
	// mu serializes the rebuild decision for one page. It is never held
	// across an invocation; builds for distinct pages proceed in parallel
	// and same-key builds are additionally single-flighted by the cache.
	mu     sync.Mutex
	state  atomic.Int32
	sig    atomic.Value // sourceSig
	handle atomic.Pointer[loader.Handle]
}

func (p *pageEntry) setState(s State) { p.state.Store(int32(s)) }

func (p *pageEntry) sigEquals(s sourceSig) bool {
	v, ok := p.sig.Load().(sourceSig)
	return ok && v == s
}

// Engine is the orchestrator. Safe for concurrent use by request threads.
type Engine struct {
	parser    *parser.Parser
	generator *generator.Generator
	builder   Builder
	loader    ArtifactLoader
	log       logging.Logger

	mu    sync.RWMutex
	pages map[string]*pageEntry
}

// New creates an Engine over the given builder and loader.
func New(builder Builder, artifacts ArtifactLoader, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Engine{
		parser:    parser.New(),
		generator: generator.New(),
		builder:   builder,
		loader:    artifacts,
		log:       log.WithComponent("engine"),
		pages:     make(map[string]*pageEntry),
	}
}

// Render compiles the page at pagePath if needed and executes it against
// req. All pipeline failures surface as *errors.GspError attributed to the
// page.
func (e *Engine) Render(ctx context.Context, pagePath string, req *gsprt.Request) (*gsprt.Response, error) {
	entry := e.page(pagePath)

	// Fast path: unchanged source and a live handle; one stat plus one
	// atomic load, no locks.
	if sig, err := statSig(pagePath); err == nil {
		if h := entry.handle.Load(); h != nil && entry.sigEquals(sig) {
			res, err := e.loader.Invoke(ctx, h, req)
			if err == nil || !errors.Is(err, loader.ErrHandleRetired) {
				return res, err
			}
			// Lost a race with retirement: drop the stale pointer and
			// take the slow path.
			entry.handle.CompareAndSwap(h, nil)
		}
	}

	for attempt := 0; ; attempt++ {
		h, err := e.ensureReady(ctx, pagePath, entry)
		if err != nil {
			return nil, err
		}
		res, err := e.loader.Invoke(ctx, h, req)
		if errors.Is(err, loader.ErrHandleRetired) && attempt < 2 {
			entry.handle.CompareAndSwap(h, nil)
			continue
		}
		return res, err
	}
}

// Precompile ensures the page is built and loadable without executing it.
func (e *Engine) Precompile(ctx context.Context, pagePath string) error {
	entry := e.page(pagePath)
	_, err := e.ensureReady(ctx, pagePath, entry)
	return err
}

// Invalidate forgets the recorded source signature so the next request
// re-reads and, if the content changed, rebuilds. Used by the file watcher.
func (e *Engine) Invalidate(pagePath string) {
	e.mu.RLock()
	entry := e.pages[pagePath]
	e.mu.RUnlock()
	if entry != nil {
		entry.sig.Store(sourceSig{})
	}
}

// Status reports the page's lifecycle state.
func (e *Engine) Status(pagePath string) State {
	e.mu.RLock()
	entry := e.pages[pagePath]
	e.mu.RUnlock()
	if entry == nil {
		return StateUncompiled
	}
	return State(entry.state.Load())
}

func (e *Engine) page(pagePath string) *pageEntry {
	e.mu.RLock()
	entry := e.pages[pagePath]
	e.mu.RUnlock()
	if entry != nil {
		return entry
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if entry = e.pages[pagePath]; entry == nil {
		entry = &pageEntry{}
		e.pages[pagePath] = entry
	}
	return entry
}

// ensureReady runs the slow path under the page's build mutex: re-check,
// read source, parse, generate, ensure built, load, and atomically swap
// the handle. The superseded handle is retired only after the swap.
func (e *Engine) ensureReady(ctx context.Context, pagePath string, entry *pageEntry) (*loader.Handle, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	sig, err := statSig(pagePath)
	if err != nil {
		return nil, gsperr.NewIOError(fmt.Sprintf("stat page %s", pagePath), err).WithPage(pagePath)
	}

	// Another request may have rebuilt while we waited on the mutex.
	if h := entry.handle.Load(); h != nil && entry.sigEquals(sig) {
		return h, nil
	}

	entry.setState(StateBuilding)

	source, err := os.ReadFile(pagePath)
	if err != nil {
		entry.setState(StateFailed)
		return nil, gsperr.NewIOError(fmt.Sprintf("reading page %s", pagePath), err).WithPage(pagePath)
	}

	doc, err := e.parser.Parse(string(source))
	if err != nil {
		entry.setState(StateFailed)
		return nil, attribute(err, pagePath)
	}

	unit, err := e.generator.Generate(doc)
	if err != nil {
		entry.setState(StateFailed)
		return nil, attribute(err, pagePath)
	}

	artifact, err := e.builder.EnsureBuilt(ctx, source, unit)
	if err != nil {
		entry.setState(StateFailed)
		return nil, attribute(err, pagePath)
	}

	h, err := e.loader.Load(artifact)
	if err != nil {
		entry.setState(StateFailed)
		return nil, attribute(err, pagePath)
	}

	old := entry.handle.Swap(h)
	entry.sig.Store(sig)
	entry.setState(StateReady)

	if old != nil && old != h {
		e.loader.Retire(old)
	}

	e.log.Debug(ctx, "page ready", "page", pagePath, "artifact", artifact)
	return h, nil
}

func statSig(path string) (sourceSig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return sourceSig{}, err
	}
	return sourceSig{modTime: info.ModTime().UnixNano(), size: info.Size()}, nil
}

// attribute stamps the page path onto pipeline errors that do not carry it
// yet, so every error leaving the engine names its page.
func attribute(err error, pagePath string) error {
	var ge *gsperr.GspError
	if errors.As(err, &ge) && ge.Page == "" {
		ge.Page = pagePath
	}
	return err
}
