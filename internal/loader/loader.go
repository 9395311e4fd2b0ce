// Package loader opens built page artifacts, resolves their entry points,
// and executes them against request contexts. It owns artifact lifetime:
// one live handle per artifact path, reference counting across in-flight
// invocations, and deferred teardown of superseded handles.
package loader

import (
	"context"
	"errors"
	"fmt"
	"plugin"
	"runtime/debug"
	"sync"

	gsperr "github.com/conneroisu/gsp/internal/errors"
	"github.com/conneroisu/gsp/internal/logging"
	"github.com/conneroisu/gsp/pkg/gsprt"
)

// ErrHandleRetired is returned by Invoke when the handle drained before
// the invocation could take a reference. Callers re-resolve the current
// handle and retry; this is a race window, not a page failure.
var ErrHandleRetired = errors.New("loader: handle retired")

// Loader is the process-wide artifact registry. Safe for concurrent use.
type Loader struct {
	mu      sync.Mutex
	handles map[string]*Handle
	log     logging.Logger
}

// New creates a Loader.
func New(log logging.Logger) *Loader {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Loader{
		handles: make(map[string]*Handle),
		log:     log.WithComponent("loader"),
	}
}

// Load opens the artifact at path and resolves its entry point. Repeated
// loads of the same path return the cached handle. A missing or
// wrongly-typed entry symbol is fatal for the artifact: it signals a
// generator/toolchain mismatch, not a page-author error.
func (l *Loader) Load(path string) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.handles[path]; ok {
		return h, nil
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, gsperr.NewLoadError(gsperr.CodeArtifactOpen,
			fmt.Sprintf("opening artifact %s", path), err)
	}

	sym, err := p.Lookup(gsprt.EntrySymbol)
	if err != nil {
		return nil, gsperr.NewLoadError(gsperr.CodeSymbolNotFound,
			fmt.Sprintf("artifact %s does not export %s", path, gsprt.EntrySymbol), err)
	}

	entry, ok := sym.(gsprt.EntryFunc)
	if !ok {
		return nil, gsperr.NewLoadError(gsperr.CodeSymbolNotFound,
			fmt.Sprintf("artifact %s exports %s with signature %T", path, gsprt.EntrySymbol, sym), nil)
	}

	h := NewHandle(path, entry)
	l.handles[path] = h
	return h, nil
}

// Retire removes the handle from the registry and drops its owning
// reference. In-flight invocations keep the handle alive until they
// finish; the state scope is torn down when the last reference drains.
func (l *Loader) Retire(h *Handle) {
	if h == nil {
		return
	}
	l.mu.Lock()
	if current, ok := l.handles[h.path]; ok && current == h {
		delete(l.handles, h.path)
	}
	l.mu.Unlock()
	h.release()
}

// Invoke executes the handle's entry point with the given request and a
// fresh output buffer. Panics raised by page code are caught at this
// boundary and reported as page execution failures; they never take down
// the serving process.
func (l *Loader) Invoke(ctx context.Context, h *Handle, req *gsprt.Request) (*gsprt.Response, error) {
	if !h.acquire() {
		return nil, ErrHandleRetired
	}
	defer h.release()

	pageCtx := gsprt.NewContext(req, h.state)

	var execErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				l.log.Error(ctx, nil, "page panicked",
					"artifact", h.path,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()))
				execErr = gsperr.NewRuntimeError(
					fmt.Sprintf("page code panicked: %v", r), nil)
			}
		}()
		h.entry(pageCtx)
	}()
	if execErr != nil {
		return nil, execErr
	}

	return pageCtx.Res, nil
}
