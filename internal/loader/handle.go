package loader

import (
	"sync"
	"sync/atomic"

	"github.com/conneroisu/gsp/pkg/gsprt"
)

// Handle is an opened artifact: the resolved entry point plus the
// artifact-scoped state. Handles are reference-counted; the registry holds
// one owning reference and every in-flight invocation holds a temporary
// one. Teardown of the state scope happens exactly once, when the count
// reaches zero, so an artifact is never torn down under a running
// invocation.
//
// The OS mapping itself is permanent: Go plugins cannot be unloaded.
// Retirement means the handle leaves the registry and its state scope
// (database pools, lazily initialized resources) is closed once the last
// invocation drains.
type Handle struct {
	path  string
	entry gsprt.EntryFunc
	state *gsprt.State

	// refs starts at 1 (the registry's owning reference) and reaches 0
	// only after retirement plus the last in-flight release.
	refs     atomic.Int64
	teardown sync.Once
}

// NewHandle wraps an entry function in a reference-counted handle. The
// loader uses it for opened plugins; embedders and tests can use it to
// register in-process pages without going through the toolchain.
func NewHandle(path string, entry gsprt.EntryFunc) *Handle {
	h := &Handle{path: path, entry: entry, state: gsprt.NewState()}
	h.refs.Store(1)
	return h
}

// Path returns the artifact path this handle was loaded from.
func (h *Handle) Path() string { return h.path }

// acquire takes a temporary reference. It fails only when the handle has
// already drained to zero, which can happen if a caller raced a
// retirement; such callers must re-resolve the current handle.
func (h *Handle) acquire() bool {
	for {
		r := h.refs.Load()
		if r == 0 {
			return false
		}
		if h.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

// release drops a reference, tearing down the state scope when the count
// reaches zero.
func (h *Handle) release() {
	if h.refs.Add(-1) == 0 {
		h.teardown.Do(func() { _ = h.state.Close() })
	}
}
