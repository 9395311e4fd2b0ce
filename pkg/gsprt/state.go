package gsprt

import (
	"io"
	"sync"
)

// State is a keyed, lazily initialized value store scoped to one loaded
// artifact. It backs the lazyinit feature: page code that needs a
// once-per-artifact resource (a database pool, a parsed config, a counter)
// initializes it through GetOrInit and every request served by that
// artifact sees the same value. The loader closes the scope when the
// artifact is retired and its last in-flight invocation finishes, so
// reloaded pages reinitialize rather than leak stale resources.
type State struct {
	mu     sync.Mutex
	values map[string]any
	closed bool
}

// NewState returns an empty state scope.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// GetOrInit returns the value stored under key, initializing it with init
// on first use. Initialization is serialized: concurrent first callers for
// the same key observe exactly one init call.
func (s *State) GetOrInit(key string, init func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	v := init()
	s.values[key] = v
	return v
}

// Get returns the value stored under key, or nil.
func (s *State) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set stores value under key, replacing any previous value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes the value stored under key, if any. The value is not
// closed; callers that stored a closeable resource close it themselves.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Close tears down the scope, closing every stored value that implements
// io.Closer. Close is idempotent.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var first error
	for key, v := range s.values {
		if closer, ok := v.(io.Closer); ok {
			if err := closer.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(s.values, key)
	}
	return first
}
