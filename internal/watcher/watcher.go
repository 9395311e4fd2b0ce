// Package watcher watches the document root for page changes using
// fsnotify, with debouncing so editor save bursts (write + chmod + rename)
// collapse into one notification.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/gsp/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Handler receives the set of changed paths after debouncing.
type Handler func(paths []string)

// Watcher watches a directory tree for changes to files matching a
// suffix filter.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	suffix   string
	log      logging.Logger

	mu       sync.Mutex
	handlers []Handler
}

// New creates a watcher for files ending in suffix (e.g. ".gsp").
func New(suffix string, debounce time.Duration, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Watcher{
		fs:       fsw,
		debounce: debounce,
		suffix:   suffix,
		log:      log.WithComponent("watcher"),
	}, nil
}

// AddHandler registers a change handler.
func (w *Watcher) AddHandler(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Watch adds root and all its subdirectories to the watch set. New
// subdirectories created later are picked up from their create events.
func (w *Watcher) Watch(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Start runs the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]struct{})

		w.mu.Lock()
		handlers := append([]Handler(nil), w.handlers...)
		w.mu.Unlock()
		for _, h := range handlers {
			h(paths)
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.fs.Close()
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fs.Add(event.Name)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, w.suffix) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			flush()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, err, "watch error")
		}
	}
}
