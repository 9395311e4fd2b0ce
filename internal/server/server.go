// Package server is the gsp development server: it routes page requests
// into the engine, serves static files from the document root, and in
// development mode pushes reload notifications to connected browsers when
// pages change on disk.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/conneroisu/gsp/internal/engine"
	gsperr "github.com/conneroisu/gsp/internal/errors"
	"github.com/conneroisu/gsp/internal/logging"
	"github.com/conneroisu/gsp/internal/watcher"
	"github.com/conneroisu/gsp/pkg/gsprt"
)

// Server serves gsp pages over HTTP.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	log     logging.Logger
	docroot string
	hub     *reloadHub
	static  http.Handler
}

// New creates a Server over an engine.
func New(cfg *config.Config, eng *engine.Engine, log logging.Logger) (*Server, error) {
	docroot, err := filepath.Abs(cfg.Pages.DocRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving docroot: %w", err)
	}
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Server{
		cfg:     cfg,
		engine:  eng,
		log:     log.WithComponent("server"),
		docroot: docroot,
		hub:     newReloadHub(log),
		static:  http.FileServer(http.Dir(docroot)),
	}, nil
}

// Start runs the server until ctx is cancelled. In development mode it
// also starts the docroot watcher so edited pages are invalidated and
// connected browsers reload.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Development.HotReload {
		w, err := watcher.New(s.cfg.Pages.Extension, s.cfg.Development.Debounce, s.log)
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		if err := w.Watch(s.docroot); err != nil {
			return fmt.Errorf("watching %s: %w", s.docroot, err)
		}
		w.AddHandler(func(paths []string) {
			for _, p := range paths {
				s.engine.Invalidate(p)
			}
			s.log.Info(ctx, "pages changed", "count", len(paths))
			s.hub.Broadcast(ctx)
		})
		go w.Start(ctx)
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, fmt.Sprint(s.cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "gsp server listening", "addr", "http://"+addr, "docroot", s.docroot)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/_gsp/reload", s.hub)
	mux.HandleFunc("/_gsp/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRequest)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	full := filepath.Join(s.docroot, filepath.FromSlash(rel))

	// filepath.Join cleans traversal sequences, but keep the guard
	// explicit: nothing outside the docroot is ever served.
	if !strings.HasPrefix(full, s.docroot) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	// Directory requests (including the root) resolve to the index page.
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		full = filepath.Join(full, s.cfg.Pages.Index)
	}

	if strings.HasSuffix(full, s.cfg.Pages.Extension) {
		s.renderPage(w, r, full)
		return
	}

	s.static.ServeHTTP(w, r)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, pagePath string) {
	req := gsprt.FromHTTP(r)
	res, err := s.engine.Render(r.Context(), pagePath, req)
	if err != nil {
		s.writeError(w, r, pagePath, err)
		return
	}

	for _, op := range res.CookieOps() {
		cookie := &http.Cookie{
			Name:     op.Name,
			Value:    op.Value,
			Path:     "/",
			MaxAge:   op.MaxAge,
			HttpOnly: true,
		}
		if op.MaxAge < 0 {
			cookie.MaxAge = -1
			cookie.Value = ""
		}
		http.SetCookie(w, cookie)
	}
	for _, op := range res.HeaderOps() {
		w.Header().Add(op.Name, op.Value)
	}

	if url := res.RedirectURL(); url != "" {
		http.Redirect(w, r, url, res.StatusCode())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(res.StatusCode())

	body := res.Body()
	if s.cfg.Development.HotReload {
		body += reloadScript
	}
	_, _ = w.Write([]byte(body))
}

// writeError maps pipeline errors onto HTTP responses: missing pages are
// 404, everything else is a 500 carrying the diagnostic text (this is a
// development server; diagnostics in the body are the point).
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, pagePath string, err error) {
	if gsperr.KindOf(err) == gsperr.KindIO && errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	s.log.Error(r.Context(), err, "page render failed", "page", pagePath)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintln(w, err.Error())
}
