// Package server implements serve mode: an HTTP server answering page
// requests from a ready pipeline's permalink lookup, with on-demand
// rendering, health and metrics endpoints, a debounced content watcher, and
// an optional scheduled rebuild.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/sitewright/internal/bootstrap"
	"git.home.luguber.info/inful/sitewright/internal/render"
)

// Runtime is one generation of serving state: a ready pipeline and the
// renderer built against its routes. Rebuilds swap the whole generation
// atomically, so in-flight requests keep a consistent view.
type Runtime struct {
	Pipeline *bootstrap.Pipeline
	Renderer render.PageRenderer
}

// RebuildFunc produces a fresh runtime. It is called on content changes and
// scheduled rebuilds.
type RebuildFunc func(ctx context.Context) (*Runtime, error)

// Options configures the serve-mode server.
type Options struct {
	Addr    string
	Rebuild RebuildFunc

	// Metrics serves the metrics endpoint when non-nil.
	Metrics http.Handler
}

// Server serves rendered pages over HTTP.
type Server struct {
	opts       Options
	current    atomic.Pointer[Runtime]
	httpServer *http.Server

	// rebuildMu serializes rebuilds; concurrent triggers coalesce into
	// whichever rebuild is already running plus at most one more.
	rebuildMu sync.Mutex
}

// New creates a server around an initial runtime.
func New(initial *Runtime, opts Options) (*Server, error) {
	if initial == nil || initial.Pipeline == nil || initial.Renderer == nil {
		return nil, errors.New("server requires an initial pipeline and renderer")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	s := &Server{opts: opts}
	s.current.Store(initial)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	mux.HandleFunc("/", s.handlePage)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start runs the server until the listener fails or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("Serving site", "addr", s.opts.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Stopping server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Rebuild produces a fresh runtime and swaps it in. Failures keep the
// previous generation serving.
func (s *Server) Rebuild(ctx context.Context) error {
	if s.opts.Rebuild == nil {
		return errors.New("no rebuild function configured")
	}
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	next, err := s.opts.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild pipeline: %w", err)
	}
	if next == nil || next.Pipeline == nil || next.Renderer == nil {
		return errors.New("rebuild returned an incomplete runtime")
	}
	s.current.Store(next)
	slog.Info("Pipeline rebuilt",
		"build_id", next.Pipeline.BuildID(),
		"requests", len(next.Pipeline.Requests()),
		"duration", time.Since(start))
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	rt := s.current.Load()
	select {
	case <-rt.Pipeline.Ready():
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	default:
		http.Error(w, "pipeline not ready", http.StatusServiceUnavailable)
	}
}

// handlePage resolves the request path against the pipeline's permalink
// lookup and renders the page on demand.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rt := s.current.Load()
	select {
	case <-rt.Pipeline.Ready():
	case <-r.Context().Done():
		return
	}

	req, ok := rt.Pipeline.Lookup(r.URL.Path)
	if !ok && !strings.HasSuffix(r.URL.Path, "/") {
		req, ok = rt.Pipeline.Lookup(r.URL.Path + "/")
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	html, err := rt.Renderer.RenderPage(r.Context(), req)
	if err != nil {
		slog.Error("Page render failed", "permalink", req.Permalink, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}
