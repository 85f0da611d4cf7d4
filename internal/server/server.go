// Package server serves the browser shell and proxies data queries to the
// location-history API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config configures the dev server.
type Config struct {
	// APIURL is the upstream serving /api, /api/days, /api/months, /api/years
	// and /api/geohashes.
	APIURL string
	// Shell holds index.html and its stylesheet.
	Shell fs.FS
	// WebDir optionally overlays the shell with files from disk, typically
	// the wasm build output and wasm_exec.js.
	WebDir string
	// CacheControl is sent with static files (default: "no-store").
	CacheControl string
	// ProxyTimeout bounds a single upstream request (default: 30s).
	ProxyTimeout time.Duration
	Logger       *slog.Logger
}

// Server is the dev server.
type Server struct {
	cfg     Config
	static  fs.FS
	proxy   *httputil.ReverseProxy
	logger  *slog.Logger
	started time.Time

	proxied atomic.Int64
	failed  atomic.Int64
	active  atomic.Int32
}

// Status is the JSON body of /status.
type Status struct {
	Upstream      string `json:"upstream"`
	Uptime        string `json:"uptime"`
	ActiveProxied int    `json:"active_proxied"`
	TotalProxied  int64  `json:"total_proxied"`
	TotalFailed   int64  `json:"total_failed"`
}

// New validates cfg and creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("api url is required")
	}
	upstream, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse api url: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", cfg.APIURL)
	}
	if cfg.Shell == nil {
		return nil, errors.New("shell files are required")
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.ProxyTimeout <= 0 {
		cfg.ProxyTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		static:  cfg.Shell,
		logger:  cfg.Logger,
		started: time.Now(),
	}

	if cfg.WebDir != "" {
		info, err := os.Stat(cfg.WebDir)
		if err != nil {
			return nil, fmt.Errorf("failed to stat web dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("web dir %s is not a directory", cfg.WebDir)
		}
		s.static = overlayFS{upper: os.DirFS(cfg.WebDir), lower: cfg.Shell}
	}

	s.proxy = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(upstream)
			r.SetXForwarded()
		},
		ErrorHandler: s.proxyError,
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", s.serveStatus)

	r.Route("/api", func(r chi.Router) {
		r.Use(withCORS)
		r.Handle("/", s.proxyHandler())
		r.Handle("/*", s.proxyHandler())
	})

	r.Get("/*", s.serveStatic)
	return r
}

// Status returns proxy counters.
func (s *Server) Status() Status {
	return Status{
		Upstream:      s.cfg.APIURL,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		ActiveProxied: int(s.active.Load()),
		TotalProxied:  s.proxied.Load(),
		TotalFailed:   s.failed.Load(),
	}
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
		s.log().Error("failed to encode status", "error", err)
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}

func (s *Server) proxyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.active.Add(1)
		defer s.active.Add(-1)
		s.proxied.Add(1)

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ProxyTimeout)
		defer cancel()
		s.proxy.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	s.failed.Add(1)
	s.log().Error("Upstream request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		name = "index.html"
	}
	if !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}
	if _, err := fs.Stat(s.static, name); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	http.ServeFileFS(w, r, s.static, name)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log().Debug("Served request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// overlayFS looks names up in upper first, then in lower.
type overlayFS struct {
	upper, lower fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.upper.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return o.lower.Open(name)
}
