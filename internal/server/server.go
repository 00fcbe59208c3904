// Package server exposes style compilation and viewer config building over
// HTTP.
//
// Routes:
//
//	GET  /healthz               liveness and build info
//	POST /v1/compile?kind=...   compile an SLD (XML body, or JSON {"source": url})
//	POST /v1/catalog            build a viewer config for a resource
//
// A document that cannot be fetched or compiled is not an HTTP error: the
// response carries an empty style and the reason the compile stopped.
// Only malformed requests get a 4xx.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/terria"
)

const (
	defaultRequestTimeout = time.Minute
	shutdownTimeout       = 5 * time.Second
)

// Config holds the server's collaborators and settings.
type Config struct {
	Addr           string
	RequestTimeout time.Duration

	// InstanceURL is the viewer used for start links. Catalog requests
	// asking for a link fail when it is empty.
	InstanceURL string

	Runner  *pipeline.Runner
	Builder *terria.Builder
	Logger  *log.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg Config
}

// New creates a server. A nil Builder or Logger gets a default.
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Builder == nil {
		cfg.Builder = terria.NewBuilder(terria.Options{})
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	return &Server{cfg: cfg}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		middleware.Recoverer,
		middleware.Timeout(s.cfg.RequestTimeout),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/catalog", s.handleCatalog)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is done,
// then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.cfg.Logger.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.cfg.Logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
