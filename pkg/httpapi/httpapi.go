// Package httpapi is the optional localhost debugging surface SPEC_FULL
// adds alongside the CLI: a read-only HTTP server exposing version lookup
// and one level of directory browsing as JSON/NDJSON. Grounded in the
// teacher's pkg/api package for server lifecycle and router shape, trimmed
// to the one trust boundary this domain needs -- the same one "timewalk
// list" already runs under, so no auth/session stack is carried over.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jrsnow/timewalk/pkg/format"
	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/recurse"
	"github.com/jrsnow/timewalk/pkg/sink"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Config controls the HTTP server's bind address and CORS policy.
type Config struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Server is the localhost query-only HTTP server's lifecycle.
type Server struct {
	log        logrus.FieldLogger
	cfg        Config
	inv        *inventory.Inventory
	uniqueness paths.Uniqueness
	httpServer *http.Server
}

// NewServer builds a Server that answers queries against inv.
func NewServer(log logrus.FieldLogger, cfg Config, inv *inventory.Inventory, uniqueness paths.Uniqueness) *Server {
	return &Server{
		log:        log.WithField("component", "httpapi"),
		cfg:        cfg,
		inv:        inv,
		uniqueness: uniqueness,
	}
}

// Start binds the listener and serves in the background. It returns once
// the listener is bound, not once the server stops.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("listen", s.cfg.Listen).Info("HTTP API starting")

		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return nil
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/versions", s.handleVersions)
		r.Get("/browse", s.handleBrowse)
	})

	return r
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}

	if len(s.cfg.CORSOrigins) == 0 || (len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	} else {
		opts.AllowedOrigins = s.cfg.CORSOrigins
	}

	return cors.Handler(opts)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// browseLine is one NDJSON record handleBrowse streams -- just enough to
// render a listing, without re-serializing the whole inventory per entry.
type browseLine struct {
	Path    string `json:"path"`
	IsDir   bool   `json:"is_dir"`
	Phantom bool   `json:"phantom"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersions runs §4.3's version lookup for ?path= and returns the
// VersionsJSON rendering of the result.
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	reqPath := r.URL.Query().Get("path")
	if reqPath == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"missing required query parameter: path"})

		return
	}

	m, err := versions.NewMap(r.Context(), s.log, []string{reqPath}, s.inv, s.uniqueness)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, format.BuildEntries(m))
}

// handleBrowse runs one non-recursive pass of the enumerator over ?dir=
// and streams the result as newline-delimited JSON -- live entries plus
// one level of deleted discovery, spec.md's browse-one-directory mode.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"missing required query parameter: dir"})

		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	snk := sink.NewUnboundedSink()
	defer snk.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cfg := recurse.Config{
		Recursive:   false,
		DeletedMode: recurse.DepthOfOne,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- recurse.Recurse(ctx, s.log, dir, s.inv, snk, cfg)
	}()

	enc := json.NewEncoder(w)

	for item := range snk.Items() {
		line := browseLine{
			Path:    item.Entry.Path,
			IsDir:   item.Entry.IsDir(),
			Phantom: item.Phantom,
		}

		if err := enc.Encode(line); err != nil {
			cancel()

			break
		}

		if canFlush {
			flusher.Flush()
		}
	}

	if err := <-errCh; err != nil {
		s.log.WithError(err).WithField("dir", dir).Warn("Browse enumeration ended with error")
	}
}
