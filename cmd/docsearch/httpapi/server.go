// Package httpapi realizes spec.md §6.2 and §6.3 as an HTTP surface over
// the search executor and suggestion index, grounded on the teacher's
// chi-based server package but pared to this core's search and suggestion
// contracts, plus ingestion and deletion routes when a pipeline is wired.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docsearch-core/docsearch/internal/ingest"
	"github.com/docsearch-core/docsearch/internal/search"
	"github.com/docsearch-core/docsearch/internal/suggest"
)

// ChunkCounter reports how many chunks a resource persisted, so the
// ingestion route can fill in chunks_created without Ingest itself
// widening its return type. Satisfied by *internal/resourcestore.Store.
type ChunkCounter interface {
	ChunkIDsByResource(ctx context.Context, tenantID, resourceID string) ([]string, error)
}

// Server is the HTTP realization of the compound search and suggestion
// entry contracts. It owns no collaborators of its own: every request is
// delegated straight to the executor, suggestion index, or pipeline it was
// constructed with.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	executor   *search.Executor
	suggest    *suggest.Index
	pipeline   *ingest.Pipeline
	chunks     ChunkCounter
	log        *slog.Logger
}

// New constructs a Server bound to addr, delegating to executor, suggestIdx,
// and pipeline. pipeline may be nil, in which case the ingestion and
// deletion routes are not registered (spec.md §6.1 frames ingestion as invoked by an upload
// handler outside this core's scope; wiring it here is an enrichment, not a
// requirement).
func New(addr string, executor *search.Executor, suggestIdx *suggest.Index, pipeline *ingest.Pipeline, chunks ChunkCounter, log *slog.Logger) *Server {
	s := &Server{
		executor: executor,
		suggest:  suggestIdx,
		pipeline: pipeline,
		chunks:   chunks,
		log:      log,
		router:   chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/resources/compound-search", s.handleSearch)
	s.router.Get("/search/suggestions", s.handleSuggestions)
	if pipeline != nil {
		s.router.Post("/resources", s.handleIngest)
		s.router.Delete("/resources/{resourceID}", s.handleDelete)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Router exposes the chi mux for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe blocks serving until the server is shut down or fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
