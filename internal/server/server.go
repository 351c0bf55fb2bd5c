// Package server provides the HTTP API for the retrieval service.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ragcore/internal/config"
	"github.com/hyperjump/ragcore/internal/rag"
	"go.uber.org/zap"
)

// CallerHeader identifies the caller for rate limiting. Requests without it are keyed by remote IP.
const CallerHeader = "X-Caller-ID"

// WatchService manages watched directories (add/remove at runtime).
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the retrieval API.
type Server struct {
	svc    *rag.Service
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server

	watch         WatchService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
}

// NewServer creates a server over svc. watch may be nil to disable the watch endpoints. When
// configPath and fullCfg are set, watch directory changes are persisted to the config file.
func NewServer(svc *rag.Service, cfg *config.ServerConfig, logger *zap.Logger, watch WatchService, configPath string, fullCfg *config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:         svc,
		config:      cfg,
		logger:      logger,
		watch:       watch,
		configPath:  configPath,
		watchConfig: fullCfg,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config != nil && s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIngest)
		r.Post("/documents/batch", s.handleIngestBatch)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/query", s.handleQuery)
		r.Get("/metrics", s.handleMetrics)
		r.Post("/metrics/reset", s.handleMetricsReset)
		r.Put("/settings/min-similarity", s.handleSetMinSimilarity)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
