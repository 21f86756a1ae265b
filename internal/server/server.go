// Package server owns the HTTP surface of ssf: routing, middleware, health
// probes, and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/handler"
	"github.com/zlovtnik/graphqlScala-sub003/internal/openapi"
	"github.com/zlovtnik/graphqlScala-sub003/internal/reader"
	"github.com/zlovtnik/graphqlScala-sub003/internal/server/middleware"
	"github.com/zlovtnik/graphqlScala-sub003/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       100,
	}
}

// Server is the top-level HTTP server. It owns the Chi router and the
// handles to the engine, reader, key resolver, and auth service.
type Server struct {
	cfg        Config
	router     chi.Router
	engine     *engine.Engine
	reader     *reader.Reader
	keys       handler.KeyResolver
	authSvc    *service.AuthService
	db         *sqlx.DB
	auditDB    *sqlx.DB
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server, wires up all routes and middleware, and returns it
// ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, eng *engine.Engine, rd *reader.Reader, keys handler.KeyResolver,
	authSvc *service.AuthService, db, auditDB *sqlx.DB, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		reader:  rd,
		keys:    keys,
		authSvc: authSvc,
		db:      db,
		auditDB: auditDB,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.TraceID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", s.handleOpenAPI)

	crudHandler := handler.NewCrudHandler(s.engine)
	browseHandler := handler.NewBrowseHandler(s.reader, s.engine.AllowList())
	schemaHandler := handler.NewSchemaHandler(s.engine.AllowList(), s.engine.MetadataLoader(), s.keys)

	r.Route("/api/v1/crud", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.authSvc))

		r.Group(func(r chi.Router) {
			if s.cfg.RateLimit > 0 {
				r.Use(middleware.RateLimit(s.cfg.RateLimit))
			}
			r.Post("/execute", crudHandler.Execute)
			r.Post("/bulk", crudHandler.ExecuteBulk)
		})

		r.Post("/query", browseHandler.QueryRows)
		r.Get("/tables", browseHandler.ListTables)
		r.Get("/tables/{table}/rows", browseHandler.ListRows)
		r.Get("/tables/{table}/schema", schemaHandler.GetSchema)
		r.Get("/tables/{table}/primary-keys", schemaHandler.GetPrimaryKeys)
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when both the CRUD and the
// audit pool are reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	pools := map[string]*sqlx.DB{"database": s.db, "audit": s.auditDB}
	for name, db := range pools {
		if db == nil {
			continue
		}
		if err := db.PingContext(r.Context()); err != nil {
			checks[name] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks[name] = "ok"
		}
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handleOpenAPI serves the generated spec. Metadata is loaded per request so
// the document tracks the live catalog.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc := openapi.Generate(r.Context(), "/", s.engine.AllowList(), s.engine.MetadataLoader())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler { return s.router }
