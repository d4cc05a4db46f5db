package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/devflow/backhaul/internal/api/handler"
	mw "github.com/devflow/backhaul/internal/api/middleware"
	"github.com/devflow/backhaul/internal/config"
	"github.com/devflow/backhaul/internal/core"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, temporalClient temporalclient.Client, cfg *config.Config, secretsKey []byte) *Server {
	services := core.NewServices(pool, temporalClient, secretsKey)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		pool:           pool,
		temporalClient: temporalClient,
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Dashboard
		dashboard := handler.NewDashboard(s.services.Dashboard)
		r.Get("/dashboard/stats", dashboard.Stats)

		// Backup schedules
		schedule := handler.NewBackupSchedule(s.services.BackupSchedule)
		r.Get("/projects/{projectID}/backup-schedules", schedule.ListByProject)
		r.Post("/projects/{projectID}/backup-schedules", schedule.Create)
		r.Get("/backup-schedules/{id}", schedule.Get)
		r.Put("/backup-schedules/{id}", schedule.Update)
		r.Delete("/backup-schedules/{id}", schedule.Delete)
		r.Post("/backup-schedules/{id}/activate", schedule.Activate)
		r.Post("/backup-schedules/{id}/deactivate", schedule.Deactivate)

		// File backups
		fileBackup := handler.NewFileBackup(s.services.FileBackup)
		r.Get("/projects/{projectID}/file-backups", fileBackup.ListByProject)
		r.Post("/projects/{projectID}/file-backups", fileBackup.Create)
		r.Get("/file-backups/{id}", fileBackup.Get)
		r.Get("/file-backups/{id}/chain", fileBackup.Chain)
		r.Get("/file-backups/{id}/restore-order", fileBackup.RestoreOrder)
		r.Delete("/file-backups/{id}", fileBackup.Delete)

		// Database backups
		databaseBackup := handler.NewDatabaseBackup(s.services.DatabaseBackup)
		r.Get("/projects/{projectID}/database-backups", databaseBackup.ListByProject)
		r.Post("/projects/{projectID}/database-backups", databaseBackup.Create)
		r.Get("/database-backups/{id}", databaseBackup.Get)
		r.Post("/database-backups/{id}/verify", databaseBackup.Verify)
		r.Delete("/database-backups/{id}", databaseBackup.Delete)

		// Server backups
		serverBackup := handler.NewServerBackup(s.services.ServerBackup)
		r.Get("/servers/{serverID}/server-backups", serverBackup.ListByServer)
		r.Post("/projects/{projectID}/server-backups", serverBackup.Create)
		r.Get("/server-backups/{id}", serverBackup.Get)
		r.Post("/server-backups/{id}/verify", serverBackup.Verify)
		r.Delete("/server-backups/{id}", serverBackup.Delete)

		// Storage configurations
		storageConfig := handler.NewStorageConfig(s.services.StorageConfig)
		r.Get("/storage-configurations", storageConfig.List)
		r.Post("/storage-configurations", storageConfig.Create)
		r.Get("/storage-configurations/{id}", storageConfig.Get)
		r.Put("/storage-configurations/{id}", storageConfig.Update)
		r.Delete("/storage-configurations/{id}", storageConfig.Delete)
		r.Post("/storage-configurations/{id}/set-default", storageConfig.SetDefault)
		r.Post("/storage-configurations/{id}/test-connection", storageConfig.TestConnection)
		r.Post("/storage-configurations/{id}/encryption-key", storageConfig.GenerateEncryptionKey)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
