// Package web hosts the HTTP API for punch terminals, enrollment kiosks, and
// the HR admin UI.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/directory"
	"github.com/stafftrack/attendance/internal/match"
	"github.com/stafftrack/attendance/internal/punch"
	"github.com/stafftrack/attendance/internal/web/handlers"
	"github.com/stafftrack/attendance/internal/web/middleware"
)

// Deps carries the collaborators the server wires into its handlers.
type Deps struct {
	Enrollments handlers.EnrollmentStore
	Geofences   handlers.GeofenceStore
	Attendance  database.AttendanceStore
	Directory   directory.Reader
	Extractor   descriptor.Extractor
	Identify    *database.IdentifyIndex
}

// Server represents the web server.
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	captureManager *capture.Manager
}

// NewServer creates a new web server.
func NewServer(cfg *config.Config, port int, host string, deps Deps) *Server {
	r := chi.NewRouter()

	th := cfg.Thresholds
	captureManager := capture.NewManager(deps.Extractor, capture.Options{
		PollInterval: th.PollInterval(),
		SettleDelay:  th.SettleDelay(),
	}, th.SessionTTL())

	matcher := match.NewMatcher(th.Face.MatchThreshold, th.Face.MinConfidence)
	orchestrator := punch.NewOrchestrator(
		deps.Geofences, deps.Enrollments, deps.Attendance, matcher, th.LocationMaxAge(),
	)

	s := &Server{
		config:         cfg,
		router:         r,
		captureManager: captureManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes(deps, matcher, orchestrator)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and cancels live capture
// sessions so their cameras are released.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	s.captureManager.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
