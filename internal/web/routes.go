package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/stafftrack/attendance/internal/match"
	"github.com/stafftrack/attendance/internal/punch"
	"github.com/stafftrack/attendance/internal/web/handlers"
	"github.com/stafftrack/attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Deps, matcher *match.Matcher, orchestrator *punch.Orchestrator) {
	captureHandler := handlers.NewCaptureHandler(s.captureManager, deps.Directory)
	enrollmentHandler := handlers.NewEnrollmentHandler(deps.Enrollments, s.captureManager, deps.Identify)
	punchHandler := handlers.NewPunchHandler(orchestrator, deps.Directory, s.captureManager, deps.Attendance)
	geofenceHandler := handlers.NewGeofenceHandler(deps.Geofences)
	identifyHandler := handlers.NewIdentifyHandler(deps.Identify, deps.Enrollments, deps.Directory, matcher, s.captureManager)
	clientConfigHandler := handlers.NewClientConfigHandler(&s.config.Thresholds)
	employeeHandler := handlers.NewEmployeeHandler(deps.Directory)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireDeviceKey())

		// Device timing constants
		r.Get("/client-config", clientConfigHandler.Get)

		// Capture sessions
		r.Post("/capture/sessions", captureHandler.Start)
		r.Get("/capture/sessions/{id}", captureHandler.Status)
		r.Post("/capture/sessions/{id}/frames", captureHandler.PushFrame)
		r.Post("/capture/sessions/{id}/submit", captureHandler.SubmitAngle)
		r.Post("/capture/sessions/{id}/camera-error", captureHandler.ReportCameraFailure)
		r.Delete("/capture/sessions/{id}", captureHandler.Cancel)

		// Directory search
		r.Get("/employees", employeeHandler.Search)

		// Enrollment
		r.Post("/employees/{id}/enrollment", enrollmentHandler.Complete)
		r.Get("/employees/{id}/enrollment", enrollmentHandler.Status)
		r.Delete("/employees/{id}/enrollment", enrollmentHandler.Delete)

		// Punch authorization and history
		r.Post("/punch", punchHandler.Attempt)
		r.Get("/employees/{id}/punches", punchHandler.History)

		// Kiosk identification
		r.Post("/identify", identifyHandler.Identify)

		// Geofence administration
		r.Get("/companies/{id}/geofence", geofenceHandler.GetCompany)
		r.Put("/companies/{id}/geofence", geofenceHandler.PutCompany)
		r.Get("/employees/{id}/geofence", geofenceHandler.GetEmployee)
		r.Put("/employees/{id}/geofence", geofenceHandler.PutEmployee)
	})
}
