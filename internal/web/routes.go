package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/static"
)

func (s *Server) setupRoutes() {
	sessionHandler := handlers.NewSessionHandler(s.controller)
	eventsHandler := handlers.NewEventsHandler(s.broadcaster, func() any { return s.controller.Status() })

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Streams stay open for the whole session
		r.Get("/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			r.Get("/session", sessionHandler.Status)
			r.Get("/attendance", sessionHandler.Attendance)

			r.With(middleware.RequireToken(s.config.Web.Token)).Post("/session/stop", sessionHandler.Stop)
		})
	})

	s.router.Get("/stream.mjpeg", s.frames.Stream)

	s.router.With(middleware.SecurityHeaders()).Get("/", serveIndex)
}

// serveIndex serves the live display page
func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(static.Index())
}
