package handler

import (
	"net/http"

	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/metrics"
	"github.com/campus-events/backend/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter registers every endpoint and the global middleware stack.
func NewRouter(svc *service.EventService, gate *auth.Gate, logger zerolog.Logger) http.Handler {
	h := NewEventHandler(svc, logger)
	requireKey := RequireAPIKey(gate, logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(metrics.HTTPMiddleware)
	r.Use(Logger(logger)) // structured access log
	r.Use(CORS)           // any origin, with credentials

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.With(requireKey).Post("/", h.CreateEvent)
		r.Get("/{event_id}", h.GetEvent)
		r.With(requireKey).Put("/{event_id}", h.UpdateEvent)
		r.With(requireKey).Delete("/{event_id}", h.DeleteEvent)
		r.Get("/{event_id}/participants", h.ListEventParticipants)
	})

	r.Post("/register", h.Register)
	r.Get("/participants", h.ListParticipants)

	return r
}
