// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/model"
	"github.com/campus-events/backend/internal/repository"
	"github.com/campus-events/backend/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// EventHandler holds all HTTP handlers for the event registration API.
type EventHandler struct {
	svc    *service.EventService
	logger zerolog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}

// writeServiceError maps domain errors to status codes. Anything it does not
// recognise is logged and reported as a bare 500.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, eventID int64) {
	var (
		verr    *service.ValidationError
		authErr *auth.Error
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{Detail: "Validation failed", Errors: verr.Fields})
	case errors.As(err, &authErr):
		writeError(w, authErr.Status, authErr.Message)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Event with id %d not found", eventID))
	case errors.Is(err, service.ErrEventFull):
		writeError(w, http.StatusBadRequest, "Event is full")
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "Email already registered")
	default:
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.logger.Debug().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request rejected")
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /events?skip=&limit=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}

	events, err := h.svc.ListEvents(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(events))
}

// GetEvent handles GET /events/{event_id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /events/{event_id}
// All client fields are replaced.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}

	var req eventRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{event_id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Event with id %d has been deleted", id),
	})
}

// ─── Participants ─────────────────────────────────────────────────────────────

// Register handles POST /register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}
	in := req.toInput()

	participant, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, in.EventID)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// ListParticipants handles GET /participants?skip=&limit=
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}

	participants, err := h.svc.ListParticipants(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(participants))
}

// ListEventParticipants handles GET /events/{event_id}/participants
func (h *EventHandler) ListEventParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.writeServiceError(w, r, err, 0)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}

	participants, err := h.svc.ListEventParticipants(r.Context(), id, page)
	if err != nil {
		h.writeServiceError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(participants))
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func (h *EventHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("health check: store unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
