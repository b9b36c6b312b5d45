// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/campus-events/backend/internal/metrics"
	"github.com/campus-events/backend/internal/model"
	"github.com/campus-events/backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is full")

// ValidationError lists field-level problems with client input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// EventService orchestrates event and registration operations. Every method
// borrows one store session and releases it before returning.
type EventService struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store repository.Store, logger zerolog.Logger) *EventService {
	return &EventService{
		store:  store,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// withSession runs fn on a freshly acquired session and always releases it.
func (s *EventService) withSession(ctx context.Context, fn func(repository.Session) error) error {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()
	return fn(sess)
}

// Ping reports whether the store is reachable.
func (s *EventService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListEvents returns a page of events in id order.
func (s *EventService) ListEvents(ctx context.Context, page model.Page) ([]model.Event, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	var events []model.Event
	err := s.withSession(ctx, func(sess repository.Session) error {
		var err error
		events, err = sess.ListEvents(ctx, page)
		return err
	})
	return events, err
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	var event *model.Event
	err := s.withSession(ctx, func(sess repository.Session) error {
		var err error
		event, err = sess.GetEvent(ctx, id)
		return err
	})
	return event, err
}

// CreateEvent validates the input and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	var event *model.Event
	err := s.withSession(ctx, func(sess repository.Session) error {
		var err error
		event, err = sess.CreateEvent(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("event_id", event.ID).Int("quota", event.Quota).Msg("event created")
	return event, nil
}

// UpdateEvent replaces every client field of an existing event.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, in model.EventInput) (*model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	var event *model.Event
	err := s.withSession(ctx, func(sess repository.Session) error {
		var err error
		event, err = sess.UpdateEvent(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("event_id", id).Msg("event updated")
	return event, nil
}

// DeleteEvent removes an event and, through the foreign key, its participants.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	err := s.withSession(ctx, func(sess repository.Session) error {
		return sess.DeleteEvent(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", id).Msg("event deleted")
	return nil
}

// Register adds a participant to an event if it has a free seat.
//
// The capacity check is read-then-write: look up the event, count its
// participants, compare with the quota, insert. Nothing locks the event
// between the count and the insert, so two concurrent registrations for the
// last seat can both succeed when the store allows parallel sessions.
func (s *EventService) Register(ctx context.Context, in model.ParticipantInput) (*model.Participant, error) {
	var participant *model.Participant
	err := s.withSession(ctx, func(sess repository.Session) error {
		event, err := sess.GetEvent(ctx, in.EventID)
		if err != nil {
			return err
		}

		taken, err := sess.CountParticipants(ctx, event.ID)
		if err != nil {
			return err
		}
		if event.IsFull(taken) {
			return ErrEventFull
		}

		participant, err = sess.CreateParticipant(ctx, in)
		if errors.Is(err, repository.ErrEventReference) {
			// Deleted between the lookup and the insert.
			return repository.ErrNotFound
		}
		return err
	})

	metrics.RegistrationsTotal.WithLabelValues(registrationOutcome(err)).Inc()
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("register for event: %w", err)
	}

	s.logger.Info().
		Int64("event_id", participant.EventID).
		Int64("participant_id", participant.ID).
		Msg("participant registered")
	return participant, nil
}

// ListParticipants returns a page of all participants in id order.
func (s *EventService) ListParticipants(ctx context.Context, page model.Page) ([]model.Participant, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	var participants []model.Participant
	err := s.withSession(ctx, func(sess repository.Session) error {
		var err error
		participants, err = sess.ListParticipants(ctx, page)
		return err
	})
	return participants, err
}

// ListEventParticipants returns a page of one event's participants.
func (s *EventService) ListEventParticipants(ctx context.Context, eventID int64, page model.Page) ([]model.Participant, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	var participants []model.Participant
	err := s.withSession(ctx, func(sess repository.Session) error {
		if _, err := sess.GetEvent(ctx, eventID); err != nil {
			return err
		}
		var err error
		participants, err = sess.ListEventParticipants(ctx, eventID, page)
		return err
	})
	return participants, err
}

func validateEventInput(in model.EventInput) error {
	fields := map[string]string{}
	if in.Quota < 0 {
		fields["quota"] = "must be greater than or equal to 0"
	}
	if in.Date.IsZero() {
		fields["date"] = "is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validatePage(page model.Page) error {
	fields := map[string]string{}
	if page.Skip < 0 {
		fields["skip"] = "must be greater than or equal to 0"
	}
	if page.Limit < 0 {
		fields["limit"] = "must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrDuplicateEmail) ||
		errors.Is(err, ErrEventFull)
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrEventFull):
		return "full"
	case errors.Is(err, repository.ErrNotFound):
		return "event_not_found"
	case errors.Is(err, repository.ErrDuplicateEmail):
		return "duplicate_email"
	default:
		return "error"
	}
}
