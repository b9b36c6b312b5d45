// Package repository implements persistence for events and participants.
// Callers acquire a Session per unit of work and must Release it on every
// exit path; the session pins one connection of the underlying pool.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus-events/backend/internal/config"
	"github.com/campus-events/backend/internal/database"
	"github.com/campus-events/backend/internal/metrics"
	"github.com/campus-events/backend/internal/model"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when the participants email constraint rejects an insert.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrEventReference is returned when a participant insert references a
// missing event (foreign key violation).
var ErrEventReference = errors.New("referenced event does not exist")

// Store hands out scoped sessions over a shared connection pool.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close() error
	PoolStats() metrics.PoolStats
}

// Session is a single connection borrowed from the Store. All methods run
// one statement each; nothing spans statements.
type Session interface {
	CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context, page model.Page) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id int64, in model.EventInput) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	CountParticipants(ctx context.Context, eventID int64) (int, error)
	CreateParticipant(ctx context.Context, in model.ParticipantInput) (*model.Participant, error)
	ListParticipants(ctx context.Context, page model.Page) ([]model.Participant, error)
	ListEventParticipants(ctx context.Context, eventID int64, page model.Page) ([]model.Participant, error)

	// Release returns the connection to the pool. It is safe to call twice.
	Release()
}

// Open connects to the store named by cfg.URL and ensures the schema exists.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (Store, error) {
	if cfg.IsPostgres() {
		pool, err := database.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Info().Msg("connected to postgres")
		return NewPostgresStore(pool), nil
	}

	db, err := database.OpenSQLite(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	logger.Info().Str("dsn", cfg.URL).Msg("opened sqlite store")
	return NewSQLiteStore(db), nil
}
