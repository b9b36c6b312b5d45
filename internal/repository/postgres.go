package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-events/backend/internal/metrics"
	"github.com/campus-events/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL SQLSTATE codes the repository translates.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore. The pool must already have the schema.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Acquire borrows one pooled connection as a Session.
func (s *PostgresStore) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &postgresSession{conn: conn}, nil
}

// Ping checks that the database answers.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool, waiting for acquired connections to be released.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// PoolStats reports pgxpool connection counts.
func (s *PostgresStore) PoolStats() metrics.PoolStats {
	stat := s.pool.Stat()
	return metrics.PoolStats{
		Open:    int(stat.TotalConns()),
		InUse:   int(stat.AcquiredConns()),
		Idle:    int(stat.IdleConns()),
		MaxOpen: int(stat.MaxConns()),
	}
}

type postgresSession struct {
	conn *pgxpool.Conn
}

func (s *postgresSession) Release() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}

func (s *postgresSession) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	e := model.Event{Title: in.Title, Date: in.Date, Location: in.Location, Quota: in.Quota}
	err := s.conn.QueryRow(ctx,
		`INSERT INTO events (title, date, location, quota)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		e.Title, e.Date.Time, e.Location, e.Quota,
	).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

func (s *postgresSession) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanPostgresEvent(s.conn.QueryRow(ctx,
		`SELECT id, title, date, location, quota FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *postgresSession) ListEvents(ctx context.Context, page model.Page) ([]model.Event, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, title, date, location, quota
		 FROM events
		 ORDER BY id ASC
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanPostgresEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *postgresSession) UpdateEvent(ctx context.Context, id int64, in model.EventInput) (*model.Event, error) {
	e, err := scanPostgresEvent(s.conn.QueryRow(ctx,
		`UPDATE events
		 SET title = $1, date = $2, location = $3, quota = $4
		 WHERE id = $5
		 RETURNING id, title, date, location, quota`,
		in.Title, in.Date.Time, in.Location, in.Quota, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func (s *postgresSession) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresSession) CountParticipants(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = $1`, eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func (s *postgresSession) CreateParticipant(ctx context.Context, in model.ParticipantInput) (*model.Participant, error) {
	p := model.Participant{Name: in.Name, Email: in.Email, EventID: in.EventID}
	err := s.conn.QueryRow(ctx,
		`INSERT INTO participants (name, email, event_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		p.Name, p.Email, p.EventID,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, ErrDuplicateEmail
			case pgForeignKeyViolation:
				return nil, ErrEventReference
			}
		}
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	return &p, nil
}

func (s *postgresSession) ListParticipants(ctx context.Context, page model.Page) ([]model.Participant, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, email, event_id
		 FROM participants
		 ORDER BY id ASC
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return collectPostgresParticipants(rows)
}

func (s *postgresSession) ListEventParticipants(ctx context.Context, eventID int64, page model.Page) ([]model.Participant, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, email, event_id
		 FROM participants
		 WHERE event_id = $1
		 ORDER BY id ASC
		 LIMIT $2 OFFSET $3`,
		eventID, page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	return collectPostgresParticipants(rows)
}

func scanPostgresEvent(row pgx.Row) (*model.Event, error) {
	var (
		e    model.Event
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.Title, &date, &e.Location, &e.Quota); err != nil {
		return nil, err
	}
	e.Date = model.DateFromTime(date)
	return &e, nil
}

func collectPostgresParticipants(rows pgx.Rows) ([]model.Participant, error) {
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.EventID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
