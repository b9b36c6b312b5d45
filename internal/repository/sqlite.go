package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-events/backend/internal/metrics"
	"github.com/campus-events/backend/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore constructs a SQLiteStore. The database must already have the schema.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Acquire pins one database/sql connection as a Session.
func (s *SQLiteStore) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sqliteSession{conn: conn}, nil
}

// Ping checks that the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PoolStats reports database/sql connection counts.
func (s *SQLiteStore) PoolStats() metrics.PoolStats {
	stat := s.db.Stats()
	return metrics.PoolStats{
		Open:    stat.OpenConnections,
		InUse:   stat.InUse,
		Idle:    stat.Idle,
		MaxOpen: stat.MaxOpenConnections,
	}
}

type sqliteSession struct {
	conn *sql.Conn
}

func (s *sqliteSession) Release() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *sqliteSession) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO events (title, date, location, quota) VALUES (?, ?, ?, ?)`,
		in.Title, in.Date.String(), in.Location, in.Quota,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert event id: %w", err)
	}
	return &model.Event{ID: id, Title: in.Title, Date: in.Date, Location: in.Location, Quota: in.Quota}, nil
}

func (s *sqliteSession) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanSQLiteEvent(s.conn.QueryRowContext(ctx,
		`SELECT id, title, date, location, quota FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *sqliteSession) ListEvents(ctx context.Context, page model.Page) ([]model.Event, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, date, location, quota
		 FROM events
		 ORDER BY id ASC
		 LIMIT ? OFFSET ?`,
		page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *sqliteSession) UpdateEvent(ctx context.Context, id int64, in model.EventInput) (*model.Event, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE events SET title = ?, date = ?, location = ?, quota = ? WHERE id = ?`,
		in.Title, in.Date.String(), in.Location, in.Quota, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update event rows: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return &model.Event{ID: id, Title: in.Title, Date: in.Date, Location: in.Location, Quota: in.Quota}, nil
}

func (s *sqliteSession) DeleteEvent(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteSession) CountParticipants(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = ?`, eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func (s *sqliteSession) CreateParticipant(ctx context.Context, in model.ParticipantInput) (*model.Participant, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO participants (name, email, event_id) VALUES (?, ?, ?)`,
		in.Name, in.Email, in.EventID,
	)
	if err != nil {
		if classified := classifySQLiteConstraint(err); classified != nil {
			return nil, classified
		}
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert participant id: %w", err)
	}
	return &model.Participant{ID: id, Name: in.Name, Email: in.Email, EventID: in.EventID}, nil
}

func (s *sqliteSession) ListParticipants(ctx context.Context, page model.Page) ([]model.Participant, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, email, event_id
		 FROM participants
		 ORDER BY id ASC
		 LIMIT ? OFFSET ?`,
		page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return collectSQLiteParticipants(rows)
}

func (s *sqliteSession) ListEventParticipants(ctx context.Context, eventID int64, page model.Page) ([]model.Participant, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, email, event_id
		 FROM participants
		 WHERE event_id = ?
		 ORDER BY id ASC
		 LIMIT ? OFFSET ?`,
		eventID, page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	return collectSQLiteParticipants(rows)
}

// classifySQLiteConstraint maps constraint failures on the participants
// table to repository errors. Extended result codes are checked first; the
// message is the fallback when only the primary code is reported.
func classifySQLiteConstraint(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return nil
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return ErrDuplicateEmail
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ErrEventReference
	case sqlite3.SQLITE_CONSTRAINT:
		msg := sqlErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return ErrDuplicateEmail
		case strings.Contains(msg, "FOREIGN KEY"):
			return ErrEventReference
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEvent(row rowScanner) (*model.Event, error) {
	var (
		e    model.Event
		date string
	)
	if err := row.Scan(&e.ID, &e.Title, &date, &e.Location, &e.Quota); err != nil {
		return nil, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	e.Date = d
	return &e, nil
}

func collectSQLiteParticipants(rows *sql.Rows) ([]model.Participant, error) {
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
