package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/campus-events/backend/internal/config"
	"github.com/campus-events/backend/internal/database"
	"github.com/campus-events/backend/internal/metrics"
	"github.com/campus-events/backend/internal/model"
	"github.com/campus-events/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteService(t *testing.T) *EventService {
	t.Helper()
	cfg := config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "svc.db"), MaxConnections: 1}
	db, err := database.OpenSQLite(context.Background(), cfg)
	require.NoError(t, err)
	store := repository.NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return NewEventService(store, zerolog.Nop())
}

func talk(quota int) model.EventInput {
	return model.EventInput{
		Title:    "Guest Talk",
		Date:     model.NewDate(2025, 11, 20),
		Location: "Auditorium",
		Quota:    quota,
	}
}

func participant(eventID int64) model.ParticipantInput {
	return model.ParticipantInput{Name: "Ana", Email: uuid.NewString() + "@campus.test", EventID: eventID}
}

func TestCreateEvent_Validation(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, talk(-1))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "quota")

	in := talk(1)
	in.Date = model.Date{}
	_, err = svc.CreateEvent(ctx, in)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date")

	events, err := svc.ListEvents(ctx, model.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRegister(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, talk(2))
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.RegistrationsTotal.WithLabelValues("accepted"))

	first := participant(event.ID)
	p, err := svc.Register(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, event.ID, p.EventID)
	assert.Equal(t, first.Email, p.Email)

	_, err = svc.Register(ctx, first)
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	_, err = svc.Register(ctx, participant(event.ID))
	require.NoError(t, err)

	_, err = svc.Register(ctx, participant(event.ID))
	assert.ErrorIs(t, err, ErrEventFull)

	_, err = svc.Register(ctx, participant(event.ID+100))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RegistrationsTotal.WithLabelValues("accepted")))

	list, err := svc.ListEventParticipants(ctx, event.ID, model.DefaultPage())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRegister_ZeroQuotaIsAlwaysFull(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, talk(0))
	require.NoError(t, err)

	_, err = svc.Register(ctx, participant(event.ID))
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestListEventParticipants_UnknownEvent(t *testing.T) {
	svc := newSQLiteService(t)

	_, err := svc.ListEventParticipants(context.Background(), 9, model.DefaultPage())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListEvents_RejectsNegativePage(t *testing.T) {
	svc := newSQLiteService(t)

	_, err := svc.ListEvents(context.Background(), model.Page{Skip: -1, Limit: 10})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation failed: skip: must be greater than or equal to 0", verr.Error())
}

// racyStore keeps everything in memory and lets every session run in
// parallel. afterCount, when set, runs after each CountParticipants call
// without the store lock held.
type racyStore struct {
	mu           sync.Mutex
	events       map[int64]model.Event
	participants []model.Participant
	afterCount   func()
	acquireErr   error
}

func newRacyStore() *racyStore {
	return &racyStore{events: map[int64]model.Event{}}
}

func (s *racyStore) Acquire(context.Context) (repository.Session, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return &racySession{store: s}, nil
}

func (s *racyStore) Ping(context.Context) error { return s.acquireErr }
func (s *racyStore) Close() error               { return nil }

func (s *racyStore) PoolStats() metrics.PoolStats { return metrics.PoolStats{} }

type racySession struct {
	repository.Session
	store *racyStore
}

func (r *racySession) Release() {}

func (r *racySession) CreateEvent(_ context.Context, in model.EventInput) (*model.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e := model.Event{ID: int64(len(r.store.events) + 1), Title: in.Title, Date: in.Date, Location: in.Location, Quota: in.Quota}
	r.store.events[e.ID] = e
	return &e, nil
}

func (r *racySession) GetEvent(_ context.Context, id int64) (*model.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *racySession) CountParticipants(_ context.Context, eventID int64) (int, error) {
	r.store.mu.Lock()
	n := 0
	for _, p := range r.store.participants {
		if p.EventID == eventID {
			n++
		}
	}
	hook := r.store.afterCount
	r.store.mu.Unlock()

	if hook != nil {
		hook()
	}
	return n, nil
}

func (r *racySession) CreateParticipant(_ context.Context, in model.ParticipantInput) (*model.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.events[in.EventID]; !ok {
		return nil, repository.ErrEventReference
	}
	p := model.Participant{ID: int64(len(r.store.participants) + 1), Name: in.Name, Email: in.Email, EventID: in.EventID}
	r.store.participants = append(r.store.participants, p)
	return &p, nil
}

func TestRegister_InterleavedLastSeat(t *testing.T) {
	store := newRacyStore()
	svc := NewEventService(store, zerolog.Nop())
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, talk(1))
	require.NoError(t, err)

	// Both registrations count before either inserts.
	var gate sync.WaitGroup
	gate.Add(2)
	store.afterCount = func() {
		gate.Done()
		gate.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, participant(event.ID))
		}(i)
	}
	wg.Wait()

	// Without a lock around count and insert, both are accepted.
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Len(t, store.participants, 2)
}

func TestRegister_EventDeletedBeforeInsert(t *testing.T) {
	store := newRacyStore()
	svc := NewEventService(store, zerolog.Nop())
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, talk(5))
	require.NoError(t, err)

	store.afterCount = func() {
		store.mu.Lock()
		delete(store.events, event.ID)
		store.mu.Unlock()
	}

	_, err = svc.Register(ctx, participant(event.ID))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, errors.Is(err, repository.ErrEventReference))
}

func TestRegister_StoreFailureIsWrapped(t *testing.T) {
	store := newRacyStore()
	store.acquireErr = errors.New("connection refused")
	svc := NewEventService(store, zerolog.Nop())

	_, err := svc.Register(context.Background(), participant(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register for event")
	assert.False(t, isDomainError(err))
	assert.Error(t, svc.Ping(context.Background()))
}
