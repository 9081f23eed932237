package frontdesk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store    *memory.Store
	clock    *fakeClock
	services *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	for _, id := range []string{"DOC001", "DOC002"} {
		require.NoError(t, st.UpsertDoctor(context.Background(), models.Doctor{DoctorID: id, Name: "Dr. " + id, IsAvailable: true}))
	}
	clock := newFakeClock()
	return &testEnv{
		store:    st,
		clock:    clock,
		services: NewServices(st, Options{Now: clock.Now}),
	}
}

func (e *testEnv) register(t *testing.T, first, last string) models.Patient {
	t.Helper()
	patient, err := e.services.Registration.Register(context.Background(), PatientDraft{
		FirstName:     first,
		LastName:      last,
		DateOfBirth:   "1990-01-01",
		ContactNumber: "+65-9000-0000",
	})
	require.NoError(t, err)
	return patient
}

// reserveFailingStore refuses every queue number reservation.
type reserveFailingStore struct {
	*memory.Store
	err error
}

func (s *reserveFailingStore) ReserveQueueNumber(context.Context, string) (int, error) {
	return 0, s.err
}

var _ store.Store = (*reserveFailingStore)(nil)

// staleCounterStore hands out a queue number the doctor already holds.
type staleCounterStore struct {
	*memory.Store
}

func (s *staleCounterStore) ReserveQueueNumber(context.Context, string) (int, error) {
	return 1, nil
}

// hookedQueueStore runs hook once, from inside the chosen store call, so tests can land a
// second operation in the middle of the first.
type hookedQueueStore struct {
	*memory.Store
	once sync.Once
	hook func()
	// lookupFirst fires the hook on the first appointment lookup and answers it as not queued.
	lookupFirst bool
}

func (s *hookedQueueStore) ActiveQueueMinutes(ctx context.Context, doctorID string) (int, error) {
	if !s.lookupFirst {
		s.once.Do(s.hook)
	}
	return s.Store.ActiveQueueMinutes(ctx, doctorID)
}

func (s *hookedQueueStore) FindQueueEntryByAppointment(ctx context.Context, appointmentID string) (models.QueueEntry, error) {
	if s.lookupFirst {
		fired := false
		s.once.Do(func() {
			fired = true
			s.hook()
		})
		if fired {
			return models.QueueEntry{}, store.ErrQueueEntryNotFound
		}
	}
	return s.Store.FindQueueEntryByAppointment(ctx, appointmentID)
}

// droppingOutbox hides events of one type from readers.
type droppingOutbox struct {
	store.OutboxStore
	drop string
}

func (o droppingOutbox) ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]store.OutboxEvent, error) {
	events, err := o.OutboxStore.ListOutboxEvents(ctx, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	kept := events[:0]
	for _, event := range events {
		if event.Type != o.drop {
			kept = append(kept, event)
		}
	}
	return kept, nil
}
