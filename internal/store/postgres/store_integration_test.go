package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

func TestReserveQueueNumberConcurrency(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	seedDoctor(t, ctx, st, "DOC001")
	seedDoctor(t, ctx, st, "DOC002")

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := st.ReserveQueueNumber(ctx, "DOC001")
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	var numbers []int
	for n := range results {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	require.Len(t, numbers, workers)
	for i, n := range numbers {
		assert.Equal(t, i+1, n)
	}

	other, err := st.ReserveQueueNumber(ctx, "DOC002")
	require.NoError(t, err)
	assert.Equal(t, 1, other)

	max, found, err := st.MaxQueueNumber(ctx, "DOC001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, workers, max)
}

func TestInsertPatientDuplicateUID(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	patient := samplePatient(12345678901)
	_, err := st.InsertPatient(ctx, patient)
	require.NoError(t, err)
	_, err = st.InsertPatient(ctx, patient)
	assert.ErrorIs(t, err, store.ErrConflict)

	exists, err := st.PatientExists(ctx, patient.PatientUID)
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := st.FindPatient(ctx, patient.PatientUID)
	require.NoError(t, err)
	assert.Equal(t, []string{"penicillin"}, found.Allergies)
}

func TestQueueStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	seedDoctor(t, ctx, st, "DOC001")
	patient := samplePatient(12345678902)
	_, err := st.InsertPatient(ctx, patient)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	appointment := models.Appointment{
		AppointmentID:           uuid.NewString(),
		PatientUID:              patient.PatientUID,
		DoctorID:                "DOC001",
		ScheduledAt:             now,
		Status:                  models.StatusWalkIn,
		QueueToken:              "WALK_IN-ABCDEF",
		Priority:                models.PriorityMedium,
		IsWalkIn:                true,
		DurationEstimateMinutes: 15,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	_, err = st.InsertAppointment(ctx, appointment)
	require.NoError(t, err)

	entry := models.QueueEntry{
		EntryID:       uuid.NewString(),
		AppointmentID: appointment.AppointmentID,
		PatientUID:    patient.PatientUID,
		DoctorID:      "DOC001",
		QueueNumber:   1,
		Status:        models.StatusWalkIn,
		Priority:      models.PriorityMedium,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = st.InsertQueueEntry(ctx, entry)
	require.NoError(t, err)

	duplicate := entry
	duplicate.EntryID = uuid.NewString()
	duplicate.QueueNumber = 2
	_, err = st.InsertQueueEntry(ctx, duplicate)
	assert.ErrorIs(t, err, store.ErrConflict)

	updated, err := st.UpdateQueueStatus(ctx, entry.EntryID, store.QueuePatch{
		ExpectStatus: models.StatusWalkIn,
		Status:       models.StatusInProgress,
		UpdatedAt:    now,
		CalledAt:     &now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.CalledAt)

	current, err := st.UpdateQueueStatus(ctx, entry.EntryID, store.QueuePatch{
		ExpectStatus: models.StatusWalkIn,
		Status:       models.StatusCancelled,
		UpdatedAt:    now,
	})
	assert.ErrorIs(t, err, store.ErrStatusMismatch)
	assert.Equal(t, models.StatusInProgress, current.Status)

	_, err = st.UpdateQueueStatus(ctx, uuid.NewString(), store.QueuePatch{Status: models.StatusCancelled, UpdatedAt: now})
	assert.ErrorIs(t, err, store.ErrQueueEntryNotFound)

	ahead, err := st.ActiveQueueMinutes(ctx, "DOC001")
	require.NoError(t, err)
	assert.Equal(t, 15, ahead)

	var events int
	row := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE doctor_id = 'DOC001'`)
	require.NoError(t, row.Scan(&events))
	assert.Equal(t, 3, events)

	listed, err := st.ListOutboxEvents(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, store.EventAppointmentBooked, listed[0].Type)
	assert.Equal(t, store.EventQueueStatusChanged, listed[2].Type)
}

func TestAppointmentPatchWithoutStatus(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	seedDoctor(t, ctx, st, "DOC001")
	patient := samplePatient(12345678903)
	_, err := st.InsertPatient(ctx, patient)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	appointment := models.Appointment{
		AppointmentID:           uuid.NewString(),
		PatientUID:              patient.PatientUID,
		DoctorID:                "DOC001",
		ScheduledAt:             now,
		Status:                  models.StatusPending,
		QueueToken:              "PENDING-012345",
		Priority:                models.PriorityLow,
		IsOnlineBooking:         true,
		DurationEstimateMinutes: 15,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	_, err = st.InsertAppointment(ctx, appointment)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	updated, err := st.UpdateAppointmentStatus(ctx, appointment.AppointmentID, store.AppointmentPatch{
		ExpectStatus: models.StatusPending,
		UpdatedAt:    later,
		CheckedInAt:  &later,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	require.NotNil(t, updated.CheckedInAt)
	assert.True(t, updated.CheckedInAt.Equal(later))

	_, err = st.FindAppointment(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrAppointmentNotFound)
}

func seedDoctor(t *testing.T, ctx context.Context, st *Store, doctorID string) {
	t.Helper()
	err := st.UpsertDoctor(ctx, models.Doctor{
		DoctorID:       doctorID,
		Name:           "Dr. " + doctorID,
		Specialization: "General Medicine",
		IsAvailable:    true,
		WorkingHours:   map[string]models.WorkingHours{"monday": {Start: "09:00", End: "17:00"}},
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
}

func samplePatient(uid int64) models.Patient {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Patient{
		PatientUID:    uid,
		FirstName:     "Alice",
		LastName:      "Tan",
		DateOfBirth:   time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		ContactNumber: "+65-9000-0000",
		Allergies:     []string{"penicillin"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if _, err := Migrate(ctx, pool, filepath.Join("..", "..", "..", "migrations")); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return NewStore(pool), pool, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}
