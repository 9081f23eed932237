package frontdesk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
)

func TestPlanGraph(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	all := []models.Status{
		models.StatusPending, models.StatusConfirmed, models.StatusWalkIn,
		models.StatusInProgress, models.StatusCompleted, models.StatusCancelled,
	}

	_, err := Plan(models.StatusPending, models.StatusCompleted, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, terminal := range []models.Status{models.StatusCompleted, models.StatusCancelled} {
		for _, next := range all {
			_, err := Plan(terminal, next, now)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", terminal, next)
		}
	}

	step, err := Plan(models.StatusPending, models.StatusCancelled, now)
	require.NoError(t, err)
	assert.Equal(t, now, step.At)
	assert.Nil(t, step.CalledAt)
	assert.Nil(t, step.ServedAt)

	step, err = Plan(models.StatusConfirmed, models.StatusInProgress, now)
	require.NoError(t, err)
	require.NotNil(t, step.CalledAt)
	assert.Nil(t, step.ServedAt)

	step, err = Plan(models.StatusInProgress, models.StatusCompleted, now)
	require.NoError(t, err)
	require.NotNil(t, step.ServedAt)

	_, err = Plan(models.StatusPending, models.Status("DONE"), now)
	assert.ErrorIs(t, err, ErrValidation)

	for _, terminal := range []models.Status{models.StatusCompleted, models.StatusCancelled} {
		_, err := Plan(terminal, models.Status("DONE"), now)
		assert.ErrorIs(t, err, ErrInvalidTransition, terminal)
		assert.NotErrorIs(t, err, ErrValidation, terminal)
	}
}

func bookWalkIn(t *testing.T, env *testEnv) (models.Appointment, models.QueueEntry) {
	t.Helper()
	ctx := context.Background()
	patient := env.register(t, "Alice", "Tan")
	appointment, err := env.services.Booking.Book(ctx, walkIn(patient.PatientUID, "DOC001"))
	require.NoError(t, err)
	entry, err := env.store.FindQueueEntryByAppointment(ctx, appointment.AppointmentID)
	require.NoError(t, err)
	return appointment, entry
}

func TestTransitionStartThenComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	appointment, entry := bookWalkIn(t, env)

	env.clock.Advance(5 * time.Minute)
	started, err := env.services.Lifecycle.Transition(ctx, entry.EntryID, models.StatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, started.CalledAt)
	assert.Equal(t, env.clock.Now(), started.UpdatedAt)

	env.clock.Advance(20 * time.Minute)
	done, err := env.services.Lifecycle.Transition(ctx, entry.EntryID, models.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.CalledAt)
	require.NotNil(t, done.ServedAt)
	assert.False(t, done.ServedAt.Before(*done.CalledAt))
	assert.Equal(t, entry.QueueNumber, done.QueueNumber)

	mirrored, err := env.services.Booking.Get(ctx, appointment.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, mirrored.Status)
	assert.Equal(t, appointment.QueueToken, mirrored.QueueToken)
	require.NotNil(t, mirrored.StartedAt)
	require.NotNil(t, mirrored.CompletedAt)
	require.NotNil(t, mirrored.ActualDurationMinutes)
	assert.Equal(t, 20, *mirrored.ActualDurationMinutes)

	_, err = env.services.Lifecycle.Transition(ctx, entry.EntryID, models.StatusCancelled)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, models.StatusCompleted, te.From)
	assert.Equal(t, models.StatusCancelled, te.To)
	assert.Equal(t, entry.EntryID, te.ID)
}

func TestTransitionRejectsSkippingStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, entry := bookWalkIn(t, env)

	_, err := env.services.Lifecycle.Transition(ctx, entry.EntryID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	unchanged, err := env.services.Queue.Get(ctx, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWalkIn, unchanged.Status)
	assert.Nil(t, unchanged.ServedAt)
}

func TestTransitionUnknownEntry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.services.Lifecycle.Transition(context.Background(), "missing", models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, entry := bookWalkIn(t, env)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.services.Lifecycle.Transition(ctx, entry.EntryID, models.StatusInProgress); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestTransitionAppointmentWithoutQueueEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := env.register(t, "Alice", "Tan")
	appointment, err := env.services.Booking.Book(ctx, AppointmentRequest{PatientUID: patient.PatientUID, DoctorID: "DOC001", IsOnlineBooking: true})
	require.NoError(t, err)

	confirmed, err := env.services.Lifecycle.TransitionAppointment(ctx, appointment.AppointmentID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, appointment.QueueToken, confirmed.QueueToken)

	_, err = env.services.Lifecycle.TransitionAppointment(ctx, appointment.AppointmentID, models.StatusWalkIn)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, appointment.AppointmentID, te.ID)
	assert.Equal(t, models.StatusConfirmed, te.From)

	_, err = env.services.Lifecycle.TransitionAppointment(ctx, "missing", models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionAppointmentMovesQueueEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	appointment, entry := bookWalkIn(t, env)

	updated, err := env.services.Lifecycle.TransitionAppointment(ctx, appointment.AppointmentID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)

	moved, err := env.services.Queue.Get(ctx, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, moved.Status)
	require.NotNil(t, moved.CalledAt)
}
