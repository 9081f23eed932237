package frontdesk

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

// Step is the set of field changes one status move produces.
type Step struct {
	From     models.Status
	To       models.Status
	At       time.Time
	CalledAt *time.Time
	ServedAt *time.Time
}

// Plan checks a move against the status graph and returns the timestamps it stamps.
// Entering IN_PROGRESS sets CalledAt, entering COMPLETED sets ServedAt; every move sets At.
// Any move out of a terminal status is an invalid transition, whatever the target.
func Plan(current, next models.Status, now time.Time) (Step, error) {
	if current.IsTerminal() {
		return Step{}, &TransitionError{From: current, To: next}
	}
	if !next.Valid() {
		return Step{}, &ValidationError{Field: "status", Reason: "unknown status " + string(next)}
	}
	if !store.ValidTransition(current, next) {
		return Step{}, &TransitionError{From: current, To: next}
	}
	step := Step{From: current, To: next, At: now}
	switch next {
	case models.StatusInProgress:
		step.CalledAt = &now
	case models.StatusCompleted:
		step.ServedAt = &now
	}
	return step, nil
}

// Lifecycle applies status moves to existing appointments and queue entries.
// It never creates, deletes or renumbers anything.
type Lifecycle struct {
	appointments store.AppointmentStore
	queue        store.QueueStore
	now          func() time.Time
	metrics      *telemetry.Metrics
}

func NewLifecycle(appointments store.AppointmentStore, queue store.QueueStore, now func() time.Time, metrics *telemetry.Metrics) *Lifecycle {
	if now == nil {
		now = utcNow
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	return &Lifecycle{appointments: appointments, queue: queue, now: now, metrics: metrics}
}

// Transition moves a queue entry and mirrors the new status onto its appointment.
// The entry write is a compare-and-swap on the status that was read, so two racing
// callers cannot both apply a move from the same state.
func (l *Lifecycle) Transition(ctx context.Context, entryID string, next models.Status) (models.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "frontdesk.Transition",
		attribute.String("queue.entry_id", entryID),
		attribute.String("status.to", string(next)),
	)
	defer span.End()

	entry, err := l.queue.FindQueueEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return models.QueueEntry{}, &NotFoundError{Entity: "queue_entry", ID: entryID}
		}
		telemetry.RecordError(span, err)
		return models.QueueEntry{}, storageErr("load queue entry", err)
	}

	step, err := Plan(entry.Status, next, l.now())
	if err != nil {
		l.rejected(ctx, entryID, err)
		return models.QueueEntry{}, err
	}

	updated, err := l.queue.UpdateQueueStatus(ctx, entryID, store.QueuePatch{
		ExpectStatus: step.From,
		Status:       step.To,
		UpdatedAt:    step.At,
		CalledAt:     step.CalledAt,
		ServedAt:     step.ServedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStatusMismatch):
			err = &TransitionError{ID: entryID, From: updated.Status, To: next}
			l.rejected(ctx, entryID, err)
			return models.QueueEntry{}, err
		case errors.Is(err, store.ErrQueueEntryNotFound):
			return models.QueueEntry{}, &NotFoundError{Entity: "queue_entry", ID: entryID}
		}
		telemetry.RecordError(span, err)
		return models.QueueEntry{}, storageErr("update queue entry", err)
	}

	patch := store.AppointmentPatch{
		Status:      step.To,
		UpdatedAt:   step.At,
		StartedAt:   step.CalledAt,
		CompletedAt: step.ServedAt,
	}
	if step.ServedAt != nil && updated.CalledAt != nil {
		patch.ActualDurationMinutes = durationMinutes(*updated.CalledAt, *step.ServedAt)
	}
	if _, err := l.appointments.UpdateAppointmentStatus(ctx, updated.AppointmentID, patch); err != nil {
		telemetry.RecordError(span, err)
		telemetry.LoggerFromContext(ctx).Error().Err(err).
			Str("entry_id", entryID).
			Str("appointment_id", updated.AppointmentID).
			Str("status", string(step.To)).
			Msg("queue entry moved but appointment status not mirrored")
		return updated, storageErr("mirror appointment status", err)
	}

	telemetry.Add(ctx, l.metrics.StatusTransitions, attribute.String("to_status", string(step.To)))
	telemetry.LoggerFromContext(ctx).Info().
		Str("entry_id", entryID).
		Str("doctor_id", updated.DoctorID).
		Str("from", string(step.From)).
		Str("to", string(step.To)).
		Msg("queue entry transitioned")
	return updated, nil
}

// TransitionAppointment moves an appointment. When it has a queue entry the move goes
// through Transition so both records stay in step; online bookings not yet checked in
// are moved on their own.
func (l *Lifecycle) TransitionAppointment(ctx context.Context, appointmentID string, next models.Status) (models.Appointment, error) {
	appointment, err := l.appointments.FindAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, store.ErrAppointmentNotFound) {
			return models.Appointment{}, &NotFoundError{Entity: "appointment", ID: appointmentID}
		}
		return models.Appointment{}, storageErr("load appointment", err)
	}

	entry, err := l.queue.FindQueueEntryByAppointment(ctx, appointmentID)
	switch {
	case err == nil:
		if _, err := l.Transition(ctx, entry.EntryID, next); err != nil {
			var te *TransitionError
			if errors.As(err, &te) {
				te.ID = appointmentID
			}
			return models.Appointment{}, err
		}
		return l.reload(ctx, appointmentID)
	case !errors.Is(err, store.ErrQueueEntryNotFound):
		return models.Appointment{}, storageErr("load queue entry", err)
	}

	step, err := Plan(appointment.Status, next, l.now())
	if err != nil {
		var te *TransitionError
		if errors.As(err, &te) {
			te.ID = appointmentID
		}
		l.rejected(ctx, appointmentID, err)
		return models.Appointment{}, err
	}
	patch := store.AppointmentPatch{
		ExpectStatus: step.From,
		Status:       step.To,
		UpdatedAt:    step.At,
		StartedAt:    step.CalledAt,
		CompletedAt:  step.ServedAt,
	}
	if step.ServedAt != nil && appointment.StartedAt != nil {
		patch.ActualDurationMinutes = durationMinutes(*appointment.StartedAt, *step.ServedAt)
	}
	updated, err := l.appointments.UpdateAppointmentStatus(ctx, appointmentID, patch)
	if err != nil {
		if errors.Is(err, store.ErrStatusMismatch) {
			err = &TransitionError{ID: appointmentID, From: updated.Status, To: next}
			l.rejected(ctx, appointmentID, err)
			return models.Appointment{}, err
		}
		return models.Appointment{}, storageErr("update appointment", err)
	}
	telemetry.Add(ctx, l.metrics.StatusTransitions, attribute.String("to_status", string(step.To)))

	// A check-in can admit the appointment between the entry lookup above and this write.
	entry, err = l.queue.FindQueueEntryByAppointment(ctx, appointmentID)
	switch {
	case err == nil:
		if _, err := syncEntry(ctx, l.queue, entry, updated, step.At); err != nil {
			telemetry.LoggerFromContext(ctx).Error().Err(err).
				Str("appointment_id", appointmentID).
				Str("entry_id", entry.EntryID).
				Msg("appointment moved but late queue entry not synced")
			return updated, err
		}
	case !errors.Is(err, store.ErrQueueEntryNotFound):
		return updated, storageErr("load queue entry", err)
	}
	return updated, nil
}

// syncEntry copies the appointment's status onto a queue entry created while the
// appointment was being moved on its own. When the entry has moved since it was read,
// the Transition that moved it has already mirrored the appointment.
func syncEntry(ctx context.Context, queue store.QueueStore, entry models.QueueEntry, appointment models.Appointment, now time.Time) (models.QueueEntry, error) {
	if entry.Status == appointment.Status {
		return entry, nil
	}
	updated, err := queue.UpdateQueueStatus(ctx, entry.EntryID, store.QueuePatch{
		ExpectStatus: entry.Status,
		Status:       appointment.Status,
		UpdatedAt:    now,
		CalledAt:     appointment.StartedAt,
		ServedAt:     appointment.CompletedAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrStatusMismatch) {
			return updated, nil
		}
		return entry, storageErr("sync queue entry", err)
	}
	return updated, nil
}

func (l *Lifecycle) reload(ctx context.Context, appointmentID string) (models.Appointment, error) {
	appointment, err := l.appointments.FindAppointment(ctx, appointmentID)
	if err != nil {
		return models.Appointment{}, storageErr("reload appointment", err)
	}
	return appointment, nil
}

func (l *Lifecycle) rejected(ctx context.Context, id string, err error) {
	var te *TransitionError
	if errors.As(err, &te) && te.ID == "" {
		te.ID = id
	}
	telemetry.Add(ctx, l.metrics.TransitionsRejected)
}

func durationMinutes(from, to time.Time) *int {
	minutes := int(math.Round(to.Sub(from).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	return &minutes
}

func utcNow() time.Time {
	return time.Now().UTC()
}
