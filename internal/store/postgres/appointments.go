package postgres

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

var appointmentColumns = []interface{}{
	"appointment_id", "patient_uid", "doctor_id", "appointment_time", "status", "queue_token", "priority",
	"is_online_booking", "is_walk_in", "is_kiosk_registration", "duration_estimate_minutes",
	"actual_duration_minutes", "notes", "created_at", "updated_at", "checked_in_at", "started_at", "completed_at",
}

const appointmentSelect = `
	SELECT appointment_id, patient_uid, doctor_id, appointment_time, status, queue_token, priority,
		is_online_booking, is_walk_in, is_kiosk_registration, duration_estimate_minutes,
		actual_duration_minutes, notes, created_at, updated_at, checked_in_at, started_at, completed_at
	FROM appointments
`

func scanAppointment(row pgx.Row) (models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.AppointmentID, &a.PatientUID, &a.DoctorID, &a.ScheduledAt, &a.Status, &a.QueueToken, &a.Priority,
		&a.IsOnlineBooking, &a.IsWalkIn, &a.IsKioskRegistration, &a.DurationEstimateMinutes,
		&a.ActualDurationMinutes, &a.Notes, &a.CreatedAt, &a.UpdatedAt, &a.CheckedInAt, &a.StartedAt, &a.CompletedAt)
	return a, err
}

func (s *Store) InsertAppointment(ctx context.Context, appointment models.Appointment) (models.Appointment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Appointment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			appointment_id, patient_uid, doctor_id, appointment_time, status, queue_token, priority,
			is_online_booking, is_walk_in, is_kiosk_registration, duration_estimate_minutes,
			notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, appointment.AppointmentID, appointment.PatientUID, appointment.DoctorID, appointment.ScheduledAt,
		string(appointment.Status), appointment.QueueToken, string(appointment.Priority),
		appointment.IsOnlineBooking, appointment.IsWalkIn, appointment.IsKioskRegistration,
		appointment.DurationEstimateMinutes, appointment.Notes, appointment.CreatedAt, appointment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Appointment{}, store.ErrConflict
		}
		return models.Appointment{}, err
	}

	if err = insertOutboxEvent(ctx, tx, store.AppointmentEvent(store.EventAppointmentBooked, appointment)); err != nil {
		return models.Appointment{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (s *Store) FindAppointment(ctx context.Context, appointmentID string) (models.Appointment, error) {
	appointment, err := scanAppointment(s.pool.QueryRow(ctx, appointmentSelect+` WHERE appointment_id = $1`, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Appointment{}, store.ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}
	return appointment, nil
}

// UpdateAppointmentStatus applies the patch in one UPDATE. With ExpectStatus set the row
// only matches while its status is unchanged; a miss on an existing row returns the
// current row with store.ErrStatusMismatch.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, appointmentID string, patch store.AppointmentPatch) (models.Appointment, error) {
	record := goqu.Record{}
	if patch.Status != "" {
		record["status"] = string(patch.Status)
	}
	if !patch.UpdatedAt.IsZero() {
		record["updated_at"] = patch.UpdatedAt
	}
	if patch.CheckedInAt != nil {
		record["checked_in_at"] = *patch.CheckedInAt
	}
	if patch.StartedAt != nil {
		record["started_at"] = *patch.StartedAt
	}
	if patch.CompletedAt != nil {
		record["completed_at"] = *patch.CompletedAt
	}
	if patch.ActualDurationMinutes != nil {
		record["actual_duration_minutes"] = *patch.ActualDurationMinutes
	}
	if len(record) == 0 {
		return s.FindAppointment(ctx, appointmentID)
	}

	where := goqu.Ex{"appointment_id": appointmentID}
	if patch.ExpectStatus != "" {
		where["status"] = string(patch.ExpectStatus)
	}
	query, args, err := s.dialect.Update("appointments").
		Prepared(true).
		Set(record).
		Where(where).
		Returning(appointmentColumns...).
		ToSQL()
	if err != nil {
		return models.Appointment{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Appointment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appointment, err := scanAppointment(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Appointment{}, err
		}
		current, findErr := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE appointment_id = $1`, appointmentID))
		if errors.Is(findErr, pgx.ErrNoRows) {
			return models.Appointment{}, store.ErrAppointmentNotFound
		}
		if findErr != nil {
			err = findErr
			return models.Appointment{}, err
		}
		return current, store.ErrStatusMismatch
	}

	if patch.Status != "" {
		if err = insertOutboxEvent(ctx, tx, store.AppointmentEvent(store.EventAppointmentStatusChanged, appointment)); err != nil {
			return models.Appointment{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}
