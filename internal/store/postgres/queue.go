package postgres

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

var queueColumns = []interface{}{
	"entry_id", "appointment_id", "patient_uid", "doctor_id", "queue_number", "status", "priority",
	"estimated_wait_minutes", "created_at", "updated_at", "called_at", "served_at",
}

const queueSelect = `
	SELECT entry_id, appointment_id, patient_uid, doctor_id, queue_number, status, priority,
		estimated_wait_minutes, created_at, updated_at, called_at, served_at
	FROM queue_entries
`

func scanQueueEntry(row pgx.Row) (models.QueueEntry, error) {
	var e models.QueueEntry
	err := row.Scan(&e.EntryID, &e.AppointmentID, &e.PatientUID, &e.DoctorID, &e.QueueNumber, &e.Status, &e.Priority,
		&e.EstimatedWaitMinutes, &e.CreatedAt, &e.UpdatedAt, &e.CalledAt, &e.ServedAt)
	return e, err
}

// MaxQueueNumber reports the larger of the doctor's counter and the highest stored entry,
// so numbers burned by a failed admission still count.
func (s *Store) MaxQueueNumber(ctx context.Context, doctorID string) (int, bool, error) {
	var max *int
	row := s.pool.QueryRow(ctx, `
		SELECT GREATEST(
			(SELECT last_number FROM doctor_queue_sequences WHERE doctor_id = $1),
			(SELECT MAX(queue_number) FROM queue_entries WHERE doctor_id = $1)
		)
	`, doctorID)
	if err := row.Scan(&max); err != nil {
		return 0, false, err
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

// ReserveQueueNumber is a single upsert. The row lock taken by ON CONFLICT serialises
// callers for one doctor; a first reservation starts after any entries already stored.
func (s *Store) ReserveQueueNumber(ctx context.Context, doctorID string) (int, error) {
	var next int
	row := s.pool.QueryRow(ctx, `
		INSERT INTO doctor_queue_sequences (doctor_id, last_number)
		VALUES ($1, COALESCE((SELECT MAX(queue_number) FROM queue_entries WHERE doctor_id = $1), 0) + 1)
		ON CONFLICT (doctor_id)
		DO UPDATE SET last_number = doctor_queue_sequences.last_number + 1
		RETURNING last_number
	`, doctorID)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) ActiveQueueMinutes(ctx context.Context, doctorID string) (int, error) {
	var minutes int
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(a.duration_estimate_minutes), 0)
		FROM queue_entries q
		JOIN appointments a ON a.appointment_id = q.appointment_id
		WHERE q.doctor_id = $1 AND q.status NOT IN ($2, $3)
	`, doctorID, string(models.StatusCompleted), string(models.StatusCancelled))
	if err := row.Scan(&minutes); err != nil {
		return 0, err
	}
	return minutes, nil
}

func (s *Store) InsertQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (
			entry_id, appointment_id, patient_uid, doctor_id, queue_number, status, priority,
			estimated_wait_minutes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.EntryID, entry.AppointmentID, entry.PatientUID, entry.DoctorID, entry.QueueNumber,
		string(entry.Status), string(entry.Priority), entry.EstimatedWaitMinutes, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.QueueEntry{}, store.ErrConflict
		}
		return models.QueueEntry{}, err
	}

	if err = insertOutboxEvent(ctx, tx, store.QueueEntryEvent(store.EventQueueAdmitted, entry)); err != nil {
		return models.QueueEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) FindQueueEntry(ctx context.Context, entryID string) (models.QueueEntry, error) {
	entry, err := scanQueueEntry(s.pool.QueryRow(ctx, queueSelect+` WHERE entry_id = $1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrQueueEntryNotFound
		}
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) FindQueueEntryByAppointment(ctx context.Context, appointmentID string) (models.QueueEntry, error) {
	entry, err := scanQueueEntry(s.pool.QueryRow(ctx, queueSelect+` WHERE appointment_id = $1`, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrQueueEntryNotFound
		}
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) ListQueue(ctx context.Context, doctorID string) ([]models.QueueEntry, error) {
	rows, err := s.pool.Query(ctx, queueSelect+` WHERE doctor_id = $1 ORDER BY queue_number ASC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.QueueEntry, 0)
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) UpdateQueueStatus(ctx context.Context, entryID string, patch store.QueuePatch) (models.QueueEntry, error) {
	record := goqu.Record{}
	if patch.Status != "" {
		record["status"] = string(patch.Status)
	}
	if !patch.UpdatedAt.IsZero() {
		record["updated_at"] = patch.UpdatedAt
	}
	if patch.CalledAt != nil {
		record["called_at"] = *patch.CalledAt
	}
	if patch.ServedAt != nil {
		record["served_at"] = *patch.ServedAt
	}
	if len(record) == 0 {
		return s.FindQueueEntry(ctx, entryID)
	}

	where := goqu.Ex{"entry_id": entryID}
	if patch.ExpectStatus != "" {
		where["status"] = string(patch.ExpectStatus)
	}
	query, args, err := s.dialect.Update("queue_entries").
		Prepared(true).
		Set(record).
		Where(where).
		Returning(queueColumns...).
		ToSQL()
	if err != nil {
		return models.QueueEntry{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, err := scanQueueEntry(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, err
		}
		current, findErr := scanQueueEntry(tx.QueryRow(ctx, queueSelect+` WHERE entry_id = $1`, entryID))
		if errors.Is(findErr, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrQueueEntryNotFound
		}
		if findErr != nil {
			err = findErr
			return models.QueueEntry{}, err
		}
		return current, store.ErrStatusMismatch
	}

	if err = insertOutboxEvent(ctx, tx, store.QueueEntryEvent(store.EventQueueStatusChanged, entry)); err != nil {
		return models.QueueEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}
