package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/boltdb/bolt"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

func (s *Store) InsertAppointment(ctx context.Context, appointment models.Appointment) (models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return models.Appointment{}, err
	}
	err := s.DB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketAppointments)
		key := []byte(appointment.AppointmentID)
		if bucket.Get(key) != nil {
			return store.ErrConflict
		}
		if err := putJSON(bucket, key, appointment); err != nil {
			return err
		}
		return appendOutboxEvent(tx, store.AppointmentEvent(store.EventAppointmentBooked, appointment))
	})
	if err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (s *Store) FindAppointment(ctx context.Context, appointmentID string) (models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return models.Appointment{}, err
	}
	var appointment models.Appointment
	err := s.DB.View(func(tx *bolt.Tx) error {
		return getAppointment(tx, appointmentID, &appointment)
	})
	return appointment, err
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, appointmentID string, patch store.AppointmentPatch) (models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return models.Appointment{}, err
	}
	var appointment models.Appointment
	err := s.DB.Update(func(tx *bolt.Tx) error {
		if err := getAppointment(tx, appointmentID, &appointment); err != nil {
			return err
		}
		if patch.ExpectStatus != "" && appointment.Status != patch.ExpectStatus {
			return store.ErrStatusMismatch
		}
		if patch.Status != "" {
			appointment.Status = patch.Status
		}
		if !patch.UpdatedAt.IsZero() {
			appointment.UpdatedAt = patch.UpdatedAt
		}
		if patch.CheckedInAt != nil {
			appointment.CheckedInAt = patch.CheckedInAt
		}
		if patch.StartedAt != nil {
			appointment.StartedAt = patch.StartedAt
		}
		if patch.CompletedAt != nil {
			appointment.CompletedAt = patch.CompletedAt
		}
		if patch.ActualDurationMinutes != nil {
			appointment.ActualDurationMinutes = patch.ActualDurationMinutes
		}
		if err := putJSON(tx.Bucket(bucketAppointments), []byte(appointmentID), appointment); err != nil {
			return err
		}
		if patch.Status == "" {
			return nil
		}
		return appendOutboxEvent(tx, store.AppointmentEvent(store.EventAppointmentStatusChanged, appointment))
	})
	return appointment, err
}

// MaxQueueNumber reads the doctor's counter and the last key of the doctor's number index.
func (s *Store) MaxQueueNumber(ctx context.Context, doctorID string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	var max uint64
	var found bool
	err := s.DB.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(bucketQueueSequences).Get([]byte(doctorID)); raw != nil {
			max, found = binary.BigEndian.Uint64(raw), true
		}
		if byNumber := tx.Bucket(bucketQueueByDoctor).Bucket([]byte(doctorID)); byNumber != nil {
			if k, _ := byNumber.Cursor().Last(); k != nil {
				if n := binary.BigEndian.Uint64(k); n > max || !found {
					max, found = n, true
				}
			}
		}
		return nil
	})
	return int(max), found, err
}

func (s *Store) ReserveQueueNumber(ctx context.Context, doctorID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next uint64
	err := s.DB.Update(func(tx *bolt.Tx) error {
		sequences := tx.Bucket(bucketQueueSequences)
		if raw := sequences.Get([]byte(doctorID)); raw != nil {
			next = binary.BigEndian.Uint64(raw) + 1
		} else {
			next = 1
			if byNumber := tx.Bucket(bucketQueueByDoctor).Bucket([]byte(doctorID)); byNumber != nil {
				if k, _ := byNumber.Cursor().Last(); k != nil {
					next = binary.BigEndian.Uint64(k) + 1
				}
			}
		}
		return sequences.Put([]byte(doctorID), uint64Key(next))
	})
	return int(next), err
}

func (s *Store) ActiveQueueMinutes(ctx context.Context, doctorID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	minutes := 0
	err := s.forEachEntry(doctorID, func(tx *bolt.Tx, entry models.QueueEntry) error {
		if !entry.Status.IsActive() {
			return nil
		}
		var appointment models.Appointment
		switch err := getAppointment(tx, entry.AppointmentID, &appointment); {
		case errors.Is(err, store.ErrAppointmentNotFound):
			return nil
		case err != nil:
			return err
		}
		minutes += appointment.DurationEstimateMinutes
		return nil
	})
	return minutes, err
}

func (s *Store) InsertQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	err := s.DB.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(bucketQueueEntries)
		byAppointment := tx.Bucket(bucketQueueByAppointment)
		if entries.Get([]byte(entry.EntryID)) != nil || byAppointment.Get([]byte(entry.AppointmentID)) != nil {
			return store.ErrConflict
		}
		byNumber, err := tx.Bucket(bucketQueueByDoctor).CreateBucketIfNotExists([]byte(entry.DoctorID))
		if err != nil {
			return err
		}
		numberKey := uint64Key(uint64(entry.QueueNumber))
		if byNumber.Get(numberKey) != nil {
			return store.ErrConflict
		}
		if err := putJSON(entries, []byte(entry.EntryID), entry); err != nil {
			return err
		}
		if err := byAppointment.Put([]byte(entry.AppointmentID), []byte(entry.EntryID)); err != nil {
			return err
		}
		if err := byNumber.Put(numberKey, []byte(entry.EntryID)); err != nil {
			return err
		}
		return appendOutboxEvent(tx, store.QueueEntryEvent(store.EventQueueAdmitted, entry))
	})
	if err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) FindQueueEntry(ctx context.Context, entryID string) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	var entry models.QueueEntry
	err := s.DB.View(func(tx *bolt.Tx) error {
		return getQueueEntry(tx, entryID, &entry)
	})
	return entry, err
}

func (s *Store) FindQueueEntryByAppointment(ctx context.Context, appointmentID string) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	var entry models.QueueEntry
	err := s.DB.View(func(tx *bolt.Tx) error {
		entryID := tx.Bucket(bucketQueueByAppointment).Get([]byte(appointmentID))
		if entryID == nil {
			return store.ErrQueueEntryNotFound
		}
		return getQueueEntry(tx, string(entryID), &entry)
	})
	return entry, err
}

// ListQueue follows the doctor's number index, which bolt keeps sorted.
func (s *Store) ListQueue(ctx context.Context, doctorID string) ([]models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := make([]models.QueueEntry, 0)
	err := s.forEachEntry(doctorID, func(_ *bolt.Tx, entry models.QueueEntry) error {
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

func (s *Store) UpdateQueueStatus(ctx context.Context, entryID string, patch store.QueuePatch) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	var entry models.QueueEntry
	err := s.DB.Update(func(tx *bolt.Tx) error {
		if err := getQueueEntry(tx, entryID, &entry); err != nil {
			return err
		}
		if patch.ExpectStatus != "" && entry.Status != patch.ExpectStatus {
			return store.ErrStatusMismatch
		}
		if patch.Status != "" {
			entry.Status = patch.Status
		}
		if !patch.UpdatedAt.IsZero() {
			entry.UpdatedAt = patch.UpdatedAt
		}
		if patch.CalledAt != nil {
			entry.CalledAt = patch.CalledAt
		}
		if patch.ServedAt != nil {
			entry.ServedAt = patch.ServedAt
		}
		if err := putJSON(tx.Bucket(bucketQueueEntries), []byte(entryID), entry); err != nil {
			return err
		}
		return appendOutboxEvent(tx, store.QueueEntryEvent(store.EventQueueStatusChanged, entry))
	})
	return entry, err
}

func (s *Store) forEachEntry(doctorID string, fn func(*bolt.Tx, models.QueueEntry) error) error {
	return s.DB.View(func(tx *bolt.Tx) error {
		byNumber := tx.Bucket(bucketQueueByDoctor).Bucket([]byte(doctorID))
		if byNumber == nil {
			return nil
		}
		return byNumber.ForEach(func(_, entryID []byte) error {
			var entry models.QueueEntry
			if err := getQueueEntry(tx, string(entryID), &entry); err != nil {
				return err
			}
			return fn(tx, entry)
		})
	})
}

func getAppointment(tx *bolt.Tx, appointmentID string, out *models.Appointment) error {
	raw := tx.Bucket(bucketAppointments).Get([]byte(appointmentID))
	if raw == nil {
		return store.ErrAppointmentNotFound
	}
	return json.Unmarshal(raw, out)
}

func getQueueEntry(tx *bolt.Tx, entryID string, out *models.QueueEntry) error {
	raw := tx.Bucket(bucketQueueEntries).Get([]byte(entryID))
	if raw == nil {
		return store.ErrQueueEntryNotFound
	}
	return json.Unmarshal(raw, out)
}
