// Package boltdb is a single-file embedded store for kiosk and single-node deployments.
// Bolt allows one writer at a time, so every read-modify-write below runs inside a
// single Update transaction and is atomic without further locking.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

var (
	bucketPatients           = []byte("patients")
	bucketDoctors            = []byte("doctors")
	bucketAppointments       = []byte("appointments")
	bucketQueueEntries       = []byte("queue_entries")
	bucketQueueByAppointment = []byte("queue_by_appointment")
	bucketQueueByDoctor      = []byte("queue_by_doctor")
	bucketQueueSequences     = []byte("queue_sequences")
	bucketVitals             = []byte("vitals")
	bucketOutbox             = []byte("outbox")
)

type Store struct {
	DB *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			bucketPatients, bucketDoctors, bucketAppointments, bucketQueueEntries,
			bucketQueueByAppointment, bucketQueueByDoctor, bucketQueueSequences, bucketVitals, bucketOutbox,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close the database and release the file lock.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) PatientExists(ctx context.Context, patientUID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketPatients).Get(uint64Key(uint64(patientUID))) != nil
		return nil
	})
	return exists, err
}

func (s *Store) InsertPatient(ctx context.Context, patient models.Patient) (models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return models.Patient{}, err
	}
	err := s.DB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketPatients)
		key := uint64Key(uint64(patient.PatientUID))
		if bucket.Get(key) != nil {
			return store.ErrConflict
		}
		return putJSON(bucket, key, patient)
	})
	if err != nil {
		return models.Patient{}, err
	}
	return patient, nil
}

func (s *Store) FindPatient(ctx context.Context, patientUID int64) (models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return models.Patient{}, err
	}
	var patient models.Patient
	err := s.DB.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPatients).Get(uint64Key(uint64(patientUID)))
		if raw == nil {
			return store.ErrPatientNotFound
		}
		return json.Unmarshal(raw, &patient)
	})
	return patient, err
}

func (s *Store) DoctorExists(ctx context.Context, doctorID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketDoctors).Get([]byte(doctorID)) != nil
		return nil
	})
	return exists, err
}

func (s *Store) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doctors []models.Doctor
	err := s.DB.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDoctors).ForEach(func(_, raw []byte) error {
			var doctor models.Doctor
			if err := json.Unmarshal(raw, &doctor); err != nil {
				return err
			}
			doctors = append(doctors, doctor)
			return nil
		})
	})
	return doctors, err
}

func (s *Store) UpsertDoctor(ctx context.Context, doctor models.Doctor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.DB.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucketDoctors), []byte(doctor.DoctorID), doctor)
	})
}

func (s *Store) InsertVitals(ctx context.Context, vitals models.Vitals) (models.Vitals, error) {
	if err := ctx.Err(); err != nil {
		return models.Vitals{}, err
	}
	err := s.DB.Update(func(tx *bolt.Tx) error {
		patientKey := uint64Key(uint64(vitals.PatientUID))
		if tx.Bucket(bucketPatients).Get(patientKey) == nil {
			return store.ErrPatientNotFound
		}
		bucket, err := tx.Bucket(bucketVitals).CreateBucketIfNotExists(patientKey)
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return putJSON(bucket, uint64Key(seq), vitals)
	})
	if err != nil {
		return models.Vitals{}, err
	}
	return vitals, nil
}

// ListVitals walks the patient's records backwards, newest first.
func (s *Store) ListVitals(ctx context.Context, patientUID int64) ([]models.Vitals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := make([]models.Vitals, 0)
	err := s.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketVitals).Bucket(uint64Key(uint64(patientUID)))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, raw := c.Last(); k != nil; k, raw = c.Prev() {
			var v models.Vitals
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			records = append(records, v)
		}
		return nil
	})
	return records, err
}

func (s *Store) ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]store.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var events []store.OutboxEvent
	err := s.DB.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOutbox).Cursor()
		for k, raw := c.Seek(uint64Key(uint64(afterSeq) + 1)); k != nil && len(events) < limit; k, raw = c.Next() {
			var event store.OutboxEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	return events, err
}

func (s *Store) LatestOutboxSeq(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var seq int64
	err := s.DB.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(bucketOutbox).Cursor().Last()
		if k != nil {
			seq = int64(binary.BigEndian.Uint64(k))
		}
		return nil
	})
	return seq, err
}

func appendOutboxEvent(tx *bolt.Tx, event store.OutboxEvent) error {
	bucket := tx.Bucket(bucketOutbox)
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	event.Seq = int64(seq)
	return putJSON(bucket, uint64Key(seq), event)
}

func putJSON(bucket *bolt.Bucket, key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return bucket.Put(key, raw)
}

func uint64Key(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var _ store.Store = (*Store)(nil)
