package store

import (
	"context"
	"time"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
)

// AppointmentPatch carries the status and timestamp fields a lifecycle step may change.
// When ExpectStatus is set the write only applies if the stored status still equals it.
type AppointmentPatch struct {
	ExpectStatus          models.Status
	Status                models.Status
	UpdatedAt             time.Time
	CheckedInAt           *time.Time
	StartedAt             *time.Time
	CompletedAt           *time.Time
	ActualDurationMinutes *int
}

type QueuePatch struct {
	ExpectStatus models.Status
	Status       models.Status
	UpdatedAt    time.Time
	CalledAt     *time.Time
	ServedAt     *time.Time
}

type PatientStore interface {
	PatientExists(ctx context.Context, patientUID int64) (bool, error)
	InsertPatient(ctx context.Context, patient models.Patient) (models.Patient, error)
	FindPatient(ctx context.Context, patientUID int64) (models.Patient, error)
}

type DoctorStore interface {
	DoctorExists(ctx context.Context, doctorID string) (bool, error)
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	UpsertDoctor(ctx context.Context, doctor models.Doctor) error
}

type AppointmentStore interface {
	InsertAppointment(ctx context.Context, appointment models.Appointment) (models.Appointment, error)
	FindAppointment(ctx context.Context, appointmentID string) (models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID string, patch AppointmentPatch) (models.Appointment, error)
}

type QueueStore interface {
	// MaxQueueNumber returns the highest number ever handed out for the doctor, in any status.
	MaxQueueNumber(ctx context.Context, doctorID string) (int, bool, error)
	// ReserveQueueNumber atomically increments the doctor's counter and returns the new value.
	ReserveQueueNumber(ctx context.Context, doctorID string) (int, error)
	// ActiveQueueMinutes sums the duration estimates of the doctor's entries that are not
	// yet completed or cancelled.
	ActiveQueueMinutes(ctx context.Context, doctorID string) (int, error)
	InsertQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error)
	FindQueueEntry(ctx context.Context, entryID string) (models.QueueEntry, error)
	FindQueueEntryByAppointment(ctx context.Context, appointmentID string) (models.QueueEntry, error)
	ListQueue(ctx context.Context, doctorID string) ([]models.QueueEntry, error)
	UpdateQueueStatus(ctx context.Context, entryID string, patch QueuePatch) (models.QueueEntry, error)
}

type VitalsStore interface {
	InsertVitals(ctx context.Context, vitals models.Vitals) (models.Vitals, error)
	ListVitals(ctx context.Context, patientUID int64) ([]models.Vitals, error)
}

type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]OutboxEvent, error)
	LatestOutboxSeq(ctx context.Context) (int64, error)
}

// Store is everything a process needs from one backing store. It is created at startup
// and closed at shutdown.
type Store interface {
	PatientStore
	DoctorStore
	AppointmentStore
	QueueStore
	VitalsStore
	OutboxStore
	Close() error
}
