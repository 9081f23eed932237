package frontdesk

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

const reconcileBatchSize = 500

// QueueService serves read-only views of the doctor queues.
type QueueService struct {
	queue     store.QueueStore
	doctors   store.DoctorStore
	outbox    store.OutboxStore
	allocator *QueueAllocator
}

func NewQueueService(queue store.QueueStore, doctors store.DoctorStore, outbox store.OutboxStore, allocator *QueueAllocator) *QueueService {
	if allocator == nil {
		allocator = NewQueueAllocator(queue)
	}
	return &QueueService{queue: queue, doctors: doctors, outbox: outbox, allocator: allocator}
}

// Drift is a queue entry whose stored status disagrees with the status its outbox events
// describe. Stored is empty for an entry known only to the outbox, Replayed for an entry
// no event mentions.
type Drift struct {
	EntryID     string        `json:"entry_id"`
	QueueNumber int           `json:"queue_number"`
	Stored      models.Status `json:"stored_status,omitempty"`
	Replayed    models.Status `json:"replayed_status,omitempty"`
}

// Reconcile replays the doctor's outbox events and compares the result with the stored
// queue. Boards fed by the relay show the replayed state, so any drift is what they got wrong.
func (q *QueueService) Reconcile(ctx context.Context, doctorID string) ([]Drift, error) {
	entries, err := q.List(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	doctorID = strings.TrimSpace(doctorID)

	var events []store.OutboxEvent
	var after int64
	for {
		batch, err := q.outbox.ListOutboxEvents(ctx, after, reconcileBatchSize)
		if err != nil {
			return nil, storageErr("list outbox", err)
		}
		for _, event := range batch {
			if event.DoctorID == doctorID {
				events = append(events, event)
			}
		}
		if len(batch) < reconcileBatchSize {
			break
		}
		after = batch[len(batch)-1].Seq
	}
	replayed, err := store.ReplayQueue(events)
	if err != nil {
		return nil, storageErr("replay outbox", err)
	}

	drifts := make([]Drift, 0)
	for _, entry := range entries {
		seen, ok := replayed[entry.EntryID]
		delete(replayed, entry.EntryID)
		if ok && seen.Status == entry.Status {
			continue
		}
		drifts = append(drifts, Drift{EntryID: entry.EntryID, QueueNumber: entry.QueueNumber, Stored: entry.Status, Replayed: seen.Status})
	}
	for entryID, seen := range replayed {
		drifts = append(drifts, Drift{EntryID: entryID, QueueNumber: seen.QueueNumber, Replayed: seen.Status})
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].QueueNumber < drifts[j].QueueNumber })
	return drifts, nil
}

func (q *QueueService) List(ctx context.Context, doctorID string) ([]models.QueueEntry, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	if err := q.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	entries, err := q.queue.ListQueue(ctx, doctorID)
	if err != nil {
		return nil, storageErr("list queue", err)
	}
	return entries, nil
}

// Preview is the read-only next_queue_number_preview. Calling it never changes what the
// next booking receives.
func (q *QueueService) Preview(ctx context.Context, doctorID string) (int, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return 0, &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	if err := q.requireDoctor(ctx, doctorID); err != nil {
		return 0, err
	}
	return q.allocator.Preview(ctx, doctorID)
}

func (q *QueueService) Get(ctx context.Context, entryID string) (models.QueueEntry, error) {
	entry, err := q.queue.FindQueueEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return models.QueueEntry{}, &NotFoundError{Entity: "queue_entry", ID: entryID}
		}
		return models.QueueEntry{}, storageErr("load queue entry", err)
	}
	return entry, nil
}

// ForAppointment returns the appointment's queue entry. ok is false for appointments that
// were never admitted, such as online bookings before check-in.
func (q *QueueService) ForAppointment(ctx context.Context, appointmentID string) (models.QueueEntry, bool, error) {
	entry, err := q.queue.FindQueueEntryByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return models.QueueEntry{}, false, nil
		}
		return models.QueueEntry{}, false, storageErr("load queue entry", err)
	}
	return entry, true, nil
}

func (q *QueueService) Doctors(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := q.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, storageErr("list doctors", err)
	}
	return doctors, nil
}

func (q *QueueService) requireDoctor(ctx context.Context, doctorID string) error {
	ok, err := q.doctors.DoctorExists(ctx, doctorID)
	if err != nil {
		return storageErr("check doctor", err)
	}
	if !ok {
		return &NotFoundError{Entity: "doctor", ID: doctorID}
	}
	return nil
}
