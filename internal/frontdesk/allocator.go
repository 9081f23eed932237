package frontdesk

import (
	"context"
	"strings"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

// QueueAllocator hands out per-doctor queue numbers. The atomic step lives in the store:
// ReserveQueueNumber is a single increment that never returns the same number twice for
// one doctor, and never blocks callers working on another doctor.
type QueueAllocator struct {
	queue store.QueueStore
}

func NewQueueAllocator(queue store.QueueStore) *QueueAllocator {
	return &QueueAllocator{queue: queue}
}

func (a *QueueAllocator) NextQueueNumber(ctx context.Context, doctorID string) (int, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return 0, &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	n, err := a.queue.ReserveQueueNumber(ctx, doctorID)
	if err != nil {
		return 0, storageErr("reserve queue number", err)
	}
	return n, nil
}

// Preview returns the number the next booking for doctorID would receive without reserving it.
// Cancelled and completed entries count: their numbers are never handed out again.
func (a *QueueAllocator) Preview(ctx context.Context, doctorID string) (int, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return 0, &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	max, found, err := a.queue.MaxQueueNumber(ctx, doctorID)
	if err != nil {
		return 0, storageErr("read max queue number", err)
	}
	if !found {
		return 1, nil
	}
	return max + 1, nil
}
