package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
)

const (
	EventAppointmentBooked        = "appointment.booked"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventQueueAdmitted            = "queue.admitted"
	EventQueueStatusChanged       = "queue.status_changed"
)

// OutboxEvent is written by the store in the same write as the row it describes.
// Seq is assigned by the store and is strictly increasing.
type OutboxEvent struct {
	Seq       int64           `json:"seq"`
	EventID   string          `json:"event_id"`
	DoctorID  string          `json:"doctor_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type eventPayload struct {
	AppointmentID string          `json:"appointment_id"`
	EntryID       string          `json:"entry_id,omitempty"`
	PatientUID    int64           `json:"patient_uid"`
	QueueNumber   int             `json:"queue_number,omitempty"`
	QueueToken    string          `json:"queue_token,omitempty"`
	Status        models.Status   `json:"status"`
	Priority      models.Priority `json:"priority,omitempty"`
	EstimatedWait *int            `json:"estimated_wait_time,omitempty"`
	CalledAt      *time.Time      `json:"called_at,omitempty"`
	ServedAt      *time.Time      `json:"served_at,omitempty"`
}

func AppointmentEvent(eventType string, appointment models.Appointment) OutboxEvent {
	return newOutboxEvent(eventType, appointment.DoctorID, appointment.UpdatedAt, eventPayload{
		AppointmentID: appointment.AppointmentID,
		PatientUID:    appointment.PatientUID,
		QueueToken:    appointment.QueueToken,
		Status:        appointment.Status,
		Priority:      appointment.Priority,
	})
}

func QueueEntryEvent(eventType string, entry models.QueueEntry) OutboxEvent {
	wait := entry.EstimatedWaitMinutes
	return newOutboxEvent(eventType, entry.DoctorID, entry.UpdatedAt, eventPayload{
		AppointmentID: entry.AppointmentID,
		EntryID:       entry.EntryID,
		PatientUID:    entry.PatientUID,
		QueueNumber:   entry.QueueNumber,
		Status:        entry.Status,
		Priority:      entry.Priority,
		EstimatedWait: &wait,
		CalledAt:      entry.CalledAt,
		ServedAt:      entry.ServedAt,
	})
}

func newOutboxEvent(eventType, doctorID string, at time.Time, payload eventPayload) OutboxEvent {
	raw, _ := json.Marshal(payload)
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return OutboxEvent{
		EventID:   uuid.NewString(),
		DoctorID:  doctorID,
		Type:      eventType,
		Payload:   raw,
		CreatedAt: at,
	}
}

// ReplayQueue folds queue events into the latest known state of each entry, keyed by entry id.
// Events that carry no entry id are skipped.
func ReplayQueue(events []OutboxEvent) (map[string]models.QueueEntry, error) {
	entries := make(map[string]models.QueueEntry)
	for _, event := range events {
		if event.Type != EventQueueAdmitted && event.Type != EventQueueStatusChanged {
			continue
		}
		var payload eventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		if payload.EntryID == "" {
			continue
		}
		entry := entries[payload.EntryID]
		entry.EntryID = payload.EntryID
		entry.DoctorID = event.DoctorID
		if payload.AppointmentID != "" {
			entry.AppointmentID = payload.AppointmentID
		}
		if payload.PatientUID != 0 {
			entry.PatientUID = payload.PatientUID
		}
		if payload.QueueNumber != 0 {
			entry.QueueNumber = payload.QueueNumber
		}
		if payload.Status != "" {
			entry.Status = payload.Status
		}
		if payload.Priority != "" {
			entry.Priority = payload.Priority
		}
		if payload.EstimatedWait != nil {
			entry.EstimatedWaitMinutes = *payload.EstimatedWait
		}
		if payload.CalledAt != nil {
			entry.CalledAt = payload.CalledAt
		}
		if payload.ServedAt != nil {
			entry.ServedAt = payload.ServedAt
		}
		entry.UpdatedAt = event.CreatedAt
		entries[payload.EntryID] = entry
	}
	return entries, nil
}
