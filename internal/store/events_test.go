package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
)

func TestReplayQueueFoldsStatusChanges(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := models.QueueEntry{
		EntryID:              "e-1",
		AppointmentID:        "a-1",
		PatientUID:           12345678901,
		DoctorID:             "DOC001",
		QueueNumber:          4,
		Status:               models.StatusConfirmed,
		Priority:             models.PriorityHigh,
		EstimatedWaitMinutes: 30,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	admitted := QueueEntryEvent(EventQueueAdmitted, entry)

	called := now.Add(10 * time.Minute)
	entry.Status = models.StatusInProgress
	entry.CalledAt = &called
	entry.UpdatedAt = called
	started := QueueEntryEvent(EventQueueStatusChanged, entry)

	booked := AppointmentEvent(EventAppointmentBooked, models.Appointment{AppointmentID: "a-1", DoctorID: "DOC001"})

	got, err := ReplayQueue([]OutboxEvent{admitted, booked, started})
	require.NoError(t, err)
	require.Len(t, got, 1)

	replayed := got["e-1"]
	assert.Equal(t, models.StatusInProgress, replayed.Status)
	assert.Equal(t, 4, replayed.QueueNumber)
	assert.Equal(t, "DOC001", replayed.DoctorID)
	assert.Equal(t, 30, replayed.EstimatedWaitMinutes)
	require.NotNil(t, replayed.CalledAt)
	assert.True(t, replayed.CalledAt.Equal(called))
}

func TestReplayQueueRejectsBadPayload(t *testing.T) {
	_, err := ReplayQueue([]OutboxEvent{{Type: EventQueueAdmitted, Payload: []byte("{")}})
	assert.Error(t, err)
}
