package relay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/memory"
)

type recordingPublisher struct {
	events []store.OutboxEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event store.OutboxEvent) error {
	p.events = append(p.events, event)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event store.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func book(t *testing.T, st *memory.Store, id, doctorID string) {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := st.InsertAppointment(context.Background(), models.Appointment{
		AppointmentID: id,
		PatientUID:    12345678901,
		DoctorID:      doctorID,
		Status:        models.StatusWalkIn,
		Priority:      models.PriorityMedium,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
}

func TestRunStartsAfterLatestEvent(t *testing.T) {
	st := memory.New()
	book(t, st, "a1", "DOC001")
	book(t, st, "a2", "DOC001")

	pub := &recordingPublisher{}
	w := New(st, Config{BatchSize: 10}, pub)

	n, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(2), w.Offset())

	book(t, st, "a3", "DOC002")
	n, err = w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "DOC002", pub.events[0].DoctorID)
	assert.Equal(t, store.EventAppointmentBooked, pub.events[0].Type)
}

func TestRunFromStartPagesInOrder(t *testing.T) {
	st := memory.New()
	for i := 1; i <= 5; i++ {
		book(t, st, fmt.Sprintf("a%d", i), "DOC001")
	}

	pub := &recordingPublisher{}
	w := New(st, Config{BatchSize: 2, FromStart: true}, pub)

	total := 0
	for {
		n, err := w.Run(context.Background())
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	assert.Equal(t, 5, total)
	require.Len(t, pub.events, 5)
	for i, event := range pub.events {
		assert.Equal(t, int64(i+1), event.Seq)
	}
}

func TestRunSkipsFailedPublish(t *testing.T) {
	st := memory.New()
	book(t, st, "a1", "DOC001")
	book(t, st, "a2", "DOC001")

	failing := &mockPublisher{}
	failing.On("Publish", mock.Anything, mock.MatchedBy(func(e store.OutboxEvent) bool { return e.Seq == 1 })).
		Return(errors.New("broker down")).Once()
	failing.On("Publish", mock.Anything, mock.MatchedBy(func(e store.OutboxEvent) bool { return e.Seq == 2 })).
		Return(nil).Once()
	healthy := &recordingPublisher{}

	w := New(st, Config{FromStart: true}, failing, healthy)
	n, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), w.Offset())
	assert.Len(t, healthy.events, 2)
	failing.AssertExpectations(t)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "clinic:queue:DOC001", Channel("DOC001"))
}

func TestRedisPublisherIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	sub := client.Subscribe(ctx, Channel("DOC009"))
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client)
	require.NoError(t, pub.Publish(ctx, store.OutboxEvent{Seq: 7, DoctorID: "DOC009", Type: store.EventQueueAdmitted}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, Channel("DOC009"), msg.Channel)
	assert.Contains(t, msg.Payload, `"seq":7`)
}
