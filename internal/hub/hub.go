package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

// Subscription narrows the events a client receives. An empty DoctorID receives every doctor.
type Subscription struct {
	DoctorID string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

// Hub fans queue events out to connected board clients. Slow clients drop messages
// rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action   string `json:"action"`
	DoctorID string `json:"doctor_id"`
}

type envelope struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	DoctorID  string          `json:"doctor_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(payload []byte, doctorID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Subscription.DoctorID != "" && client.Subscription.DoctorID != doctorID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Warn().Str("client_id", client.ID).Str("doctor_id", doctorID).Msg("drop message for slow client")
		}
	}
}

// Publish encodes an outbox event for the board and broadcasts it to the doctor's subscribers.
func (h *Hub) Publish(_ context.Context, event store.OutboxEvent) error {
	payload, err := json.Marshal(envelope{
		Seq:       event.Seq,
		Type:      event.Type,
		DoctorID:  event.DoctorID,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return err
	}
	h.Broadcast(payload, event.DoctorID)
	return nil
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
