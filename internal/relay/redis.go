package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

const channelPrefix = "clinic:queue:"

// Channel is the pub/sub channel carrying a doctor's queue events.
func Channel(doctorID string) string {
	return channelPrefix + doctorID
}

type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event store.OutboxEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(event.DoctorID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event %d: %w", event.Seq, err)
	}
	return nil
}
