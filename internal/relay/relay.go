package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

// Publisher delivers one outbox event to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, event store.OutboxEvent) error
}

type Config struct {
	BatchSize int
	// FromStart replays the whole outbox instead of starting after the latest event.
	FromStart bool
}

// Worker tails the store outbox and hands every event to its publishers in seq order.
// Delivery is at most once per publisher: a failed publish is logged and skipped.
type Worker struct {
	store      store.OutboxStore
	publishers []Publisher
	batchSize  int
	fromStart  bool
	offset     int64
	started    bool
}

func New(outbox store.OutboxStore, cfg Config, publishers ...Publisher) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Worker{
		store:      outbox,
		publishers: publishers,
		batchSize:  batch,
		fromStart:  cfg.FromStart,
	}
}

func (w *Worker) Offset() int64 {
	return w.offset
}

func (w *Worker) init(ctx context.Context) error {
	if w.started {
		return nil
	}
	if !w.fromStart {
		latest, err := w.store.LatestOutboxSeq(ctx)
		if err != nil {
			return err
		}
		w.offset = latest
	}
	w.started = true
	return nil
}

// Run relays one batch and returns how many events it consumed.
func (w *Worker) Run(ctx context.Context) (int, error) {
	if err := w.init(ctx); err != nil {
		return 0, err
	}

	events, err := w.store.ListOutboxEvents(ctx, w.offset, w.batchSize)
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		for _, publisher := range w.publishers {
			if err := publisher.Publish(ctx, event); err != nil {
				log.Warn().Err(err).
					Int64("seq", event.Seq).
					Str("event_type", event.Type).
					Str("doctor_id", event.DoctorID).
					Msg("relay publish failed")
			}
		}
		w.offset = event.Seq
	}
	return len(events), nil
}

// Start polls until ctx is cancelled. A full batch is followed immediately by another poll.
func Start(ctx context.Context, interval time.Duration, w *Worker) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				n, err := w.Run(ctx)
				if err != nil {
					log.Error().Err(err).Msg("relay worker error")
					break
				}
				if n < w.batchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}
