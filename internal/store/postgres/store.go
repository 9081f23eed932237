package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	pool    *pgxpool.Pool
	dialect goqu.DialectWrapper
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, dialect: goqu.Dialect("postgres")}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == uniqueViolation
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, event store.OutboxEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, doctor_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.EventID, event.DoctorID, event.Type, []byte(event.Payload), event.CreatedAt)
	return err
}

func jsonBytes(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

var _ store.Store = (*Store)(nil)
