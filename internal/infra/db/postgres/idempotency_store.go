package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentme/internal/app/middleware"
)

type IdempotencyStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewIdempotencyStore(pool *pgxpool.Pool, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &IdempotencyStore{pool: pool, ttl: ttl}
}

// Get ignores records older than the configured ttl.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := conn(ctx, s.pool).QueryRow(ctx, `SELECT command, payload, occurred_at FROM idempotency_keys
		WHERE key = $1 AND created_at > $2`, key, time.Now().UTC().Add(-s.ttl)).
		Scan(&rec.Command, &rec.Payload, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `INSERT INTO idempotency_keys (key, command, payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE SET command = EXCLUDED.command, payload = EXCLUDED.payload,
			occurred_at = EXCLUDED.occurred_at, created_at = now()`,
		rec.Key, rec.Command, rec.Payload, rec.OccurredAt)
	return translate(err)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
