package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InboxStore records processed broker deliveries per consumer.
type InboxStore struct {
	pool     *pgxpool.Pool
	consumer string
}

func NewInboxStore(pool *pgxpool.Pool, consumer string) *InboxStore {
	return &InboxStore{pool: pool, consumer: consumer}
}

func (s *InboxStore) Seen(ctx context.Context, eventID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO inbox (event_id, consumer) VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventID, s.consumer)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}

func (s *InboxStore) Forget(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM inbox WHERE event_id = $1 AND consumer = $2`, eventID, s.consumer)
	return err
}
