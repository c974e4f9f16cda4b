package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "rentme/internal/app/outbox"
	infraoutbox "rentme/internal/infra/outbox"
)

// OutboxStore writes records inside the caller's transaction and serves the
// relay worker with SKIP LOCKED claims.
type OutboxStore struct {
	pool       *pgxpool.Pool
	StaleAfter time.Duration
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool, StaleAfter: 5 * time.Minute}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	doc := infraoutbox.NewDocument(record, time.Now().UTC())
	_, err = conn(ctx, s.pool).Exec(ctx, `INSERT INTO outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.Name, doc.Payload, doc.OccurredAt, doc.Aggregate, headers, doc.State, doc.NextAttempt)
	return translate(err)
}

// Flush is a no-op: rows become visible when the transaction commits.
func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx, `UPDATE outbox SET state = $1, claimed_by = $2, claimed_at = $3, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM outbox
			WHERE (state IN ($4, $5) AND next_attempt_at <= $3) OR (state = $1 AND claimed_at < $6)
			ORDER BY occurred_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`,
		infraoutbox.StateClaimed, workerID, now, infraoutbox.StateNew, infraoutbox.StateFailed, now.Add(-s.StaleAfter))
	var (
		doc     infraoutbox.EventDocument
		headers []byte
	)
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Payload, &doc.OccurredAt, &doc.Aggregate, &headers, &doc.Attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(headers, &doc.Headers); err != nil {
		return nil, err
	}
	doc.State = infraoutbox.StateClaimed
	doc.ClaimedBy = workerID
	doc.ClaimedAt = now
	return &doc, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state = $2, sent_at = $3 WHERE id = $1`, id, infraoutbox.StateSent, time.Now().UTC())
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state = $2, next_attempt_at = $3, last_error = $4 WHERE id = $1`,
		id, infraoutbox.StateFailed, next.UTC(), errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Queue = (*OutboxStore)(nil)
)
