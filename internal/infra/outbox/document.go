package outbox

import (
	"time"

	appoutbox "rentme/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// EventDocument is one stored outbox record and its delivery state.
type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
}

// NewDocument wraps a record as a fresh, immediately claimable document.
func NewDocument(record appoutbox.EventRecord, now time.Time) EventDocument {
	return EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       StateNew,
		NextAttempt: now,
	}
}

// Claimable reports whether the document is due for a delivery attempt.
// Claims older than staleAfter are treated as abandoned by a crashed worker.
func (d EventDocument) Claimable(now time.Time, staleAfter time.Duration) bool {
	switch d.State {
	case StateNew, StateFailed:
		return !d.NextAttempt.After(now)
	case StateClaimed:
		return staleAfter > 0 && now.Sub(d.ClaimedAt) > staleAfter
	}
	return false
}
