package memory

import (
	"context"
	"time"

	appoutbox "rentme/internal/app/outbox"
	infraoutbox "rentme/internal/infra/outbox"
)

const staleClaim = time.Minute

// Outbox stages records in the unit bound to ctx; they reach the store only
// when that unit commits. It doubles as the worker queue.
type Outbox struct {
	store *Store
}

func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if u, ok := unitFrom(ctx); ok {
		return u.addRecord(record)
	}
	doc := infraoutbox.NewDocument(record, time.Now().UTC())
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	o.store.outbox = append(o.store.outbox, &doc)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := time.Now().UTC()
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, doc := range o.store.outbox {
		if !doc.Claimable(now, staleClaim) {
			continue
		}
		doc.State = infraoutbox.StateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for i, doc := range o.store.outbox {
		if doc.ID == id {
			o.store.outbox = append(o.store.outbox[:i], o.store.outbox[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, doc := range o.store.outbox {
		if doc.ID == id {
			doc.State = infraoutbox.StateFailed
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
			return nil
		}
	}
	return nil
}

// Pending returns the names of records not yet relayed.
func (o *Outbox) Pending() []string {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	out := make([]string, 0, len(o.store.outbox))
	for _, doc := range o.store.outbox {
		out = append(out, doc.Name)
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
