package memory

import (
	"context"
	"sync"

	"rentme/internal/app/policies"
)

// Locker is an in-process PropertyLocker for single instance deployments.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]chan struct{})}
}

func (l *Locker) slot(propertyID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[propertyID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[propertyID] = ch
	}
	return ch
}

// Lock waits for the property slot or for ctx to end.
func (l *Locker) Lock(ctx context.Context, propertyID string) (policies.Unlock, error) {
	ch := l.slot(propertyID)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}

var _ policies.PropertyLocker = (*Locker)(nil)
