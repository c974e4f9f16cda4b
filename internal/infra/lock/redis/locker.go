package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"rentme/internal/app/policies"
)

const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var ErrLockLost = errors.New("lock: property lock expired before release")

// Locker is a PropertyLocker backed by Redis SET NX PX. Each holder writes a
// random token so it can only release its own lock.
type Locker struct {
	client goredis.Cmdable
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
	prefix string
}

type Option func(*Locker)

// WithRetry sets the polling interval while the lock is held elsewhere.
func WithRetry(d time.Duration) Option { return func(l *Locker) { l.retry = d } }

// WithWait bounds how long Lock waits before giving up with policies.ErrLockNotAcquired.
func WithWait(d time.Duration) Option { return func(l *Locker) { l.wait = d } }

func WithPrefix(p string) Option { return func(l *Locker) { l.prefix = p } }

func NewLocker(client goredis.Cmdable, ttl time.Duration, opts ...Option) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	l := &Locker{
		client: client,
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		wait:   ttl,
		prefix: "rentme:lock:property:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) key(propertyID string) string {
	return l.prefix + propertyID
}

func (l *Locker) Lock(ctx context.Context, propertyID string) (policies.Unlock, error) {
	key := l.key(propertyID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return l.release(ctx, key, token)
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, policies.ErrLockNotAcquired
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

var _ policies.PropertyLocker = (*Locker)(nil)
