package policies

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("lock: property calendar is busy")

// Unlock releases a lock obtained from PropertyLocker.
type Unlock func(ctx context.Context) error

type PropertyLocker interface {
	Lock(ctx context.Context, propertyID string) (Unlock, error)
}
