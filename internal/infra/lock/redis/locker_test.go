package redis

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/app/policies"
)

const (
	lockTTL = 2 * time.Second
	lockKey = "rentme:lock:property:prop-1"
)

func TestLockAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(lockKey, `.+`, lockTTL).SetVal(true)
	mock.Regexp().ExpectEval(regexp.QuoteMeta(releaseScript), []string{lockKey}, `.+`).SetVal(int64(1))

	locker := NewLocker(client, lockTTL)
	unlock, err := locker.Lock(context.Background(), "prop-1")
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockBusyGivesUp(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(lockKey, `.+`, lockTTL).SetVal(false)

	locker := NewLocker(client, lockTTL, WithWait(0))
	_, err := locker.Lock(context.Background(), "prop-1")
	assert.ErrorIs(t, err, policies.ErrLockNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRetriesUntilFree(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(lockKey, `.+`, lockTTL).SetVal(false)
	mock.Regexp().ExpectSetNX(lockKey, `.+`, lockTTL).SetVal(true)

	locker := NewLocker(client, lockTTL, WithRetry(time.Millisecond), WithWait(time.Second))
	_, err := locker.Lock(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAfterExpiry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(lockKey, `.+`, lockTTL).SetVal(true)
	mock.Regexp().ExpectEval(regexp.QuoteMeta(releaseScript), []string{lockKey}, `.+`).SetVal(int64(0))

	unlock, err := NewLocker(client, lockTTL).Lock(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.ErrorIs(t, unlock(context.Background()), ErrLockLost)
}

func TestLockPropagatesRedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("custom:prop-1", `.+`, lockTTL).SetErr(errors.New("connection refused"))

	_, err := NewLocker(client, lockTTL, WithPrefix("custom:")).Lock(context.Background(), "prop-1")
	assert.EqualError(t, err, "connection refused")
}
