package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/app/commands"
	"rentme/internal/app/policies"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

type reserveResult struct {
	ID string `json:"id"`
}

type reserveCmd struct {
	Property string `validate:"required"`
	Guests   int    `validate:"min=1"`
	Idem     string
}

func (c reserveCmd) Key() string            { return "test.reserve" }
func (c reserveCmd) IdempotencyKey() string { return c.Idem }
func (c reserveCmd) ResultPrototype() any   { return &reserveResult{} }
func (c reserveCmd) PropertyScope() string  { return c.Property }
func (c reserveCmd) Serializable() bool     { return true }

type otherCmd struct{ Idem string }

func (c otherCmd) Key() string            { return "test.other" }
func (c otherCmd) IdempotencyKey() string { return c.Idem }
func (c otherCmd) ResultPrototype() any   { return &reserveResult{} }

type countingBus struct {
	calls int
	fn    func(ctx context.Context, cmd commands.Command) (any, error)
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	return b.fn(ctx, cmd)
}

type mapStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func newMapStore() *mapStore { return &mapStore{items: map[string]IdempotencyRecord{}} }

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysSuccessfulResult(t *testing.T) {
	store := newMapStore()
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		return &reserveResult{ID: "bk-1"}, nil
	}}
	bus := Idempotency(store, nil)(inner)

	first, err := commands.Dispatch[reserveCmd, *reserveResult](context.Background(), bus, reserveCmd{Property: "p", Idem: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[reserveCmd, *reserveResult](context.Background(), bus, reserveCmd{Property: "p", Idem: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, "test.reserve", store.items["k1"].Command)
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	store := newMapStore()
	fail := true
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		if fail {
			return nil, domainavailability.ErrDateConflict
		}
		return &reserveResult{ID: "bk-2"}, nil
	}}
	bus := Idempotency(store, nil)(inner)

	_, err := bus.Dispatch(context.Background(), reserveCmd{Property: "p", Idem: "k1"})
	assert.ErrorIs(t, err, domainavailability.ErrDateConflict)
	assert.Empty(t, store.items)

	fail = false
	res, err := commands.Dispatch[reserveCmd, *reserveResult](context.Background(), bus, reserveCmd{Property: "p", Idem: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "bk-2", res.ID)
	assert.Equal(t, 2, inner.calls)
}

func TestIdempotencyRejectsKeyReuseAcrossCommands(t *testing.T) {
	store := newMapStore()
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		return &reserveResult{ID: "x"}, nil
	}}
	bus := Idempotency(store, nil)(inner)

	_, err := bus.Dispatch(context.Background(), reserveCmd{Property: "p", Idem: "shared"})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), otherCmd{Idem: "shared"})
	assert.ErrorIs(t, err, ErrIdempotencyKeyReuse)
	assert.Equal(t, 1, inner.calls)
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) { return &reserveResult{}, nil }}
	bus := Idempotency(newMapStore(), nil)(inner)
	for i := 0; i < 3; i++ {
		_, err := bus.Dispatch(context.Background(), reserveCmd{Property: "p"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls)
}

type fakeUnit struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (u *fakeUnit) Properties() domainproperty.Repository       { return nil }
func (u *fakeUnit) SeasonalRules() domainpricing.RuleRepository { return nil }
func (u *fakeUnit) Blocks() domainavailability.BlockRepository  { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository          { return nil }
func (u *fakeUnit) TouchCalendar(ctx context.Context, id domainproperty.PropertyID) error {
	return nil
}
func (u *fakeUnit) Commit(ctx context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}
func (u *fakeUnit) Rollback(ctx context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	unit *fakeUnit
	opts uow.TxOptions
}

func (f *fakeFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	f.opts = opts
	return f.unit, nil
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	factory := &fakeFactory{unit: &fakeUnit{}}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		unit, err := uow.Current(ctx)
		require.NoError(t, err)
		assert.Same(t, factory.unit, unit)
		return "ok", nil
	}}
	res, err := Transaction(factory, nil)(inner).Dispatch(context.Background(), reserveCmd{Property: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.True(t, factory.unit.committed)
	assert.False(t, factory.unit.rolledBack)
	assert.True(t, factory.opts.Serializable)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	factory := &fakeFactory{unit: &fakeUnit{}}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		return nil, errors.New("boom")
	}}
	_, err := Transaction(factory, nil)(inner).Dispatch(context.Background(), otherCmd{})
	require.Error(t, err)
	assert.False(t, factory.unit.committed)
	assert.True(t, factory.unit.rolledBack)
	assert.False(t, factory.opts.Serializable)
}

func TestTransactionSurfacesCommitContention(t *testing.T) {
	factory := &fakeFactory{unit: &fakeUnit{commitErr: uow.ErrCalendarContention}}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) { return "ok", nil }}
	_, err := Transaction(factory, nil)(inner).Dispatch(context.Background(), reserveCmd{Property: "p"})
	assert.ErrorIs(t, err, uow.ErrCalendarContention)
	assert.True(t, factory.unit.rolledBack)
}

type recordingLocker struct {
	held     map[string]bool
	released []string
	err      error
}

func (l *recordingLocker) Lock(ctx context.Context, propertyID string) (policies.Unlock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.held[propertyID] = true
	return func(context.Context) error {
		l.held[propertyID] = false
		l.released = append(l.released, propertyID)
		return nil
	}, nil
}

func TestTransactionRunsHooksByOutcome(t *testing.T) {
	var ran []string
	register := func(ctx context.Context) {
		uow.AfterCommit(ctx, func(context.Context) { ran = append(ran, "after-commit") })
		uow.OnRollback(ctx, func(context.Context) { ran = append(ran, "compensate-1") })
		uow.OnRollback(ctx, func(context.Context) { ran = append(ran, "compensate-2") })
	}

	ok := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		register(ctx)
		return "ok", nil
	}}
	_, err := Transaction(&fakeFactory{unit: &fakeUnit{}}, nil)(ok).Dispatch(context.Background(), otherCmd{})
	require.NoError(t, err)
	assert.Equal(t, []string{"after-commit"}, ran)

	ran = nil
	_, err = Transaction(&fakeFactory{unit: &fakeUnit{commitErr: uow.ErrCalendarContention}}, nil)(ok).Dispatch(context.Background(), otherCmd{})
	assert.ErrorIs(t, err, uow.ErrCalendarContention)
	assert.Equal(t, []string{"compensate-2", "compensate-1"}, ran)
}

func TestPropertyLockUsesResolverForUnscopedCommands(t *testing.T) {
	locker := &recordingLocker{held: map[string]bool{}}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		assert.True(t, locker.held["prop-from-booking"])
		return nil, nil
	}}
	resolve := func(ctx context.Context, cmd commands.Command) (string, error) {
		if _, ok := cmd.(otherCmd); ok {
			return "prop-from-booking", nil
		}
		return "", nil
	}
	_, err := PropertyLock(locker, nil, resolve)(inner).Dispatch(context.Background(), otherCmd{})
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-from-booking"}, locker.released)

	failing := func(ctx context.Context, cmd commands.Command) (string, error) {
		return "", domainbooking.ErrBookingNotFound
	}
	_, err = PropertyLock(locker, nil, failing)(inner).Dispatch(context.Background(), otherCmd{})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	assert.Equal(t, 1, inner.calls)
}

func TestPropertyLockHoldsAroundHandler(t *testing.T) {
	locker := &recordingLocker{held: map[string]bool{}}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		assert.True(t, locker.held["prop-9"])
		return nil, errors.New("handler failed")
	}}
	_, err := PropertyLock(locker, nil)(inner).Dispatch(context.Background(), reserveCmd{Property: "prop-9"})
	require.Error(t, err)
	assert.Equal(t, []string{"prop-9"}, locker.released)
}

func TestPropertyLockBusy(t *testing.T) {
	locker := &recordingLocker{held: map[string]bool{}, err: policies.ErrLockNotAcquired}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) { return nil, nil }}
	_, err := PropertyLock(locker, nil)(inner).Dispatch(context.Background(), reserveCmd{Property: "prop-9"})
	assert.ErrorIs(t, err, policies.ErrLockNotAcquired)
	assert.Zero(t, inner.calls)

	_, err = PropertyLock(locker, nil)(inner).Dispatch(context.Background(), otherCmd{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestChainCommandsOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	inner := &countingBus{fn: func(ctx context.Context, cmd commands.Command) (any, error) {
		order = append(order, "handler")
		return nil, nil
	}}
	_, err := ChainCommands(inner, mark("a"), mark("b"), mark("c")).Dispatch(context.Background(), otherCmd{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestStructValidatorReportsFields(t *testing.T) {
	err := NewStructValidator().Validate(context.Background(), reserveCmd{Guests: 0})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{"Property", "Guests"}, verr.Fields)
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, NewStructValidator().Validate(context.Background(), reserveCmd{Property: "p", Guests: 2}))
}
