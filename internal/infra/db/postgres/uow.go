package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeExclusionViolation   = "23P01"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

type Factory struct {
	Pool *pgxpool.Pool

	PropertiesRepo domainproperty.Repository
	RulesRepo      domainpricing.RuleRepository
	BlocksRepo     domainavailability.BlockRepository
	BookingsRepo   domainbooking.Repository
}

func NewFactory(pool *pgxpool.Pool) Factory {
	return Factory{
		Pool:           pool,
		PropertiesRepo: NewPropertyRepository(pool),
		RulesRepo:      NewSeasonalRuleRepository(pool),
		BlocksRepo:     NewBlockRepository(pool),
		BookingsRepo:   NewBookingRepository(pool),
	}
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.Serializable {
		txOpts.IsoLevel = pgx.Serializable
	}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
		txOpts.IsoLevel = pgx.RepeatableRead
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &Unit{
		tx:         tx,
		properties: f.PropertiesRepo,
		rules:      f.RulesRepo,
		blocks:     f.BlocksRepo,
		bookings:   f.BookingsRepo,
	}, nil
}

type Unit struct {
	tx pgx.Tx

	properties domainproperty.Repository
	rules      domainpricing.RuleRepository
	blocks     domainavailability.BlockRepository
	bookings   domainbooking.Repository
}

func (u *Unit) Properties() domainproperty.Repository       { return u.properties }
func (u *Unit) SeasonalRules() domainpricing.RuleRepository { return u.rules }
func (u *Unit) Blocks() domainavailability.BlockRepository  { return u.blocks }
func (u *Unit) Bookings() domainbooking.Repository          { return u.bookings }

// TouchCalendar bumps the calendar version row; serializable transactions
// writing the same row cannot both commit.
func (u *Unit) TouchCalendar(ctx context.Context, id domainproperty.PropertyID) error {
	_, err := u.tx.Exec(ctx, `INSERT INTO calendar_versions (property_id, version) VALUES ($1, 1)
		ON CONFLICT (property_id) DO UPDATE SET version = calendar_versions.version + 1`, string(id))
	return translate(err)
}

func (u *Unit) Commit(ctx context.Context) error {
	return translate(u.tx.Commit(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return withTx(ctx, u.tx)
}

// translate maps PostgreSQL concurrency failures onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", uow.ErrCalendarContention, pgErr.Message)
	case codeExclusionViolation:
		return fmt.Errorf("%w: %s", domainavailability.ErrDateConflict, pgErr.ConstraintName)
	}
	return err
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
