package uow

import (
	"context"
	"errors"

	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

// ErrCalendarContention is returned on commit when another unit wrote the same
// property calendar first.
var ErrCalendarContention = errors.New("uow: property calendar changed concurrently")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() domainproperty.Repository
	SeasonalRules() domainpricing.RuleRepository
	Blocks() domainavailability.BlockRepository
	Bookings() domainbooking.Repository

	// TouchCalendar marks the property calendar as written in this unit so two
	// units reserving the same property cannot both commit.
	TouchCalendar(ctx context.Context, id domainproperty.PropertyID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly     bool
	Serializable bool
}

// ContextInjector is implemented by units that carry driver state (sessions, tx) in context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
