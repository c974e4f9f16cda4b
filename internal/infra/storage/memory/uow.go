package memory

import (
	"context"
	"errors"
	"time"

	appoutbox "rentme/internal/app/outbox"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	infraoutbox "rentme/internal/infra/outbox"
)

var (
	ErrUnitClosed   = errors.New("memory: unit of work already finished")
	ErrReadOnlyUnit = errors.New("memory: unit of work is read-only")
)

// Factory starts buffered units over a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, errors.New("memory: unit of work factory missing store")
	}
	return &Unit{
		store:         f.Store,
		readOnly:      opts.ReadOnly,
		properties:    make(map[domainproperty.PropertyID]*domainproperty.Property),
		rules:         make(map[domainpricing.RuleID]domainpricing.SeasonalRule),
		deletedRules:  make(map[domainpricing.RuleID]struct{}),
		blocks:        make(map[domainavailability.BlockID]*domainavailability.Block),
		deletedBlocks: make(map[domainavailability.BlockID]struct{}),
		bookings:      make(map[domainbooking.BookingID]*domainbooking.Booking),
		bookingBase:   make(map[domainbooking.BookingID]int64),
		touched:       make(map[domainproperty.PropertyID]int64),
	}, nil
}

// Unit buffers writes until Commit. Calendar and booking writes are validated
// optimistically: Commit fails with uow.ErrCalendarContention when another unit
// committed a write to a touched calendar, or a newer version of a saved
// booking, after this unit observed it.
type Unit struct {
	store    *Store
	readOnly bool
	done     bool

	properties    map[domainproperty.PropertyID]*domainproperty.Property
	rules         map[domainpricing.RuleID]domainpricing.SeasonalRule
	deletedRules  map[domainpricing.RuleID]struct{}
	blocks        map[domainavailability.BlockID]*domainavailability.Block
	deletedBlocks map[domainavailability.BlockID]struct{}
	bookings      map[domainbooking.BookingID]*domainbooking.Booking
	bookingBase   map[domainbooking.BookingID]int64
	touched       map[domainproperty.PropertyID]int64
	records       []appoutbox.EventRecord
}

func (u *Unit) Properties() domainproperty.Repository       { return propertyRepo{u} }
func (u *Unit) SeasonalRules() domainpricing.RuleRepository { return ruleRepo{u} }
func (u *Unit) Blocks() domainavailability.BlockRepository  { return blockRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository          { return bookingRepo{u} }

func (u *Unit) TouchCalendar(ctx context.Context, id domainproperty.PropertyID) error {
	if err := u.writable(); err != nil {
		return err
	}
	if _, ok := u.touched[id]; !ok {
		u.touched[id] = u.store.CalendarVersion(id)
	}
	return nil
}

func (u *Unit) addRecord(rec appoutbox.EventRecord) error {
	if err := u.writable(); err != nil {
		return err
	}
	u.records = append(u.records, rec)
	return nil
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, seen := range u.touched {
		if s.calendars[id] != seen {
			return uow.ErrCalendarContention
		}
	}
	for id, base := range u.bookingBase {
		var current int64
		if stored, ok := s.bookings[id]; ok {
			current = stored.Version
		}
		if current != base {
			return uow.ErrCalendarContention
		}
	}
	for id, p := range u.properties {
		s.properties[id] = p
	}
	for id := range u.deletedRules {
		delete(s.rules, id)
	}
	for id, r := range u.rules {
		s.rules[id] = r
	}
	for id := range u.deletedBlocks {
		delete(s.blocks, id)
	}
	for id, b := range u.blocks {
		s.blocks[id] = b
	}
	for id, b := range u.bookings {
		s.bookings[id] = b
	}
	for id := range u.touched {
		s.calendars[id]++
	}
	now := time.Now().UTC()
	for _, rec := range u.records {
		doc := infraoutbox.NewDocument(rec, now)
		s.outbox = append(s.outbox, &doc)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.done = true
	return nil
}

// InjectContext makes the unit visible to the memory outbox.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

type unitKey struct{}

func unitFrom(ctx context.Context) (*Unit, bool) {
	u, ok := ctx.Value(unitKey{}).(*Unit)
	return u, ok
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.UnitOfWork      = (*Unit)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
