package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"rentme/internal/app/access"
	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/queries"
	"rentme/internal/app/uow"
	domainbooking "rentme/internal/domain/booking"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/money"
)

const (
	getBookingKey          = "booking.get"
	listGuestBookingsKey   = "guest.bookings.list"
	listHostBookingsKey    = "host.bookings.list"
	hostEarningsKey        = "host.earnings"
	allStatusesFilterValue = "ALL"
)

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) RequiredRoles() []access.Role {
	return []access.Role{access.RoleGuest, access.RoleHost}
}

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	_, property, err := actorFor(execCtx, unit, booking)
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(booking, property), nil
}

type ListGuestBookingsQuery struct {
	GuestID string `validate:"required"`
	Status  string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

func (q ListGuestBookingsQuery) RequiredRoles() []access.Role {
	return []access.Role{access.RoleGuest}
}

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	guestID := strings.TrimSpace(q.GuestID)
	if err := requireSelf(ctx, guestID); err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().ListByGuest(execCtx, guestID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	properties := map[domainproperty.PropertyID]*domainproperty.Property{}
	filter := statusFilter(q.Status)
	items := make([]dto.BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		if !filter(b) {
			continue
		}
		p, ok := properties[b.PropertyID]
		if !ok {
			p, err = unit.Properties().ByID(execCtx, b.PropertyID)
			if err != nil && !errors.Is(err, domainproperty.ErrPropertyNotFound) {
				return dto.BookingCollection{}, err
			}
			properties[b.PropertyID] = p
		}
		items = append(items, dto.MapBookingSummary(b, p))
	}
	sortSummaries(items)
	if h.Logger != nil {
		h.Logger.Debug("guest bookings listed", "guest_id", guestID, "count", len(items))
	}
	return dto.BookingCollection{Items: items}, nil
}

type ListHostBookingsQuery struct {
	HostID string `validate:"required"`
	Status string
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

func (q ListHostBookingsQuery) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

type ListHostBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListHostBookingsHandler) Handle(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	hostID := strings.TrimSpace(q.HostID)
	if err := requireSelf(ctx, hostID); err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	properties, err := unit.Properties().ListByHost(execCtx, domainproperty.HostID(hostID))
	if err != nil {
		return dto.BookingCollection{}, err
	}
	filter := statusFilter(q.Status)
	items := make([]dto.BookingSummary, 0)
	for _, p := range properties {
		bookings, err := unit.Bookings().ListByProperty(execCtx, p.ID)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		for _, b := range bookings {
			if filter(b) {
				items = append(items, dto.MapBookingSummary(b, p))
			}
		}
	}
	sortSummaries(items)
	if h.Logger != nil {
		h.Logger.Debug("host bookings listed", "host_id", hostID, "count", len(items), "status", q.Status)
	}
	return dto.BookingCollection{Items: items}, nil
}

type HostEarningsQuery struct {
	HostID string `validate:"required"`
}

func (q HostEarningsQuery) Key() string { return hostEarningsKey }

func (q HostEarningsQuery) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

// HostEarningsHandler sums what the host keeps from confirmed and completed
// stays: nightly subtotal plus cleaning fee. Service fee and tax are not host income.
type HostEarningsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *HostEarningsHandler) Handle(ctx context.Context, q HostEarningsQuery) (dto.HostEarnings, error) {
	hostID := strings.TrimSpace(q.HostID)
	if err := requireSelf(ctx, hostID); err != nil {
		return dto.HostEarnings{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostEarnings{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	properties, err := unit.Properties().ListByHost(execCtx, domainproperty.HostID(hostID))
	if err != nil {
		return dto.HostEarnings{}, err
	}
	currency := ""
	var confirmed, completed money.Money
	count := 0
	for _, p := range properties {
		bookings, err := unit.Bookings().ListByProperty(execCtx, p.ID)
		if err != nil {
			return dto.HostEarnings{}, err
		}
		for _, b := range bookings {
			if b.Status != domainbooking.StatusConfirmed && b.Status != domainbooking.StatusCompleted {
				continue
			}
			payout, err := b.Quote.Subtotal.Add(b.Quote.CleaningFee)
			if err != nil {
				return dto.HostEarnings{}, err
			}
			if currency == "" {
				currency = payout.Currency
				confirmed, completed = money.Zero(currency), money.Zero(currency)
			}
			if payout.Currency != currency {
				if h.Logger != nil {
					h.Logger.Warn("host earnings skip foreign currency booking", "booking_id", b.ID, "currency", payout.Currency)
				}
				continue
			}
			if b.Status == domainbooking.StatusCompleted {
				completed, _ = completed.Add(payout)
			} else {
				confirmed, _ = confirmed.Add(payout)
			}
			count++
		}
	}
	total, err := money.Sum(currency, confirmed, completed)
	if err != nil {
		return dto.HostEarnings{}, err
	}
	return dto.HostEarnings{
		HostID:    hostID,
		Currency:  currency,
		Confirmed: dto.MapMoney(confirmed),
		Completed: dto.MapMoney(completed),
		Total:     dto.MapMoney(total),
		Bookings:  count,
	}, nil
}

func requireSelf(ctx context.Context, id string) error {
	principal, err := access.Require(ctx)
	if err != nil {
		return err
	}
	if principal.Privileged() || principal.ID == id {
		return nil
	}
	return access.ErrForbidden
}

func statusFilter(raw string) func(*domainbooking.Booking) bool {
	status := strings.ToUpper(strings.TrimSpace(raw))
	if status == "" || status == allStatusesFilterValue {
		return func(*domainbooking.Booking) bool { return true }
	}
	return func(b *domainbooking.Booking) bool { return string(b.Status) == status }
}

func sortSummaries(items []dto.BookingSummary) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Created.After(items[j].Created)
	})
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListGuestBookingsQuery, dto.BookingCollection] = (*ListGuestBookingsHandler)(nil)
var _ queries.Handler[ListHostBookingsQuery, dto.BookingCollection] = (*ListHostBookingsHandler)(nil)
var _ queries.Handler[HostEarningsQuery, dto.HostEarnings] = (*HostEarningsHandler)(nil)
