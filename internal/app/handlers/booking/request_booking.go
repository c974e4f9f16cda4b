package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/middleware"
	"rentme/internal/app/outbox"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	domainrange "rentme/internal/domain/shared/daterange"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	PropertyID      string    `json:"property_id" validate:"required"`
	GuestID         string    `json:"-" validate:"required"`
	CheckIn         time.Time `json:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" validate:"required"`
	Guests          int       `json:"guests"`
	IdempotencyKeyV string    `json:"-"`
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

// IdempotencyKey is scoped to the guest so two guests cannot collide on a key.
func (c RequestBookingCommand) IdempotencyKey() string {
	if strings.TrimSpace(c.IdempotencyKeyV) == "" {
		return ""
	}
	return c.GuestID + "/" + strings.TrimSpace(c.IdempotencyKeyV)
}

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

func (c RequestBookingCommand) PropertyScope() string { return c.PropertyID }

func (c RequestBookingCommand) Serializable() bool { return true }

func (c RequestBookingCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleGuest}
}

type RequestBookingResult struct {
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"`
	Quote     dto.Quote `json:"quote"`
}

// RequestBookingHandler runs the reserve sequence inside the caller's unit of
// work: capacity, a freshly built calendar index, the availability guard, the
// quote, then the PENDING booking and its events.
type RequestBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

var ErrGuestMismatch = errors.New("booking: guests may only book for themselves")

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	principal, err := access.Require(ctx)
	if err != nil {
		return nil, err
	}
	guestID := strings.TrimSpace(cmd.GuestID)
	if !principal.Privileged() && principal.ID != guestID {
		return nil, ErrGuestMismatch
	}

	stay, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	propertyID := domainproperty.PropertyID(cmd.PropertyID)
	property, err := unit.Properties().ByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := domainpricing.ScheduleFor(property).CheckCapacity(cmd.Guests); err != nil {
		return nil, err
	}

	if err := unit.TouchCalendar(ctx, propertyID); err != nil {
		return nil, err
	}
	idx, err := support.LoadIndex(ctx, unit, propertyID, nil)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if _, err := domainavailability.Check(idx, stay, now); err != nil {
		var conflict *domainavailability.DateConflictError
		if errors.As(err, &conflict) && h.Logger != nil {
			h.Logger.Info("booking rejected: dates unavailable", "property_id", propertyID, "requested", stay.String(), "conflict", conflict.Conflict.String())
		}
		return nil, err
	}

	rules, err := unit.SeasonalRules().ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	quote, err := domainpricing.QuoteStay(property, rules, stay, cmd.Guests, now)
	if err != nil {
		return nil, err
	}

	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(uuid.NewString()),
		GuestID:   guestID,
		Quote:     quote,
		Policy:    domainbooking.SnapshotPolicy(property.CancellationPolicyID, stay.CheckIn),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking requested", "booking_id", booking.ID, "property_id", propertyID, "guest_id", guestID, "range", stay.String(), "total", quote.Total.String())
	}
	return &RequestBookingResult{
		BookingID: string(booking.ID),
		Status:    string(booking.Status),
		Quote:     dto.MapQuote(booking.Quote),
	}, nil
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
var _ middleware.PropertyScoped = RequestBookingCommand{}
