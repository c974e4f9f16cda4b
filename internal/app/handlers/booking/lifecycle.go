package booking

import (
	"context"
	"log/slog"
	"strings"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/outbox"
	"rentme/internal/app/policies"
	"rentme/internal/app/uow"
	domainbooking "rentme/internal/domain/booking"
)

const (
	cancelBookingKey   = "booking.cancel"
	completeBookingKey = "booking.complete"
)

type CancelBookingCommand struct {
	BookingID string `json:"-" validate:"required"`
	Reason    string `json:"reason"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) BookingScope() string { return c.BookingID }

func (c CancelBookingCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleGuest, access.RoleHost}
}

// CancelBookingHandler cancels on behalf of the guest, the host or an admin.
// The refund is paid through the payments port once the cancellation commits.
type CancelBookingHandler struct {
	Payments policies.PaymentsPort
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    support.Clock
	Logger   *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (dto.BookingStatusResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	actor, _, err := actorFor(ctx, unit, booking)
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = string(actor) + "-cancelled"
	}
	refund, penalty, err := booking.Cancel(actor, reason, h.Clock.Now())
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	if refund.Amount > 0 && h.Payments != nil {
		req := policies.PaymentRequest{
			BookingID:   string(booking.ID),
			AmountMinor: refund.MinorUnits(),
			Currency:    refund.Currency,
			Reference:   booking.PaymentRef,
		}
		uow.AfterCommit(ctx, func(ctx context.Context) {
			if _, err := h.Payments.Refund(ctx, req); err != nil && h.Logger != nil {
				// the processor dedupes by booking id, so the refund can be replayed from the cancelled event
				h.Logger.ErrorContext(ctx, "refund failed after cancellation", "booking_id", req.BookingID, "amount_minor", req.AmountMinor, "error", err)
			}
		})
	}
	if err := unit.TouchCalendar(ctx, booking.PropertyID); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", booking.ID, "by", actor, "refund", refund.String(), "penalty", penalty.String())
	}
	out := statusResult(booking)
	refundDTO, penaltyDTO := dto.MapMoney(refund), dto.MapMoney(penalty)
	out.Refund, out.Penalty = &refundDTO, &penaltyDTO
	return out, nil
}

type CompleteBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

func (c CompleteBookingCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleSystem}
}

type CompleteBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (dto.BookingStatusResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	if err := booking.Complete(h.Clock.Now()); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking completed", "booking_id", booking.ID)
	}
	return statusResult(booking), nil
}

var _ commands.Handler[CancelBookingCommand, dto.BookingStatusResult] = (*CancelBookingHandler)(nil)
var _ commands.Handler[CompleteBookingCommand, dto.BookingStatusResult] = (*CompleteBookingHandler)(nil)
