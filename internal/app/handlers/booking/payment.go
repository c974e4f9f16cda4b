package booking

import (
	"context"
	"errors"
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
	confirmBookingPaymentKey = "booking.payment.confirm"
	failBookingPaymentKey    = "booking.payment.fail"
	declinedReason           = "payment-declined"
)

// ErrPaymentRefNotAllowed is returned when a caller other than the payment
// results consumer claims a settled payment.
var ErrPaymentRefNotAllowed = errors.New("booking: payment reference can only be reported by the payment processor")

// ConfirmBookingPaymentCommand confirms a PENDING booking. PaymentRef is only
// accepted from system principals relaying an asynchronous capture.
type ConfirmBookingPaymentCommand struct {
	BookingID  string `json:"-" validate:"required"`
	PaymentRef string `json:"-"`
}

func (c ConfirmBookingPaymentCommand) Key() string { return confirmBookingPaymentKey }

func (c ConfirmBookingPaymentCommand) BookingScope() string { return c.BookingID }

func (c ConfirmBookingPaymentCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleGuest}
}

// ConfirmBookingPaymentHandler moves a PENDING booking to CONFIRMED. Without a
// payment reference the total is captured through the payments port first; a
// declined capture cancels the booking and releases its dates. A capture whose
// unit does not commit is refunded.
type ConfirmBookingPaymentHandler struct {
	Payments policies.PaymentsPort
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    support.Clock
	Logger   *slog.Logger
}

func (h *ConfirmBookingPaymentHandler) Handle(ctx context.Context, cmd ConfirmBookingPaymentCommand) (dto.BookingStatusResult, error) {
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
	if actor == domainbooking.ActorHost {
		return dto.BookingStatusResult{}, access.ErrForbidden
	}
	ref := strings.TrimSpace(cmd.PaymentRef)
	if ref != "" && actor != domainbooking.ActorSystem {
		return dto.BookingStatusResult{}, ErrPaymentRefNotAllowed
	}
	if booking.Status != domainbooking.StatusPending {
		return dto.BookingStatusResult{}, domainbooking.ErrInvalidState
	}
	if err := unit.TouchCalendar(ctx, booking.PropertyID); err != nil {
		return dto.BookingStatusResult{}, err
	}

	now := h.Clock.Now()
	if ref == "" {
		if h.Payments == nil {
			return dto.BookingStatusResult{}, domainbooking.ErrPaymentRefRequired
		}
		total := booking.Total()
		res, err := h.Payments.Capture(ctx, policies.PaymentRequest{
			BookingID:   string(booking.ID),
			AmountMinor: total.MinorUnits(),
			Currency:    total.Currency,
		})
		switch {
		case errors.Is(err, policies.ErrPaymentDeclined):
			if err := booking.FailPayment(declinedReason, now); err != nil {
				return dto.BookingStatusResult{}, err
			}
			if h.Logger != nil {
				h.Logger.Info("booking payment declined", "booking_id", booking.ID)
			}
			return h.save(ctx, unit, booking)
		case err != nil:
			return dto.BookingStatusResult{}, err
		}
		ref = res.Reference
		h.refundOnRollback(ctx, policies.PaymentRequest{
			BookingID:   string(booking.ID),
			AmountMinor: total.MinorUnits(),
			Currency:    total.Currency,
			Reference:   ref,
		})
	}
	if err := booking.Confirm(ref, now); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking confirmed", "booking_id", booking.ID, "payment_ref", ref)
	}
	return h.save(ctx, unit, booking)
}

func (h *ConfirmBookingPaymentHandler) refundOnRollback(ctx context.Context, req policies.PaymentRequest) {
	uow.OnRollback(ctx, func(ctx context.Context) {
		if _, err := h.Payments.Refund(ctx, req); err != nil {
			h.logger().ErrorContext(ctx, "captured payment not reversed after failed confirmation", "booking_id", req.BookingID, "payment_ref", req.Reference, "error", err)
			return
		}
		h.logger().WarnContext(ctx, "captured payment reversed after failed confirmation", "booking_id", req.BookingID, "payment_ref", req.Reference)
	})
}

func (h *ConfirmBookingPaymentHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *ConfirmBookingPaymentHandler) save(ctx context.Context, unit uow.UnitOfWork, booking *domainbooking.Booking) (dto.BookingStatusResult, error) {
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return dto.BookingStatusResult{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return dto.BookingStatusResult{}, err
	}
	return statusResult(booking), nil
}

type FailBookingPaymentCommand struct {
	BookingID string `validate:"required"`
	Reason    string
}

func (c FailBookingPaymentCommand) Key() string { return failBookingPaymentKey }

func (c FailBookingPaymentCommand) BookingScope() string { return c.BookingID }

func (c FailBookingPaymentCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleSystem}
}

type FailBookingPaymentHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *FailBookingPaymentHandler) Handle(ctx context.Context, cmd FailBookingPaymentCommand) (dto.BookingStatusResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.BookingStatusResult{}, err
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = declinedReason
	}
	if err := booking.FailPayment(reason, h.Clock.Now()); err != nil {
		return dto.BookingStatusResult{}, err
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
		h.Logger.Info("booking payment failed", "booking_id", booking.ID, "reason", reason)
	}
	return statusResult(booking), nil
}

func statusResult(b *domainbooking.Booking) dto.BookingStatusResult {
	return dto.BookingStatusResult{
		BookingID:     string(b.ID),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
	}
}

var _ commands.Handler[ConfirmBookingPaymentCommand, dto.BookingStatusResult] = (*ConfirmBookingPaymentHandler)(nil)
var _ commands.Handler[FailBookingPaymentCommand, dto.BookingStatusResult] = (*FailBookingPaymentHandler)(nil)
