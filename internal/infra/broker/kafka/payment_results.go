package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	bookinghandlers "rentme/internal/app/handlers/booking"
	"rentme/internal/app/policies"
	"rentme/internal/app/queries"
	domainbooking "rentme/internal/domain/booking"
	"rentme/internal/infra/inbox"
)

const (
	PaymentCaptured = "captured"
	PaymentFailed   = "failed"
)

var ErrUnknownPaymentStatus = errors.New("kafka: unknown payment result status")

// PaymentResult is the message the payment processor publishes once an
// asynchronous capture settles.
type PaymentResult struct {
	EventID    string `json:"event_id"`
	BookingID  string `json:"booking_id"`
	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref"`
	Reason     string `json:"reason"`
}

// PaymentResultsHandler turns payment results into booking commands. Each
// event id is processed at most once per consumer. A capture that arrives for
// a booking which can no longer be confirmed is refunded through Payments.
type PaymentResultsHandler struct {
	Bus      commands.Bus
	Queries  queries.Bus
	Payments policies.PaymentsPort
	Inbox    inbox.Inbox
	Logger   *slog.Logger
}

func (h *PaymentResultsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var result PaymentResult
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		// malformed records are skipped, redelivery cannot fix them
		h.logger().Warn("payment result rejected", "offset", msg.Offset, "error", err)
		return nil
	}
	if result.EventID == "" {
		result.EventID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	seen, err := h.Inbox.Seen(ctx, result.EventID)
	if err != nil {
		return err
	}
	if seen {
		h.logger().Debug("payment result already processed", "event_id", result.EventID)
		return nil
	}
	if err := h.apply(ctx, result); err != nil {
		if errors.Is(err, domainbooking.ErrInvalidState) || errors.Is(err, domainbooking.ErrBookingNotFound) || errors.Is(err, ErrUnknownPaymentStatus) {
			h.logger().Warn("payment result ignored", "event_id", result.EventID, "booking_id", result.BookingID, "error", err)
			return nil
		}
		if forgetErr := h.Inbox.Forget(ctx, result.EventID); forgetErr != nil {
			return errors.Join(err, forgetErr)
		}
		return err
	}
	return nil
}

func (h *PaymentResultsHandler) apply(ctx context.Context, result PaymentResult) error {
	ctx = access.WithPrincipal(ctx, access.System)
	switch strings.ToLower(result.Status) {
	case PaymentCaptured:
		_, err := h.Bus.Dispatch(ctx, bookinghandlers.ConfirmBookingPaymentCommand{BookingID: result.BookingID, PaymentRef: result.PaymentRef})
		if errors.Is(err, domainbooking.ErrInvalidState) {
			return h.refundOrphan(ctx, result, err)
		}
		return err
	case PaymentFailed:
		_, err := h.Bus.Dispatch(ctx, bookinghandlers.FailBookingPaymentCommand{BookingID: result.BookingID, Reason: result.Reason})
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, result.Status)
}

// refundOrphan returns money captured for a booking that is no longer PENDING,
// unless the booking was already confirmed with this very capture.
func (h *PaymentResultsHandler) refundOrphan(ctx context.Context, result PaymentResult, cause error) error {
	if h.Queries == nil || h.Payments == nil {
		h.logger().ErrorContext(ctx, "captured payment left unrefunded", "booking_id", result.BookingID, "payment_ref", result.PaymentRef, "error", cause)
		return nil
	}
	booking, err := queries.Ask[bookinghandlers.GetBookingQuery, dto.Booking](ctx, h.Queries, bookinghandlers.GetBookingQuery{BookingID: result.BookingID})
	if err != nil {
		return err
	}
	if result.PaymentRef != "" && booking.PaymentRef == result.PaymentRef {
		h.logger().DebugContext(ctx, "capture already applied", "booking_id", result.BookingID, "payment_ref", result.PaymentRef)
		return nil
	}
	req := policies.PaymentRequest{
		BookingID:   result.BookingID,
		AmountMinor: booking.Quote.Total.Amount,
		Currency:    booking.Quote.Total.Currency,
		Reference:   result.PaymentRef,
	}
	if _, err := h.Payments.Refund(ctx, req); err != nil {
		return fmt.Errorf("kafka: refund capture for %s booking %s: %w", booking.Status, result.BookingID, err)
	}
	h.logger().ErrorContext(ctx, "capture arrived for unconfirmable booking, refunded",
		"booking_id", result.BookingID,
		"status", booking.Status,
		"payment_ref", result.PaymentRef,
		"amount_minor", req.AmountMinor,
	)
	return nil
}

func (h *PaymentResultsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*PaymentResultsHandler)(nil)
