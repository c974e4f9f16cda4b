package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	bookinghandlers "rentme/internal/app/handlers/booking"
	"rentme/internal/app/policies"
	"rentme/internal/app/queries"
	domainbooking "rentme/internal/domain/booking"
	"rentme/internal/infra/inbox"
)

type recordingBus struct {
	sent []commands.Command
	err  error
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	p, ok := access.PrincipalFrom(ctx)
	if !ok || !p.Has(access.RoleSystem) {
		return nil, access.ErrUnauthenticated
	}
	b.sent = append(b.sent, cmd)
	return nil, b.err
}

func message(t *testing.T, offset int64, v any) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "payments.results.v1", Partition: 0, Offset: offset, Value: raw}
}

func newHandler(bus commands.Bus) *PaymentResultsHandler {
	return &PaymentResultsHandler{Bus: bus, Inbox: inbox.NewMemoryStore(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestCapturedResultConfirmsOnce(t *testing.T) {
	bus := &recordingBus{}
	h := newHandler(bus)
	msg := message(t, 1, PaymentResult{EventID: "ev-1", BookingID: "bk-1", Status: "CAPTURED", PaymentRef: "pay_9"})

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, bus.sent, 1)
	assert.Equal(t, bookinghandlers.ConfirmBookingPaymentCommand{BookingID: "bk-1", PaymentRef: "pay_9"}, bus.sent[0])
}

func TestFailedResultFailsBooking(t *testing.T) {
	bus := &recordingBus{}
	require.NoError(t, newHandler(bus).Handle(context.Background(), message(t, 2, PaymentResult{BookingID: "bk-2", Status: PaymentFailed, Reason: "insufficient funds"})))
	require.Len(t, bus.sent, 1)
	assert.Equal(t, bookinghandlers.FailBookingPaymentCommand{BookingID: "bk-2", Reason: "insufficient funds"}, bus.sent[0])
}

func TestUnprocessableResultsAreSkipped(t *testing.T) {
	bus := &recordingBus{}
	h := newHandler(bus)
	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{not json")}))
	assert.NoError(t, h.Handle(context.Background(), message(t, 3, PaymentResult{BookingID: "bk-3", Status: "pending"})))
	assert.Empty(t, bus.sent)

	stale := &recordingBus{err: fmt.Errorf("confirm: %w", domainbooking.ErrInvalidState)}
	assert.NoError(t, newHandler(stale).Handle(context.Background(), message(t, 4, PaymentResult{BookingID: "bk-4", Status: PaymentCaptured})))
}

func TestTransientFailureIsRetried(t *testing.T) {
	bus := &recordingBus{err: errors.New("database unavailable")}
	h := newHandler(bus)
	msg := message(t, 5, PaymentResult{EventID: "ev-5", BookingID: "bk-5", Status: PaymentCaptured})

	assert.Error(t, h.Handle(context.Background(), msg))
	bus.err = nil
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, bus.sent, 2)
}

type bookingLookup map[string]dto.Booking

func (l bookingLookup) Ask(ctx context.Context, q queries.Query) (any, error) {
	p, ok := access.PrincipalFrom(ctx)
	if !ok || !p.Has(access.RoleSystem) {
		return nil, access.ErrUnauthenticated
	}
	b, ok := l[q.(bookinghandlers.GetBookingQuery).BookingID]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, nil
}

type refunds struct {
	got []policies.PaymentRequest
	err error
}

func (r *refunds) Capture(context.Context, policies.PaymentRequest) (policies.PaymentResult, error) {
	return policies.PaymentResult{}, errors.New("unexpected capture")
}

func (r *refunds) Refund(_ context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	if r.err != nil {
		return policies.PaymentResult{}, r.err
	}
	r.got = append(r.got, req)
	return policies.PaymentResult{Reference: "ref_1", Status: "refunded"}, nil
}

func TestCaptureForCancelledBookingIsRefunded(t *testing.T) {
	stale := &recordingBus{err: fmt.Errorf("confirm: %w", domainbooking.ErrInvalidState)}
	pay := &refunds{err: errors.New("processor down")}
	h := newHandler(stale)
	h.Queries = bookingLookup{
		"bk-6": {ID: "bk-6", Status: "CANCELLED", Quote: dto.Quote{Total: dto.MoneyDTO{Amount: 41969, Currency: "USD"}}},
	}
	h.Payments = pay
	msg := message(t, 6, PaymentResult{EventID: "ev-6", BookingID: "bk-6", Status: PaymentCaptured, PaymentRef: "pay_late"})

	// a failed refund is redelivered
	assert.ErrorContains(t, h.Handle(context.Background(), msg), "processor down")
	assert.Empty(t, pay.got)

	pay.err = nil
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, pay.got, 1)
	assert.Equal(t, policies.PaymentRequest{BookingID: "bk-6", AmountMinor: 41969, Currency: "USD", Reference: "pay_late"}, pay.got[0])
}

func TestRedeliveredCaptureIsNotRefunded(t *testing.T) {
	stale := &recordingBus{err: fmt.Errorf("confirm: %w", domainbooking.ErrInvalidState)}
	pay := &refunds{}
	h := newHandler(stale)
	h.Queries = bookingLookup{
		"bk-7": {ID: "bk-7", Status: "CONFIRMED", PaymentRef: "pay_7", Quote: dto.Quote{Total: dto.MoneyDTO{Amount: 100, Currency: "USD"}}},
	}
	h.Payments = pay

	require.NoError(t, h.Handle(context.Background(), message(t, 7, PaymentResult{BookingID: "bk-7", Status: PaymentCaptured, PaymentRef: "pay_7"})))
	assert.Empty(t, pay.got)

	// a second capture for an already confirmed booking is returned
	require.NoError(t, h.Handle(context.Background(), message(t, 8, PaymentResult{BookingID: "bk-7", Status: PaymentCaptured, PaymentRef: "pay_dup"})))
	require.Len(t, pay.got, 1)
	assert.Equal(t, "pay_dup", pay.got[0].Reference)
}

func TestProducerPublishesKeyedRecords(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"ok":true}` {
			return fmt.Errorf("unexpected payload %s", val)
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromSync(mock)
	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{"ok":true}`), map[string]string{"b": "2", "a": "1"}))
	assert.ErrorIs(t, p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), nil), sarama.ErrOutOfBrokers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "booking.events.v1", "bk-1", nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}
