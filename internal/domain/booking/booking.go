package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentme/internal/domain/availability"
	"rentme/internal/domain/pricing"
	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/events"
	"rentme/internal/domain/shared/money"
)

var (
	ErrInvalidGuests       = errors.New("booking: guests count must be positive")
	ErrInvalidState        = errors.New("booking: invalid state transition")
	ErrPaymentRefRequired  = errors.New("booking: payment reference required before confirmation")
	ErrBookingNotFound     = errors.New("booking: not found")
	ErrGuestRequired       = errors.New("booking: guest id required")
	ErrQuoteMismatch       = errors.New("booking: quote does not match booking")
	ErrStayNotFinished     = errors.New("booking: stay has not finished yet")
	ErrTotalMustBePositive = errors.New("booking: total must be positive")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Actor identifies who triggered a cancellation.
type Actor string

const (
	ActorGuest  Actor = "guest"
	ActorHost   Actor = "host"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)

type Booking struct {
	ID            BookingID
	PropertyID    property.PropertyID
	GuestID       string
	Range         daterange.DateRange
	Guests        int
	Quote         pricing.Quote
	Status        Status
	PaymentStatus PaymentStatus
	PaymentRef    string
	Policy        CancellationPolicySnapshot
	CancelReason  string
	Refund        money.Money
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByProperty(ctx context.Context, id property.PropertyID) ([]*Booking, error)
	// ListOccupying returns PENDING and CONFIRMED bookings of a property.
	ListOccupying(ctx context.Context, id property.PropertyID) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	GuestID   string
	Quote     pricing.Quote
	Policy    CancellationPolicySnapshot
	CreatedAt time.Time
}

// NewBooking creates a PENDING booking holding an immutable copy of the quote.
func NewBooking(params CreateParams) (*Booking, error) {
	q := params.Quote
	if q.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if err := q.Range.Validate(); err != nil {
		return nil, err
	}
	if len(q.Nights) != q.Range.Nights() {
		return nil, ErrQuoteMismatch
	}
	if q.Total.Amount <= 0 {
		return nil, ErrTotalMustBePositive
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		PropertyID:    q.PropertyID,
		GuestID:       strings.TrimSpace(params.GuestID),
		Range:         q.Range,
		Guests:        q.Guests,
		Quote:         q.Copy(),
		Policy:        params.Policy,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, Range: b.Range, Guests: b.Guests, Total: b.Quote.Total, At: now})
	return b, nil
}

// Occupies reports whether the booking holds its dates on the calendar.
func (b *Booking) Occupies() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

func (b *Booking) Entry() availability.Entry {
	return availability.Entry{Range: b.Range, Kind: availability.KindBooking, Reference: string(b.ID)}
}

func (b *Booking) Total() money.Money {
	return b.Quote.Total
}

// Confirm records a captured payment and moves PENDING to CONFIRMED.
func (b *Booking) Confirm(paymentRef string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	if strings.TrimSpace(paymentRef) == "" {
		return ErrPaymentRefRequired
	}
	b.PaymentRef = paymentRef
	b.PaymentStatus = PaymentCaptured
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Total: b.Quote.Total, PaymentRef: paymentRef, At: b.UpdatedAt})
	return nil
}

// FailPayment cancels a PENDING booking whose payment could not be captured.
func (b *Booking) FailPayment(reason string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.PaymentStatus = PaymentFailed
	b.CancelReason = reason
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaymentFailed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Cancel releases the dates and returns the refund due to the guest and the
// penalty kept. Host and admin cancellations always refund in full.
func (b *Booking) Cancel(by Actor, reason string, now time.Time) (money.Money, money.Money, error) {
	if !b.Occupies() {
		return money.Money{}, money.Money{}, ErrInvalidState
	}
	total := b.Quote.Total
	refund := money.Zero(total.Currency)
	penalty := money.Zero(total.Currency)
	if b.PaymentStatus == PaymentCaptured {
		if by == ActorGuest {
			var err error
			refund, penalty, err = b.Policy.CalculateRefund(total, now, b.Range.CheckIn)
			if err != nil {
				return money.Money{}, money.Money{}, err
			}
		} else {
			refund = total
		}
		if refund.Amount > 0 {
			b.PaymentStatus = PaymentRefunded
		}
	}
	b.Status = StatusCancelled
	b.CancelReason = reason
	b.Refund = refund
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, By: by, Refund: refund, Penalty: penalty, Reason: reason, At: b.UpdatedAt})
	return refund, penalty, nil
}

// Complete marks a CONFIRMED stay as finished once its checkout day has arrived.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if daterange.Day(now).Before(b.Range.CheckOut) {
		return ErrStayNotFinished
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, PropertyID: b.PropertyID, At: b.UpdatedAt})
	return nil
}
