package dto

import (
	"time"

	domainbooking "rentme/internal/domain/booking"
	domainproperty "rentme/internal/domain/property"
)

type BookingPropertySnapshot struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Booking struct {
	ID            string                  `json:"id"`
	Property      BookingPropertySnapshot `json:"property"`
	GuestID       string                  `json:"guest_id"`
	CheckIn       string                  `json:"check_in"`
	CheckOut      string                  `json:"check_out"`
	Guests        int                     `json:"guests"`
	Status        string                  `json:"status"`
	PaymentStatus string                  `json:"payment_status"`
	PaymentRef    string                  `json:"payment_ref,omitempty"`
	Quote         Quote                   `json:"quote"`
	Policy        string                  `json:"cancellation_policy"`
	CancelReason  string                  `json:"cancel_reason,omitempty"`
	Refund        *MoneyDTO               `json:"refund,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

type BookingSummary struct {
	ID       string                  `json:"id"`
	Property BookingPropertySnapshot `json:"property"`
	GuestID  string                  `json:"guest_id,omitempty"`
	CheckIn  string                  `json:"check_in"`
	CheckOut string                  `json:"check_out"`
	Guests   int                     `json:"guests"`
	Status   string                  `json:"status"`
	Total    MoneyDTO                `json:"total"`
	Created  time.Time               `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

func snapshotOf(b *domainbooking.Booking, p *domainproperty.Property) BookingPropertySnapshot {
	snap := BookingPropertySnapshot{ID: string(b.PropertyID)}
	if p != nil {
		snap.Title = p.Title
	}
	return snap
}

func MapBooking(b *domainbooking.Booking, p *domainproperty.Property) Booking {
	out := Booking{
		ID:            string(b.ID),
		Property:      snapshotOf(b, p),
		GuestID:       b.GuestID,
		CheckIn:       formatDay(b.Range.CheckIn),
		CheckOut:      formatDay(b.Range.CheckOut),
		Guests:        b.Guests,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PaymentRef:    b.PaymentRef,
		Quote:         MapQuote(b.Quote),
		Policy:        b.Policy.PolicyID,
		CancelReason:  b.CancelReason,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.Status == domainbooking.StatusCancelled && b.Refund.Currency != "" {
		refund := MapMoney(b.Refund)
		out.Refund = &refund
	}
	return out
}

func MapBookingSummary(b *domainbooking.Booking, p *domainproperty.Property) BookingSummary {
	return BookingSummary{
		ID:       string(b.ID),
		Property: snapshotOf(b, p),
		GuestID:  b.GuestID,
		CheckIn:  formatDay(b.Range.CheckIn),
		CheckOut: formatDay(b.Range.CheckOut),
		Guests:   b.Guests,
		Status:   string(b.Status),
		Total:    MapMoney(b.Total()),
		Created:  b.CreatedAt,
	}
}

// BookingStatusResult is returned by booking state transitions.
type BookingStatusResult struct {
	BookingID     string    `json:"booking_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Refund        *MoneyDTO `json:"refund,omitempty"`
	Penalty       *MoneyDTO `json:"penalty,omitempty"`
}
