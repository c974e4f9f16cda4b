package policies

import (
	"context"
	"errors"
)

var ErrPaymentDeclined = errors.New("payments: declined")

// PaymentRequest carries amounts in minor units so the processor never sees
// floating point values.
type PaymentRequest struct {
	BookingID   string `json:"booking_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference,omitempty"`
}

type PaymentResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type PaymentsPort interface {
	Capture(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	Refund(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}
