package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"rentme/internal/app/policies"
)

// Sandbox is an in-process processor used when no payments URL is configured.
// Charges above DeclineAboveMinor are declined.
type Sandbox struct {
	DeclineAboveMinor int64

	mu       sync.Mutex
	captured map[string]int64
}

func NewSandbox(declineAboveMinor int64) *Sandbox {
	return &Sandbox{DeclineAboveMinor: declineAboveMinor, captured: make(map[string]int64)}
}

func (s *Sandbox) Capture(ctx context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	if s.declines(req) {
		return policies.PaymentResult{}, policies.ErrPaymentDeclined
	}
	s.mu.Lock()
	s.captured[req.BookingID] += req.AmountMinor
	s.mu.Unlock()
	return policies.PaymentResult{Reference: "pay_" + uuid.NewString(), Status: "captured"}, nil
}

func (s *Sandbox) Refund(ctx context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	s.mu.Lock()
	s.captured[req.BookingID] -= req.AmountMinor
	s.mu.Unlock()
	return policies.PaymentResult{Reference: "ref_" + uuid.NewString(), Status: "refunded"}, nil
}

// Captured returns the net amount held for a booking.
func (s *Sandbox) Captured(bookingID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured[bookingID]
}

func (s *Sandbox) declines(req policies.PaymentRequest) bool {
	return s.DeclineAboveMinor > 0 && req.AmountMinor > s.DeclineAboveMinor
}

var _ policies.PaymentsPort = (*Sandbox)(nil)
