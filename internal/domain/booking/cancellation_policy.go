package booking

import (
	"strings"
	"time"

	"rentme/internal/domain/shared/money"
)

// Known policy ids. Unknown ids fall back to strict terms.
const (
	PolicyFlexible = "flexible"
	PolicyModerate = "moderate"
	PolicyStrict   = "strict"
)

// CancellationPolicySnapshot freezes the cancellation terms at booking time.
type CancellationPolicySnapshot struct {
	PolicyID                  string
	FreeCancellationUntil     time.Time
	PreCheckInPenaltyPercent  int
	PostCheckInPenaltyPercent int
}

// SnapshotPolicy derives the terms for a policy id and stay start.
func SnapshotPolicy(policyID string, checkIn time.Time) CancellationPolicySnapshot {
	switch strings.ToLower(strings.TrimSpace(policyID)) {
	case PolicyFlexible:
		return CancellationPolicySnapshot{
			PolicyID:                  PolicyFlexible,
			FreeCancellationUntil:     checkIn.Add(-24 * time.Hour),
			PreCheckInPenaltyPercent:  0,
			PostCheckInPenaltyPercent: 50,
		}
	case PolicyModerate:
		return CancellationPolicySnapshot{
			PolicyID:                  PolicyModerate,
			FreeCancellationUntil:     checkIn.AddDate(0, 0, -5),
			PreCheckInPenaltyPercent:  50,
			PostCheckInPenaltyPercent: 100,
		}
	default:
		return CancellationPolicySnapshot{
			PolicyID:                  PolicyStrict,
			FreeCancellationUntil:     checkIn.AddDate(0, 0, -14),
			PreCheckInPenaltyPercent:  50,
			PostCheckInPenaltyPercent: 100,
		}
	}
}

func (c CancellationPolicySnapshot) CalculateRefund(total money.Money, cancelAt, checkIn time.Time) (refund money.Money, penalty money.Money, err error) {
	if cancelAt.IsZero() {
		cancelAt = time.Now().UTC()
	}
	percent := 0
	switch {
	case c.PolicyID == "":
		percent = 0
	case cancelAt.Before(checkIn):
		if c.FreeCancellationUntil.IsZero() || !cancelAt.Before(c.FreeCancellationUntil) {
			percent = clampPercent(c.PreCheckInPenaltyPercent)
		}
	default:
		percent = clampPercent(c.PostCheckInPenaltyPercent)
	}
	penalty = percentOf(total, percent)
	refund, err = total.Sub(penalty)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return refund, penalty, nil
}

func percentOf(total money.Money, percent int) money.Money {
	if percent <= 0 {
		return money.Money{Amount: 0, Currency: total.Currency}
	}
	const percentBase = int64(100)
	amount := total.Amount * int64(percent) / percentBase
	return money.Money{Amount: amount, Currency: total.Currency}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
