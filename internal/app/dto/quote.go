package dto

import (
	"time"

	"rentme/internal/domain/pricing"
	"rentme/internal/domain/shared/daterange"
)

type NightlyRate struct {
	Date   string   `json:"date"`
	Rate   MoneyDTO `json:"rate"`
	RuleID string   `json:"rule_id,omitempty"`
}

// Quote is the BookingQuote shape shown before payment and stored with a booking.
type Quote struct {
	PropertyID  string        `json:"property_id"`
	CheckIn     string        `json:"check_in"`
	CheckOut    string        `json:"check_out"`
	Guests      int           `json:"guests"`
	Nights      []NightlyRate `json:"nights"`
	Subtotal    MoneyDTO      `json:"subtotal"`
	CleaningFee MoneyDTO      `json:"cleaning_fee"`
	ServiceFee  MoneyDTO      `json:"service_fee"`
	Tax         MoneyDTO      `json:"tax"`
	Total       MoneyDTO      `json:"total"`
	Currency    string        `json:"currency"`
	QuotedAt    time.Time     `json:"quoted_at"`
}

func MapQuote(q pricing.Quote) Quote {
	nights := make([]NightlyRate, 0, len(q.Nights))
	for _, n := range q.Nights {
		nights = append(nights, NightlyRate{
			Date:   n.Date.Format(time.DateOnly),
			Rate:   MapMoney(n.Rate),
			RuleID: string(n.RuleID),
		})
	}
	return Quote{
		PropertyID:  string(q.PropertyID),
		CheckIn:     formatDay(q.Range.CheckIn),
		CheckOut:    formatDay(q.Range.CheckOut),
		Guests:      q.Guests,
		Nights:      nights,
		Subtotal:    MapMoney(q.Subtotal),
		CleaningFee: MapMoney(q.CleaningFee),
		ServiceFee:  MapMoney(q.ServiceFee),
		Tax:         MapMoney(q.Tax),
		Total:       MapMoney(q.Total),
		Currency:    q.Currency(),
		QuotedAt:    q.QuotedAt,
	}
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return daterange.Day(t).Format(time.DateOnly)
}
