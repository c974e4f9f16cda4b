package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

// asDay reads a scanned DATE column as a UTC calendar day.
func asDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type moneyJSON struct {
	Amount   int64  `json:"amount_minor"`
	Currency string `json:"currency"`
}

func toMoneyJSON(m money.Money) moneyJSON {
	return moneyJSON{Amount: m.Amount, Currency: m.Currency}
}

func (m moneyJSON) toMoney() money.Money {
	return money.Money{Amount: m.Amount, Currency: m.Currency}
}

func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("postgres: column %s holds %q: %w", column, s, err)
	}
	return d, nil
}

type quoteNight struct {
	Date   string    `json:"date"`
	Rate   moneyJSON `json:"rate"`
	RuleID string    `json:"rule_id,omitempty"`
}

// quoteJSON is the JSONB shape of a booking's frozen quote.
type quoteJSON struct {
	PropertyID  string       `json:"property_id"`
	CheckIn     string       `json:"check_in"`
	CheckOut    string       `json:"check_out"`
	Guests      int          `json:"guests"`
	Nights      []quoteNight `json:"nights"`
	Subtotal    moneyJSON    `json:"subtotal"`
	CleaningFee moneyJSON    `json:"cleaning_fee"`
	ServiceFee  moneyJSON    `json:"service_fee"`
	Tax         moneyJSON    `json:"tax"`
	Total       moneyJSON    `json:"total"`
	QuotedAt    time.Time    `json:"quoted_at"`
}

func encodeQuote(q domainpricing.Quote) ([]byte, error) {
	nights := make([]quoteNight, 0, len(q.Nights))
	for _, n := range q.Nights {
		nights = append(nights, quoteNight{Date: n.Date.Format(time.DateOnly), Rate: toMoneyJSON(n.Rate), RuleID: string(n.RuleID)})
	}
	return json.Marshal(quoteJSON{
		PropertyID:  string(q.PropertyID),
		CheckIn:     q.Range.CheckIn.Format(time.DateOnly),
		CheckOut:    q.Range.CheckOut.Format(time.DateOnly),
		Guests:      q.Guests,
		Nights:      nights,
		Subtotal:    toMoneyJSON(q.Subtotal),
		CleaningFee: toMoneyJSON(q.CleaningFee),
		ServiceFee:  toMoneyJSON(q.ServiceFee),
		Tax:         toMoneyJSON(q.Tax),
		Total:       toMoneyJSON(q.Total),
		QuotedAt:    q.QuotedAt.UTC(),
	})
}

func decodeQuote(data []byte) (domainpricing.Quote, error) {
	var raw quoteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return domainpricing.Quote{}, err
	}
	nights := make([]domainpricing.NightlyRate, 0, len(raw.Nights))
	for _, n := range raw.Nights {
		date, err := time.Parse(time.DateOnly, n.Date)
		if err != nil {
			return domainpricing.Quote{}, err
		}
		nights = append(nights, domainpricing.NightlyRate{Date: date, Rate: n.Rate.toMoney(), RuleID: domainpricing.RuleID(n.RuleID)})
	}
	checkIn, err := time.Parse(time.DateOnly, raw.CheckIn)
	if err != nil {
		return domainpricing.Quote{}, err
	}
	checkOut, err := time.Parse(time.DateOnly, raw.CheckOut)
	if err != nil {
		return domainpricing.Quote{}, err
	}
	return domainpricing.Quote{
		PropertyID:  domainproperty.PropertyID(raw.PropertyID),
		Range:       daterange.DateRange{CheckIn: checkIn, CheckOut: checkOut},
		Guests:      raw.Guests,
		Nights:      nights,
		Subtotal:    raw.Subtotal.toMoney(),
		CleaningFee: raw.CleaningFee.toMoney(),
		ServiceFee:  raw.ServiceFee.toMoney(),
		Tax:         raw.Tax.toMoney(),
		Total:       raw.Total.toMoney(),
		QuotedAt:    raw.QuotedAt.UTC(),
	}, nil
}
