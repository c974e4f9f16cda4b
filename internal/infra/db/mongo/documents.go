package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	domainrange "rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newRangeDocument(r domainrange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: r.CheckIn.UnixMilli(), CheckOut: r.CheckOut.UnixMilli()}
}

func (d rangeDocument) toRange() domainrange.DateRange {
	return domainrange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// decimals are stored as strings so rates survive a round trip exactly.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("mongo: field %s holds %q: %w", field, s, err)
	}
	return d, nil
}

type nightDocument struct {
	Date   int64         `bson:"date"`
	Rate   moneyDocument `bson:"rate"`
	RuleID string        `bson:"rule_id,omitempty"`
}

type quoteDocument struct {
	PropertyID  string          `bson:"property_id"`
	Range       rangeDocument   `bson:"range"`
	Guests      int             `bson:"guests"`
	Nights      []nightDocument `bson:"nights"`
	Subtotal    moneyDocument   `bson:"subtotal"`
	CleaningFee moneyDocument   `bson:"cleaning_fee"`
	ServiceFee  moneyDocument   `bson:"service_fee"`
	Tax         moneyDocument   `bson:"tax"`
	Total       moneyDocument   `bson:"total"`
	QuotedAt    int64           `bson:"quoted_at"`
}

func newQuoteDocument(q domainpricing.Quote) quoteDocument {
	nights := make([]nightDocument, 0, len(q.Nights))
	for _, n := range q.Nights {
		nights = append(nights, nightDocument{Date: n.Date.UnixMilli(), Rate: newMoneyDocument(n.Rate), RuleID: string(n.RuleID)})
	}
	return quoteDocument{
		PropertyID:  string(q.PropertyID),
		Range:       newRangeDocument(q.Range),
		Guests:      q.Guests,
		Nights:      nights,
		Subtotal:    newMoneyDocument(q.Subtotal),
		CleaningFee: newMoneyDocument(q.CleaningFee),
		ServiceFee:  newMoneyDocument(q.ServiceFee),
		Tax:         newMoneyDocument(q.Tax),
		Total:       newMoneyDocument(q.Total),
		QuotedAt:    q.QuotedAt.UnixMilli(),
	}
}

func (d quoteDocument) toQuote() domainpricing.Quote {
	nights := make([]domainpricing.NightlyRate, 0, len(d.Nights))
	for _, n := range d.Nights {
		nights = append(nights, domainpricing.NightlyRate{Date: timestampToTime(n.Date), Rate: n.Rate.toMoney(), RuleID: domainpricing.RuleID(n.RuleID)})
	}
	return domainpricing.Quote{
		PropertyID:  domainproperty.PropertyID(d.PropertyID),
		Range:       d.Range.toRange(),
		Guests:      d.Guests,
		Nights:      nights,
		Subtotal:    d.Subtotal.toMoney(),
		CleaningFee: d.CleaningFee.toMoney(),
		ServiceFee:  d.ServiceFee.toMoney(),
		Tax:         d.Tax.toMoney(),
		Total:       d.Total.toMoney(),
		QuotedAt:    timestampToTime(d.QuotedAt),
	}
}
