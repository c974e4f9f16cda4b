package postgres

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

var quotedAt = time.Date(2025, 6, 1, 9, 30, 15, 0, time.UTC)

func seasonalQuote(t *testing.T) domainpricing.Quote {
	t.Helper()
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID:    "prop-1",
		Host:  "host-1",
		Title: "Harbour flat",
		Pricing: domainproperty.Pricing{
			BaseRate:       money.Must(12345, "EUR"),
			CleaningFee:    money.Must(2500, "EUR"),
			ServiceFeeRate: decimal.RequireFromString("0.15"),
			TaxRate:        decimal.RequireFromString("0.0625"),
			GuestCapacity:  4,
		},
		Now: quotedAt,
	})
	require.NoError(t, err)
	rules := []domainpricing.SeasonalRule{{
		ID:         "rule-peak",
		PropertyID: p.ID,
		Name:       "peak",
		Range:      daterange.Must(time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)),
		Multiplier: decimal.RequireFromString("1.37"),
	}}
	q, err := domainpricing.QuoteStay(p, rules, daterange.Must(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)), 3, quotedAt)
	require.NoError(t, err)
	return q
}

func TestQuoteSurvivesJSONB(t *testing.T) {
	q := seasonalQuote(t)
	raw, err := encodeQuote(q)
	require.NoError(t, err)

	got, err := decodeQuote(raw)
	require.NoError(t, err)

	require.Len(t, got.Nights, 4)
	for i, n := range q.Nights {
		assert.True(t, n.Date.Equal(got.Nights[i].Date), "night %d date", i)
		assert.Equal(t, n.Rate, got.Nights[i].Rate, "night %d rate", i)
		assert.Equal(t, n.RuleID, got.Nights[i].RuleID, "night %d rule", i)
	}
	assert.Equal(t, domainpricing.RuleID(""), got.Nights[0].RuleID)
	assert.Equal(t, domainpricing.RuleID("rule-peak"), got.Nights[1].RuleID)
	for name, pair := range map[string][2]money.Money{
		"subtotal": {q.Subtotal, got.Subtotal},
		"cleaning": {q.CleaningFee, got.CleaningFee},
		"service":  {q.ServiceFee, got.ServiceFee},
		"tax":      {q.Tax, got.Tax},
		"total":    {q.Total, got.Total},
	} {
		assert.Equal(t, pair[0], pair[1], name)
	}
	assert.Equal(t, q.PropertyID, got.PropertyID)
	assert.Equal(t, q.Guests, got.Guests)
	assert.True(t, q.Range.CheckIn.Equal(got.Range.CheckIn))
	assert.True(t, q.Range.CheckOut.Equal(got.Range.CheckOut))
	assert.True(t, q.QuotedAt.Equal(got.QuotedAt))
}

func TestDecodeQuoteRejectsBadDates(t *testing.T) {
	_, err := decodeQuote([]byte(`{"check_in":"07/01/2025","check_out":"2025-07-05","nights":[]}`))
	assert.Error(t, err)
	_, err = decodeQuote([]byte(`{"nights":[{"date":"tomorrow"}]}`))
	assert.Error(t, err)
}

// fixedRow hands fixed column values to Scan.
type fixedRow []any

func (r fixedRow) Scan(dest ...any) error {
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		target.Set(reflect.ValueOf(r[i]).Convert(target.Type()))
	}
	return nil
}

func propertyRow(taxRate string) fixedRow {
	return fixedRow{"prop-1", "host-1", "Harbour flat", int64(12345), int64(2500), "EUR", "0.15", taxRate,
		4, "flexible", "", quotedAt, quotedAt, int64(3)}
}

func TestScanPropertyRejectsCorruptRates(t *testing.T) {
	p, err := scanProperty(propertyRow("0.0625"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.0625").Equal(p.Pricing.TaxRate))
	assert.Equal(t, money.Must(2500, "EUR"), p.Pricing.CleaningFee)

	_, err = scanProperty(propertyRow("six percent"))
	assert.ErrorContains(t, err, "tax_rate")
}

func TestScanRuleRejectsCorruptMultiplier(t *testing.T) {
	day := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	rule, err := scanRule(fixedRow{"rule-1", "prop-1", "peak", day, day.AddDate(0, 0, 2), "1.37", quotedAt})
	require.NoError(t, err)
	assert.Equal(t, "1.37", rule.Multiplier.String())

	_, err = scanRule(fixedRow{"rule-1", "prop-1", "peak", day, day.AddDate(0, 0, 2), "", quotedAt})
	assert.ErrorContains(t, err, "multiplier")
}
