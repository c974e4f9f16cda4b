package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func beachHouse(t *testing.T) *property.Property {
	t.Helper()
	p, err := property.New(property.CreateParams{
		ID:    "prop-1",
		Host:  "host-1",
		Title: "Beach house",
		Pricing: property.Pricing{
			BaseRate:       money.Must(10000, "USD"),
			CleaningFee:    money.Must(5000, "USD"),
			ServiceFeeRate: decimal.RequireFromString("0.15"),
			TaxRate:        decimal.RequireFromString("0.0625"),
			GuestCapacity:  4,
		},
		Now: now,
	})
	require.NoError(t, err)
	return p
}

func rule(t *testing.T, id string, start, end time.Time, multiplier string, created time.Time) SeasonalRule {
	t.Helper()
	r, err := NewSeasonalRule(NewRuleParams{
		ID:         RuleID(id),
		PropertyID: "prop-1",
		Name:       id,
		Start:      start,
		End:        end,
		Multiplier: decimal.RequireFromString(multiplier),
		Now:        created,
	})
	require.NoError(t, err)
	return r
}

func amounts(nights []NightlyRate) []int64 {
	out := make([]int64, 0, len(nights))
	for _, n := range nights {
		out = append(out, n.Rate.Amount)
	}
	return out
}

func TestQuoteStayWithoutRules(t *testing.T) {
	q, err := QuoteStay(beachHouse(t), nil, daterange.Must(day(7, 1), day(7, 4)), 2, now)
	require.NoError(t, err)

	assert.Equal(t, []int64{10000, 10000, 10000}, amounts(q.Nights))
	assert.Equal(t, "300.00 USD", q.Subtotal.String())
	assert.Equal(t, "50.00 USD", q.CleaningFee.String())
	assert.Equal(t, "45.00 USD", q.ServiceFee.String())
	assert.Equal(t, "24.69 USD", q.Tax.String())
	assert.Equal(t, "419.69 USD", q.Total.String())
	assert.Equal(t, property.PropertyID("prop-1"), q.PropertyID)
	assert.Equal(t, 2, q.Guests)
}

func TestQuoteStayWithOneSeasonalNight(t *testing.T) {
	rules := []SeasonalRule{rule(t, "peak", day(7, 1), day(7, 2), "1.5", now)}

	q, err := QuoteStay(beachHouse(t), rules, daterange.Must(day(7, 1), day(7, 4)), 2, now)
	require.NoError(t, err)

	assert.Equal(t, []int64{15000, 10000, 10000}, amounts(q.Nights))
	assert.Equal(t, RuleID("peak"), q.Nights[0].RuleID)
	assert.Empty(t, q.Nights[1].RuleID)
	assert.Equal(t, "350.00 USD", q.Subtotal.String())
	assert.Equal(t, "52.50 USD", q.ServiceFee.String())
	assert.Equal(t, "28.28 USD", q.Tax.String())
	assert.Equal(t, "480.78 USD", q.Total.String())
}

func TestCapacityIsCheckedBeforeTheStay(t *testing.T) {
	// an invalid range would fail too, capacity must be reported first
	_, err := QuoteStay(beachHouse(t), nil, daterange.DateRange{CheckIn: day(7, 4), CheckOut: day(7, 1)}, 6, now)

	var capErr *CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 6, capErr.Guests)
	assert.Equal(t, 4, capErr.Capacity)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestQuoteStayRejectsInvalidRange(t *testing.T) {
	_, err := QuoteStay(beachHouse(t), nil, daterange.DateRange{CheckIn: day(7, 4), CheckOut: day(7, 4)}, 2, now)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestCalculateIsDeterministic(t *testing.T) {
	p := beachHouse(t)
	p.Pricing.BaseRate = money.Must(13337, "USD")
	p.Pricing.ServiceFeeRate = decimal.RequireFromString("0.1234")
	p.Pricing.TaxRate = decimal.RequireFromString("0.0875")
	rules := []SeasonalRule{rule(t, "odd", day(7, 2), day(7, 5), "1.3333", now)}
	stay := daterange.Must(day(7, 1), day(7, 8))

	first, err := QuoteStay(p, rules, stay, 3, now)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := QuoteStay(p, rules, stay, 3, now)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculateRejectsEmptyStay(t *testing.T) {
	_, err := Calculate(nil, ScheduleFor(beachHouse(t)), 1)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestCheckCapacityRejectsNonPositiveGuests(t *testing.T) {
	assert.ErrorIs(t, ScheduleFor(beachHouse(t)).CheckCapacity(0), ErrInvalidGuests)
	assert.NoError(t, ScheduleFor(beachHouse(t)).CheckCapacity(4))
}
