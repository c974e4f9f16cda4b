package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMajor(t *testing.T) {
	m, err := ParseMajor("100.00", "usd")
	require.NoError(t, err)
	assert.Equal(t, Money{Amount: 10000, Currency: "USD"}, m)

	_, err = ParseMajor("ten", "USD")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseMajor("1", "US")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestMulRoundUsesHalfEven(t *testing.T) {
	cases := []struct {
		amount int64
		factor string
		want   int64
	}{
		{39500, "0.0625", 2469}, // 24.6875
		{45250, "0.0625", 2828}, // 28.28125
		{10, "0.25", 2},         // 0.025
		{30, "0.25", 8},         // 0.075
		{30000, "0.15", 4500},   // 45.00
		{10000, "1.5", 15000},   // 150.00
	}
	for _, tc := range cases {
		got := Must(tc.amount, "USD").MulRound(decimal.RequireFromString(tc.factor))
		assert.Equal(t, tc.want, got.Amount, "%d * %s", tc.amount, tc.factor)
	}
}

func TestArithmeticRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must(100, "USD").Add(Must(100, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Sum("USD", Must(100, "USD"), Must(1, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestSum(t *testing.T) {
	total, err := Sum("USD", Must(30000, "USD"), Must(5000, "USD"), Must(4500, "USD"))
	require.NoError(t, err)
	assert.Equal(t, "395.00 USD", total.String())

	empty, err := Sum("usd")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
