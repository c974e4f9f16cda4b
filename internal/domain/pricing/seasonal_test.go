package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

func TestSingleRuleMultipliesBaseRate(t *testing.T) {
	base := money.Must(12000, "EUR")
	rules := []SeasonalRule{rule(t, "summer", day(7, 1), day(8, 1), "1.25", now)}

	nights, err := ResolveNightlyRates(base, rules, daterange.Must(day(7, 10), day(7, 13)))
	require.NoError(t, err)
	for _, n := range nights {
		assert.Equal(t, int64(15000), n.Rate.Amount)
		assert.Equal(t, RuleID("summer"), n.RuleID)
	}
}

func TestLaterStartWinsRegardlessOfOrder(t *testing.T) {
	base := money.Must(10000, "USD")
	summer := rule(t, "summer", day(7, 1), day(9, 1), "1.2", now)
	festival := rule(t, "festival", day(7, 15), day(7, 20), "2", now.Add(-24*time.Hour))
	stay := daterange.Must(day(7, 14), day(7, 17))

	forward, err := ResolveNightlyRates(base, []SeasonalRule{summer, festival}, stay)
	require.NoError(t, err)
	backward, err := ResolveNightlyRates(base, []SeasonalRule{festival, summer}, stay)
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, []int64{12000, 20000, 20000}, amounts(forward))
	assert.Equal(t, RuleID("festival"), forward[1].RuleID)
}

func TestSameStartTieBreaksOnCreationThenID(t *testing.T) {
	base := money.Must(10000, "USD")
	older := rule(t, "a-older", day(7, 1), day(7, 10), "1.1", now)
	newer := rule(t, "b-newer", day(7, 1), day(7, 10), "1.4", now.Add(24*time.Hour))
	stay := daterange.Must(day(7, 2), day(7, 3))

	nights, err := ResolveNightlyRates(base, []SeasonalRule{newer, older}, stay)
	require.NoError(t, err)
	assert.Equal(t, RuleID("b-newer"), nights[0].RuleID)

	twinA := rule(t, "twin-a", day(7, 1), day(7, 10), "1.1", now)
	twinB := rule(t, "twin-b", day(7, 1), day(7, 10), "1.3", now)
	for _, order := range [][]SeasonalRule{{twinA, twinB}, {twinB, twinA}} {
		nights, err := ResolveNightlyRates(base, order, stay)
		require.NoError(t, err)
		assert.Equal(t, RuleID("twin-b"), nights[0].RuleID)
		assert.Equal(t, int64(13000), nights[0].Rate.Amount)
	}
}

func TestRuleEndIsExclusive(t *testing.T) {
	rules := []SeasonalRule{rule(t, "weekend", day(7, 5), day(7, 7), "2", now)}
	nights, err := ResolveNightlyRates(money.Must(10000, "USD"), rules, daterange.Must(day(7, 5), day(7, 8)))
	require.NoError(t, err)
	assert.Equal(t, []int64{20000, 20000, 10000}, amounts(nights))
}

func TestNewSeasonalRuleValidation(t *testing.T) {
	_, err := NewSeasonalRule(NewRuleParams{Name: "x", Start: day(7, 1), End: day(7, 2), Multiplier: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidMultiplier)

	_, err = NewSeasonalRule(NewRuleParams{Name: " ", Start: day(7, 1), End: day(7, 2), Multiplier: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrRuleNameRequired)

	_, err = NewSeasonalRule(NewRuleParams{Name: "x", Start: day(7, 2), End: day(7, 2), Multiplier: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}
