package pricing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

var (
	ErrRuleNotFound      = errors.New("pricing: seasonal rule not found")
	ErrInvalidMultiplier = errors.New("pricing: multiplier must be greater than zero")
	ErrRuleNameRequired  = errors.New("pricing: seasonal rule name is required")
)

type RuleID string

// SeasonalRule multiplies the base nightly rate for every night inside Range.
type SeasonalRule struct {
	ID         RuleID
	PropertyID property.PropertyID
	Name       string
	Range      daterange.DateRange
	Multiplier decimal.Decimal
	CreatedAt  time.Time
}

type RuleRepository interface {
	ListByProperty(ctx context.Context, id property.PropertyID) ([]SeasonalRule, error)
	ByID(ctx context.Context, id RuleID) (SeasonalRule, error)
	Save(ctx context.Context, rule SeasonalRule) error
	Delete(ctx context.Context, id RuleID) error
}

type NewRuleParams struct {
	ID         RuleID
	PropertyID property.PropertyID
	Name       string
	Start      time.Time
	End        time.Time
	Multiplier decimal.Decimal
	Now        time.Time
}

func NewSeasonalRule(params NewRuleParams) (SeasonalRule, error) {
	if strings.TrimSpace(params.Name) == "" {
		return SeasonalRule{}, ErrRuleNameRequired
	}
	if !params.Multiplier.IsPositive() {
		return SeasonalRule{}, ErrInvalidMultiplier
	}
	dr, err := daterange.New(params.Start, params.End)
	if err != nil {
		return SeasonalRule{}, err
	}
	return SeasonalRule{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		Name:       strings.TrimSpace(params.Name),
		Range:      dr,
		Multiplier: params.Multiplier,
		CreatedAt:  params.Now.UTC(),
	}, nil
}

// NightlyRate is the effective price of a single night. RuleID is empty when the base rate applied.
type NightlyRate struct {
	Date   time.Time
	Rate   money.Money
	RuleID RuleID
}

// ResolveNightlyRates prices every night of stay. When several rules cover a night
// the one with the latest start date wins; ties go to the most recently created
// rule and then to the greatest ID, so input order never changes the result.
func ResolveNightlyRates(base money.Money, rules []SeasonalRule, stay daterange.DateRange) ([]NightlyRate, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	ordered := byPrecedence(rules)
	days := stay.Days()
	out := make([]NightlyRate, 0, len(days))
	for _, d := range days {
		night := NightlyRate{Date: d, Rate: base}
		for _, rule := range ordered {
			if rule.Range.ContainsDate(d) {
				night.Rate = base.MulRound(rule.Multiplier)
				night.RuleID = rule.ID
				break
			}
		}
		out = append(out, night)
	}
	return out, nil
}

func byPrecedence(rules []SeasonalRule) []SeasonalRule {
	ordered := make([]SeasonalRule, 0, len(rules))
	for _, r := range rules {
		if r.Multiplier.IsPositive() {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Range.CheckIn.Equal(b.Range.CheckIn) {
			return a.Range.CheckIn.After(b.Range.CheckIn)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return ordered
}
