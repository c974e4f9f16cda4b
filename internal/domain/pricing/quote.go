package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

var (
	ErrCapacityExceeded = errors.New("pricing: guest count exceeds property capacity")
	ErrInvalidGuests    = errors.New("pricing: guests count must be positive")
	ErrCurrencyUnset    = errors.New("pricing: currency must be defined")
)

// CapacityExceededError is returned when more guests are requested than the property sleeps.
type CapacityExceededError struct {
	Guests   int
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("pricing: %d guests requested, property sleeps %d", e.Guests, e.Capacity)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// FeeSchedule is the immutable per-property configuration the calculator works from.
type FeeSchedule struct {
	Currency       string
	CleaningFee    money.Money
	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal
	GuestCapacity  int
}

// ScheduleFor snapshots the pricing fields of a property.
func ScheduleFor(p *property.Property) FeeSchedule {
	return FeeSchedule{
		Currency:       p.Currency(),
		CleaningFee:    p.Pricing.CleaningFee,
		ServiceFeeRate: p.Pricing.ServiceFeeRate,
		TaxRate:        p.Pricing.TaxRate,
		GuestCapacity:  p.Pricing.GuestCapacity,
	}
}

// CheckCapacity fails with *CapacityExceededError when guests exceed capacity.
func (s FeeSchedule) CheckCapacity(guests int) error {
	if guests < 1 {
		return ErrInvalidGuests
	}
	if guests > s.GuestCapacity {
		return &CapacityExceededError{Guests: guests, Capacity: s.GuestCapacity}
	}
	return nil
}

// Quote is the price breakdown for a property, stay and guest count.
type Quote struct {
	PropertyID  property.PropertyID
	Range       daterange.DateRange
	Guests      int
	Nights      []NightlyRate
	Subtotal    money.Money
	CleaningFee money.Money
	ServiceFee  money.Money
	Tax         money.Money
	Total       money.Money
	QuotedAt    time.Time
}

func (q Quote) Currency() string {
	return q.Total.Currency
}

// Copy detaches the nightly slice so snapshots never alias.
func (q Quote) Copy() Quote {
	clone := q
	clone.Nights = append([]NightlyRate(nil), q.Nights...)
	return clone
}

// Calculate reduces nightly rates to a price breakdown.
//
// Tax applies to subtotal + cleaning fee + service fee. Every derived field is
// rounded half-to-even to cents on its own, so identical inputs always yield
// identical amounts.
func Calculate(nights []NightlyRate, schedule FeeSchedule, guests int) (Quote, error) {
	if err := schedule.CheckCapacity(guests); err != nil {
		return Quote{}, err
	}
	if len(nights) == 0 {
		return Quote{}, daterange.ErrInvalidRange
	}
	if schedule.Currency == "" {
		return Quote{}, ErrCurrencyUnset
	}
	subtotal := money.Zero(schedule.Currency)
	for _, n := range nights {
		next, err := subtotal.Add(n.Rate)
		if err != nil {
			return Quote{}, err
		}
		subtotal = next
	}
	cleaning := schedule.CleaningFee
	if cleaning.Currency == "" {
		cleaning = money.Zero(schedule.Currency)
	}
	serviceFee := subtotal.MulRound(schedule.ServiceFeeRate)
	taxable, err := money.Sum(schedule.Currency, subtotal, cleaning, serviceFee)
	if err != nil {
		return Quote{}, err
	}
	tax := taxable.MulRound(schedule.TaxRate)
	total, err := taxable.Add(tax)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Guests:      guests,
		Nights:      append([]NightlyRate(nil), nights...),
		Subtotal:    subtotal,
		CleaningFee: cleaning,
		ServiceFee:  serviceFee,
		Tax:         tax,
		Total:       total,
	}, nil
}

// QuoteStay runs the resolver and the calculator for one property.
// Capacity is checked before the stay is priced.
func QuoteStay(p *property.Property, rules []SeasonalRule, stay daterange.DateRange, guests int, now time.Time) (Quote, error) {
	schedule := ScheduleFor(p)
	if err := schedule.CheckCapacity(guests); err != nil {
		return Quote{}, err
	}
	nights, err := ResolveNightlyRates(p.Pricing.BaseRate, rules, stay)
	if err != nil {
		return Quote{}, err
	}
	q, err := Calculate(nights, schedule, guests)
	if err != nil {
		return Quote{}, err
	}
	q.PropertyID = p.ID
	q.Range = stay
	q.QuotedAt = now.UTC()
	return q, nil
}
