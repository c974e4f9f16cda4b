package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentme/internal/domain/shared/events"
	"rentme/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound = errors.New("property: not found")
	ErrGuestCapacity    = errors.New("property: guest capacity must be at least 1")
	ErrBaseRate         = errors.New("property: base rate must be positive")
	ErrCleaningFee      = errors.New("property: cleaning fee must be non-negative")
	ErrFeeRate          = errors.New("property: fee and tax rates must be within [0, 1]")
	ErrTitleRequired    = errors.New("property: title is required")
	ErrHostRequired     = errors.New("property: host is required")
)

type PropertyID string
type HostID string

// Pricing holds the mutable pricing fields of a property.
type Pricing struct {
	BaseRate       money.Money
	CleaningFee    money.Money
	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal
	GuestCapacity  int
}

func (p Pricing) Validate() error {
	if p.GuestCapacity < 1 {
		return ErrGuestCapacity
	}
	if p.BaseRate.Amount <= 0 {
		return ErrBaseRate
	}
	if p.CleaningFee.IsNegative() {
		return ErrCleaningFee
	}
	if p.BaseRate.Currency == "" || p.CleaningFee.Currency != p.BaseRate.Currency {
		return money.ErrCurrencyMismatch
	}
	if !rateInBounds(p.ServiceFeeRate) || !rateInBounds(p.TaxRate) {
		return ErrFeeRate
	}
	return nil
}

func rateInBounds(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(1))
}

type Property struct {
	ID                   PropertyID
	Host                 HostID
	Title                string
	Pricing              Pricing
	CancellationPolicyID string
	CalendarFeedURL      string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, p *Property) error
	ListByHost(ctx context.Context, host HostID) ([]*Property, error)
	// ListWithCalendarFeed returns properties that mirror an external calendar.
	ListWithCalendarFeed(ctx context.Context) ([]*Property, error)
}

type CreateParams struct {
	ID                   PropertyID
	Host                 HostID
	Title                string
	Pricing              Pricing
	CancellationPolicyID string
	CalendarFeedURL      string
	Now                  time.Time
}

func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("property: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if err := params.Pricing.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	p := &Property{
		ID:                   params.ID,
		Host:                 params.Host,
		Title:                strings.TrimSpace(params.Title),
		Pricing:              params.Pricing,
		CancellationPolicyID: strings.TrimSpace(params.CancellationPolicyID),
		CalendarFeedURL:      strings.TrimSpace(params.CalendarFeedURL),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	p.Record(PropertyCreated{PropertyID: p.ID, HostID: p.Host, At: now})
	return p, nil
}

// UpdatePricing replaces pricing fields. Existing bookings keep their own quote snapshots.
func (p *Property) UpdatePricing(pricing Pricing, now time.Time) error {
	if err := pricing.Validate(); err != nil {
		return err
	}
	p.Pricing = pricing
	p.UpdatedAt = now.UTC()
	p.Record(PricingUpdated{PropertyID: p.ID, BaseRate: pricing.BaseRate, At: p.UpdatedAt})
	return nil
}

func (p *Property) SetCalendarFeed(url string, now time.Time) {
	p.CalendarFeedURL = strings.TrimSpace(url)
	p.UpdatedAt = now.UTC()
}

func (p *Property) OwnedBy(host string) bool {
	return string(p.Host) == strings.TrimSpace(host)
}

func (p *Property) Currency() string {
	return p.Pricing.BaseRate.Currency
}
