package properties

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/money"
)

var ErrInvalidDecimal = errors.New("property: rates must be decimal numbers")

// PricingInput is the wire form of property pricing: amounts in major units.
type PricingInput struct {
	Currency       string `json:"currency" validate:"required,len=3"`
	BaseRate       string `json:"base_rate" validate:"required"`
	CleaningFee    string `json:"cleaning_fee"`
	ServiceFeeRate string `json:"service_fee_rate"`
	TaxRate        string `json:"tax_rate"`
	GuestCapacity  int    `json:"guest_capacity" validate:"required"`
}

func (in PricingInput) toDomain() (domainproperty.Pricing, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	base, err := money.ParseMajor(in.BaseRate, currency)
	if err != nil {
		return domainproperty.Pricing{}, err
	}
	cleaning := money.Zero(currency)
	if strings.TrimSpace(in.CleaningFee) != "" {
		if cleaning, err = money.ParseMajor(in.CleaningFee, currency); err != nil {
			return domainproperty.Pricing{}, err
		}
	}
	serviceRate, err := parseRate(in.ServiceFeeRate)
	if err != nil {
		return domainproperty.Pricing{}, err
	}
	taxRate, err := parseRate(in.TaxRate)
	if err != nil {
		return domainproperty.Pricing{}, err
	}
	return domainproperty.Pricing{
		BaseRate:       base,
		CleaningFee:    cleaning,
		ServiceFeeRate: serviceRate,
		TaxRate:        taxRate,
		GuestCapacity:  in.GuestCapacity,
	}, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidDecimal
	}
	return d, nil
}
