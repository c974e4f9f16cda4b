package dto

import (
	"time"

	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

type Property struct {
	ID                 string    `json:"id"`
	HostID             string    `json:"host_id"`
	Title              string    `json:"title"`
	Currency           string    `json:"currency"`
	BaseRate           MoneyDTO  `json:"base_rate"`
	CleaningFee        MoneyDTO  `json:"cleaning_fee"`
	ServiceFeeRate     string    `json:"service_fee_rate"`
	TaxRate            string    `json:"tax_rate"`
	GuestCapacity      int       `json:"guest_capacity"`
	CancellationPolicy string    `json:"cancellation_policy"`
	CalendarFeedURL    string    `json:"calendar_feed_url,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func MapProperty(p *domainproperty.Property) Property {
	return Property{
		ID:                 string(p.ID),
		HostID:             string(p.Host),
		Title:              p.Title,
		Currency:           p.Currency(),
		BaseRate:           MapMoney(p.Pricing.BaseRate),
		CleaningFee:        MapMoney(p.Pricing.CleaningFee),
		ServiceFeeRate:     p.Pricing.ServiceFeeRate.String(),
		TaxRate:            p.Pricing.TaxRate.String(),
		GuestCapacity:      p.Pricing.GuestCapacity,
		CancellationPolicy: p.CancellationPolicyID,
		CalendarFeedURL:    p.CalendarFeedURL,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

type SeasonalRule struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Name       string    `json:"name"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Multiplier string    `json:"multiplier"`
	CreatedAt  time.Time `json:"created_at"`
}

func MapSeasonalRule(r domainpricing.SeasonalRule) SeasonalRule {
	return SeasonalRule{
		ID:         string(r.ID),
		PropertyID: string(r.PropertyID),
		Name:       r.Name,
		Start:      formatDay(r.Range.CheckIn),
		End:        formatDay(r.Range.CheckOut),
		Multiplier: r.Multiplier.String(),
		CreatedAt:  r.CreatedAt,
	}
}

type SeasonalRuleCollection struct {
	Items []SeasonalRule `json:"items"`
}

type HostEarnings struct {
	HostID    string   `json:"host_id"`
	Currency  string   `json:"currency"`
	Confirmed MoneyDTO `json:"confirmed"`
	Completed MoneyDTO `json:"completed"`
	Total     MoneyDTO `json:"total"`
	Bookings  int      `json:"bookings"`
}
