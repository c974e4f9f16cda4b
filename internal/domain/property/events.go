package property

import (
	"time"

	"rentme/internal/domain/shared/money"
)

type PropertyCreated struct {
	PropertyID PropertyID
	HostID     HostID
	At         time.Time
}

func (e PropertyCreated) EventName() string     { return "property.created" }
func (e PropertyCreated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyCreated) OccurredAt() time.Time { return e.At }

type PricingUpdated struct {
	PropertyID PropertyID
	BaseRate   money.Money
	At         time.Time
}

func (e PricingUpdated) EventName() string     { return "property.pricing_updated" }
func (e PricingUpdated) AggregateID() string   { return string(e.PropertyID) }
func (e PricingUpdated) OccurredAt() time.Time { return e.At }
