package pricing

import (
	"context"
	"log/slog"
	"time"

	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/queries"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

const getQuoteKey = "pricing.quote"

type GetQuoteQuery struct {
	PropertyID string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required"`
	Guests     int
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

// GetQuoteHandler prices a stay for display before payment. It runs the same
// capacity, availability and pricing checks as a booking request but never writes.
type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	stay, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	propertyID := domainproperty.PropertyID(q.PropertyID)
	p, err := unit.Properties().ByID(execCtx, propertyID)
	if err != nil {
		return dto.Quote{}, err
	}
	if err := domainpricing.ScheduleFor(p).CheckCapacity(q.Guests); err != nil {
		return dto.Quote{}, err
	}

	now := h.Clock.Now()
	idx, err := support.LoadIndex(execCtx, unit, propertyID, nil)
	if err != nil {
		return dto.Quote{}, err
	}
	if _, err := domainavailability.Check(idx, stay, now); err != nil {
		return dto.Quote{}, err
	}

	rules, err := unit.SeasonalRules().ListByProperty(execCtx, propertyID)
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := domainpricing.QuoteStay(p, rules, stay, q.Guests, now)
	if err != nil {
		return dto.Quote{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("quote computed", "property_id", propertyID, "range", stay.String(), "total", quote.Total.String())
	}
	return dto.MapQuote(quote), nil
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
