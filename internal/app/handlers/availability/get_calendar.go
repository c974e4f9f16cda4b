package availability

import (
	"context"
	"time"

	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/queries"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

const getCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	PropertyID string `validate:"required"`
	From       time.Time
	To         time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	var window daterange.DateRange
	if !q.From.IsZero() || !q.To.IsZero() {
		var err error
		if window, err = daterange.New(q.From, q.To); err != nil {
			return dto.Calendar{}, err
		}
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	propertyID := domainproperty.PropertyID(q.PropertyID)
	if _, err := unit.Properties().ByID(execCtx, propertyID); err != nil {
		return dto.Calendar{}, err
	}
	entries, blocks, err := support.CalendarEntries(execCtx, unit, propertyID)
	if err != nil {
		return dto.Calendar{}, err
	}
	idx := domainavailability.BuildIndex(propertyID, entries).Within(window)

	blockByID := make(map[string]*domainavailability.Block, len(blocks))
	for _, b := range blocks {
		blockByID[string(b.ID)] = b
	}
	raw := make([]dto.CalendarEntry, 0, len(entries))
	for _, e := range entries {
		if window.Validate() == nil && !e.Range.Overlaps(window) {
			continue
		}
		if b, ok := blockByID[e.Reference]; ok && e.Kind != domainavailability.KindBooking {
			raw = append(raw, dto.MapBlockEntry(b))
			continue
		}
		raw = append(raw, dto.MapEntry(e))
	}
	return dto.MapCalendar(idx, raw), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
