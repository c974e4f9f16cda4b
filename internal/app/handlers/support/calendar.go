package support

import (
	"context"

	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainproperty "rentme/internal/domain/property"
)

// CalendarEntries collects the raw occupancy of a property: PENDING and
// CONFIRMED bookings followed by every stored block.
func CalendarEntries(ctx context.Context, unit uow.UnitOfWork, id domainproperty.PropertyID) ([]domainavailability.Entry, []*domainavailability.Block, error) {
	bookings, err := unit.Bookings().ListOccupying(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := unit.Blocks().ListByProperty(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]domainavailability.Entry, 0, len(bookings)+len(blocks))
	for _, b := range bookings {
		if !b.Occupies() {
			continue
		}
		entries = append(entries, b.Entry())
	}
	for _, b := range blocks {
		entries = append(entries, b.Entry())
	}
	return entries, blocks, nil
}

// LoadIndex builds a fresh Calendar Index inside unit. keep filters entries;
// nil keeps all of them.
func LoadIndex(ctx context.Context, unit uow.UnitOfWork, id domainproperty.PropertyID, keep func(domainavailability.Entry) bool) (domainavailability.Index, error) {
	entries, _, err := CalendarEntries(ctx, unit, id)
	if err != nil {
		return domainavailability.Index{}, err
	}
	if keep != nil {
		filtered := entries[:0]
		for _, e := range entries {
			if keep(e) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return domainavailability.BuildIndex(id, entries), nil
}
