package dto

import (
	"rentme/internal/domain/availability"
	"rentme/internal/domain/shared/daterange"
)

type CalendarRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type CalendarEntry struct {
	ID        string `json:"id,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Calendar exposes the merged unavailable ranges plus the raw entries behind them.
type Calendar struct {
	PropertyID  string          `json:"property_id"`
	Unavailable []CalendarRange `json:"unavailable"`
	Entries     []CalendarEntry `json:"entries"`
}

func MapRange(r daterange.DateRange) CalendarRange {
	return CalendarRange{From: formatDay(r.CheckIn), To: formatDay(r.CheckOut)}
}

func MapCalendar(idx availability.Index, entries []CalendarEntry) Calendar {
	out := Calendar{
		PropertyID:  string(idx.PropertyID),
		Unavailable: make([]CalendarRange, 0, len(idx.Ranges)),
		Entries:     entries,
	}
	if out.Entries == nil {
		out.Entries = []CalendarEntry{}
	}
	for _, r := range idx.Ranges {
		out.Unavailable = append(out.Unavailable, MapRange(r))
	}
	return out
}

func MapBlockEntry(b *availability.Block) CalendarEntry {
	return CalendarEntry{
		ID:        string(b.ID),
		From:      formatDay(b.Range.CheckIn),
		To:        formatDay(b.Range.CheckOut),
		Kind:      string(b.Kind),
		Reason:    b.Reason,
		Reference: b.Reference,
	}
}

func MapEntry(e availability.Entry) CalendarEntry {
	return CalendarEntry{
		From:      formatDay(e.Range.CheckIn),
		To:        formatDay(e.Range.CheckOut),
		Kind:      string(e.Kind),
		Reference: e.Reference,
	}
}

type BlockResult struct {
	BlockID string `json:"block_id"`
}

type FeedSyncResult struct {
	PropertyID string `json:"property_id"`
	Imported   int    `json:"imported"`
	Removed    int    `json:"removed"`
	Skipped    int    `json:"skipped"`
}
