package availability

import (
	"sort"

	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

type EntryKind string

const (
	KindBooking      EntryKind = "BOOKING"
	KindHostBlock    EntryKind = "HOST_BLOCK"
	KindAdminBlock   EntryKind = "ADMIN_BLOCK"
	KindExternalSync EntryKind = "EXTERNAL_SYNC"
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindBooking, KindHostBlock, KindAdminBlock, KindExternalSync:
		return true
	}
	return false
}

// Entry is one raw occupied range before merging.
type Entry struct {
	Range     daterange.DateRange
	Kind      EntryKind
	Reference string
}

// Index is the merged, start-ordered set of unavailable ranges of a property.
// Overlapping and adjacent ranges are collapsed into maximal blocks.
type Index struct {
	PropertyID property.PropertyID
	Ranges     []daterange.DateRange
}

// BuildIndex merges entries into an Index. It never mutates its input.
func BuildIndex(id property.PropertyID, entries []Entry) Index {
	ranges := make([]daterange.DateRange, 0, len(entries))
	for _, e := range entries {
		if e.Range.Validate() != nil {
			continue
		}
		ranges = append(ranges, e.Range)
	}
	return Index{PropertyID: id, Ranges: MergeRanges(ranges)}
}

// MergeRanges sorts and collapses ranges. Merging an already merged slice
// returns an equal slice.
func MergeRanges(in []daterange.DateRange) []daterange.DateRange {
	if len(in) == 0 {
		return []daterange.DateRange{}
	}
	sorted := append([]daterange.DateRange(nil), in...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CheckIn.Equal(sorted[j].CheckIn) {
			return sorted[i].CheckOut.Before(sorted[j].CheckOut)
		}
		return sorted[i].CheckIn.Before(sorted[j].CheckIn)
	})
	out := make([]daterange.DateRange, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if merged, ok := current.Merge(next); ok {
			current = merged
			continue
		}
		out = append(out, current)
		current = next
	}
	return append(out, current)
}

// Conflict returns the merged range overlapping r, if any.
func (idx Index) Conflict(r daterange.DateRange) (daterange.DateRange, bool) {
	// first range whose end is after r's start; ranges are disjoint and sorted,
	// so ends are sorted too.
	i := sort.Search(len(idx.Ranges), func(i int) bool {
		return idx.Ranges[i].CheckOut.After(r.CheckIn)
	})
	if i < len(idx.Ranges) && idx.Ranges[i].Overlaps(r) {
		return idx.Ranges[i], true
	}
	return daterange.DateRange{}, false
}

// Within clips the index to the ranges touching window. A zero window returns everything.
func (idx Index) Within(window daterange.DateRange) Index {
	if window.Validate() != nil {
		return idx
	}
	out := Index{PropertyID: idx.PropertyID, Ranges: make([]daterange.DateRange, 0)}
	for _, r := range idx.Ranges {
		if r.Overlaps(window) {
			out.Ranges = append(out.Ranges, r)
		}
	}
	return out
}
