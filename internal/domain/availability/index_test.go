package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/domain/shared/daterange"
)

func d(m time.Month, day int) time.Time {
	return time.Date(2025, m, day, 0, 0, 0, 0, time.UTC)
}

func span(from, to time.Time) daterange.DateRange {
	return daterange.Must(from, to)
}

func TestMergeRangesCollapsesOverlapsAndAdjacency(t *testing.T) {
	in := []daterange.DateRange{
		span(d(7, 10), d(7, 12)),
		span(d(7, 1), d(7, 3)),
		span(d(7, 3), d(7, 5)),
		span(d(7, 4), d(7, 6)),
		span(d(7, 20), d(7, 21)),
	}
	merged := MergeRanges(in)

	assert.Equal(t, []daterange.DateRange{
		span(d(7, 1), d(7, 6)),
		span(d(7, 10), d(7, 12)),
		span(d(7, 20), d(7, 21)),
	}, merged)
	assert.Equal(t, merged, MergeRanges(merged))
	assert.Equal(t, span(d(7, 10), d(7, 12)), in[0], "input must not be reordered")
}

func TestMergeRangesEmpty(t *testing.T) {
	assert.Empty(t, MergeRanges(nil))
}

func TestBuildIndexSkipsInvalidEntries(t *testing.T) {
	idx := BuildIndex("prop-1", []Entry{
		{Range: span(d(7, 1), d(7, 3)), Kind: KindBooking, Reference: "b-1"},
		{Range: daterange.DateRange{CheckIn: d(7, 5), CheckOut: d(7, 5)}, Kind: KindHostBlock},
	})
	assert.Len(t, idx.Ranges, 1)
}

func TestIndexConflict(t *testing.T) {
	idx := BuildIndex("prop-1", []Entry{
		{Range: span(d(7, 5), d(7, 8)), Kind: KindBooking},
		{Range: span(d(7, 15), d(7, 18)), Kind: KindHostBlock},
	})

	cases := []struct {
		name     string
		request  daterange.DateRange
		conflict bool
	}{
		{"before everything", span(d(7, 1), d(7, 5)), false},
		{"checkout on existing checkin", span(d(7, 3), d(7, 5)), false},
		{"checkin on existing checkout", span(d(7, 8), d(7, 10)), false},
		{"overlaps first", span(d(7, 7), d(7, 9)), true},
		{"contains second", span(d(7, 14), d(7, 20)), true},
		{"inside gap", span(d(7, 9), d(7, 15)), false},
		{"after everything", span(d(7, 18), d(7, 25)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := idx.Conflict(tc.request)
			assert.Equal(t, tc.conflict, ok)
		})
	}
}

func TestIndexWithin(t *testing.T) {
	idx := BuildIndex("prop-1", []Entry{
		{Range: span(d(7, 1), d(7, 3))},
		{Range: span(d(8, 1), d(8, 3))},
	})
	assert.Equal(t, []daterange.DateRange{span(d(8, 1), d(8, 3))}, idx.Within(span(d(7, 20), d(8, 2))).Ranges)
	assert.Len(t, idx.Within(daterange.DateRange{}).Ranges, 2)
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 7, 2, 18, 0, 0, 0, time.UTC)
	idx := BuildIndex("prop-1", []Entry{{Range: span(d(7, 5), d(7, 8)), Kind: KindBooking}})

	decision, err := Check(idx, span(d(7, 2), d(7, 5)), now)
	require.NoError(t, err)
	assert.Equal(t, DecisionAccepted, decision)

	decision, err = Check(idx, span(d(7, 6), d(7, 10)), now)
	assert.Equal(t, DecisionRejected, decision)
	var conflict *DateConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, span(d(7, 5), d(7, 8)), conflict.Conflict)
	assert.ErrorIs(t, err, ErrDateConflict)

	_, err = Check(idx, span(d(7, 1), d(7, 3)), now)
	assert.ErrorIs(t, err, ErrCheckInInPast)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = Check(idx, daterange.DateRange{CheckIn: d(7, 10), CheckOut: d(7, 9)}, now)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestNewBlockRejectsBookingKind(t *testing.T) {
	_, err := NewBlock(NewBlockParams{ID: "blk", PropertyID: "prop-1", Range: span(d(7, 1), d(7, 2)), Kind: KindBooking})
	assert.ErrorIs(t, err, ErrBlockKind)

	b, err := NewBlock(NewBlockParams{ID: "blk", PropertyID: "prop-1", Range: span(d(7, 1), d(7, 2)), Reason: " maintenance "})
	require.NoError(t, err)
	assert.Equal(t, KindHostBlock, b.Kind)
	assert.Equal(t, "maintenance", b.Reason)
	assert.Len(t, b.Drain(), 1)
}
