package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewRejectsEmptyAndReversedRanges(t *testing.T) {
	_, err := New(date(2025, 7, 3), date(2025, 7, 3))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(date(2025, 7, 5), date(2025, 7, 3))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, date(2025, 7, 3))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewTruncatesToUTCDays(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	dr, err := New(time.Date(2025, 7, 1, 15, 30, 0, 0, time.UTC), time.Date(2025, 7, 4, 1, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 7, 1), dr.CheckIn)
	assert.Equal(t, date(2025, 7, 3), dr.CheckOut)
	assert.Equal(t, 2, dr.Nights())
}

func TestHalfOpenSemantics(t *testing.T) {
	first := Must(date(2025, 7, 1), date(2025, 7, 4))
	second := Must(date(2025, 7, 4), date(2025, 7, 6))

	assert.False(t, first.Overlaps(second), "checkout day is free for the next check-in")
	assert.True(t, first.Adjacent(second))
	assert.False(t, first.ContainsDate(date(2025, 7, 4)))
	assert.True(t, first.ContainsDate(date(2025, 7, 3)))

	merged, ok := first.Merge(second)
	require.True(t, ok)
	assert.Equal(t, Must(date(2025, 7, 1), date(2025, 7, 6)), merged)
}

func TestDaysListsEveryNight(t *testing.T) {
	dr := Must(date(2025, 12, 30), date(2026, 1, 2))
	assert.Equal(t, []time.Time{date(2025, 12, 30), date(2025, 12, 31), date(2026, 1, 1)}, dr.Days())
}

func TestMergeDisjointRanges(t *testing.T) {
	_, ok := Must(date(2025, 7, 1), date(2025, 7, 2)).Merge(Must(date(2025, 7, 3), date(2025, 7, 4)))
	assert.False(t, ok)
}
