package window_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/window"
)

func TestMondayOfWeek_Week1WhenJan4IsWednesday(t *testing.T) {
	// 2023-01-04 is a Wednesday.
	require.Equal(t, time.Wednesday, time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC).Weekday())

	monday := window.MondayOfWeek(1, 2023, time.UTC)

	assert.Equal(t, time.Monday, monday.Weekday())
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), monday)
	assert.False(t, monday.After(time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)))
}

func TestMondayOfWeek_RoundTripsThroughISOWeek(t *testing.T) {
	for _, year := range []int{2020, 2021, 2023, 2024, 2026} {
		for week := 1; week <= 52; week++ {
			monday := window.MondayOfWeek(week, year, time.UTC)
			y, w := monday.ISOWeek()
			assert.Equal(t, week, w, "year %d week %d", year, week)
			assert.Equal(t, year, y, "year %d week %d", year, week)
			assert.Equal(t, time.Monday, monday.Weekday())
		}
	}
}

func TestMondayOfWeek_Week53(t *testing.T) {
	// 2020 has 53 ISO weeks.
	monday := window.MondayOfWeek(53, 2020, time.UTC)
	assert.Equal(t, 53, window.ISOWeek(monday))
	assert.Equal(t, time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC), monday)
}

func TestResolve_CurrentWeekIsCappedAtNow(t *testing.T) {
	now := time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC) // Wednesday, week 10

	w, week, err := window.Resolve("", now)
	require.NoError(t, err)

	assert.Equal(t, 10, week)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, now, w.End)
	assert.Contains(t, w.Label, "2025-03-07")
}

func TestResolve_PastWeekEndsFridayEndOfDay(t *testing.T) {
	now := time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)

	for _, spec := range []string{"last", "prev", "9"} {
		w, week, err := window.Resolve(spec, now)
		require.NoError(t, err, spec)

		assert.Equal(t, 9, week, spec)
		assert.Equal(t, time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC), w.Start, spec)
		assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC), w.End, spec)
	}
}

func TestResolve_WeekendAfterFridayUsesFriday(t *testing.T) {
	now := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC) // Saturday

	w, _, err := window.Resolve("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 7, 23, 59, 59, 999999999, time.UTC), w.End)
}

func TestResolve_FutureWeekIsRejected(t *testing.T) {
	now := time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)

	_, _, err := window.Resolve("30", now)
	assert.True(t, errors.Is(err, domain.ErrInvalidWeekNumber))
}

func TestResolve_LastWeekFromWeekOneCrossesYear(t *testing.T) {
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC) // ISO week 1 of 2025

	w, week, err := window.Resolve("last", now)
	require.NoError(t, err)
	assert.Equal(t, 52, week)
	assert.Equal(t, time.Date(2024, 12, 23, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 52, window.ISOWeek(w.Start))
}

func TestResolve_InvalidWeekNumber(t *testing.T) {
	now := time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)

	for _, spec := range []string{"0", "54", "-1", "abc"} {
		_, _, err := window.Resolve(spec, now)
		require.Error(t, err, spec)
		assert.True(t, errors.Is(err, domain.ErrInvalidWeekNumber), spec)
	}
}
