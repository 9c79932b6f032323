package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, time.UTC, d.Location())

	_, err = ParseDate("15.03.2026")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 3, 4, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestDateRange(t *testing.T) {
	start := time.Date(2026, 2, 26, 12, 30, 0, 0, time.UTC)
	dates := DateRange(start, 21)

	require.Len(t, dates, 21)
	assert.Equal(t, "2026-02-26", FormatDateStr(dates[0]))
	// Crosses the February boundary
	assert.Equal(t, "2026-03-01", FormatDateStr(dates[3]))
	assert.Equal(t, "2026-03-18", FormatDateStr(dates[20]))

	assert.Nil(t, DateRange(start, 0))
}

func TestIsConsecutiveDay(t *testing.T) {
	d1 := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 1, 2, 0, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(d1, d2))
	assert.False(t, IsConsecutiveDay(d2, d1))
	assert.False(t, IsConsecutiveDay(d1, d1))
}

func TestWeekdayIndex(t *testing.T) {
	// 2026-03-16 is a Monday.
	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WeekdayIndex(monday))
	assert.Equal(t, 6, WeekdayIndex(monday.AddDate(0, 0, 6)))
	assert.Equal(t, "Monday", WeekdayName(0))
	assert.Equal(t, "Sunday", WeekdayName(6))
	assert.Equal(t, "", WeekdayName(7))
}
