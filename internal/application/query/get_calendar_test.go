package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

func TestGetCalendar_FullGrid(t *testing.T) {
	f := newFixture()
	start := timeutil.Today().AddDate(0, 0, -2)
	usr, habits := f.seedUser(t, start, "Read", "Run")
	f.complete(t, habits[0].ID, start)
	f.complete(t, habits[0].ID, start.AddDate(0, 0, 2))

	h := NewGetCalendarHandler(f.users, f.habits, f.completions)
	cal, err := h.Handle(context.Background(), GetCalendarQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.False(t, cal.Empty)
	assert.Equal(t, timeutil.FormatDateStr(start), cal.StartDate)
	require.Len(t, cal.Days, 21)
	require.Len(t, cal.Habits, 2)
	require.Len(t, cal.Habits[0].Cells, 21)

	assert.True(t, cal.Habits[0].Cells[0])
	assert.False(t, cal.Habits[0].Cells[1])
	assert.True(t, cal.Habits[0].Cells[2])
	for _, cell := range cal.Habits[1].Cells {
		assert.False(t, cell)
	}

	assert.Equal(t, 1, cal.Days[0].DayNumber)
	assert.True(t, cal.Days[2].IsToday)
	assert.False(t, cal.Days[2].IsFuture)
	assert.True(t, cal.Days[3].IsFuture)
}

func TestGetCalendar_FallsBackToEarliestRecord(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, time.Time{}, "Read")
	earliest := timeutil.Today().AddDate(0, 0, -3)
	f.complete(t, habits[0].ID, earliest)

	h := NewGetCalendarHandler(f.users, f.habits, f.completions)
	cal, err := h.Handle(context.Background(), GetCalendarQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.False(t, cal.Empty)
	assert.Equal(t, timeutil.FormatDateStr(earliest), cal.StartDate,
		"without an anchor the window starts at the first record")
}

func TestGetCalendar_EmptyUser(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, time.Time{}, "Read")

	h := NewGetCalendarHandler(f.users, f.habits, f.completions)
	cal, err := h.Handle(context.Background(), GetCalendarQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.True(t, cal.Empty)
	assert.Empty(t, cal.Days)
}
