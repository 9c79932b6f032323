package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

func TestGetDay_DefaultsToToday(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, timeutil.Today(), "Read", "Run")
	f.complete(t, habits[0].ID, timeutil.Today())

	h := NewGetDayHandler(f.users, f.habits, f.completions)
	day, err := h.Handle(context.Background(), GetDayQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.Equal(t, timeutil.FormatDateStr(timeutil.Today()), day.Date)
	assert.True(t, day.IsToday)
	assert.True(t, day.InWindow)
	assert.Equal(t, 1, day.DayNumber)
	require.Len(t, day.Habits, 2)
	assert.True(t, day.Habits[0].Completed)
	assert.True(t, day.Habits[0].HasRecord)
	assert.False(t, day.Habits[1].Completed)
	assert.False(t, day.Habits[1].HasRecord)
	assert.False(t, day.AllCompleted)
}

func TestGetDay_NeighborLinksClampToWindow(t *testing.T) {
	f := newFixture()
	start := timeutil.Today().AddDate(0, 0, -5)
	usr, _ := f.seedUser(t, start, "Read")
	h := NewGetDayHandler(f.users, f.habits, f.completions)

	// First window day has no previous link.
	first, err := h.Handle(context.Background(), GetDayQuery{UserID: usr.ID, Date: start})
	require.NoError(t, err)
	assert.Empty(t, first.PrevDate)
	assert.Equal(t, timeutil.FormatDateStr(start.AddDate(0, 0, 1)), first.NextDate)

	// Last window day has no next link.
	last := start.AddDate(0, 0, 20)
	lastDay, err := h.Handle(context.Background(), GetDayQuery{UserID: usr.ID, Date: last})
	require.NoError(t, err)
	assert.Equal(t, 21, lastDay.DayNumber)
	assert.Empty(t, lastDay.NextDate)
	assert.Equal(t, timeutil.FormatDateStr(last.AddDate(0, 0, -1)), lastDay.PrevDate)
}

func TestGetDay_OutsideWindow(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, timeutil.Today(), "Read")
	h := NewGetDayHandler(f.users, f.habits, f.completions)

	day, err := h.Handle(context.Background(), GetDayQuery{
		UserID: usr.ID,
		Date:   timeutil.Today().AddDate(0, 0, -1),
	})

	require.NoError(t, err)
	assert.False(t, day.InWindow)
	assert.Equal(t, 0, day.DayNumber)
	assert.Empty(t, day.PrevDate)
	assert.Empty(t, day.NextDate)
}

func TestGetDay_AllCompleted(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, timeutil.Today(), "Read", "Run")
	for _, hab := range habits {
		f.complete(t, hab.ID, timeutil.Today())
	}

	h := NewGetDayHandler(f.users, f.habits, f.completions)
	day, err := h.Handle(context.Background(), GetDayQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.True(t, day.AllCompleted)
}
