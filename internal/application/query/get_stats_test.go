package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

func TestGetStats_ZeroRecordsYieldZeroes(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, timeutil.Today(), "Read", "Run")

	h := NewGetStatsHandler(f.users, f.habits, f.completions, nil, 0, nil)
	stats, err := h.Handle(context.Background(), GetStatsQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.DayNumber)
	assert.Equal(t, 0, stats.TotalCompleted)
	assert.Equal(t, 0.0, stats.OverallRate)
	require.Len(t, stats.Habits, 2)
	for _, hs := range stats.Habits {
		assert.Equal(t, 0, hs.CurrentStreak)
		assert.Equal(t, 0, hs.LongestStreak)
		assert.Equal(t, 0.0, hs.CompletionRate)
	}
}

func TestGetStats_StreaksAndRates(t *testing.T) {
	f := newFixture()
	start := timeutil.Today().AddDate(0, 0, -4) // day 5 of the window
	usr, habits := f.seedUser(t, start, "Read")

	// Completed on days 3, 4, 5 (a live 3-day streak).
	for i := 2; i <= 4; i++ {
		f.complete(t, habits[0].ID, start.AddDate(0, 0, i))
	}

	h := NewGetStatsHandler(f.users, f.habits, f.completions, nil, 0, nil)
	stats, err := h.Handle(context.Background(), GetStatsQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.Equal(t, 5, stats.DayNumber)
	require.Len(t, stats.Habits, 1)
	assert.Equal(t, 3, stats.Habits[0].CurrentStreak)
	assert.Equal(t, 3, stats.Habits[0].LongestStreak)
	assert.Equal(t, 3, stats.TotalCompleted)
	assert.InDelta(t, 60.0, stats.OverallRate, 0.01, "3 of 5 elapsed days")
}

func TestGetStats_CachesComputedSnapshot(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, timeutil.Today(), "Read")
	f.complete(t, habits[0].ID, timeutil.Today())

	h := NewGetStatsHandler(f.users, f.habits, f.completions, f.cache, time.Minute, nil)

	first, err := h.Handle(context.Background(), GetStatsQuery{UserID: usr.ID})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := h.Handle(context.Background(), GetStatsQuery{UserID: usr.ID})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.TotalCompleted, second.TotalCompleted)
}

func TestGetStats_UnknownUser(t *testing.T) {
	f := newFixture()
	h := NewGetStatsHandler(f.users, f.habits, f.completions, nil, 0, nil)

	_, err := h.Handle(context.Background(), GetStatsQuery{UserID: "ghost"})
	require.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestGetStats_BestAndWorstHabit(t *testing.T) {
	f := newFixture()
	start := timeutil.Today().AddDate(0, 0, -2)
	usr, habits := f.seedUser(t, start, "Strong", "Weak")

	for i := 0; i <= 2; i++ {
		f.complete(t, habits[0].ID, start.AddDate(0, 0, i))
	}
	f.complete(t, habits[1].ID, start)

	h := NewGetStatsHandler(f.users, f.habits, f.completions, nil, 0, nil)
	stats, err := h.Handle(context.Background(), GetStatsQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.Equal(t, "Strong", stats.BestHabit)
	assert.Equal(t, "Weak", stats.WorstHabit)
}
