package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
)

var evalTime = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func TestEvaluateFirstCompletions(t *testing.T) {
	e := NewEvaluator()

	snap := Snapshot{
		MaxCurrentStreak: 1,
		MaxLongestStreak: 1,
		TotalCompleted:   1,
		DayNumber:        1,
	}

	fresh := e.Evaluate("u1", snap, nil, evalTime)

	require.Len(t, fresh, 1)
	assert.Equal(t, KeyFirstStep, fresh[0].Key)
	assert.False(t, fresh[0].Viewed)
	assert.False(t, fresh[0].Notified)
	assert.Equal(t, evalTime, fresh[0].UnlockedAt)
}

func TestEvaluateMultipleSimultaneous(t *testing.T) {
	e := NewEvaluator()

	snap := Snapshot{
		MaxCurrentStreak: 7,
		MaxLongestStreak: 7,
		TotalCompleted:   7,
		PerfectDays:      7,
		DayNumber:        7,
	}

	fresh := e.Evaluate("u1", snap, nil, evalTime)

	// Table order: first_step, perfect_day, three_in_a_row, week_streak.
	require.Len(t, fresh, 4)
	assert.Equal(t, KeyFirstStep, fresh[0].Key)
	assert.Equal(t, KeyPerfectDay, fresh[1].Key)
	assert.Equal(t, KeyThreeInARow, fresh[2].Key)
	assert.Equal(t, KeyWeekStreak, fresh[3].Key)
}

func TestEvaluateIdempotent(t *testing.T) {
	e := NewEvaluator()

	snap := Snapshot{
		MaxCurrentStreak: 3,
		MaxLongestStreak: 3,
		TotalCompleted:   3,
		DayNumber:        3,
	}

	first := e.Evaluate("u1", snap, nil, evalTime)
	require.NotEmpty(t, first)

	// Same snapshot with the first round already unlocked: nothing new.
	second := e.Evaluate("u1", snap, UnlockedSet(first), evalTime)
	assert.Empty(t, second)
}

func TestEvaluateFinishGated(t *testing.T) {
	e := NewEvaluator()

	perfect := Snapshot{
		MaxCurrentStreak: 21,
		MaxLongestStreak: 21,
		OverallRate:      100,
		TotalCompleted:   21,
		PerfectDays:      21,
		DayNumber:        21,
	}

	// Day 21 but the window is not finished: finish achievements stay locked.
	fresh := e.Evaluate("u1", perfect, nil, evalTime)
	keys := make(map[Key]bool)
	for _, u := range fresh {
		keys[u.Key] = true
	}
	assert.False(t, keys[KeyChallengeDone])
	assert.False(t, keys[KeyFlawlessFinish])

	perfect.Finished = true
	fresh = e.Evaluate("u1", perfect, nil, evalTime)
	keys = make(map[Key]bool)
	for _, u := range fresh {
		keys[u.Key] = true
	}
	assert.True(t, keys[KeyChallengeDone])
	assert.True(t, keys[KeyFlawlessFinish])
}

func TestFlawlessFinishRequiresExactly100(t *testing.T) {
	e := NewEvaluator()

	snap := Snapshot{
		MaxCurrentStreak: 20,
		MaxLongestStreak: 20,
		OverallRate:      95.2,
		TotalCompleted:   20,
		DayNumber:        21,
		Finished:         true,
	}

	fresh := e.Evaluate("u1", snap, nil, evalTime)
	for _, u := range fresh {
		assert.NotEqual(t, KeyFlawlessFinish, u.Key)
	}
}

func TestSnapshotFrom(t *testing.T) {
	stats := &habit.UserStats{
		UserID: "u1",
		Habits: []habit.HabitStats{
			{HabitID: "h1", CurrentStreak: 2, LongestStreak: 5},
			{HabitID: "h2", CurrentStreak: 4, LongestStreak: 3},
		},
		OverallRate:    shared.NewCompletionRate(9, 10),
		TotalCompleted: 9,
		DayNumber:      5,
	}

	snap := SnapshotFrom(stats, 2, false)

	assert.Equal(t, 4, snap.MaxCurrentStreak)
	assert.Equal(t, 5, snap.MaxLongestStreak)
	assert.Equal(t, 90.0, snap.OverallRate)
	assert.Equal(t, 9, snap.TotalCompleted)
	assert.Equal(t, 2, snap.PerfectDays)
	assert.Equal(t, 5, snap.DayNumber)
	assert.False(t, snap.Finished)
}

func TestGetDefinition(t *testing.T) {
	def, ok := GetDefinition(KeyWeekStreak)
	require.True(t, ok)
	assert.Equal(t, "Week of Fire", def.Name)

	_, ok = GetDefinition(Key("nope"))
	assert.False(t, ok)
}

func TestDefinitionsHaveUniqueKeys(t *testing.T) {
	seen := make(map[Key]bool)
	for _, def := range Definitions() {
		assert.False(t, seen[def.Key], "duplicate key %s", def.Key)
		seen[def.Key] = true
	}
}
