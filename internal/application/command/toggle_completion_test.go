package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
)

func TestToggleCompletion_FirstTouchCreatesCompleted(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read", "Run")

	result, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[0].ID,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Completed)
	assert.Equal(t, today(), result.Date)
	assert.False(t, result.DayCompleted, "second habit is still open")
}

func TestToggleCompletion_TwoTogglesReturnToIncomplete(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read")
	h := f.toggleHandler()
	cmd := ToggleCompletionCommand{UserID: usr.ID, HabitID: habits[0].ID}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, first.Completed)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, second.Completed)

	third, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, third.Completed, "toggle is an involution on the completed flag")
}

func TestToggleCompletion_UnknownHabit(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	result, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: "no-such-habit",
	})

	require.NoError(t, err, "domain-invalid input is a result, not an error")
	assert.False(t, result.Success)
	assert.Equal(t, "habit not found", result.Reason)
}

func TestToggleCompletion_ForeignHabitIsNotRevealed(t *testing.T) {
	f := newFixture()
	owner, habits := f.seedUser(t, today(), "Read")
	intruder, _ := f.seedUser(t, today(), "Run")
	_ = owner

	result, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  intruder.ID,
		HabitID: habits[0].ID,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "habit not found", result.Reason, "foreign habits look exactly like missing ones")
}

func TestToggleCompletion_DateOutsideWindow(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read")

	result, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[0].ID,
		Date:    today().AddDate(0, 0, -1),
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "date outside challenge window", result.Reason)
}

func TestToggleCompletion_ChallengeNotStarted(t *testing.T) {
	f := newFixture()
	orphan, habits := f.seedUser(t, time.Time{}, "Run")

	result, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  orphan.ID,
		HabitID: habits[0].ID,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "challenge not started", result.Reason)
}

func TestToggleCompletion_DayCompleted(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read", "Run")
	h := f.toggleHandler()

	first, err := h.Handle(context.Background(), ToggleCompletionCommand{UserID: usr.ID, HabitID: habits[0].ID})
	require.NoError(t, err)
	assert.False(t, first.DayCompleted)

	second, err := h.Handle(context.Background(), ToggleCompletionCommand{UserID: usr.ID, HabitID: habits[1].ID})
	require.NoError(t, err)
	assert.True(t, second.DayCompleted)

	dayEvents := f.bus.OfType(shared.EventDayCompleted)
	require.Len(t, dayEvents, 1)
}

func TestToggleCompletion_UnlocksFirstStep(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read")

	result, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[0].ID,
	})

	require.NoError(t, err)
	require.True(t, result.Success)

	keys := make([]string, 0, len(result.NewAchievements))
	for _, a := range result.NewAchievements {
		keys = append(keys, a.Key)
	}
	assert.Contains(t, keys, "first_step")
}

func TestToggleCompletion_InvalidatesStatsCache(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read")

	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[0].ID,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Invalidations)
}

func TestToggleCompletion_ValidationFailure(t *testing.T) {
	f := newFixture()

	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id is required")
}
