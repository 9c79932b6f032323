package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
)

func TestSetupHabits_CreatesChallenge(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, time.Time{})
	h := NewSetupHabitsHandler(f.users, f.habits, f.cache, f.bus, nil)

	result, err := h.Handle(context.Background(), SetupHabitsCommand{
		UserID:    usr.ID,
		Names:     []string{"Read", "Run", "Meditate"},
		StartDate: today(),
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Habits, 3)
	assert.Equal(t, 1, result.Habits[0].Position)
	assert.Equal(t, "Read", result.Habits[0].Name)
	assert.Equal(t, today(), result.StartDate)

	stored, err := f.users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasChallenge())

	assert.Len(t, f.bus.OfType(shared.EventChallengeSetup), 1)
}

func TestSetupHabits_ReplacesPreviousChallenge(t *testing.T) {
	f := newFixture()
	usr, oldHabits := f.seedUser(t, today(), "Old habit")

	// A record on the old habit must not survive the re-setup.
	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: oldHabits[0].ID,
	})
	require.NoError(t, err)

	h := NewSetupHabitsHandler(f.users, f.habits, f.cache, f.bus, nil)
	result, err := h.Handle(context.Background(), SetupHabitsCommand{
		UserID: usr.ID,
		Names:  []string{"New habit"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	habits, err := f.habits.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "New habit", habits[0].Name)

	records, err := f.completions.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Empty(t, records, "old completion records are gone")
}

func TestSetupHabits_BlankNamesAreDropped(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, time.Time{})
	h := NewSetupHabitsHandler(f.users, f.habits, f.cache, f.bus, nil)

	result, err := h.Handle(context.Background(), SetupHabitsCommand{
		UserID: usr.ID,
		Names:  []string{"Read", "  ", "", "Run"},
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Habits, 2)
	assert.Equal(t, "Run", result.Habits[1].Name)
	assert.Equal(t, 2, result.Habits[1].Position, "positions stay contiguous after dropping blanks")
}

func TestSetupHabits_RejectsEmptyAndOversizedLists(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, time.Time{})
	h := NewSetupHabitsHandler(f.users, f.habits, f.cache, f.bus, nil)

	_, err := h.Handle(context.Background(), SetupHabitsCommand{
		UserID: usr.ID,
		Names:  []string{" ", ""},
	})
	require.Error(t, err)

	_, err = h.Handle(context.Background(), SetupHabitsCommand{
		UserID: usr.ID,
		Names:  []string{"a", "b", "c", "d", "e", "f", "g"},
	})
	require.Error(t, err)
}

func TestResetChallenge_ReanchorsWindowAndKeepsHabits(t *testing.T) {
	f := newFixture()
	start := today().AddDate(0, 0, -5)
	usr, habits := f.seedUser(t, start, "Read")

	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[0].ID,
	})
	require.NoError(t, err)

	h := NewResetChallengeHandler(f.users, f.completions, f.achievements, f.cache, f.bus, nil)
	result, err := h.Handle(context.Background(), ResetChallengeCommand{UserID: usr.ID})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, today(), result.StartDate)

	remaining, err := f.habits.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "habits survive a reset")

	records, err := f.completions.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Empty(t, records, "completion records do not")

	unlocks, err := f.achievements.GetByUser(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, unlocks, "achievements persist unless explicitly wiped")

	assert.Len(t, f.bus.OfType(shared.EventChallengeReset), 1)
}

func TestResetChallenge_WipeAchievements(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today(), "Read")

	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[0].ID,
	})
	require.NoError(t, err)

	h := NewResetChallengeHandler(f.users, f.completions, f.achievements, f.cache, f.bus, nil)
	_, err = h.Handle(context.Background(), ResetChallengeCommand{UserID: usr.ID, WipeAchievements: true})
	require.NoError(t, err)

	unlocks, err := f.achievements.GetByUser(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocks)
}
