package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/application/dto"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

func TestExportData_FullDocument(t *testing.T) {
	f := newFixture()
	start := timeutil.Today().AddDate(0, 0, -1)
	usr, habits := f.seedUser(t, start, "Read", "Run")
	f.complete(t, habits[0].ID, start)
	f.complete(t, habits[1].ID, timeutil.Today())

	unlock := achievement.NewUnlock(usr.ID, achievement.KeyFirstStep, start)
	unlock.MarkViewed()
	require.NoError(t, f.achievements.Save(context.Background(), unlock))

	h := NewExportDataHandler(f.users, f.habits, f.completions, f.achievements)
	doc, err := h.Handle(context.Background(), ExportDataQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.Equal(t, dto.FormatVersion, doc.Version)
	assert.WithinDuration(t, time.Now(), doc.ExportedAt, time.Minute)
	assert.Equal(t, timeutil.FormatDateStr(start), doc.StartDate)

	require.Len(t, doc.Habits, 2)
	assert.Equal(t, dto.HabitEntry{ID: habits[0].ID, Name: "Read", Position: 1}, doc.Habits[0])

	require.Len(t, doc.Completions, 2)
	assert.Equal(t, habits[0].ID, doc.Completions[0].HabitID)
	assert.Equal(t, 1, doc.Completions[0].HabitPosition)
	assert.Equal(t, timeutil.FormatDateStr(start), doc.Completions[0].Date)
	assert.True(t, doc.Completions[0].Completed)

	require.Len(t, doc.Unlocks, 1)
	assert.Equal(t, "first_step", doc.Unlocks[0].Key)
	assert.True(t, doc.Unlocks[0].Viewed)

	require.NoError(t, doc.Validate(), "every export must be importable")

	// The persisted keys, as written to disk.
	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"id":`)
	assert.Contains(t, string(payload), `"habit_id":`)
}

func TestExportData_NoChallengeOmitsStartDate(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, time.Time{}, "Read")

	h := NewExportDataHandler(f.users, f.habits, f.completions, f.achievements)
	doc, err := h.Handle(context.Background(), ExportDataQuery{UserID: usr.ID})

	require.NoError(t, err)
	assert.Empty(t, doc.StartDate)
	require.Len(t, doc.Habits, 1)
}

func TestGetNewAchievements_OnlyUnviewed(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, timeutil.Today(), "Read")

	fresh := achievement.NewUnlock(usr.ID, achievement.KeyFirstStep, timeutil.Today())
	seen := achievement.NewUnlock(usr.ID, achievement.KeyPerfectDay, timeutil.Today())
	seen.MarkViewed()
	require.NoError(t, f.achievements.Save(context.Background(), fresh))
	require.NoError(t, f.achievements.Save(context.Background(), seen))

	h := NewGetNewAchievementsHandler(f.achievements)
	result, err := h.Handle(context.Background(), GetNewAchievementsQuery{UserID: usr.ID})

	require.NoError(t, err)
	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "first_step", result.Achievements[0].Key)
	assert.Equal(t, "First Step", result.Achievements[0].Name)
	assert.NotEmpty(t, result.Achievements[0].Emoji)
}
