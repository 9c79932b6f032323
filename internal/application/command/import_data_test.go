package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/application/dto"
	"github.com/habit-hub/habit-tracker-hub/internal/application/query"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

func (f *fixture) importHandler() *ImportDataHandler {
	return NewImportDataHandler(f.users, f.uowFactory, f.cache, f.bus, nil)
}

func marshalDoc(t *testing.T, doc dto.Document) []byte {
	t.Helper()
	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	return payload
}

func TestImportData_RejectsMalformedJSON(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: []byte("{not json"),
	})

	require.NoError(t, err, "bad input is a rejection, not an internal error")
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "malformed JSON")

	habits, err := f.habits.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Len(t, habits, 1, "nothing was written")
}

func TestImportData_RejectsUnknownVersion(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	payload := marshalDoc(t, dto.Document{
		Version: 99,
		Habits:  []dto.HabitEntry{{Name: "Read", Position: 1}},
	})

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "unknown document version")
}

func TestImportData_RejectsCompletionWithoutHabit(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	payload := marshalDoc(t, dto.Document{
		Version: dto.FormatVersion,
		Habits:  []dto.HabitEntry{{Name: "Read", Position: 1}},
		Completions: []dto.CompletionEntry{
			{HabitPosition: 3, Date: timeutil.FormatDateStr(today()), Completed: true},
		},
	})

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "no habit at position 3")
}

func TestImportData_ReplacesState(t *testing.T) {
	f := newFixture()
	usr, oldHabits := f.seedUser(t, today().AddDate(0, 0, -10), "Old")

	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: oldHabits[0].ID,
	})
	require.NoError(t, err)

	start := today().AddDate(0, 0, -3)
	payload := marshalDoc(t, dto.Document{
		Version:   dto.FormatVersion,
		StartDate: timeutil.FormatDateStr(start),
		Habits: []dto.HabitEntry{
			{Name: "Read", Position: 1},
			{Name: "Run", Position: 2},
		},
		Completions: []dto.CompletionEntry{
			{HabitPosition: 1, Date: timeutil.FormatDateStr(start), Completed: true},
			{HabitPosition: 2, Date: timeutil.FormatDateStr(start.AddDate(0, 0, 1)), Completed: true},
		},
		Unlocks: []dto.UnlockEntry{
			{Key: "first_step", UnlockedAt: start, Viewed: true},
		},
	})

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.HabitCount)
	assert.Equal(t, 2, result.RecordCount)
	assert.Equal(t, 1, result.UnlockCount)
	require.NotNil(t, f.uowFactory.Last)
	assert.True(t, f.uowFactory.Last.Committed)

	habits, err := f.habits.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, "Read", habits[0].Name)

	stored, err := f.users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ChallengeStart)
	assert.Equal(t, start, *stored.ChallengeStart)

	unlocks, err := f.achievements.GetByUser(context.Background(), usr.ID)
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, achievement.KeyFirstStep, unlocks[0].Key)
	assert.True(t, unlocks[0].Viewed)
	assert.True(t, unlocks[0].Notified, "imported unlocks never trigger a push")

	assert.Len(t, f.bus.OfType(shared.EventDataImported), 1)
}

func TestImportData_SkipsUnknownUnlockKeys(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	payload := marshalDoc(t, dto.Document{
		Version: dto.FormatVersion,
		Habits:  []dto.HabitEntry{{Name: "Read", Position: 1}},
		Unlocks: []dto.UnlockEntry{
			{Key: "from_the_future", UnlockedAt: today()},
			{Key: "first_step", UnlockedAt: today()},
		},
	})

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, result.UnlockCount)
}

func TestImportData_MatchesCompletionsByHabitID(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Old")

	// Completions carry habit ids only; positions stay zero.
	payload := marshalDoc(t, dto.Document{
		Version: dto.FormatVersion,
		Habits: []dto.HabitEntry{
			{ID: "h-read", Name: "Read", Position: 1},
			{ID: "h-run", Name: "Run", Position: 2},
		},
		Completions: []dto.CompletionEntry{
			{HabitID: "h-run", Date: timeutil.FormatDateStr(today()), Completed: true},
		},
	})

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	habits, err := f.habits.GetByOwner(context.Background(), usr.ID)
	require.NoError(t, err)
	require.Len(t, habits, 2)

	readRecords, err := f.completions.GetByHabit(context.Background(), habits[0].ID)
	require.NoError(t, err)
	assert.Empty(t, readRecords)

	runRecords, err := f.completions.GetByHabit(context.Background(), habits[1].ID)
	require.NoError(t, err)
	require.Len(t, runRecords, 1)
	assert.True(t, runRecords[0].Completed)
}

func TestImportData_ExportRoundTrip(t *testing.T) {
	f := newFixture()
	usr, habits := f.seedUser(t, today().AddDate(0, 0, -4), "Read", "Run")

	for _, day := range []time.Time{today().AddDate(0, 0, -4), today().AddDate(0, 0, -3), today()} {
		_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
			UserID:  usr.ID,
			HabitID: habits[0].ID,
			Date:    day,
		})
		require.NoError(t, err)
	}
	_, err := f.toggleHandler().Handle(context.Background(), ToggleCompletionCommand{
		UserID:  usr.ID,
		HabitID: habits[1].ID,
		Date:    today().AddDate(0, 0, -4),
	})
	require.NoError(t, err)

	export := query.NewExportDataHandler(f.users, f.habits, f.completions, f.achievements)
	before, err := export.Handle(context.Background(), query.ExportDataQuery{UserID: usr.ID})
	require.NoError(t, err)

	result, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: marshalDoc(t, *before),
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	after, err := export.Handle(context.Background(), query.ExportDataQuery{UserID: usr.ID})
	require.NoError(t, err)

	// Habit ids are regenerated on import; everything the user can see
	// must survive the round trip unchanged.
	assert.Equal(t, before.StartDate, after.StartDate)
	assert.ElementsMatch(t, habitSet(before), habitSet(after))
	assert.ElementsMatch(t, completionSet(before), completionSet(after))
	assert.ElementsMatch(t, unlockSet(before), unlockSet(after))
}

func habitSet(doc *dto.Document) []string {
	out := make([]string, 0, len(doc.Habits))
	for _, h := range doc.Habits {
		out = append(out, fmt.Sprintf("%d|%s", h.Position, h.Name))
	}
	return out
}

func completionSet(doc *dto.Document) []string {
	out := make([]string, 0, len(doc.Completions))
	for _, c := range doc.Completions {
		out = append(out, fmt.Sprintf("%d|%s|%t", c.HabitPosition, c.Date, c.Completed))
	}
	return out
}

func unlockSet(doc *dto.Document) []string {
	out := make([]string, 0, len(doc.Unlocks))
	for _, u := range doc.Unlocks {
		out = append(out, u.Key)
	}
	return out
}

func TestImportData_UserUpdateFailureRollsBack(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Old")
	f.users.UpdateErr = errors.New("write timeout")

	payload := marshalDoc(t, dto.Document{
		Version:   dto.FormatVersion,
		StartDate: timeutil.FormatDateStr(today().AddDate(0, 0, -3)),
		Habits:    []dto.HabitEntry{{Name: "Read", Position: 1}},
	})

	_, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "update user")
	require.NotNil(t, f.uowFactory.Last)
	assert.False(t, f.uowFactory.Last.Committed, "nothing commits when the re-anchor fails")
	assert.True(t, f.uowFactory.Last.RolledBack)
}

func TestImportData_ZeroUnlockTimeDefaultsToNow(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	payload := marshalDoc(t, dto.Document{
		Version: dto.FormatVersion,
		Habits:  []dto.HabitEntry{{Name: "Read", Position: 1}},
		Unlocks: []dto.UnlockEntry{{Key: "first_step"}},
	})

	_, err := f.importHandler().Handle(context.Background(), ImportDataCommand{
		UserID:  usr.ID,
		Payload: payload,
	})
	require.NoError(t, err)

	unlocks, err := f.achievements.GetByUser(context.Background(), usr.ID)
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.WithinDuration(t, time.Now(), unlocks[0].UnlockedAt, time.Minute)
}
