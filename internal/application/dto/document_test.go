package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
)

func validDocument() *Document {
	return &Document{
		Version:    FormatVersion,
		ExportedAt: time.Now(),
		StartDate:  "2026-08-01",
		Habits: []HabitEntry{
			{ID: "a1b2c3", Name: "Read", Position: 1},
			{ID: "d4e5f6", Name: "Run", Position: 2},
		},
		Completions: []CompletionEntry{
			{HabitID: "a1b2c3", Date: "2026-08-01", Completed: true},
			{HabitID: "d4e5f6", Date: "2026-08-02", Completed: false},
		},
		Unlocks: []UnlockEntry{
			{Key: "first_step", UnlockedAt: time.Now(), Viewed: true},
		},
	}
}

func TestDocument_Validate(t *testing.T) {
	require.NoError(t, validDocument().Validate())
}

func TestDocument_Validate_AcceptsPositionOnlyCompletions(t *testing.T) {
	// Hand-written documents may omit habit ids and key completions by
	// position alone.
	doc := validDocument()
	for i := range doc.Habits {
		doc.Habits[i].ID = ""
	}
	doc.Completions = []CompletionEntry{
		{HabitPosition: 1, Date: "2026-08-01", Completed: true},
		{HabitPosition: 2, Date: "2026-08-02", Completed: false},
	}

	require.NoError(t, doc.Validate())
}

func TestDocument_Validate_RejectsUnknownHabitID(t *testing.T) {
	doc := validDocument()
	doc.Completions = append(doc.Completions,
		CompletionEntry{HabitID: "nobody-home", Date: "2026-08-03"})

	err := doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown habit_id "nobody-home"`)
}

func TestDocument_Validate_RejectsUnknownVersion(t *testing.T) {
	doc := validDocument()
	doc.Version = 99

	err := doc.Validate()
	require.ErrorIs(t, err, ErrUnknownVersion)
	assert.Contains(t, err.Error(), "99")
}

func TestDocument_Validate_RejectsEmptyAndOversized(t *testing.T) {
	doc := validDocument()
	doc.Habits = nil
	require.ErrorIs(t, doc.Validate(), ErrEmptyDocument)

	doc = validDocument()
	doc.Habits = doc.Habits[:0]
	for i := 1; i <= habit.MaxHabits+1; i++ {
		doc.Habits = append(doc.Habits, HabitEntry{Name: "H", Position: i})
	}
	doc.Completions = nil
	require.ErrorIs(t, doc.Validate(), habit.ErrTooManyHabits)
}

func TestDocument_Validate_RejectsBadPositions(t *testing.T) {
	doc := validDocument()
	doc.Habits[1].Position = 0
	doc.Completions = nil
	require.ErrorIs(t, doc.Validate(), habit.ErrInvalidPosition)

	doc = validDocument()
	doc.Habits[1].Position = 1
	doc.Completions = nil
	require.ErrorIs(t, doc.Validate(), habit.ErrDuplicatePosition)
}

func TestDocument_Validate_RejectsBadDates(t *testing.T) {
	doc := validDocument()
	doc.StartDate = "not-a-date"
	err := doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start_date")

	doc = validDocument()
	doc.Completions[0].Date = "08/01/2026"
	err = doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestDocument_Validate_RejectsOrphanCompletions(t *testing.T) {
	doc := validDocument()
	doc.Completions = append(doc.Completions, CompletionEntry{HabitPosition: 5, Date: "2026-08-03"})

	err := doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no habit at position 5")
}
