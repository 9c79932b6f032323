// Package dto holds the portable JSON document exchanged by the export
// and import operations. Dates travel as ISO 8601 calendar days so the
// document survives round trips across timezones and versions.
package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// FormatVersion identifies the document layout. Bump only on breaking
// changes; readers reject versions they do not know.
const FormatVersion = 1

// Document is the full portable state of one user's challenge.
type Document struct {
	Version     int               `json:"version"`
	ExportedAt  time.Time         `json:"exported_at"`
	StartDate   string            `json:"start_date,omitempty"`
	Habits      []HabitEntry      `json:"habits"`
	Completions []CompletionEntry `json:"completions"`
	Unlocks     []UnlockEntry     `json:"achievements"`
}

// HabitEntry is one habit in the document. Completions reference habits
// by ID; position doubles as a fallback key for documents written by
// hand or by older builds.
type HabitEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// CompletionEntry is one (habit, day) completion mark.
type CompletionEntry struct {
	HabitID       string `json:"habit_id"`
	HabitPosition int    `json:"habit_position,omitempty"`
	Date          string `json:"date"`
	Completed     bool   `json:"completed"`
}

// UnlockEntry is one achievement unlock.
type UnlockEntry struct {
	Key        string    `json:"key"`
	UnlockedAt time.Time `json:"unlocked_at"`
	Viewed     bool      `json:"viewed"`
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnknownVersion - the document version is not supported.
	ErrUnknownVersion = errors.New("unknown document version")

	// ErrEmptyDocument - a document must contain at least one habit.
	ErrEmptyDocument = errors.New("document contains no habits")
)

// Validate checks the document for structural problems before any write
// happens. Import is all-or-nothing, so everything is checked up front.
func (d *Document) Validate() error {
	if d.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, d.Version)
	}
	if len(d.Habits) == 0 {
		return ErrEmptyDocument
	}
	if len(d.Habits) > habit.MaxHabits {
		return habit.ErrTooManyHabits
	}

	if d.StartDate != "" {
		if _, err := timeutil.ParseDate(d.StartDate); err != nil {
			return fmt.Errorf("invalid start_date %q: %w", d.StartDate, err)
		}
	}

	positions := make(map[int]bool, len(d.Habits))
	ids := make(map[string]bool, len(d.Habits))
	for i, h := range d.Habits {
		if h.Position < 1 || h.Position > habit.MaxHabits {
			return fmt.Errorf("habit %d: %w", i, habit.ErrInvalidPosition)
		}
		if positions[h.Position] {
			return fmt.Errorf("habit %d: %w", i, habit.ErrDuplicatePosition)
		}
		positions[h.Position] = true
		if h.ID != "" {
			ids[h.ID] = true
		}
	}

	for i, c := range d.Completions {
		switch {
		case c.HabitID != "":
			if !ids[c.HabitID] {
				return fmt.Errorf("completion %d: unknown habit_id %q", i, c.HabitID)
			}
		case !positions[c.HabitPosition]:
			return fmt.Errorf("completion %d: no habit at position %d", i, c.HabitPosition)
		}
		if _, err := timeutil.ParseDate(c.Date); err != nil {
			return fmt.Errorf("completion %d: invalid date %q: %w", i, c.Date, err)
		}
	}

	return nil
}
