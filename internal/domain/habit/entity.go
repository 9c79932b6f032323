// Package habit contains the habit-tracking domain model: habits, daily
// completion records, and the challenge window. This is the core of the
// business logic - there are no external dependencies here.
package habit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MaxHabits is the maximum number of habits per challenge.
	MaxHabits = 6

	// ChallengeDays is the length of the challenge window in days.
	ChallengeDays = shared.ChallengeDays
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrHabitNotFound - habit does not exist.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrInvalidName - habit name must be 1-100 chars after trimming.
	ErrInvalidName = errors.New("invalid habit name: must be 1-100 chars")

	// ErrInvalidPosition - position must be within 1..MaxHabits.
	ErrInvalidPosition = fmt.Errorf("invalid habit position: must be 1-%d", MaxHabits)

	// ErrTooManyHabits - a challenge holds at most MaxHabits habits.
	ErrTooManyHabits = fmt.Errorf("too many habits: at most %d", MaxHabits)

	// ErrNoHabits - setup requires at least one named habit.
	ErrNoHabits = errors.New("at least one habit is required")

	// ErrDuplicatePosition - two habits cannot share a position.
	ErrDuplicatePosition = errors.New("duplicate habit position")

	// ErrRecordNotFound - no completion record for the requested day.
	ErrRecordNotFound = errors.New("completion record not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: HABIT
// ══════════════════════════════════════════════════════════════════════════════

// Habit is a single tracked habit belonging to one user's challenge.
type Habit struct {
	// ID - unique identifier (UUID in string form).
	ID string

	// OwnerID - the user this habit belongs to.
	OwnerID string

	// Name - user-chosen label.
	Name string

	// Position - display slot, 1..MaxHabits. Stable across renames.
	Position int

	// CreatedAt - when the habit was created.
	CreatedAt time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time
}

// NewHabitParams holds parameters for creating a habit.
type NewHabitParams struct {
	ID       string
	OwnerID  string
	Name     string
	Position int
}

// NewHabit creates a habit with full validation.
func NewHabit(params NewHabitParams) (*Habit, error) {
	if params.ID == "" {
		return nil, errors.New("habit id is required")
	}
	if params.OwnerID == "" {
		return nil, errors.New("habit owner id is required")
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidName
	}

	if params.Position < 1 || params.Position > MaxHabits {
		return nil, ErrInvalidPosition
	}

	now := time.Now().UTC()

	return &Habit{
		ID:        params.ID,
		OwnerID:   params.OwnerID,
		Name:      name,
		Position:  params.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename changes the habit's label.
func (h *Habit) Rename(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) == 0 || len(trimmed) > 100 {
		return ErrInvalidName
	}
	h.Name = trimmed
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// String returns a representation suitable for logging.
func (h *Habit) String() string {
	return fmt.Sprintf("Habit{ID: %s, Name: %q, Position: %d}", h.ID, h.Name, h.Position)
}

// Clone creates a copy of the habit.
func (h *Habit) Clone() *Habit {
	if h == nil {
		return nil
	}
	clone := *h
	return &clone
}

// ValidateSet checks a full habit set for a single challenge: at least one
// habit, at most MaxHabits, and no duplicate positions.
func ValidateSet(habits []*Habit) error {
	if len(habits) == 0 {
		return ErrNoHabits
	}
	if len(habits) > MaxHabits {
		return ErrTooManyHabits
	}

	seen := make(map[int]bool, len(habits))
	for _, h := range habits {
		if seen[h.Position] {
			return ErrDuplicatePosition
		}
		seen[h.Position] = true
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION RECORD
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRecord marks whether a habit was done on one calendar day.
// At most one record exists per (habit, date); a missing record means
// the day was not completed, never an error.
type CompletionRecord struct {
	// HabitID - the habit this record belongs to.
	HabitID string

	// Date - the calendar day (midnight UTC, no time component).
	Date time.Time

	// Completed - whether the habit was done that day.
	Completed bool

	// UpdatedAt - when the record was last written. Concurrent toggles
	// from multiple devices resolve last-write-wins on this row.
	UpdatedAt time.Time
}

// NewCompletionRecord creates a record for a day, normalizing the date.
func NewCompletionRecord(habitID string, date time.Time, completed bool) *CompletionRecord {
	return &CompletionRecord{
		HabitID:   habitID,
		Date:      timeutil.StartOfDay(date),
		Completed: completed,
		UpdatedAt: time.Now().UTC(),
	}
}

// Toggle flips the completion flag.
func (r *CompletionRecord) Toggle() {
	r.Completed = !r.Completed
	r.UpdatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY SET (normalized completion history)
// ══════════════════════════════════════════════════════════════════════════════

// DaySet is a habit's completion history keyed by calendar day.
// Absent keys mean the day has no record.
type DaySet map[time.Time]bool

// NewDaySet builds a DaySet from raw records. Later records win on
// duplicate dates, mirroring the storage layer's last-write-wins policy.
func NewDaySet(records []*CompletionRecord) DaySet {
	set := make(DaySet, len(records))
	for _, r := range records {
		set[timeutil.StartOfDay(r.Date)] = r.Completed
	}
	return set
}

// Completed reports whether the given day is marked done.
func (s DaySet) Completed(day time.Time) bool {
	return s[timeutil.StartOfDay(day)]
}

// Has reports whether any record exists for the given day.
func (s DaySet) Has(day time.Time) bool {
	_, ok := s[timeutil.StartOfDay(day)]
	return ok
}

// CompletedCount returns the number of completed days.
func (s DaySet) CompletedCount() int {
	n := 0
	for _, done := range s {
		if done {
			n++
		}
	}
	return n
}
