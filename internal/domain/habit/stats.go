package habit

import (
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// Window is the fixed span of consecutive calendar days tracked per user.
type Window struct {
	// Start - first day of the challenge (midnight UTC).
	Start time.Time

	// Days - length of the window.
	Days int
}

// NewWindow creates a window starting on the given day.
func NewWindow(start time.Time, days int) Window {
	if days <= 0 {
		days = ChallengeDays
	}
	return Window{Start: timeutil.StartOfDay(start), Days: days}
}

// End returns the last day of the window.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, w.Days-1)
}

// Contains reports whether the day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	d := timeutil.StartOfDay(day)
	return !d.Before(w.Start) && !d.After(w.End())
}

// DayNumber returns the 1-based day number for a date inside the window,
// or 0 for a date outside it.
func (w Window) DayNumber(day time.Time) int {
	if !w.Contains(day) {
		return 0
	}
	return timeutil.DaysBetween(w.Start, day) + 1
}

// ElapsedDays returns how many window days have passed through
// min(today, last day). Zero before the challenge starts.
func (w Window) ElapsedDays(today time.Time) int {
	t := timeutil.StartOfDay(today)
	if t.Before(w.Start) {
		return 0
	}
	last := timeutil.MinDay(t, w.End())
	return timeutil.DaysBetween(w.Start, last) + 1
}

// Dates returns every calendar day in the window, in order.
func (w Window) Dates() []time.Time {
	return timeutil.DateRange(w.Start, w.Days)
}

// IsFinished reports whether the window is fully behind "today".
func (w Window) IsFinished(today time.Time) bool {
	return w.ElapsedDays(today) >= w.Days
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

// WeekdayStat holds completion counts for one weekday bucket.
type WeekdayStat struct {
	// Weekday - Monday-based index (Monday=0 .. Sunday=6).
	Weekday int

	// Completed - completed days on this weekday.
	Completed int

	// Total - elapsed window days falling on this weekday.
	Total int

	// Rate - completion percentage for this weekday.
	Rate shared.CompletionRate
}

// HabitStats is the computed statistics snapshot for a single habit.
type HabitStats struct {
	HabitID  string
	Name     string
	Position int

	// CurrentStreak - consecutive completed days ending at today
	// (or yesterday when today is still unmarked).
	CurrentStreak int

	// LongestStreak - maximum run of completed days in the window.
	LongestStreak int

	// CompletionRate - completed days over elapsed window days.
	CompletionRate shared.CompletionRate

	// TotalCompleted - completed days in the window.
	TotalCompleted int

	// ElapsedDays - window days through min(today, last day).
	ElapsedDays int

	// Weekdays - per-weekday completion buckets, Monday first.
	Weekdays [7]WeekdayStat

	// BestWeekday - Monday-based index of the weekday with the highest
	// rate; ties go to the earliest index.
	BestWeekday int
}

// UserStats aggregates the per-habit snapshots for a user's challenge.
type UserStats struct {
	UserID string

	// Habits - one snapshot per habit, ordered by position.
	Habits []HabitStats

	// OverallRate - completed cells over (habit count x elapsed days).
	OverallRate shared.CompletionRate

	// TotalCompleted - completed cells across all habits.
	TotalCompleted int

	// TotalPossible - habit count x elapsed days.
	TotalPossible int

	// ElapsedDays - window days through min(today, last day).
	ElapsedDays int

	// DayNumber - current 1-based challenge day, capped at the window
	// length once the challenge is over.
	DayNumber int

	// BestHabit / WorstHabit - indexes into Habits by completion rate,
	// or -1 when there are no habits.
	BestHabit  int
	WorstHabit int
}

// PerfectDays counts elapsed days on which every habit was completed.
func (u *UserStats) PerfectDays(sets map[string]DaySet, window Window, today time.Time) int {
	if len(u.Habits) == 0 {
		return 0
	}
	elapsed := window.ElapsedDays(today)
	count := 0
	day := window.Start
	for i := 0; i < elapsed; i++ {
		all := true
		for _, h := range u.Habits {
			if !sets[h.HabitID].Completed(day) {
				all = false
				break
			}
		}
		if all {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS CALCULATOR
// Pure functions of the stored records and the window boundaries.
// Deterministic for a fixed "today"; no hidden state.
// ══════════════════════════════════════════════════════════════════════════════

// StatsCalculator derives streak and completion statistics.
type StatsCalculator struct{}

// NewStatsCalculator creates a stats calculator.
func NewStatsCalculator() *StatsCalculator {
	return &StatsCalculator{}
}

// CurrentStreak counts consecutive completed days walking backward from
// today. A day with no record breaks the streak, with one exception:
// today itself may still be unmarked without breaking a run that ended
// yesterday. A day explicitly marked incomplete always breaks.
func (c *StatsCalculator) CurrentStreak(set DaySet, today time.Time) int {
	anchor := timeutil.StartOfDay(today)

	if !set.Has(anchor) {
		// Today not yet marked: the streak may still be alive through yesterday.
		anchor = anchor.AddDate(0, 0, -1)
	} else if !set.Completed(anchor) {
		return 0
	}

	streak := 0
	for set.Completed(anchor) {
		streak++
		anchor = anchor.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak scans the window forward, counting runs of completed days
// and resetting on any incomplete or missing day.
func (c *StatsCalculator) LongestStreak(set DaySet, window Window) int {
	longest := 0
	run := 0
	day := window.Start
	for i := 0; i < window.Days; i++ {
		if set.Completed(day) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
		day = day.AddDate(0, 0, 1)
	}
	return longest
}

// CompletionRate is completed days over elapsed window days as a
// percentage rounded to one decimal. Zero elapsed days yield 0.0.
func (c *StatsCalculator) CompletionRate(set DaySet, window Window, today time.Time) shared.CompletionRate {
	elapsed := window.ElapsedDays(today)
	return shared.NewCompletionRate(c.completedInWindow(set, window, today), elapsed)
}

// WeekdayBreakdown buckets elapsed window days by weekday and computes
// per-weekday completion rates. Returns the buckets (Monday first) and
// the best weekday's index, ties broken by the earliest index.
func (c *StatsCalculator) WeekdayBreakdown(set DaySet, window Window, today time.Time) ([7]WeekdayStat, int) {
	var buckets [7]WeekdayStat
	for i := range buckets {
		buckets[i].Weekday = i
	}

	elapsed := window.ElapsedDays(today)
	day := window.Start
	for i := 0; i < elapsed; i++ {
		idx := timeutil.WeekdayIndex(day)
		buckets[idx].Total++
		if set.Completed(day) {
			buckets[idx].Completed++
		}
		day = day.AddDate(0, 0, 1)
	}

	best := 0
	for i := range buckets {
		buckets[i].Rate = shared.NewCompletionRate(buckets[i].Completed, buckets[i].Total)
		if buckets[i].Rate > buckets[best].Rate {
			best = i
		}
	}
	return buckets, best
}

// HabitStats computes the full snapshot for one habit.
func (c *StatsCalculator) HabitStats(h *Habit, set DaySet, window Window, today time.Time) HabitStats {
	weekdays, best := c.WeekdayBreakdown(set, window, today)

	return HabitStats{
		HabitID:        h.ID,
		Name:           h.Name,
		Position:       h.Position,
		CurrentStreak:  c.CurrentStreak(set, today),
		LongestStreak:  c.LongestStreak(set, window),
		CompletionRate: c.CompletionRate(set, window, today),
		TotalCompleted: c.completedInWindow(set, window, today),
		ElapsedDays:    window.ElapsedDays(today),
		Weekdays:       weekdays,
		BestWeekday:    best,
	}
}

// UserStats computes the aggregate snapshot for a user. Habits must be
// ordered by position; sets maps habit ID to its completion history.
func (c *StatsCalculator) UserStats(userID string, habits []*Habit, sets map[string]DaySet, window Window, today time.Time) *UserStats {
	elapsed := window.ElapsedDays(today)

	stats := &UserStats{
		UserID:      userID,
		Habits:      make([]HabitStats, 0, len(habits)),
		ElapsedDays: elapsed,
		DayNumber:   c.dayNumber(window, today),
		BestHabit:   -1,
		WorstHabit:  -1,
	}

	for _, h := range habits {
		hs := c.HabitStats(h, sets[h.ID], window, today)
		stats.Habits = append(stats.Habits, hs)
		stats.TotalCompleted += hs.TotalCompleted
	}

	stats.TotalPossible = len(habits) * elapsed
	stats.OverallRate = shared.NewCompletionRate(stats.TotalCompleted, stats.TotalPossible)

	for i := range stats.Habits {
		if stats.BestHabit < 0 || stats.Habits[i].CompletionRate > stats.Habits[stats.BestHabit].CompletionRate {
			stats.BestHabit = i
		}
		if stats.WorstHabit < 0 || stats.Habits[i].CompletionRate < stats.Habits[stats.WorstHabit].CompletionRate {
			stats.WorstHabit = i
		}
	}

	return stats
}

// completedInWindow counts completed days between the window start and
// min(today, last day). Records outside that span are ignored.
func (c *StatsCalculator) completedInWindow(set DaySet, window Window, today time.Time) int {
	elapsed := window.ElapsedDays(today)
	count := 0
	day := window.Start
	for i := 0; i < elapsed; i++ {
		if set.Completed(day) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// dayNumber returns the current challenge day, clamped to [0, Days].
func (c *StatsCalculator) dayNumber(window Window, today time.Time) int {
	t := timeutil.StartOfDay(today)
	if t.Before(window.Start) {
		return 0
	}
	n := timeutil.DaysBetween(window.Start, t) + 1
	if n > window.Days {
		return window.Days
	}
	return n
}
