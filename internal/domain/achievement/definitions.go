// Package achievement contains the achievement domain: a static definition
// table with threshold predicates, the unlock entity, and the evaluator
// that compares stats snapshots against the table.
package achievement

import (
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREDICATES AS DATA
// Each achievement carries its threshold as data, evaluated by one generic
// comparator. No per-achievement special-case code.
// ══════════════════════════════════════════════════════════════════════════════

// Metric names a single value extracted from a stats snapshot.
type Metric string

const (
	// MetricCurrentStreak - best current streak across all habits.
	MetricCurrentStreak Metric = "current_streak"
	// MetricLongestStreak - best longest streak across all habits.
	MetricLongestStreak Metric = "longest_streak"
	// MetricCompletionRate - overall completion percentage.
	MetricCompletionRate Metric = "completion_rate"
	// MetricTotalCompleted - completed cells across all habits.
	MetricTotalCompleted Metric = "total_completed"
	// MetricPerfectDays - days on which every habit was completed.
	MetricPerfectDays Metric = "perfect_days"
	// MetricDayNumber - current 1-based challenge day.
	MetricDayNumber Metric = "day_number"
)

// Comparator is the comparison applied between a metric and its threshold.
type Comparator string

const (
	CmpAtLeast Comparator = ">="
	CmpExactly Comparator = "=="
)

// Predicate is an achievement's unlock condition.
type Predicate struct {
	// Metric - which snapshot value to compare.
	Metric Metric

	// Cmp - the comparison operator.
	Cmp Comparator

	// Threshold - the value to compare against.
	Threshold float64

	// RequireFinished - only satisfiable once the window is complete.
	RequireFinished bool
}

// Satisfied evaluates the predicate against a snapshot.
func (p Predicate) Satisfied(s Snapshot) bool {
	if p.RequireFinished && !s.Finished {
		return false
	}

	value, ok := s.Metric(p.Metric)
	if !ok {
		return false
	}

	switch p.Cmp {
	case CmpAtLeast:
		return value >= p.Threshold
	case CmpExactly:
		return value == p.Threshold
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is the flattened view of a user's stats that predicates see.
type Snapshot struct {
	MaxCurrentStreak int
	MaxLongestStreak int
	OverallRate      float64
	TotalCompleted   int
	PerfectDays      int
	DayNumber        int
	Finished         bool
}

// Metric returns the named value, or false for an unknown metric.
func (s Snapshot) Metric(m Metric) (float64, bool) {
	switch m {
	case MetricCurrentStreak:
		return float64(s.MaxCurrentStreak), true
	case MetricLongestStreak:
		return float64(s.MaxLongestStreak), true
	case MetricCompletionRate:
		return s.OverallRate, true
	case MetricTotalCompleted:
		return float64(s.TotalCompleted), true
	case MetricPerfectDays:
		return float64(s.PerfectDays), true
	case MetricDayNumber:
		return float64(s.DayNumber), true
	default:
		return 0, false
	}
}

// SnapshotFrom flattens a computed UserStats into predicate inputs.
// perfectDays is computed separately because it needs the raw day sets.
func SnapshotFrom(stats *habit.UserStats, perfectDays int, finished bool) Snapshot {
	snap := Snapshot{
		OverallRate:    stats.OverallRate.Float64(),
		TotalCompleted: stats.TotalCompleted,
		PerfectDays:    perfectDays,
		DayNumber:      stats.DayNumber,
		Finished:       finished,
	}

	for _, h := range stats.Habits {
		if h.CurrentStreak > snap.MaxCurrentStreak {
			snap.MaxCurrentStreak = h.CurrentStreak
		}
		if h.LongestStreak > snap.MaxLongestStreak {
			snap.MaxLongestStreak = h.LongestStreak
		}
	}

	return snap
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION TABLE
// Evaluation order across achievements is the insertion order below.
// ══════════════════════════════════════════════════════════════════════════════

// Key identifies an achievement definition.
type Key string

const (
	KeyFirstStep      Key = "first_step"
	KeyPerfectDay     Key = "perfect_day"
	KeyThreeInARow    Key = "three_in_a_row"
	KeyWeekStreak     Key = "week_streak"
	KeyTwoWeekStreak  Key = "two_week_streak"
	KeyHalfwayThere   Key = "halfway_there"
	KeyHalfCentury    Key = "half_century"
	KeyFullRun        Key = "full_run"
	KeyChallengeDone  Key = "challenge_done"
	KeyFlawlessFinish Key = "flawless_finish"
)

// Definition describes one achievement.
type Definition struct {
	Key         Key
	Name        string
	Description string
	Emoji       string
	Predicate   Predicate
}

// Definitions returns the static achievement table in evaluation order.
func Definitions() []Definition {
	return []Definition{
		{KeyFirstStep, "First Step", "Complete your first habit", "🎯",
			Predicate{Metric: MetricTotalCompleted, Cmp: CmpAtLeast, Threshold: 1}},
		{KeyPerfectDay, "Perfect Day", "Complete every habit in a single day", "🌟",
			Predicate{Metric: MetricPerfectDays, Cmp: CmpAtLeast, Threshold: 1}},
		{KeyThreeInARow, "Three in a Row", "Keep a 3-day streak", "🔥",
			Predicate{Metric: MetricCurrentStreak, Cmp: CmpAtLeast, Threshold: 3}},
		{KeyWeekStreak, "Week of Fire", "Keep a 7-day streak", "⚡",
			Predicate{Metric: MetricCurrentStreak, Cmp: CmpAtLeast, Threshold: 7}},
		{KeyTwoWeekStreak, "Iron Will", "Keep a 14-day streak", "💪",
			Predicate{Metric: MetricCurrentStreak, Cmp: CmpAtLeast, Threshold: 14}},
		{KeyHalfwayThere, "Halfway There", "Reach day 11 of the challenge", "⛰️",
			Predicate{Metric: MetricDayNumber, Cmp: CmpAtLeast, Threshold: 11}},
		{KeyHalfCentury, "Half Century", "Complete 50 habit cells", "🏅",
			Predicate{Metric: MetricTotalCompleted, Cmp: CmpAtLeast, Threshold: 50}},
		{KeyFullRun, "Full Run", "Keep a streak across all 21 days", "🏁",
			Predicate{Metric: MetricLongestStreak, Cmp: CmpAtLeast, Threshold: 21}},
		{KeyChallengeDone, "Challenge Complete", "Finish the 21-day challenge", "🎉",
			Predicate{Metric: MetricDayNumber, Cmp: CmpAtLeast, Threshold: 21, RequireFinished: true}},
		{KeyFlawlessFinish, "Flawless Finish", "Finish the challenge at 100%", "🏆",
			Predicate{Metric: MetricCompletionRate, Cmp: CmpExactly, Threshold: 100, RequireFinished: true}},
	}
}

// GetDefinition returns the definition for a key.
func GetDefinition(key Key) (Definition, bool) {
	for _, def := range Definitions() {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}
