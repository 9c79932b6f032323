// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import "math"

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Constants
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeDays is the length of the challenge window.
const ChallengeDays = 21

// ═══════════════════════════════════════════════════════════════════════════
// Completion Rate Value Object
// ═══════════════════════════════════════════════════════════════════════════

// CompletionRate is a percentage in [0, 100] rounded to one decimal place.
type CompletionRate float64

// NewCompletionRate computes the rate of completed over total, rounded to
// one decimal. A zero total yields 0.0 rather than an error: a fresh
// challenge simply has no history yet.
func NewCompletionRate(completed, total int) CompletionRate {
	if total <= 0 {
		return 0
	}
	rate := float64(completed) / float64(total) * 100
	return CompletionRate(math.Round(rate*10) / 10)
}

// Float64 returns the underlying float64 value.
func (r CompletionRate) Float64() float64 {
	return float64(r)
}

// IsPerfect returns true at exactly 100%.
func (r CompletionRate) IsPerfect() bool {
	return r == 100
}
