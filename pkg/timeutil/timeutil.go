// Package timeutil provides calendar-day utilities for the Habit Tracker Hub.
// All habit bookkeeping happens on UTC calendar days: a completion belongs to
// a date, never to a point in time. Handles date parsing, day arithmetic, and
// Monday-indexed weekdays. No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// FormatDate is the wire format for calendar dates (ISO 8601, YYYY-MM-DD).
const FormatDate = "2006-01-02"

// Today returns the current UTC calendar day at midnight.
func Today() time.Time {
	return StartOfDay(time.Now().UTC())
}

// StartOfDay truncates a time to midnight UTC of the same calendar day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, time.UTC)
}

// FormatDateStr formats a time as a YYYY-MM-DD string on its UTC calendar day.
func FormatDateStr(t time.Time) string {
	return StartOfDay(t).Format(FormatDate)
}

// IsSameDay checks if two times fall on the same UTC calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := t1.UTC(), t2.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// IsConsecutiveDay checks if t2 is the calendar day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return IsSameDay(StartOfDay(t1).AddDate(0, 0, 1), t2)
}

// DaysBetween returns the number of whole calendar days from t1 to t2.
// Negative when t2 precedes t1.
func DaysBetween(t1, t2 time.Time) int {
	a := StartOfDay(t1)
	b := StartOfDay(t2)
	return int(b.Sub(a).Hours() / 24)
}

// DateRange returns the consecutive calendar days [start, start+days).
func DateRange(start time.Time, days int) []time.Time {
	if days <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, days)
	day := StartOfDay(start)
	for i := 0; i < days; i++ {
		dates = append(dates, day.AddDate(0, 0, i))
	}
	return dates
}

// MinDay returns the earlier of two calendar days.
func MinDay(t1, t2 time.Time) time.Time {
	a, b := StartOfDay(t1), StartOfDay(t2)
	if b.Before(a) {
		return b
	}
	return a
}

// WeekdayIndex returns the Monday-based weekday index (Monday=0 .. Sunday=6).
func WeekdayIndex(t time.Time) int {
	wd := int(StartOfDay(t).Weekday())
	return (wd + 6) % 7
}

// WeekdayName returns the English weekday name for a Monday-based index.
func WeekdayName(index int) string {
	names := []string{
		"Monday", "Tuesday", "Wednesday", "Thursday",
		"Friday", "Saturday", "Sunday",
	}
	if index < 0 || index >= len(names) {
		return ""
	}
	return names[index]
}
