package entities

import "time"

// Day is one calendar day as a duration
const Day = 24 * time.Hour

// DateOf truncates a timestamp to midnight UTC of its calendar day
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative if b is before a)
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / Day)
}

// AddDays returns the date n calendar days after t
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}
