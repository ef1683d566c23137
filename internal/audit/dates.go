package audit

import "time"

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the calendar-day difference a-b (may be negative).
func DaysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(au.Sub(bu) / (24 * time.Hour))
}

// InWindow reports whether t lies inside (start, end].
func InWindow(t, start, end time.Time) bool {
	return t.After(start) && !t.After(end)
}
