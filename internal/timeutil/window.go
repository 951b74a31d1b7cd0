package timeutil

import "time"

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the most recent Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// IsSameDay reports whether a and b fall on the same calendar day in a's location.
func IsSameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b.In(a.Location())))
}

// DaysSince returns the number of whole days elapsed between from and now.
// A zero from or a from in the future yields 0.
func DaysSince(from, now time.Time) int {
	if from.IsZero() || !now.After(from) {
		return 0
	}
	return int(now.Sub(from) / (24 * time.Hour))
}

func MonthsBefore(now time.Time, months int) time.Time {
	return now.AddDate(0, -months, 0)
}

func YearsBefore(now time.Time, years int) time.Time {
	return now.AddDate(-years, 0, 0)
}
