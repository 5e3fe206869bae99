package reconcile

import "time"

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween expands [start, end] into individual calendar days, inclusive.
// An inverted range yields nil.
func DaysBetween(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
