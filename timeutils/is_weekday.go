package timeutils

import "time"

// IsWeekday returns true if the day is Mon-Fri inclusive, or false if the day is Sat or Sun.
func IsWeekday(t time.Time) bool {
	day := t.Weekday()
	return day != time.Saturday && day != time.Sunday
}
