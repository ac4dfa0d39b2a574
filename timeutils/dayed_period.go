package timeutils

import (
	"fmt"
	"time"
)

// Days is a string representation of the different ways to configure days. At the moment, only a few options are
// required, but we could allow any combination of days in the future.
type Days string

const (
	WeekendDays Days = "weekends"
	WeekdayDays Days = "weekdays"
	AllDays     Days = "all"
)

// DayedPeriod gives a period of time on particular days.
type DayedPeriod struct {
	ClockTimePeriod      // The period in clock time, e.g. "4pm to 6pm"
	Days            Days `json:"days"` // Indicates the days on which this period applies, can be "weekends", "weekdays", or "all"
}

// AbsolutePeriod returns the equivilent `Period` instance for the given `DayedPeriod`, using `t` as the
// reference time that must be within the `DayedPeriod`.
// If `t` is outside of the `DayedPeriod` (i.e. on the wrong day or at the wrong time) then the `ok` boolean is returned as false.
func (d *DayedPeriod) AbsolutePeriod(t time.Time) (Period, bool) {

	if !d.IsOnDay(t) {
		return Period{}, false
	}

	return d.ClockTimePeriod.AbsolutePeriod(t)
}

// Contains returns true if the given t is contained in the DayedPeriod.
func (d *DayedPeriod) Contains(t time.Time) bool {
	_, contains := d.AbsolutePeriod(t)
	return contains
}

func (d *DayedPeriod) IsOnDay(t time.Time) bool {
	switch d.Days {
	case AllDays:
		return true
	case WeekdayDays:
		return IsWeekday(t)
	case WeekendDays:
		return !IsWeekday(t)
	default:
		panic(fmt.Sprintf("Unknown day specification: '%s'", d.Days))
	}
}
