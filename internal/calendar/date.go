// Package calendar implements wall-clock date arithmetic used by the
// recurrence engine. A Date carries no location and no time of day; it is
// combined with a clock and a *time.Location only when an instant is needed.
package calendar

import (
	"fmt"
	"time"
)

// Date is a civil (wall-clock) date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the wall-clock date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// New returns the date for year, month and day, normalizing overflow the
// same way time.Date does (e.g. April 31 becomes May 1).
func New(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Midnight returns the normalized day instant: midnight UTC of the date.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At combines the date with the wall clock of clock, in loc.
func (d Date) At(clock time.Time, loc *time.Location) time.Time {
	h, m, s := clock.Clock()
	return time.Date(d.Year, d.Month, d.Day, h, m, s, clock.Nanosecond(), loc)
}

func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

func (d Date) Weekday() time.Weekday {
	return d.Midnight().Weekday()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves (year, month) forward by n months.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month-1) + n
	return total / 12, time.Month(total%12 + 1)
}

// MondayOf returns the Monday that starts the ISO week containing d.
func MondayOf(d Date) Date {
	return d.AddDays(-WeekdayOffset(d.Weekday()))
}

// WeekdayOffset is the distance of w from Monday: Monday=0 ... Sunday=6.
func WeekdayOffset(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// IsWorkday reports whether w falls Monday through Friday.
func IsWorkday(w time.Weekday) bool {
	return w != time.Saturday && w != time.Sunday
}
