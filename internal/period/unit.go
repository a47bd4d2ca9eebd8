// Package period adapts the fetch-facing granularity vocabulary ("monthly")
// to the calendar-step vocabulary ("months") used to advance dates.
package period

import (
	"fmt"
	"time"
)

// Unit is a calendar-step unit in pluralized form.
type Unit string

const (
	Days     Unit = "days"
	Weeks    Unit = "weeks"
	Months   Unit = "months"
	Quarters Unit = "quarters"
	Years    Unit = "years"
)

// KnownUnits lists every calendar unit Add understands, shortest first.
var KnownUnits = []Unit{Days, Weeks, Months, Quarters, Years}

// ParseUnit validates a calendar unit name.
func ParseUnit(s string) (Unit, error) {
	for _, u := range KnownUnits {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown calendar unit %q", s)
}

// Add advances t by n steps of the unit. Month-based units keep month-end
// dates at month end and clamp other days to the target month length.
func (u Unit) Add(t time.Time, n int) time.Time {
	switch u {
	case Days:
		return t.AddDate(0, 0, n)
	case Weeks:
		return t.AddDate(0, 0, 7*n)
	case Months:
		return AddMonths(t, n)
	case Quarters:
		return AddMonths(t, 3*n)
	case Years:
		return AddMonths(t, 12*n)
	default:
		return t
	}
}

// Sequence returns count dates, the k-th being origin advanced by k steps.
// Each date is derived from origin directly so clamping never accumulates.
func (u Unit) Sequence(origin time.Time, count int) []time.Time {
	if count <= 0 {
		return []time.Time{}
	}
	out := make([]time.Time, count)
	for k := 1; k <= count; k++ {
		out[k-1] = u.Add(origin, k)
	}
	return out
}

// AddMonths adds n calendar months to t with end-of-month preservation.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := daysIn(first.Year(), first.Month(), t.Location())

	day := d
	if d == daysIn(y, m, t.Location()) || d > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
