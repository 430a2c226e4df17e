package payroll

import "time"

// =============================================================================
// PERIOD - calendar month bounding aggregation and artifact naming
// =============================================================================

// Period is an inclusive day range [Start, End]. Both ends are UTC midnight.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewDate returns the UTC midnight of the given day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Period {
	start := NewDate(t.Year(), t.Month(), 1)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the day of t is within [Start, End].
func (p Period) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Overlap returns the intersection of two periods.
func (p Period) Overlap(other Period) (Period, bool) {
	start := p.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := p.End
	if other.End.Before(end) {
		end = other.End
	}
	if start.After(end) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

// Days returns every day in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Tag is the YYYYMM form used in artifact names.
func (p Period) Tag() string { return p.Start.Format("200601") }

// Month is the YYYY-MM form used in operation results.
func (p Period) Month() string { return p.Start.Format("2006-01") }

// Label is the human form printed on slips, e.g. "October 2026".
func (p Period) Label() string { return p.Start.Format("January 2006") }

func (p Period) String() string {
	return "[" + p.Start.Format(time.DateOnly) + ", " + p.End.Format(time.DateOnly) + "]"
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
