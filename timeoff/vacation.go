// Package timeoff implements vacation-day counting for payroll periods.
//
// One policy is implemented: weekday overlap. A vacation counts toward a
// month for every Monday-Friday day it shares with the month, minus company
// holidays. Vacations that straddle two months are split between them.
package timeoff

import (
	"time"

	"github.com/warp/payslip-engine/payroll"
)

// =============================================================================
// HOLIDAY CALENDAR - Company-specific holidays
// =============================================================================

// HolidayCalendar reports days that do not count as vacation.
type HolidayCalendar interface {
	IsHoliday(day time.Time) bool
}

// NoHolidays is the calendar used when none is configured.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(time.Time) bool { return false }

// StaticCalendar is a fixed set of holiday dates.
type StaticCalendar map[time.Time]string

// NewStaticCalendar builds a calendar from YYYY-MM-DD dates.
func NewStaticCalendar(dates ...string) (StaticCalendar, error) {
	cal := make(StaticCalendar, len(dates))
	for _, s := range dates {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, &payroll.ValidationError{Field: "holiday", Reason: err.Error()}
		}
		cal[payroll.DateOf(d)] = s
	}
	return cal, nil
}

func (c StaticCalendar) IsHoliday(day time.Time) bool {
	_, ok := c[payroll.DateOf(day)]
	return ok
}

// Calendars is the union of several calendars. Nil entries are skipped.
type Calendars []HolidayCalendar

func (cs Calendars) IsHoliday(day time.Time) bool {
	for _, c := range cs {
		if c != nil && c.IsHoliday(day) {
			return true
		}
	}
	return false
}

// =============================================================================
// WEEKDAY OVERLAP POLICY
// =============================================================================

// WeekdayOverlap implements payroll.VacationPolicy.
type WeekdayOverlap struct {
	Calendar HolidayCalendar
}

func NewWeekdayOverlap(calendar HolidayCalendar) WeekdayOverlap {
	if calendar == nil {
		calendar = NoHolidays{}
	}
	return WeekdayOverlap{Calendar: calendar}
}

// VacationDays sums, over every vacation, the workdays in its overlap
// with the period.
func (w WeekdayOverlap) VacationDays(vacations []payroll.Vacation, period payroll.Period) int {
	total := 0
	for _, v := range vacations {
		overlap, ok := v.Span().Overlap(period)
		if !ok {
			continue
		}
		total += w.Workdays(overlap)
	}
	return total
}

// Workdays counts the weekdays of p that are not holidays.
func (w WeekdayOverlap) Workdays(p payroll.Period) int {
	cal := w.Calendar
	if cal == nil {
		cal = NoHolidays{}
	}
	n := 0
	for _, d := range p.Days() {
		if payroll.IsWeekend(d) || cal.IsHoliday(d) {
			continue
		}
		n++
	}
	return n
}

// Compile-time check that WeekdayOverlap implements payroll.VacationPolicy
var _ payroll.VacationPolicy = WeekdayOverlap{}
