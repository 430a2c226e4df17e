/*
Package factory provides JSON to Go scenario conversion.

PURPOSE:
  Converts JSON team definitions into stored payroll inputs: employees,
  employment terms, vacations, bonuses, work logs and holidays. Used to
  seed demo and test databases without hand-written SQL.

JSON SCHEMA:
  {
    "holidays": [{"date": "2026-12-01", "name": "National Day"}],
    "employees": [
      {
        "ref": "mara", "email": "mara@example.com",
        "first_name": "Mara", "last_name": "Manager",
        "code": "MGR001", "personal_id": "1800101000001", "role": "manager"
      },
      {
        "ref": "alice", "manager": "mara", "email": "alice@example.com",
        "first_name": "Alice", "last_name": "Ionescu",
        "code": "EMP001", "personal_id": "2980202123456",
        "employment": {"hire_date": "2023-01-01", "base_salary": "7000"},
        "vacations": [{"start": "2026-10-08", "end": "2026-10-09"}],
        "bonuses": [{"date": "2026-10-05", "amount": "500", "reason": "Q3"}],
        "work_logs": ["2026-10-01", "2026-10-02"]
      }
    ]
  }

REFERENCES:
  "manager" names the ref of an employee defined earlier in the list.
  Managers must come before their reports.

VACATION DAYS:
  Days on each stored vacation is the weekday count of its span, computed
  with the same holiday calendar the scenario defines.

SEE ALSO:
  - payroll/types.go: the stored types
  - api/handlers.go: POST /api/scenarios/demo
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/timeoff"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// Scenario is a team definition.
type Scenario struct {
	Holidays  []HolidayJSON  `json:"holidays,omitempty"`
	Employees []EmployeeJSON `json:"employees"`
}

type HolidayJSON struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// EmployeeJSON is one person and their inputs.
type EmployeeJSON struct {
	Ref        string          `json:"ref"`
	Manager    string          `json:"manager,omitempty"` // ref of the manager
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Code       string          `json:"code"`
	PersonalID string          `json:"personal_id"`
	Role       string          `json:"role,omitempty"` // manager, employee (default)
	Employment *EmploymentJSON `json:"employment,omitempty"`
	Vacations  []VacationJSON  `json:"vacations,omitempty"`
	Bonuses    []BonusJSON     `json:"bonuses,omitempty"`
	WorkLogs   []string        `json:"work_logs,omitempty"`
}

type EmploymentJSON struct {
	HireDate   string          `json:"hire_date"`
	EndDate    string          `json:"end_date,omitempty"`
	BaseSalary decimal.Decimal `json:"base_salary"`
}

type VacationJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type BonusJSON struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// =============================================================================
// WRITER
// =============================================================================

// Writer is the write side of a payroll store.
type Writer interface {
	SaveEmployee(ctx context.Context, e payroll.Employee) (payroll.EmployeeID, error)
	SaveEmployment(ctx context.Context, e payroll.Employment) (int64, error)
	SaveVacation(ctx context.Context, v payroll.Vacation) (int64, error)
	SaveBonus(ctx context.Context, b payroll.Bonus) (int64, error)
	SaveWorkLog(ctx context.Context, w payroll.WorkLogEntry) (int64, error)
}

// HolidayWriter is implemented by stores that persist a holiday calendar.
type HolidayWriter interface {
	SaveHoliday(ctx context.Context, date time.Time, name string) error
}

// Applied maps scenario refs to the ids the store assigned.
type Applied map[string]payroll.EmployeeID

// =============================================================================
// PARSING
// =============================================================================

// ParseScenario decodes and checks a JSON scenario.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks refs, dates and amounts without touching a store.
func (sc Scenario) Validate() error {
	if len(sc.Employees) == 0 {
		return &payroll.ValidationError{Field: "employees", Reason: "empty"}
	}
	for i, h := range sc.Holidays {
		if _, err := parseDate(fmt.Sprintf("holidays[%d].date", i), h.Date); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(sc.Employees))
	for i, e := range sc.Employees {
		field := func(name string) string { return fmt.Sprintf("employees[%d].%s", i, name) }
		if e.Ref == "" {
			return &payroll.ValidationError{Field: field("ref"), Reason: "required"}
		}
		if seen[e.Ref] {
			return &payroll.ValidationError{Field: field("ref"), Reason: fmt.Sprintf("duplicate ref %q", e.Ref)}
		}
		if e.Manager != "" && !seen[e.Manager] {
			return &payroll.ValidationError{Field: field("manager"), Reason: fmt.Sprintf("unknown or later ref %q", e.Manager)}
		}
		seen[e.Ref] = true

		switch payroll.Role(e.Role) {
		case "", payroll.RoleEmployee, payroll.RoleManager:
		default:
			return &payroll.ValidationError{Field: field("role"), Reason: fmt.Sprintf("unknown role %q", e.Role)}
		}
		if e.Email == "" || e.Code == "" || e.PersonalID == "" {
			return &payroll.ValidationError{Field: field("email"), Reason: "email, code and personal_id are required"}
		}
		if !allDigits(e.PersonalID) {
			return &payroll.ValidationError{Field: field("personal_id"), Reason: "must contain digits only"}
		}

		if e.Employment != nil {
			if _, err := parseDate(field("employment.hire_date"), e.Employment.HireDate); err != nil {
				return err
			}
			if e.Employment.EndDate != "" {
				if _, err := parseDate(field("employment.end_date"), e.Employment.EndDate); err != nil {
					return err
				}
			}
			if e.Employment.BaseSalary.IsNegative() {
				return &payroll.ValidationError{Field: field("employment.base_salary"), Reason: "negative"}
			}
		}
		for j, v := range e.Vacations {
			start, err := parseDate(field(fmt.Sprintf("vacations[%d].start", j)), v.Start)
			if err != nil {
				return err
			}
			end, err := parseDate(field(fmt.Sprintf("vacations[%d].end", j)), v.End)
			if err != nil {
				return err
			}
			if end.Before(start) {
				return &payroll.ValidationError{Field: field(fmt.Sprintf("vacations[%d]", j)), Reason: "end before start"}
			}
		}
		for j, b := range e.Bonuses {
			if _, err := parseDate(field(fmt.Sprintf("bonuses[%d].date", j)), b.Date); err != nil {
				return err
			}
			if b.Amount.IsNegative() {
				return &payroll.ValidationError{Field: field(fmt.Sprintf("bonuses[%d].amount", j)), Reason: "negative"}
			}
		}
		for j, d := range e.WorkLogs {
			if _, err := parseDate(field(fmt.Sprintf("work_logs[%d]", j)), d); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes the scenario through w. It is not transactional: on error
// the rows written so far remain.
func Apply(ctx context.Context, w Writer, sc Scenario) (Applied, error) {
	return ApplyWithCalendar(ctx, w, sc, nil)
}

// ApplyWithCalendar is Apply with extra holidays (typically the configured
// ones) excluded from stored vacation day counts. The scenario's own
// holidays, and w itself when it is a HolidayCalendar, always apply.
func ApplyWithCalendar(ctx context.Context, w Writer, sc Scenario, base timeoff.HolidayCalendar) (Applied, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	cal := timeoff.StaticCalendar{}
	for _, h := range sc.Holidays {
		d, _ := time.Parse(time.DateOnly, h.Date)
		cal[payroll.DateOf(d)] = h.Name
		if hw, ok := w.(HolidayWriter); ok {
			if err := hw.SaveHoliday(ctx, d, h.Name); err != nil {
				return nil, err
			}
		}
	}
	cals := timeoff.Calendars{cal, base}
	if stored, ok := w.(timeoff.HolidayCalendar); ok {
		cals = append(cals, stored)
	}
	counter := timeoff.NewWeekdayOverlap(cals)

	applied := make(Applied, len(sc.Employees))
	for _, e := range sc.Employees {
		id, err := applyEmployee(ctx, w, counter, applied, e)
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", e.Ref, err)
		}
		applied[e.Ref] = id
	}
	return applied, nil
}

func applyEmployee(ctx context.Context, w Writer, counter timeoff.WeekdayOverlap, applied Applied, e EmployeeJSON) (payroll.EmployeeID, error) {
	role := payroll.Role(e.Role)
	if role == "" {
		role = payroll.RoleEmployee
	}
	emp := payroll.Employee{
		Email:      e.Email,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Code:       e.Code,
		PersonalID: e.PersonalID,
		Role:       role,
	}
	if e.Manager != "" {
		mgr := applied[e.Manager]
		emp.ManagerID = &mgr
	}

	id, err := w.SaveEmployee(ctx, emp)
	if err != nil {
		return 0, err
	}

	if e.Employment != nil {
		term := payroll.Employment{
			EmployeeID: id,
			HireDate:   mustDate(e.Employment.HireDate),
			BaseSalary: e.Employment.BaseSalary,
		}
		if e.Employment.EndDate != "" {
			end := mustDate(e.Employment.EndDate)
			term.EndDate = &end
		}
		if _, err := w.SaveEmployment(ctx, term); err != nil {
			return 0, err
		}
	}

	for _, v := range e.Vacations {
		vac := payroll.Vacation{EmployeeID: id, Start: mustDate(v.Start), End: mustDate(v.End)}
		vac.Days = counter.Workdays(vac.Span())
		if _, err := w.SaveVacation(ctx, vac); err != nil {
			return 0, err
		}
	}
	for _, b := range e.Bonuses {
		if _, err := w.SaveBonus(ctx, payroll.Bonus{EmployeeID: id, Date: mustDate(b.Date), Amount: b.Amount, Reason: b.Reason}); err != nil {
			return 0, err
		}
	}
	for _, d := range e.WorkLogs {
		if _, err := w.SaveWorkLog(ctx, payroll.WorkLogEntry{EmployeeID: id, Date: mustDate(d)}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// =============================================================================
// DEMO
// =============================================================================

// DemoScenario builds a small team with activity inside period: a manager,
// Alice (7000, one 500 bonus, two vacation days) and Bob (7500, one
// vacation day). Every other weekday of the period is logged as worked.
func DemoScenario(period payroll.Period) Scenario {
	var weekdays []time.Time
	for _, d := range period.Days() {
		if !payroll.IsWeekend(d) {
			weekdays = append(weekdays, d)
		}
	}

	aliceOff := weekdays[5:7]
	bobOff := weekdays[10:11]

	alice := EmployeeJSON{
		Ref: "alice", Manager: "mara", Email: "alice@example.com",
		FirstName: "Alice", LastName: "Ionescu", Code: "EMP001", PersonalID: "2980202123456",
		Employment: &EmploymentJSON{HireDate: "2023-01-01", BaseSalary: decimal.NewFromInt(7000)},
		Vacations:  []VacationJSON{{Start: formatDate(aliceOff[0]), End: formatDate(aliceOff[1])}},
		Bonuses:    []BonusJSON{{Date: formatDate(weekdays[2]), Amount: decimal.NewFromInt(500), Reason: "Quarterly performance"}},
		WorkLogs:   workLogsExcept(weekdays, aliceOff),
	}
	bob := EmployeeJSON{
		Ref: "bob", Manager: "mara", Email: "bob@example.com",
		FirstName: "Bob", LastName: "Popescu", Code: "EMP002", PersonalID: "1850505123457",
		Employment: &EmploymentJSON{HireDate: "2024-03-01", BaseSalary: decimal.NewFromInt(7500)},
		Vacations:  []VacationJSON{{Start: formatDate(bobOff[0]), End: formatDate(bobOff[0])}},
		WorkLogs:   workLogsExcept(weekdays, bobOff),
	}

	return Scenario{
		Employees: []EmployeeJSON{
			{
				Ref: "mara", Email: "mara@example.com", FirstName: "Mara", LastName: "Manager",
				Code: "MGR001", PersonalID: "1800101000001", Role: string(payroll.RoleManager),
				Employment: &EmploymentJSON{HireDate: "2020-01-01", BaseSalary: decimal.NewFromInt(12000)},
			},
			alice,
			bob,
		},
	}
}

func workLogsExcept(days []time.Time, off []time.Time) []string {
	skip := make(map[time.Time]bool, len(off))
	for _, d := range off {
		skip[d] = true
	}
	var out []string
	for _, d := range days {
		if !skip[d] {
			out = append(out, formatDate(d))
		}
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &payroll.ValidationError{Field: field, Reason: fmt.Sprintf("want YYYY-MM-DD, got %q", s)}
	}
	return d, nil
}

// mustDate parses a date already checked by Validate.
func mustDate(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return payroll.DateOf(d)
}

func formatDate(t time.Time) string { return t.Format(time.DateOnly) }

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
