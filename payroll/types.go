/*
Package payroll provides the core payroll model and the monthly aggregator.

PURPOSE:
  Domain types shared by every other package: employees and their
  employment terms, vacations, bonuses, work-log entries, and the derived
  aggregation result that slips and team reports are rendered from.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: identity, manager link, personal id (doubles as slip password)
  - Employment: a base-salary term with hire/end dates
  - Vacation, Bonus, WorkLogEntry: raw inputs to aggregation
  - Result: the derived monthly figures, never persisted

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal from storage to rendering
  2. Purity: Result is a function of the inputs, recomputed per request
  3. Type Safety: EmployeeID is its own type

SEE ALSO:
  - aggregate.go: Aggregator
  - period.go: calendar-month periods
  - store.go: query interfaces the aggregator reads through
*/
package payroll

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID int64

func (id EmployeeID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseEmployeeID parses a decimal employee id.
func ParseEmployeeID(s string) (EmployeeID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return EmployeeID(n), nil
}

type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// =============================================================================
// PEOPLE
// =============================================================================

// Employee is a person known to the payroll. Managers are employees too;
// top-level managers have no ManagerID.
type Employee struct {
	ID         EmployeeID
	Email      string
	FirstName  string
	LastName   string
	Code       string // stable employee code, e.g. EMP001
	PersonalID string // personal numeric identifier; slip password
	Role       Role
	ManagerID  *EmployeeID
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e Employee) IsManager() bool { return e.Role == RoleManager }

// Employment is one base-salary term. EndDate nil means open-ended.
type Employment struct {
	ID         int64
	EmployeeID EmployeeID
	HireDate   time.Time
	EndDate    *time.Time
	BaseSalary decimal.Decimal
}

// ActiveDuring reports whether the term overlaps the period.
func (e Employment) ActiveDuring(p Period) bool {
	if e.HireDate.After(p.End) {
		return false
	}
	if e.EndDate != nil && e.EndDate.Before(p.Start) {
		return false
	}
	return true
}

// =============================================================================
// AGGREGATION INPUTS
// =============================================================================

// Vacation is an inclusive [Start, End] absence. Days is the weekday count
// computed when the vacation was recorded.
type Vacation struct {
	ID         int64
	EmployeeID EmployeeID
	Start      time.Time
	End        time.Time
	Days       int
}

func (v Vacation) Span() Period { return Period{Start: v.Start, End: v.End} }

type Bonus struct {
	ID         int64
	EmployeeID EmployeeID
	Date       time.Time
	Amount     decimal.Decimal
	Reason     string
}

// DefaultWorkHours is the hours value of a work-log entry recorded without one.
var DefaultWorkHours = decimal.NewFromInt(8)

// WorkLogEntry records one worked calendar day.
type WorkLogEntry struct {
	ID         int64
	EmployeeID EmployeeID
	Date       time.Time
	Hours      decimal.Decimal
	Note       string
}

// =============================================================================
// AGGREGATION RESULT
// =============================================================================

// Result holds the monthly figures for one employee. TotalSalary is
// BaseSalary + BonusTotal, banker's-rounded to two places.
type Result struct {
	EmployeeID   EmployeeID
	Period       Period
	BaseSalary   decimal.Decimal
	BonusTotal   decimal.Decimal
	TotalSalary  decimal.Decimal
	VacationDays int
	WorkingDays  int
	Warnings     []Warning
}

// WarningCode classifies conditions that change pay without failing it.
type WarningCode string

const (
	WarnMissingEmployment WarningCode = "missing_employment"
)

type Warning struct {
	EmployeeID EmployeeID  `json:"employee_id"`
	Code       WarningCode `json:"code"`
	Message    string      `json:"message"`
}
