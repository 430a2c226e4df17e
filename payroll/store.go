/*
store.go - Query interfaces for payroll inputs

PURPOSE:
  Defines the read side the aggregator and coordinator depend on. The
  payroll core never writes employees, vacations, bonuses or work logs;
  it only reads them filtered by employee and date range.

KEY INTERFACES:
  Directory: people lookups (employee by id, direct reports)
  Source:    per-employee inputs for a period

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - payroll/store/memory.go: In-memory for testing

SEE ALSO:
  - aggregate.go: consumes Source
  - delivery/coordinator.go: consumes Directory
*/
package payroll

import (
	"context"
	"time"
)

// Directory resolves people.
type Directory interface {
	// Employee returns ErrNotFound if no employee has the id.
	Employee(ctx context.Context, id EmployeeID) (Employee, error)

	// DirectReports returns employees (role employee) whose manager is
	// managerID. Order is unspecified.
	DirectReports(ctx context.Context, managerID EmployeeID) ([]Employee, error)
}

// Source returns aggregation inputs. Date bounds are inclusive.
type Source interface {
	Directory

	// Employments returns every employment term of the employee.
	Employments(ctx context.Context, id EmployeeID) ([]Employment, error)

	// Vacations returns vacations overlapping [from, to].
	Vacations(ctx context.Context, id EmployeeID, from, to time.Time) ([]Vacation, error)

	// Bonuses returns bonuses dated within [from, to].
	Bonuses(ctx context.Context, id EmployeeID, from, to time.Time) ([]Bonus, error)

	// WorkLogs returns work-log entries dated within [from, to].
	WorkLogs(ctx context.Context, id EmployeeID, from, to time.Time) ([]WorkLogEntry, error)
}
