/*
aggregate.go - Monthly pay aggregation

PURPOSE:
  Derives one employee's figures for a period: working days, vacation
  days, bonus total, base salary and total pay. Pure computation over a
  Source; nothing is cached between calls.

RULES:
  Working days   count of work-log entries dated inside the period
  Vacation days  delegated to a VacationPolicy (timeoff.WeekdayOverlap)
  Bonus total    decimal sum of in-period bonuses, zero if none
  Base salary    current employment term active in the period; zero with
                 a missing_employment warning when there is none
  Total          base + bonus total, banker's rounding to 2 places, once

SEE ALSO:
  - timeoff/vacation.go: the vacation-day policy
  - render/slip.go: renders a Result
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// VacationPolicy counts the vacation days that fall into a period.
type VacationPolicy interface {
	VacationDays(vacations []Vacation, period Period) int
}

// Aggregator computes monthly results from a Source.
type Aggregator struct {
	source   Source
	vacation VacationPolicy
	logger   *slog.Logger
}

func NewAggregator(source Source, vacation VacationPolicy, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, vacation: vacation, logger: logger}
}

// Aggregate looks the employee up and computes its result for the period.
func (a *Aggregator) Aggregate(ctx context.Context, id EmployeeID, period Period) (Result, error) {
	emp, err := a.source.Employee(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return a.AggregateEmployee(ctx, emp, period)
}

// AggregateEmployee computes the result for an already resolved employee.
func (a *Aggregator) AggregateEmployee(ctx context.Context, emp Employee, period Period) (Result, error) {
	if err := period.Validate(); err != nil {
		return Result{}, err
	}
	if a.vacation == nil {
		return Result{}, errors.New("payroll: aggregator has no vacation policy")
	}

	res := Result{
		EmployeeID: emp.ID,
		Period:     period,
		BaseSalary: decimal.Zero,
		BonusTotal: decimal.Zero,
	}

	terms, err := a.source.Employments(ctx, emp.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load employment for %d: %w", emp.ID, err)
	}
	if term, ok := currentTerm(terms, period); ok {
		res.BaseSalary = term.BaseSalary
	} else {
		w := Warning{
			EmployeeID: emp.ID,
			Code:       WarnMissingEmployment,
			Message:    fmt.Sprintf("no employment term active in %s; base salary is 0", period.Month()),
		}
		res.Warnings = append(res.Warnings, w)
		a.logger.WarnContext(ctx, "employment term missing, using zero base salary",
			"employee_id", emp.ID, "month", period.Month())
	}

	bonuses, err := a.source.Bonuses(ctx, emp.ID, period.Start, period.End)
	if err != nil {
		return Result{}, fmt.Errorf("load bonuses for %d: %w", emp.ID, err)
	}
	for _, b := range bonuses {
		if !period.Contains(b.Date) {
			continue
		}
		if b.Amount.IsNegative() {
			return Result{}, &ValidationError{Field: "bonus.amount", Reason: fmt.Sprintf("bonus %d is negative", b.ID)}
		}
		res.BonusTotal = res.BonusTotal.Add(b.Amount)
	}

	vacations, err := a.source.Vacations(ctx, emp.ID, period.Start, period.End)
	if err != nil {
		return Result{}, fmt.Errorf("load vacations for %d: %w", emp.ID, err)
	}
	for _, v := range vacations {
		if v.End.Before(v.Start) {
			return Result{}, &ValidationError{Field: "vacation", Reason: fmt.Sprintf("vacation %d ends before it starts", v.ID)}
		}
	}
	res.VacationDays = a.vacation.VacationDays(vacations, period)

	logs, err := a.source.WorkLogs(ctx, emp.ID, period.Start, period.End)
	if err != nil {
		return Result{}, fmt.Errorf("load work logs for %d: %w", emp.ID, err)
	}
	for _, l := range logs {
		if period.Contains(l.Date) {
			res.WorkingDays++
		}
	}

	res.TotalSalary = res.BaseSalary.Add(res.BonusTotal).RoundBank(2)
	return res, nil
}

// currentTerm picks the active term with the latest hire date.
func currentTerm(terms []Employment, period Period) (Employment, bool) {
	var (
		best  Employment
		found bool
	)
	for _, t := range terms {
		if !t.ActiveDuring(period) {
			continue
		}
		if !found || t.HireDate.After(best.HireDate) {
			best, found = t, true
		}
	}
	return best, found
}
