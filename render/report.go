package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/payslip-engine/payroll"
)

// ReportHeader is the fixed column order of the team report. Consumers
// parse by position.
var ReportHeader = []string{
	"Employee name",
	"Salary to be paid for the current month",
	"Number of working days during the month",
	"Number of vacation days taken",
	"Additional bonuses (if any)",
}

// ReportRow is one employee line of the team report.
type ReportRow struct {
	EmployeeID   payroll.EmployeeID
	Name         string
	Salary       decimal.Decimal
	WorkingDays  int
	VacationDays int
	Bonus        decimal.Decimal
}

// RowFrom builds a report row from an aggregation result.
func RowFrom(e payroll.Employee, r payroll.Result) ReportRow {
	return ReportRow{
		EmployeeID:   e.ID,
		Name:         e.FullName(),
		Salary:       r.TotalSalary,
		WorkingDays:  r.WorkingDays,
		VacationDays: r.VacationDays,
		Bonus:        r.BonusTotal,
	}
}

func (r ReportRow) record() []string {
	return []string{
		r.Name,
		r.Salary.StringFixed(2),
		strconv.Itoa(r.WorkingDays),
		strconv.Itoa(r.VacationDays),
		r.Bonus.StringFixed(2),
	}
}

// RenderTeamReport writes rows as UTF-8 CSV, header first, in the given order.
func RenderTeamReport(rows []ReportRow) ([]byte, error) {
	if err := validateRows("report", rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ReportHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return nil, fmt.Errorf("write row for %d: %w", r.EmployeeID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validateRows(doc string, rows []ReportRow) error {
	v := validator{doc: doc}
	for i, r := range rows {
		prefix := fmt.Sprintf("rows[%d].", i)
		v.name(prefix+"name", r.Name)
		v.money(prefix+"salary", r.Salary)
		v.days(prefix+"working_days", r.WorkingDays)
		v.days(prefix+"vacation_days", r.VacationDays)
		v.money(prefix+"bonus", r.Bonus)
	}
	return v.result()
}
