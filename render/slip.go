/*
slip.go - Encrypted per-employee salary slip

PURPOSE:
  Renders one employee's monthly Result as a single A4 PDF page and
  encrypts it with the standard security handler. The user password and
  the owner password are both the employee's personal id, so only the
  subject of the slip can open it.

LAYOUT:
  Salary Slip
  Name / Employee ID (code) / Personal ID / Month
  Base salary / Working days / Vacation days / Bonuses
  Total salary to be paid (with the amount in words)
  footer: the password rule

SEE ALSO:
  - delivery/coordinator.go: renders slips per direct report
*/
package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/divan/num2words"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/warp/payslip-engine/payroll"
)

const DefaultCurrency = "RON"

// SlipData is everything printed on one slip.
type SlipData struct {
	Employee    payroll.Employee
	Result      payroll.Result
	PeriodLabel string // e.g. "October 2026"; defaults to Result.Period.Label()
}

// Slips renders slip PDFs.
type Slips struct {
	Currency string
	Company  string
	Now      func() time.Time // creation date stamped into the document
}

func NewSlips(currency, company string) *Slips {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Slips{Currency: currency, Company: company, Now: time.Now}
}

// Render validates d and returns the encrypted PDF bytes.
func (s *Slips) Render(d SlipData) ([]byte, error) {
	if err := validateSlip(d); err != nil {
		return nil, err
	}
	label := d.PeriodLabel
	if label == "" {
		label = d.Result.Period.Label()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	pid := d.Employee.PersonalID
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetProtection(gofpdf.CnProtectPrint, pid, pid)
	pdf.SetCreationDate(now().UTC())
	pdf.SetTitle("Salary Slip "+label, true)
	if s.Company != "" {
		pdf.SetCreator(s.Company, true)
	}
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	res := d.Result

	pdf.SetXY(25, 25)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Salary Slip", "", 1, "L", false, 0, "")
	pdf.Ln(5)

	lines := []string{
		"Name: " + d.Employee.FullName(),
		"Employee ID (code): " + d.Employee.Code,
		"Personal ID: " + pid,
		"Month: " + label,
		"",
		"Base salary: " + s.money(res.BaseSalary),
		fmt.Sprintf("Working days: %d", res.WorkingDays),
		fmt.Sprintf("Vacation days: %d", res.VacationDays),
		"Bonuses: " + s.money(res.BonusTotal),
		"",
	}
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		pdf.SetX(25)
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.SetX(25)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Total salary to be paid: "+s.money(res.TotalSalary), "", 1, "L", false, 0, "")
	pdf.SetX(25)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, tr("("+AmountInWords(res.TotalSalary)+" "+s.Currency+")"), "", 1, "L", false, 0, "")

	pdf.SetXY(25, 272)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "This PDF is password-protected. Password = your personal ID.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render slip for %d: %w", d.Employee.ID, err)
	}
	return buf.Bytes(), nil
}

func (s *Slips) money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + s.Currency
}

// AmountInWords spells the integer part and appends cents as a fraction,
// e.g. 7500.25 -> "seven thousand five hundred and 25/100".
func AmountInWords(d decimal.Decimal) string {
	d = d.RoundBank(2)
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s and %02d/100", num2words.Convert(int(whole.IntPart())), cents)
}

func validateSlip(d SlipData) error {
	v := validator{doc: "slip"}
	v.name("employee.name", d.Employee.FullName())
	v.digits("employee.personal_id", d.Employee.PersonalID)
	v.days("working_days", d.Result.WorkingDays)
	v.days("vacation_days", d.Result.VacationDays)
	v.money("base_salary", d.Result.BaseSalary)
	v.money("bonus_total", d.Result.BonusTotal)
	v.money("total_salary", d.Result.TotalSalary)
	return v.result()
}
