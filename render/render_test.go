package render_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/render"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var october = payroll.MonthOf(payroll.NewDate(2026, time.October, 1))

func alice() payroll.Employee {
	return payroll.Employee{
		ID: 7, Email: "alice@example.com", FirstName: "Alice", LastName: "Ionescu",
		Code: "EMP001", PersonalID: "2980202123456", Role: payroll.RoleEmployee,
	}
}

func aliceResult() payroll.Result {
	return payroll.Result{
		EmployeeID:   7,
		Period:       october,
		BaseSalary:   decimal.RequireFromString("7000.00"),
		BonusTotal:   decimal.RequireFromString("500.00"),
		TotalSalary:  decimal.RequireFromString("7500.00"),
		WorkingDays:  10,
		VacationDays: 2,
	}
}

// openPDF reads doc with password offered as both user and owner password.
func openPDF(doc []byte, password string) error {
	pdfapi.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.UserPW, conf.OwnerPW = password, password
	_, err := pdfapi.ReadContext(bytes.NewReader(doc), conf)
	return err
}

func fixedSlips() *render.Slips {
	s := render.NewSlips("", "Payroll Inc.")
	s.Now = func() time.Time { return time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC) }
	return s
}

// =============================================================================
// SLIP
// =============================================================================

func TestSlip_OpensOnlyWithPersonalID(t *testing.T) {
	// GIVEN: A rendered slip for Alice
	doc, err := fixedSlips().Render(render.SlipData{Employee: alice(), Result: aliceResult()})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	// THEN: Her personal id opens it
	require.NoError(t, openPDF(doc, "2980202123456"))

	// AND: Anything else does not
	for _, pw := range []string{"", "2980202123457", "EMP001", "alice@example.com"} {
		assert.ErrorContains(t, openPDF(doc, pw), "password", "password %q", pw)
	}
}

func TestSlip_ContentIsNotReadableInPlaintext(t *testing.T) {
	doc, err := fixedSlips().Render(render.SlipData{Employee: alice(), Result: aliceResult()})
	require.NoError(t, err)

	assert.NotContains(t, string(doc), "Ionescu")
	assert.NotContains(t, string(doc), "7500.00")
}

func TestSlip_AllZeroAggregateRenders(t *testing.T) {
	// GIVEN: A legitimate all-zero month
	res := payroll.Result{
		Period:      october,
		BaseSalary:  decimal.Zero,
		BonusTotal:  decimal.Zero,
		TotalSalary: decimal.Zero,
	}

	doc, err := fixedSlips().Render(render.SlipData{Employee: alice(), Result: res})
	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}

func TestSlip_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*payroll.Employee, *payroll.Result)
		field string
	}{
		{"negative working days", func(_ *payroll.Employee, r *payroll.Result) { r.WorkingDays = -1 }, "working_days"},
		{"negative vacation days", func(_ *payroll.Employee, r *payroll.Result) { r.VacationDays = -3 }, "vacation_days"},
		{"negative total", func(_ *payroll.Employee, r *payroll.Result) { r.TotalSalary = decimal.NewFromInt(-1) }, "total_salary"},
		{"empty name", func(e *payroll.Employee, _ *payroll.Result) { e.FirstName, e.LastName = "", " " }, "employee.name"},
		{"empty personal id", func(e *payroll.Employee, _ *payroll.Result) { e.PersonalID = "" }, "employee.personal_id"},
		{"non-numeric personal id", func(e *payroll.Employee, _ *payroll.Result) { e.PersonalID = "29802A" }, "employee.personal_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emp, res := alice(), aliceResult()
			tt.edit(&emp, &res)

			_, err := fixedSlips().Render(render.SlipData{Employee: emp, Result: res})

			var rerr *render.RenderError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.field, rerr.Field)
			assert.ErrorIs(t, err, payroll.ErrValidation)
		})
	}
}

func TestAmountInWords(t *testing.T) {
	assert.Equal(t, "seven thousand five hundred and 00/100", render.AmountInWords(decimal.RequireFromString("7500")))
	assert.Equal(t, "zero and 05/100", render.AmountInWords(decimal.RequireFromString("0.05")))
}

// =============================================================================
// ENCRYPTION
// =============================================================================

func TestProtection_EachConfiguredPasswordOpens(t *testing.T) {
	// GIVEN: A document whose user and owner passwords differ
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetProtection(gofpdf.CnProtectPrint, "viewer", "admin")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, "hello")
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	// THEN: Both open it, a stranger's password does not
	assert.NoError(t, openPDF(buf.Bytes(), "viewer"))
	assert.NoError(t, openPDF(buf.Bytes(), "admin"))
	assert.ErrorContains(t, openPDF(buf.Bytes(), "nobody"), "password")
}

func TestProtection_PlainDocumentNeedsNoPassword(t *testing.T) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	assert.NoError(t, openPDF(buf.Bytes(), ""))
}

// =============================================================================
// TEAM REPORT
// =============================================================================

func TestTeamReport_FixedColumnsAndOrder(t *testing.T) {
	rows := []render.ReportRow{
		render.RowFrom(alice(), aliceResult()),
		{EmployeeID: 8, Name: "Bob Popescu", Salary: decimal.RequireFromString("7500"), Bonus: decimal.Zero, VacationDays: 1},
	}

	out, err := render.RenderTeamReport(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, render.ReportHeader, records[0])
	assert.Equal(t, []string{"Alice Ionescu", "7500.00", "10", "2", "500.00"}, records[1])
	assert.Equal(t, []string{"Bob Popescu", "7500.00", "0", "1", "0.00"}, records[2])
}

func TestTeamReport_QuotesNamesWithCommas(t *testing.T) {
	rows := []render.ReportRow{{Name: "Smith, Jr. John", Salary: decimal.Zero, Bonus: decimal.Zero}}

	out, err := render.RenderTeamReport(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Smith, Jr. John", records[1][0])
	assert.Len(t, records[1], 5)
}

func TestTeamReport_RejectsNegativeDays(t *testing.T) {
	_, err := render.RenderTeamReport([]render.ReportRow{{Name: "X", WorkingDays: -2, Salary: decimal.Zero, Bonus: decimal.Zero}})

	var rerr *render.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "rows[0].working_days", rerr.Field)
}

func TestTeamSpreadsheet(t *testing.T) {
	rows := []render.ReportRow{render.RowFrom(alice(), aliceResult())}

	out, err := render.RenderTeamSpreadsheet(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(render.ReportSheet)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, render.ReportHeader, got[0])
	assert.Equal(t, "Alice Ionescu", got[1][0])
	assert.Equal(t, "10", got[1][2])
}
