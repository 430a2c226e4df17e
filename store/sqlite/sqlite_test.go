package sqlite_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-engine/delivery"
	"github.com/warp/payslip-engine/factory"
	"github.com/warp/payslip-engine/idempotency"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/store/sqlite"
	"github.com/warp/payslip-engine/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTeam(t *testing.T, s *sqlite.Store) (manager, alice payroll.EmployeeID) {
	t.Helper()
	ctx := context.Background()

	manager, err := s.SaveEmployee(ctx, payroll.Employee{
		Email: "mara@example.com", FirstName: "Mara", LastName: "Manager",
		Code: "MGR001", PersonalID: "1800101000001", Role: payroll.RoleManager,
	})
	require.NoError(t, err)

	alice, err = s.SaveEmployee(ctx, payroll.Employee{
		Email: "alice@example.com", FirstName: "Alice", LastName: "Ionescu",
		Code: "EMP001", PersonalID: "2980202123456", Role: payroll.RoleEmployee, ManagerID: &manager,
	})
	require.NoError(t, err)
	return manager, alice
}

var october2026 = payroll.MonthOf(payroll.NewDate(2026, time.October, 1))

// =============================================================================
// PAYROLL SOURCE
// =============================================================================

func TestStore_EmployeesAndReports(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	manager, alice := seedTeam(t, s)

	got, err := s.Employee(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice Ionescu", got.FullName())
	require.NotNil(t, got.ManagerID)
	assert.Equal(t, manager, *got.ManagerID)

	reports, err := s.DirectReports(ctx, manager)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, alice, reports[0].ID)

	// Managers are not their own reports
	none, err := s.DirectReports(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.Employee(ctx, 999)
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestStore_DuplicateEmployeeFieldsRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedTeam(t, s)

	_, err := s.SaveEmployee(ctx, payroll.Employee{
		Email: "other@example.com", FirstName: "Other", LastName: "Person",
		Code: "EMP999", PersonalID: "2980202123456", Role: payroll.RoleEmployee,
	})
	assert.ErrorIs(t, err, payroll.ErrDuplicateRecord)
}

func TestStore_SaveEmployeeWithIDReplaces(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, alice := seedTeam(t, s)

	emp, err := s.Employee(ctx, alice)
	require.NoError(t, err)
	emp.LastName = "Popa"

	id, err := s.SaveEmployee(ctx, emp)
	require.NoError(t, err)
	assert.Equal(t, alice, id)

	got, err := s.Employee(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice Popa", got.FullName())
}

func TestStore_AggregationInputsRoundTrip(t *testing.T) {
	// GIVEN: One employee with a term, bonuses either side of October,
	// an October vacation and two work logs
	s := newStore(t)
	ctx := context.Background()
	_, alice := seedTeam(t, s)

	end := payroll.NewDate(2027, time.June, 30)
	_, err := s.SaveEmployment(ctx, payroll.Employment{
		EmployeeID: alice, HireDate: payroll.NewDate(2023, time.January, 1),
		EndDate: &end, BaseSalary: decimal.RequireFromString("7000.10"),
	})
	require.NoError(t, err)

	for _, b := range []struct {
		day    time.Time
		amount string
	}{
		{payroll.NewDate(2026, time.September, 30), "999"},
		{payroll.NewDate(2026, time.October, 1), "300.10"},
		{payroll.NewDate(2026, time.October, 31), "200"},
	} {
		_, err := s.SaveBonus(ctx, payroll.Bonus{EmployeeID: alice, Date: b.day, Amount: decimal.RequireFromString(b.amount)})
		require.NoError(t, err)
	}

	_, err = s.SaveVacation(ctx, payroll.Vacation{
		EmployeeID: alice, Start: payroll.NewDate(2026, time.September, 28),
		End: payroll.NewDate(2026, time.October, 2), Days: 5,
	})
	require.NoError(t, err)

	for _, d := range []int{5, 6} {
		_, err := s.SaveWorkLog(ctx, payroll.WorkLogEntry{EmployeeID: alice, Date: payroll.NewDate(2026, time.October, d)})
		require.NoError(t, err)
	}

	// WHEN: Reading back the October window
	terms, err := s.Employments(ctx, alice)
	require.NoError(t, err)
	bonuses, err := s.Bonuses(ctx, alice, october2026.Start, october2026.End)
	require.NoError(t, err)
	vacations, err := s.Vacations(ctx, alice, october2026.Start, october2026.End)
	require.NoError(t, err)
	logs, err := s.WorkLogs(ctx, alice, october2026.Start, october2026.End)
	require.NoError(t, err)

	// THEN: Values survive exactly and range bounds are inclusive
	require.Len(t, terms, 1)
	assert.True(t, terms[0].BaseSalary.Equal(decimal.RequireFromString("7000.10")))
	require.NotNil(t, terms[0].EndDate)
	assert.True(t, terms[0].EndDate.Equal(end))

	require.Len(t, bonuses, 2)
	assert.Equal(t, "300.1", bonuses[0].Amount.String())

	require.Len(t, vacations, 1, "a vacation straddling the month start overlaps it")
	assert.Equal(t, 5, vacations[0].Days)

	require.Len(t, logs, 2)
	assert.True(t, logs[0].Hours.Equal(payroll.DefaultWorkHours))
}

func TestStore_UniqueVacationAndWorkLog(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, alice := seedTeam(t, s)

	v := payroll.Vacation{EmployeeID: alice, Start: payroll.NewDate(2026, time.October, 8), End: payroll.NewDate(2026, time.October, 9), Days: 2}
	_, err := s.SaveVacation(ctx, v)
	require.NoError(t, err)
	_, err = s.SaveVacation(ctx, v)
	assert.ErrorIs(t, err, payroll.ErrDuplicateRecord)

	w := payroll.WorkLogEntry{EmployeeID: alice, Date: payroll.NewDate(2026, time.October, 5)}
	_, err = s.SaveWorkLog(ctx, w)
	require.NoError(t, err)
	_, err = s.SaveWorkLog(ctx, w)
	assert.ErrorIs(t, err, payroll.ErrDuplicateRecord)
}

func TestStore_DrivesAggregator(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, alice := seedTeam(t, s)

	_, err := s.SaveEmployment(ctx, payroll.Employment{
		EmployeeID: alice, HireDate: payroll.NewDate(2023, time.January, 1), BaseSalary: decimal.NewFromInt(7000),
	})
	require.NoError(t, err)
	_, err = s.SaveBonus(ctx, payroll.Bonus{EmployeeID: alice, Date: payroll.NewDate(2026, time.October, 5), Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	agg := payroll.NewAggregator(s, timeoff.NewWeekdayOverlap(nil), nil)
	res, err := agg.Aggregate(ctx, alice, october2026)
	require.NoError(t, err)
	assert.Equal(t, "7500.00", res.TotalSalary.StringFixed(2))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestStore_Calendar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHoliday(ctx, payroll.NewDate(2026, time.December, 1), "National Day"))
	require.NoError(t, s.SaveHoliday(ctx, payroll.NewDate(2026, time.December, 1), "Ziua Nationala"))

	cal, err := s.Calendar(ctx)
	require.NoError(t, err)
	assert.Len(t, cal, 1)
	assert.True(t, cal.IsHoliday(payroll.NewDate(2026, time.December, 1)))
	assert.False(t, cal.IsHoliday(payroll.NewDate(2026, time.December, 2)))
}

func TestStore_HolidaysSavedLaterReachAggregator(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// GIVEN: The aggregator is built over the store before any holiday exists
	agg := payroll.NewAggregator(s, timeoff.NewWeekdayOverlap(s), nil)

	// WHEN: A scenario adds 2026-10-14 inside a 13-15 October vacation
	ids, err := factory.Apply(ctx, s, factory.Scenario{
		Holidays: []factory.HolidayJSON{{Date: "2026-10-14", Name: "Company Day"}},
		Employees: []factory.EmployeeJSON{{
			Ref: "ana", Email: "ana@example.com", FirstName: "Ana", LastName: "Pop",
			Code: "EMP100", PersonalID: "2900101000100",
			Employment: &factory.EmploymentJSON{HireDate: "2025-01-01", BaseSalary: decimal.NewFromInt(5000)},
			Vacations:  []factory.VacationJSON{{Start: "2026-10-13", End: "2026-10-15"}},
		}},
	})
	require.NoError(t, err)

	// THEN: The stored day count and the aggregated one agree
	vacations, err := s.Vacations(ctx, ids["ana"], october2026.Start, october2026.End)
	require.NoError(t, err)
	require.Len(t, vacations, 1)
	assert.Equal(t, 2, vacations[0].Days)

	res, err := agg.Aggregate(ctx, ids["ana"], october2026)
	require.NoError(t, err)
	assert.Equal(t, 2, res.VacationDays)
}

func TestStore_HolidaysLoadedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payslip.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveHoliday(context.Background(), payroll.NewDate(2026, time.December, 1), "National Day"))
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	assert.True(t, reopened.IsHoliday(payroll.NewDate(2026, time.December, 1)))
	assert.False(t, reopened.IsHoliday(payroll.NewDate(2026, time.December, 2)))
}

// =============================================================================
// IDEMPOTENCY LEDGER
// =============================================================================

func TestStore_LedgerInsertOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	missing, err := s.Lookup(ctx, "k-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	rec := idempotency.Record{
		ID: "r-1", Key: "k-1", Operation: delivery.OpGenerateSlips, Status: 200,
		Payload: json.RawMessage(`{"ok":true}`), CreatedAt: time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Insert(ctx, rec))

	rec.ID = "r-2"
	err = s.Insert(ctx, rec)
	assert.ErrorIs(t, err, payroll.ErrPersistenceConflict)

	got, err := s.Lookup(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r-1", got.ID)
	assert.JSONEq(t, `{"ok":true}`, string(got.Payload))
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
}

func TestStore_LedgerBacksGuard(t *testing.T) {
	s := newStore(t)
	guard := idempotency.NewGuard(s, nil)
	calls := 0
	thunk := func(context.Context) (idempotency.Result, error) {
		calls++
		return idempotency.Structured(200, map[string]int{"calls": calls})
	}

	first, err := guard.RunOnce(context.Background(), "k-1", delivery.OpGenerateReport, thunk)
	require.NoError(t, err)
	second, err := guard.RunOnce(context.Background(), "k-1", delivery.OpGenerateReport, thunk)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, second.Replayed)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
}

// =============================================================================
// SEND JOURNAL
// =============================================================================

func TestJournal_ResumesOpenRun(t *testing.T) {
	s := newStore(t)
	j := s.Journal()
	ctx := context.Background()

	// GIVEN: A run with one delivered recipient
	run, err := j.Open(ctx, delivery.OpSendSlips, 1, "2026-10", "k-1")
	require.NoError(t, err)
	require.NoError(t, j.Complete(ctx, delivery.Item{
		RunID: run.ID, EmployeeID: 7, Recipient: "alice@example.com",
		File: "slip_7_202610.pdf", ArchivedAs: "slip_7_202610_20261014_100000_000000.pdf",
	}))

	// WHEN: The same triple is opened again with another key
	again, err := j.Open(ctx, delivery.OpSendSlips, 1, "2026-10", "k-2")
	require.NoError(t, err)

	// THEN: It is the same run, carrying its item and original key
	assert.Equal(t, run.ID, again.ID)
	assert.Equal(t, "k-1", again.Key)
	item, ok := again.Delivered(7)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", item.Recipient)

	// Duplicate completion is rejected
	err = j.Complete(ctx, item)
	assert.ErrorIs(t, err, payroll.ErrDuplicateRecord)
}

func TestJournal_CloseStartsFreshRun(t *testing.T) {
	s := newStore(t)
	j := s.Journal()
	ctx := context.Background()

	run, err := j.Open(ctx, delivery.OpSendReport, 1, "2026-10", "")
	require.NoError(t, err)
	require.NoError(t, j.Close(ctx, run.ID))

	next, err := j.Open(ctx, delivery.OpSendReport, 1, "2026-10", "")
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, next.ID)
	assert.Empty(t, next.Items)

	other, err := j.Open(ctx, delivery.OpSendReport, 1, "2026-11", "")
	require.NoError(t, err)
	assert.NotEqual(t, next.ID, other.ID)

	assert.ErrorIs(t, j.Close(ctx, "missing"), payroll.ErrNotFound)
	assert.ErrorIs(t, j.Complete(ctx, delivery.Item{RunID: "missing", EmployeeID: 1}), payroll.ErrNotFound)
}

func TestStore_FileDatabaseSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payslip.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	_, alice := seedTeam(t, s)
	require.NoError(t, s.Close())

	// Migrations are already applied; reopening is a no-op upgrade
	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Employee(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, alice := seedTeam(t, s)
	require.NoError(t, s.Insert(ctx, idempotency.Record{
		ID: "r-1", Key: "k-kept", Operation: delivery.OpGenerateReport, Status: 200,
		Payload: json.RawMessage(`{"ok":true}`), CreatedAt: time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC),
	}))

	require.NoError(t, s.Reset(ctx))

	_, err := s.Employee(ctx, alice)
	assert.ErrorIs(t, err, payroll.ErrNotFound)

	// The ledger outlives a reset
	rec, err := s.Lookup(ctx, "k-kept")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, delivery.OpGenerateReport, rec.Operation)
}
