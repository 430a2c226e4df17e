/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  One database file holds everything the engine persists: the payroll
  inputs it aggregates, the idempotency ledger, the send journal and the
  holiday calendar. Rendered files live on disk (see artifact/), never here.

INTERFACES IMPLEMENTED:
  payroll.Source:      employees, employments, vacations, bonuses, work logs
  idempotency.Store:   insert-only ledger keyed by idempotency key
  delivery.Journal:    send runs and their delivered recipients (via Journal())
  timeoff.HolidayCalendar: stored holidays, kept in memory and updated by
                       SaveHoliday so vacation counting sees new dates

KEY TABLES:
  employees:           UNIQUE email, code and personal_id
  vacations:           UNIQUE (employee_id, start_date, end_date)
  work_logs:           UNIQUE (employee_id, date)
  idempotency_records: UNIQUE key; rows are never updated or deleted
  delivery_runs:       partial UNIQUE index, one open run per
                       (operation, manager_id, month)
  delivery_items:      PRIMARY KEY (run_id, employee_id)

STORAGE FORMATS:
  Dates are TEXT YYYY-MM-DD, money is TEXT in decimal notation so values
  round-trip through shopspring/decimal exactly. Timestamps are RFC 3339.

MIGRATION:
  Schema lives in migrations/ and is embedded into the binary. New() applies
  pending migrations with golang-migrate before returning.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking. An
  in-memory database is pinned to a single connection, since every new
  connection to ":memory:" would see an empty database.

USAGE:
  store, err := sqlite.New("./data/payslip.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/store.go: read interfaces
  - idempotency/store.go: ledger interface
  - delivery/journal.go: journal interface
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payslip-engine/delivery"
	"github.com/warp/payslip-engine/idempotency"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/timeoff"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements all storage interfaces using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	now      func() time.Time
	holidays timeoff.StaticCalendar
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if store.holidays, err = store.Calendar(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded migrations. The migrate instance is not closed:
// closing it would close the shared *sql.DB.
func (s *Store) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// PAYROLL WRITES
// =============================================================================

// SaveEmployee inserts an employee, or replaces it when ID is set.
func (s *Store) SaveEmployee(ctx context.Context, e payroll.Employee) (payroll.EmployeeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := e.Role
	if role == "" {
		role = payroll.RoleEmployee
	}
	var manager sql.NullInt64
	if e.ManagerID != nil {
		manager = sql.NullInt64{Int64: int64(*e.ManagerID), Valid: true}
	}

	if e.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO employees (email, first_name, last_name, code, personal_id, role, manager_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Email, e.FirstName, e.LastName, e.Code, e.PersonalID, string(role), manager)
		if err != nil {
			return 0, s.writeError("employee "+e.Email, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read employee id: %w", err)
		}
		return payroll.EmployeeID(id), nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, email, first_name, last_name, code, personal_id, role, manager_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			code = excluded.code,
			personal_id = excluded.personal_id,
			role = excluded.role,
			manager_id = excluded.manager_id`,
		int64(e.ID), e.Email, e.FirstName, e.LastName, e.Code, e.PersonalID, string(role), manager)
	if err != nil {
		return 0, s.writeError("employee "+e.Email, err)
	}
	return e.ID, nil
}

func (s *Store) SaveEmployment(ctx context.Context, e payroll.Employment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var end sql.NullString
	if e.EndDate != nil {
		end = sql.NullString{String: formatDate(*e.EndDate), Valid: true}
	}
	return s.insert(ctx, s.db, "employment", `
		INSERT INTO employments (employee_id, hire_date, end_date, base_salary)
		VALUES (?, ?, ?, ?)`,
		int64(e.EmployeeID), formatDate(e.HireDate), end, e.BaseSalary.String())
}

func (s *Store) SaveVacation(ctx context.Context, v payroll.Vacation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(ctx, s.db, "vacation "+v.Span().String(), `
		INSERT INTO vacations (employee_id, start_date, end_date, days)
		VALUES (?, ?, ?, ?)`,
		int64(v.EmployeeID), formatDate(v.Start), formatDate(v.End), v.Days)
}

func (s *Store) SaveBonus(ctx context.Context, b payroll.Bonus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(ctx, s.db, "bonus", `
		INSERT INTO bonuses (employee_id, date, amount, reason)
		VALUES (?, ?, ?, ?)`,
		int64(b.EmployeeID), formatDate(b.Date), b.Amount.String(), b.Reason)
}

func (s *Store) SaveWorkLog(ctx context.Context, w payroll.WorkLogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hours := w.Hours
	if hours.IsZero() {
		hours = payroll.DefaultWorkHours
	}
	return s.insert(ctx, s.db, "work log "+formatDate(w.Date), `
		INSERT INTO work_logs (employee_id, date, hours, note)
		VALUES (?, ?, ?, ?)`,
		int64(w.EmployeeID), formatDate(w.Date), hours.String(), w.Note)
}

func (s *Store) insert(ctx context.Context, db execer, what, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.writeError(what, err)
	}
	return res.LastInsertId()
}

func (s *Store) writeError(what string, err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", what, payroll.ErrDuplicateRecord)
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}

// =============================================================================
// PAYROLL READS (payroll.Source)
// =============================================================================

const employeeColumns = `id, email, first_name, last_name, code, personal_id, role, manager_id`

func (s *Store) Employee(ctx context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, int64(id))
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Employee{}, fmt.Errorf("employee %d: %w", id, payroll.ErrNotFound)
	}
	if err != nil {
		return payroll.Employee{}, fmt.Errorf("failed to query employee: %w", err)
	}
	return e, nil
}

func (s *Store) DirectReports(ctx context.Context, managerID payroll.EmployeeID) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+employeeColumns+` FROM employees
		WHERE manager_id = ? AND role = ?
		ORDER BY id`, int64(managerID), string(payroll.RoleEmployee))
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []payroll.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Employments(ctx context.Context, id payroll.EmployeeID) ([]payroll.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, hire_date, end_date, base_salary
		FROM employments WHERE employee_id = ?
		ORDER BY hire_date`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query employments: %w", err)
	}
	defer rows.Close()

	var out []payroll.Employment
	for rows.Next() {
		var (
			e      payroll.Employment
			empID  int64
			hire   string
			end    sql.NullString
			salary string
		)
		if err := rows.Scan(&e.ID, &empID, &hire, &end, &salary); err != nil {
			return nil, fmt.Errorf("failed to scan employment: %w", err)
		}
		e.EmployeeID = payroll.EmployeeID(empID)
		if e.HireDate, err = parseDate(hire); err != nil {
			return nil, err
		}
		if end.Valid {
			d, err := parseDate(end.String)
			if err != nil {
				return nil, err
			}
			e.EndDate = &d
		}
		if e.BaseSalary, err = decimal.NewFromString(salary); err != nil {
			return nil, fmt.Errorf("employment %d: bad base salary %q: %w", e.ID, salary, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Vacations(ctx context.Context, id payroll.EmployeeID, from, to time.Time) ([]payroll.Vacation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_date, end_date, days
		FROM vacations
		WHERE employee_id = ? AND end_date >= ? AND start_date <= ?
		ORDER BY start_date`, int64(id), formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	var out []payroll.Vacation
	for rows.Next() {
		v := payroll.Vacation{EmployeeID: id}
		var start, end string
		if err := rows.Scan(&v.ID, &start, &end, &v.Days); err != nil {
			return nil, fmt.Errorf("failed to scan vacation: %w", err)
		}
		if v.Start, err = parseDate(start); err != nil {
			return nil, err
		}
		if v.End, err = parseDate(end); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) Bonuses(ctx context.Context, id payroll.EmployeeID, from, to time.Time) ([]payroll.Bonus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount, reason
		FROM bonuses
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date, id`, int64(id), formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query bonuses: %w", err)
	}
	defer rows.Close()

	var out []payroll.Bonus
	for rows.Next() {
		b := payroll.Bonus{EmployeeID: id}
		var date, amount string
		if err := rows.Scan(&b.ID, &date, &amount, &b.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan bonus: %w", err)
		}
		if b.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bonus %d: bad amount %q: %w", b.ID, amount, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) WorkLogs(ctx context.Context, id payroll.EmployeeID, from, to time.Time) ([]payroll.WorkLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, hours, note
		FROM work_logs
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date`, int64(id), formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query work logs: %w", err)
	}
	defer rows.Close()

	var out []payroll.WorkLogEntry
	for rows.Next() {
		w := payroll.WorkLogEntry{EmployeeID: id}
		var date, hours string
		if err := rows.Scan(&w.ID, &date, &hours, &w.Note); err != nil {
			return nil, fmt.Errorf("failed to scan work log: %w", err)
		}
		if w.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if w.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("work log %d: bad hours %q: %w", w.ID, hours, err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (payroll.Employee, error) {
	var (
		e       payroll.Employee
		id      int64
		role    string
		manager sql.NullInt64
	)
	if err := row.Scan(&id, &e.Email, &e.FirstName, &e.LastName, &e.Code, &e.PersonalID, &role, &manager); err != nil {
		return payroll.Employee{}, err
	}
	e.ID = payroll.EmployeeID(id)
	e.Role = payroll.Role(role)
	if manager.Valid {
		m := payroll.EmployeeID(manager.Int64)
		e.ManagerID = &m
	}
	return e, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday records a company holiday. Saving an existing date renames it.
func (s *Store) SaveHoliday(ctx context.Context, date time.Time, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name`,
		formatDate(date), name)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	s.holidays[payroll.DateOf(date)] = name
	return nil
}

// IsHoliday reports whether day is a stored holiday.
func (s *Store) IsHoliday(day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holidays.IsHoliday(day)
}

// Calendar loads every stored holiday.
func (s *Store) Calendar(ctx context.Context) (timeoff.StaticCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT date, name FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	cal := make(timeoff.StaticCalendar)
	for rows.Next() {
		var date, name string
		if err := rows.Scan(&date, &name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		cal[d] = name
	}
	return cal, rows.Err()
}

// =============================================================================
// IDEMPOTENCY LEDGER (idempotency.Store)
// =============================================================================

func (s *Store) Lookup(ctx context.Context, key string) (*idempotency.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rec       idempotency.Record
		payload   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, key, operation, status, payload, created_at
		FROM idempotency_records WHERE key = ?`, key).
		Scan(&rec.ID, &rec.Key, &rec.Operation, &rec.Status, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query idempotency record: %w", err)
	}
	rec.Payload = []byte(payload)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rec, nil
}

func (s *Store) Insert(ctx context.Context, rec idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_records (id, key, operation, status, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Key, rec.Operation, rec.Status, string(rec.Payload),
		createdAt.UTC().Format(time.RFC3339Nano))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("key %q: %w", rec.Key, payroll.ErrPersistenceConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	return nil
}

// =============================================================================
// SEND JOURNAL (delivery.Journal)
// =============================================================================

// Journal is the delivery.Journal view of the store. It is a separate type
// because Store.Close already closes the database.
type Journal struct {
	s *Store
}

// Journal returns the send journal backed by this store.
func (s *Store) Journal() *Journal { return &Journal{s: s} }

func (j *Journal) Open(ctx context.Context, operation string, managerID payroll.EmployeeID, month, key string) (*delivery.Run, error) {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := delivery.Run{Operation: operation, ManagerID: managerID, Month: month}
	var createdAt, status string
	err = tx.QueryRowContext(ctx, `
		SELECT id, key, status, created_at FROM delivery_runs
		WHERE operation = ? AND manager_id = ? AND month = ? AND status = ?`,
		operation, int64(managerID), month, string(delivery.RunOpen)).
		Scan(&run.ID, &run.Key, &status, &createdAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		run.ID = uuid.NewString()
		run.Key = key
		run.Status = delivery.RunOpen
		run.CreatedAt = s.now().UTC()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO delivery_runs (id, operation, manager_id, month, key, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, operation, int64(managerID), month, key, string(run.Status),
			run.CreatedAt.Format(time.RFC3339Nano)); err != nil {
			return nil, fmt.Errorf("failed to open run: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to query runs: %w", err)
	default:
		run.Status = delivery.RunStatus(status)
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if run.Items, err = loadItems(ctx, tx, run.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return &run, nil
}

func (j *Journal) Complete(ctx context.Context, item delivery.Item) error {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_runs WHERE id = ?`, item.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to query run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("run %s: %w", item.RunID, payroll.ErrNotFound)
	}

	sentAt := item.SentAt
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_items (run_id, employee_id, recipient, file, archived_as, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.RunID, int64(item.EmployeeID), item.Recipient, item.File, item.ArchivedAs,
		sentAt.UTC().Format(time.RFC3339Nano))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("run %s employee %d: %w", item.RunID, item.EmployeeID, payroll.ErrDuplicateRecord)
	}
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (j *Journal) Close(ctx context.Context, runID string) error {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE delivery_runs SET status = ? WHERE id = ?`, string(delivery.RunDone), runID)
	if err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, payroll.ErrNotFound)
	}
	return nil
}

func loadItems(ctx context.Context, tx *sql.Tx, runID string) ([]delivery.Item, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT employee_id, recipient, file, archived_as, sent_at
		FROM delivery_items WHERE run_id = ?
		ORDER BY sent_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	var items []delivery.Item
	for rows.Next() {
		it := delivery.Item{RunID: runID}
		var empID int64
		var sentAt string
		if err := rows.Scan(&empID, &it.Recipient, &it.File, &it.ArchivedAs, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		it.EmployeeID = payroll.EmployeeID(empID)
		it.SentAt, _ = time.Parse(time.RFC3339Nano, sentAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears payroll data and the send journal for demos. Holidays and
// the idempotency ledger are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"delivery_items", "delivery_runs",
		"work_logs", "bonuses", "vacations", "employments", "employees",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

func formatDate(t time.Time) string { return t.Format(time.DateOnly) }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored date %q: %w", s, err)
	}
	return t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}

// Compile-time interface checks
var (
	_ payroll.Source    = (*Store)(nil)
	_ idempotency.Store = (*Store)(nil)
	_ delivery.Journal  = (*Journal)(nil)

	_ timeoff.HolidayCalendar = (*Store)(nil)
)
