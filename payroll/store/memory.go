// Package store provides in-memory payroll stores.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/payslip-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	nextID      int64
	employees   map[payroll.EmployeeID]payroll.Employee
	employments map[payroll.EmployeeID][]payroll.Employment
	vacations   map[payroll.EmployeeID][]payroll.Vacation
	bonuses     map[payroll.EmployeeID][]payroll.Bonus
	workLogs    map[payroll.EmployeeID][]payroll.WorkLogEntry
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[payroll.EmployeeID]payroll.Employee),
		employments: make(map[payroll.EmployeeID][]payroll.Employment),
		vacations:   make(map[payroll.EmployeeID][]payroll.Vacation),
		bonuses:     make(map[payroll.EmployeeID][]payroll.Bonus),
		workLogs:    make(map[payroll.EmployeeID][]payroll.WorkLogEntry),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// =============================================================================
// WRITES
// =============================================================================

// SaveEmployee inserts or replaces an employee. A zero ID is assigned.
func (m *Memory) SaveEmployee(_ context.Context, e payroll.Employee) (payroll.EmployeeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == 0 {
		e.ID = payroll.EmployeeID(m.id())
	}
	for _, other := range m.employees {
		if other.ID == e.ID {
			continue
		}
		if other.Email == e.Email || other.Code == e.Code || other.PersonalID == e.PersonalID {
			return 0, fmt.Errorf("employee %s: %w", e.Email, payroll.ErrDuplicateRecord)
		}
	}
	m.employees[e.ID] = e
	return e.ID, nil
}

func (m *Memory) SaveEmployment(_ context.Context, e payroll.Employment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.id()
	m.employments[e.EmployeeID] = append(m.employments[e.EmployeeID], e)
	return e.ID, nil
}

func (m *Memory) SaveVacation(_ context.Context, v payroll.Vacation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.vacations[v.EmployeeID] {
		if existing.Start.Equal(v.Start) && existing.End.Equal(v.End) {
			return 0, fmt.Errorf("vacation %s: %w", v.Span(), payroll.ErrDuplicateRecord)
		}
	}
	v.ID = m.id()
	m.vacations[v.EmployeeID] = append(m.vacations[v.EmployeeID], v)
	return v.ID, nil
}

func (m *Memory) SaveBonus(_ context.Context, b payroll.Bonus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = m.id()
	m.bonuses[b.EmployeeID] = append(m.bonuses[b.EmployeeID], b)
	return b.ID, nil
}

func (m *Memory) SaveWorkLog(_ context.Context, w payroll.WorkLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.workLogs[w.EmployeeID] {
		if existing.Date.Equal(w.Date) {
			return 0, fmt.Errorf("work log %s: %w", w.Date.Format(time.DateOnly), payroll.ErrDuplicateRecord)
		}
	}
	if w.Hours.IsZero() {
		w.Hours = payroll.DefaultWorkHours
	}
	w.ID = m.id()
	m.workLogs[w.EmployeeID] = append(m.workLogs[w.EmployeeID], w)
	return w.ID, nil
}

// =============================================================================
// READS (payroll.Source)
// =============================================================================

func (m *Memory) Employee(_ context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return payroll.Employee{}, fmt.Errorf("employee %d: %w", id, payroll.ErrNotFound)
	}
	return e, nil
}

// DirectReports returns reports in map order; callers sort.
func (m *Memory) DirectReports(_ context.Context, managerID payroll.EmployeeID) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Employee
	for _, e := range m.employees {
		if e.Role == payroll.RoleEmployee && e.ManagerID != nil && *e.ManagerID == managerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) Employments(_ context.Context, id payroll.EmployeeID) ([]payroll.Employment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]payroll.Employment(nil), m.employments[id]...), nil
}

func (m *Memory) Vacations(_ context.Context, id payroll.EmployeeID, from, to time.Time) ([]payroll.Vacation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Vacation
	for _, v := range m.vacations[id] {
		if !v.End.Before(from) && !v.Start.After(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) Bonuses(_ context.Context, id payroll.EmployeeID, from, to time.Time) ([]payroll.Bonus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Bonus
	for _, b := range m.bonuses[id] {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) WorkLogs(_ context.Context, id payroll.EmployeeID, from, to time.Time) ([]payroll.WorkLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.WorkLogEntry
	for _, w := range m.workLogs[id] {
		if !w.Date.Before(from) && !w.Date.After(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

// Compile-time check that Memory implements payroll.Source
var _ payroll.Source = (*Memory)(nil)
