/*
journal.go - Per-recipient completion journal for send operations

PURPOSE:
  Email cannot be unsent. A send run records every recipient the moment
  its message is accepted and archived, so that a cancelled or partially
  failed run can be resumed without mailing anyone twice.

LIFECYCLE:
  Open     returns the open run for (operation, manager, period) or starts
           a new one; there is at most one open run per triple
  Complete appends one recipient item to a run
  Close    marks the run done; the next Open starts a fresh run

  A run is closed only when every recipient has been delivered. Runs that
  end with failures or a cancellation stay open.

IMPLEMENTATIONS:
  - MemoryJournal below
  - store/sqlite/sqlite.go: delivery_runs and delivery_items tables
*/
package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payslip-engine/payroll"
)

type RunStatus string

const (
	RunOpen RunStatus = "open"
	RunDone RunStatus = "done"
)

// Run is one execution of a send operation.
type Run struct {
	ID        string
	Operation string
	ManagerID payroll.EmployeeID
	Month     string // YYYY-MM
	Key       string // idempotency key of the opening call, may be empty
	Status    RunStatus
	CreatedAt time.Time
	Items     []Item
}

// Item records one delivered recipient.
type Item struct {
	RunID      string
	EmployeeID payroll.EmployeeID
	Recipient  string
	File       string
	ArchivedAs string
	SentAt     time.Time
}

// Delivered returns the item for an employee, if the run has one.
func (r *Run) Delivered(id payroll.EmployeeID) (Item, bool) {
	for _, it := range r.Items {
		if it.EmployeeID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Journal persists send runs.
type Journal interface {
	Open(ctx context.Context, operation string, managerID payroll.EmployeeID, month, key string) (*Run, error)
	Complete(ctx context.Context, item Item) error
	Close(ctx context.Context, runID string) error
}

// =============================================================================
// MEMORY JOURNAL
// =============================================================================

type MemoryJournal struct {
	mu   sync.Mutex
	runs map[string]*Run
	now  func() time.Time
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{runs: make(map[string]*Run), now: time.Now}
}

func (j *MemoryJournal) Open(_ context.Context, operation string, managerID payroll.EmployeeID, month, key string) (*Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, r := range j.runs {
		if r.Status == RunOpen && r.Operation == operation && r.ManagerID == managerID && r.Month == month {
			return cloneRun(r), nil
		}
	}
	r := &Run{
		ID:        uuid.NewString(),
		Operation: operation,
		ManagerID: managerID,
		Month:     month,
		Key:       key,
		Status:    RunOpen,
		CreatedAt: j.now().UTC(),
	}
	j.runs[r.ID] = r
	return cloneRun(r), nil
}

func (j *MemoryJournal) Complete(_ context.Context, item Item) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	r, ok := j.runs[item.RunID]
	if !ok {
		return fmt.Errorf("run %s: %w", item.RunID, payroll.ErrNotFound)
	}
	if _, dup := r.Delivered(item.EmployeeID); dup {
		return fmt.Errorf("run %s employee %d: %w", item.RunID, item.EmployeeID, payroll.ErrDuplicateRecord)
	}
	r.Items = append(r.Items, item)
	return nil
}

func (j *MemoryJournal) Close(_ context.Context, runID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	r, ok := j.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, payroll.ErrNotFound)
	}
	r.Status = RunDone
	return nil
}

// Runs returns a snapshot of every run.
func (j *MemoryJournal) Runs() []Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Run, 0, len(j.runs))
	for _, r := range j.runs {
		out = append(out, *cloneRun(r))
	}
	return out
}

func cloneRun(r *Run) *Run {
	c := *r
	c.Items = append([]Item(nil), r.Items...)
	return &c
}

var _ Journal = (*MemoryJournal)(nil)
