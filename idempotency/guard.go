/*
guard.go - At-most-once effective execution per idempotency key

PURPOSE:
  RunOnce wraps an operation identified by a client supplied key. The
  first successful execution is recorded; every later call with the same
  key gets the recorded result back without running anything.

DECISION TABLE:
  key empty                      run, return as is, record nothing
  key recorded                   replay the record (any operation)
  key recorded, strict, op differs  ErrKeyReuse
  key not recorded, thunk fails  propagate, record nothing
  key not recorded, opaque       return, record nothing
  key not recorded, structured   insert, return

CONCURRENCY:
  Two first uses of a key can both run the thunk. The unique insert
  decides the winner; the loser returns its own result and the race is
  logged. After that the stored result is stable.

SEE ALSO:
  - store.go: Store interface and Record
  - delivery/coordinator.go: every operation starts with RunOnce
*/
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payslip-engine/payroll"
)

// Thunk is the guarded unit of work.
type Thunk func(ctx context.Context) (Result, error)

// Guard implements RunOnce over a Store.
type Guard struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	// StrictOperation rejects a key recorded under another operation.
	StrictOperation bool
}

func NewGuard(store Store, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: store, logger: logger, now: time.Now}
}

// RunOnce runs thunk at most once effectively per key.
func (g *Guard) RunOnce(ctx context.Context, key, operation string, thunk Thunk) (Result, error) {
	if key == "" {
		return thunk(ctx)
	}
	if len(key) > MaxKeyLength {
		return Result{}, &payroll.ValidationError{
			Field:  "idempotency_key",
			Reason: fmt.Sprintf("longer than %d characters", MaxKeyLength),
		}
	}

	existing, err := g.store.Lookup(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if existing != nil {
		return g.replay(ctx, existing, operation)
	}

	res, err := thunk(ctx)
	if err != nil {
		return Result{}, err
	}
	if res.Kind != KindStructured {
		return res, nil
	}

	rec := Record{
		ID:        uuid.NewString(),
		Key:       key,
		Operation: operation,
		Status:    res.Status,
		Payload:   res.Payload,
		CreatedAt: g.now().UTC(),
	}
	err = g.store.Insert(ctx, rec)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, payroll.ErrPersistenceConflict):
		g.logConflict(ctx, key, operation)
		return res, nil
	default:
		// The effects already happened; the caller still gets the result.
		g.logger.ErrorContext(ctx, "idempotency record not saved",
			"key", key, "operation", operation, "error", err)
		return res, nil
	}
}

func (g *Guard) replay(ctx context.Context, rec *Record, operation string) (Result, error) {
	if rec.Operation != operation {
		g.logger.WarnContext(ctx, "idempotency key reused for a different operation",
			"key", rec.Key, "recorded_operation", rec.Operation, "operation", operation,
			"strict", g.StrictOperation)
		if g.StrictOperation {
			return Result{}, fmt.Errorf("key %q recorded for %s: %w", rec.Key, rec.Operation, payroll.ErrKeyReuse)
		}
	}
	g.logger.DebugContext(ctx, "replaying idempotent result", "key", rec.Key, "operation", operation)
	return rec.Result(), nil
}

func (g *Guard) logConflict(ctx context.Context, key, operation string) {
	winner, err := g.store.Lookup(ctx, key)
	if err != nil || winner == nil {
		g.logger.WarnContext(ctx, "idempotency insert lost a race", "key", key, "operation", operation)
		return
	}
	g.logger.WarnContext(ctx, "idempotency insert lost a race, returning own result",
		"key", key, "operation", operation,
		"winner_id", winner.ID, "winner_operation", winner.Operation, "winner_created_at", winner.CreatedAt)
}
