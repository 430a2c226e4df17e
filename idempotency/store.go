/*
store.go - Ledger persistence interface

PURPOSE:
  The ledger maps an idempotency key to the result of the first
  successful execution under that key. It is the only state the guard
  owns.

CRITICAL INVARIANTS:
  1. INSERT-ONLY: records are created once, never updated or deleted
  2. UNIQUE KEY: a second insert for the same key fails with
     payroll.ErrPersistenceConflict, whichever process attempts it

IMPLEMENTATIONS:
  - memory.go: in-process map (tests, single instance dev)
  - store/sqlite/sqlite.go: UNIQUE column on idempotency_records.key
  - store/redis/ledger.go: SETNX

SEE ALSO:
  - guard.go: the only caller
*/
package idempotency

import (
	"context"
	"encoding/json"
	"time"
)

// MaxKeyLength bounds client supplied keys.
const MaxKeyLength = 128

// Record is one ledger row.
type Record struct {
	ID        string
	Key       string
	Operation string
	Status    int
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Result converts the record back into a replayed structured result.
func (r Record) Result() Result {
	return Result{Kind: KindStructured, Status: r.Status, Payload: r.Payload, Replayed: true}
}

// Store persists ledger records.
type Store interface {
	// Lookup returns nil, nil when the key has no record.
	Lookup(ctx context.Context, key string) (*Record, error)

	// Insert fails with payroll.ErrPersistenceConflict if the key exists.
	Insert(ctx context.Context, rec Record) error
}
