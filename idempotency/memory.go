package idempotency

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/payslip-engine/payroll"
)

// MemoryStore is an in-process ledger.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Lookup(_ context.Context, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.Key]; ok {
		return fmt.Errorf("key %q: %w", rec.Key, payroll.ErrPersistenceConflict)
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	m.records[rec.Key] = rec
	return nil
}

// Len returns the number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

var _ Store = (*MemoryStore)(nil)
