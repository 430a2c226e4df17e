/*
Package redis provides a Redis-backed idempotency ledger.

PURPOSE:
  Lets several engine instances share one ledger without sharing a
  database file. Each record is a JSON value under "<prefix><key>";
  SETNX makes the first writer win, which is the same unique-insert
  contract the SQLite table gives.

TTL:
  Records never expire unless TTL is set. A TTL turns the ledger into a
  replay window: after expiry a key behaves as never seen.

SEE ALSO:
  - idempotency/store.go: Store interface
  - store/sqlite/sqlite.go: the default ledger
*/
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/warp/payslip-engine/idempotency"
	"github.com/warp/payslip-engine/payroll"
)

// DefaultPrefix namespaces ledger keys.
const DefaultPrefix = "payslip:idem:"

// Ledger implements idempotency.Store.
type Ledger struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

type Option func(*Ledger)

func WithPrefix(prefix string) Option { return func(l *Ledger) { l.prefix = prefix } }

func WithTTL(ttl time.Duration) Option { return func(l *Ledger) { l.ttl = ttl } }

func NewLedger(client goredis.UniversalClient, opts ...Option) *Ledger {
	l := &Ledger{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// record is the stored JSON shape.
type record struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	Status    int             `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (l *Ledger) Lookup(ctx context.Context, key string) (*idempotency.Record, error) {
	raw, err := l.client.Get(ctx, l.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode ledger record %q: %w", key, err)
	}
	return &idempotency.Record{
		ID:        r.ID,
		Key:       key,
		Operation: r.Operation,
		Status:    r.Status,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
	}, nil
}

func (l *Ledger) Insert(ctx context.Context, rec idempotency.Record) error {
	raw, err := json.Marshal(record{
		ID:        rec.ID,
		Operation: rec.Operation,
		Status:    rec.Status,
		Payload:   rec.Payload,
		CreatedAt: rec.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode ledger record: %w", err)
	}

	ok, err := l.client.SetNX(ctx, l.prefix+rec.Key, raw, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("key %q: %w", rec.Key, payroll.ErrPersistenceConflict)
	}
	return nil
}

var _ idempotency.Store = (*Ledger)(nil)
