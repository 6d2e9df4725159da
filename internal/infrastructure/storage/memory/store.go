// Package memory is an in-process storage backend for development and tests.
//
// One mutex serializes units of work. A unit of work that fails restores the
// snapshot taken when it started, so callers get the same all-or-nothing
// behavior as with PostgreSQL.
package memory

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"pheezes/internal/core/id"
	"pheezes/internal/domain/cash"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/orders"
	"pheezes/internal/domain/stock"
)

// AuditRecord is a stored order audit event.
type AuditRecord struct {
	orders.AuditEvent
	CreatedAt time.Time
}

type state struct {
	products     map[id.ID]catalog.Product
	variations   map[id.ID]catalog.Variation
	movements    []stock.Movement
	orders       map[id.ID]orders.Order
	transactions map[id.ID]cash.Transaction
	sequences    map[string]int64
	audit        []AuditRecord
}

func newState() *state {
	return &state{
		products:     make(map[id.ID]catalog.Product),
		variations:   make(map[id.ID]catalog.Variation),
		orders:       make(map[id.ID]orders.Order),
		transactions: make(map[id.ID]cash.Transaction),
		sequences:    make(map[string]int64),
	}
}

// clone copies the containers. Stored values are never mutated in place,
// so sharing them between snapshots is safe.
func (st *state) clone() *state {
	return &state{
		products:     maps.Clone(st.products),
		variations:   maps.Clone(st.variations),
		movements:    slices.Clone(st.movements),
		orders:       maps.Clone(st.orders),
		transactions: maps.Clone(st.transactions),
		sequences:    maps.Clone(st.sequences),
		audit:        slices.Clone(st.audit),
	}
}

// Store holds all entities in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction implements tx.Manager.
// Nested calls join the unit of work already carried by ctx.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// view runs a read against the current state.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// update runs a write as its own unit of work unless ctx already carries one.
func (s *Store) update(ctx context.Context, fn func(st *state) error) error {
	return s.RunInTransaction(ctx, func(context.Context) error {
		return fn(s.st)
	})
}

// Catalog returns the product repository.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

// Stock returns the stock repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

// Orders returns the order store.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{s: s} }

// Cash returns the cash transaction repository.
func (s *Store) Cash() *CashRepo { return &CashRepo{s: s} }

// Audit returns the order audit log.
func (s *Store) Audit() *AuditLog { return &AuditLog{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// newestFirst orders by time descending, then by id descending.
// UUIDv7 ids are time ordered, which keeps equal timestamps stable.
func newestFirst(at, bt time.Time, a, b id.ID) int {
	if c := bt.Compare(at); c != 0 {
		return c
	}
	return bytes.Compare(b[:], a[:])
}
