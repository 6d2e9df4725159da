package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/idempotency"
)

type idempotencyRecord struct {
	operation   string
	requestHash string
	status      idempotency.Status
	replay      idempotency.Replay
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore keeps idempotency keys in memory. Keys live outside the
// unit-of-work snapshot: a rolled back order must not forget its key.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]*idempotencyRecord
	ttl  time.Duration
	now  func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an empty key store.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		keys: make(map[string]*idempotencyRecord),
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(_ context.Context, key, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.keys[key]
	if !ok || now.After(rec.expiresAt) {
		s.keys[key] = &idempotencyRecord{
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			updatedAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.operation).
			WithDetail("request_operation", operation)
	}

	switch rec.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := rec.replay
		replay.Body = slices.Clone(replay.Body)
		return &replay, nil
	default:
		if now.Sub(rec.updatedAt) > idempotency.StaleAfter {
			rec.updatedAt = now
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(_ context.Context, key string, resp idempotency.Replay) error {
	s.settle(key, idempotency.StatusSuccess, resp)
	return nil
}

// Fail implements idempotency.Store.
func (s *IdempotencyStore) Fail(_ context.Context, key string, resp idempotency.Replay) error {
	s.settle(key, idempotency.StatusFailed, resp)
	return nil
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.keys[key]; ok && rec.status == idempotency.StatusPending {
		delete(s.keys, key)
	}
	return nil
}

// CleanupExpired drops expired keys and returns how many were removed.
func (s *IdempotencyStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for key, rec := range s.keys {
		if now.After(rec.expiresAt) {
			delete(s.keys, key)
			n++
		}
	}
	return n, nil
}

func (s *IdempotencyStore) settle(key string, status idempotency.Status, resp idempotency.Replay) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keys[key]
	if !ok {
		return
	}
	resp.Body = slices.Clone(resp.Body)
	rec.status = status
	rec.replay = resp.Normalize()
	rec.updatedAt = s.now()
}
