package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/idempotency"
)

// IdempotencyRecord is a row of sys_idempotency.
type IdempotencyRecord struct {
	Key         string             `db:"idempotency_key"`
	Operation   string             `db:"operation"`
	Status      idempotency.Status `db:"status"`
	RequestHash string             `db:"request_hash"` // SHA256 of request body
	Response    []byte             `db:"response"`
	StatusCode  int                `db:"response_status"`
	ContentType string             `db:"response_content_type"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
	ExpiresAt   time.Time          `db:"expires_at"`
}

// IdempotencyStore manages idempotency keys in sys_idempotency.
// Keys are written outside any business transaction, so they survive the
// rollback of the request they guard.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Acquire implements idempotency.Store. A new or expired key is taken over
// with one upsert; a live key is inspected.
func (s *IdempotencyStore) Acquire(ctx context.Context, key, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now()
	q := s.txManager.GetQuerier(ctx)

	var acquired string
	err := q.QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, operation, request_hash, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $5, $6)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			operation = EXCLUDED.operation,
			request_hash = EXCLUDED.request_hash,
			status = EXCLUDED.status,
			response = NULL,
			response_status = 0,
			response_content_type = '',
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
		WHERE sys_idempotency.expires_at < EXCLUDED.created_at
		RETURNING idempotency_key
	`, key, operation, requestHash, idempotency.StatusPending, now, now.Add(s.ttl)).Scan(&acquired)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, MapError("acquire idempotency key", err)
	}

	var record IdempotencyRecord
	err = pgxscan.Get(ctx, q, &record, `
		SELECT idempotency_key, operation, status, request_hash, response,
		       response_status, response_content_type, created_at, updated_at, expires_at
		FROM sys_idempotency
		WHERE idempotency_key = $1
	`, key)
	if err != nil {
		if pgxscan.NotFound(err) {
			// Released between the two statements.
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, MapError("read idempotency key", err)
	}

	if record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := idempotency.Replay{
			StatusCode:  record.StatusCode,
			ContentType: record.ContentType,
			Body:        record.Response,
		}.Normalize()
		return &replay, nil
	}

	// Pending: reclaim only if the holder went silent.
	tag, err := q.Exec(ctx, `
		UPDATE sys_idempotency
		SET updated_at = $1
		WHERE idempotency_key = $2 AND status = $3 AND updated_at < $4
	`, now, key, idempotency.StatusPending, now.Add(-idempotency.StaleAfter))
	if err != nil {
		return nil, MapError("reclaim idempotency key", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}
	return nil, apperror.NewIdempotencyConflict(key)
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp idempotency.Replay) error {
	return s.settle(ctx, key, idempotency.StatusSuccess, resp)
}

// Fail implements idempotency.Store.
func (s *IdempotencyStore) Fail(ctx context.Context, key string, resp idempotency.Replay) error {
	return s.settle(ctx, key, idempotency.StatusFailed, resp)
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE idempotency_key = $1 AND status = $2
	`, key, idempotency.StatusPending)
	return MapError("release idempotency key", err)
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, s.now())
	if err != nil {
		return 0, MapError("cleanup idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}

func (s *IdempotencyStore) settle(ctx context.Context, key string, status idempotency.Status, resp idempotency.Replay) error {
	resp = resp.Normalize()
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6
	`, status, resp.Body, resp.StatusCode, resp.ContentType, s.now(), key)
	return MapError("settle idempotency key", err)
}
