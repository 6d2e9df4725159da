package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "pheezes/internal/core/context"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/orders"
)

// CompressionAlgo specifies how the changes payload is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are
// stored zstd-compressed.
const DefaultCompressThreshold = 4 * 1024

// AuditEntry is a row of sys_audit.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	RequestID         *string         `db:"request_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes the order audit trail. Entries join the transaction
// carried by ctx, so they commit or roll back with the change they describe.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ orders.Auditor = (*AuditService)(nil)

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Record implements orders.Auditor.
func (s *AuditService) Record(ctx context.Context, event orders.AuditEvent) error {
	changes, err := json.Marshal(event.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	return s.Log(ctx, AuditEntry{
		EntityType: "order",
		EntityID:   event.OrderID,
		Action:     event.Action,
		Changes:    changes,
	})
}

// Log inserts an audit entry.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.RequestID == nil {
		if rid := appctx.GetRequestID(ctx); rid != "" {
			entry.RequestID = &rid
		}
	}

	entry = s.compress(entry)

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, request_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.RequestID,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return MapError("insert audit entry", err)
	}
	return nil
}

// History implements orders.Auditor.
func (s *AuditService) History(ctx context.Context, orderID id.ID, limit int) ([]orders.AuditEntry, error) {
	entries, err := s.EntityHistory(ctx, "order", orderID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]orders.AuditEntry, 0, len(entries))
	for _, e := range entries {
		var changes map[string]any
		if len(e.Changes) > 0 {
			if err := json.Unmarshal(e.Changes, &changes); err != nil {
				return nil, fmt.Errorf("decode changes of %s: %w", e.ID, err)
			}
		}
		out = append(out, orders.AuditEntry{
			Action:    e.Action,
			Changes:   changes,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

// EntityHistory returns decompressed audit entries, newest first.
func (s *AuditService) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, `
		SELECT id, entity_type, entity_id, action, request_id,
			   changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, MapError("select audit history", err)
	}

	for i := range entries {
		if entries[i], err = s.decompress(entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *AuditService) compress(entry AuditEntry) AuditEntry {
	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
	return entry
}

func (s *AuditService) decompress(entry AuditEntry) (AuditEntry, error) {
	if entry.CompressionAlgo != CompressionZstd || len(entry.ChangesCompressed) == 0 {
		return entry, nil
	}
	raw, err := s.decoder.DecodeAll(entry.ChangesCompressed, nil)
	if err != nil {
		return entry, fmt.Errorf("decompress changes of %s: %w", entry.ID, err)
	}
	entry.Changes = raw
	entry.ChangesCompressed = nil
	return entry, nil
}
