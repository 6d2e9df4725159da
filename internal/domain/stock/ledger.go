package stock

import (
	"context"
	"fmt"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
	"pheezes/pkg/logger"
)

// DefaultHistoryLimit caps movement history reads.
const DefaultHistoryLimit = 100

// Ledger applies quantity changes to variations.
// It never opens transactions itself: callers pass the Writer of the unit of
// work they are running, so a failed change aborts the caller's whole transaction.
type Ledger struct {
	reader Reader
	now    func() time.Time
}

// NewLedger creates a stock ledger.
func NewLedger(reader Reader) *Ledger {
	return &Ledger{
		reader: reader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Decrement removes qty units from a variation.
// Fails with INSUFFICIENT_STOCK when the result would be negative.
func (l *Ledger) Decrement(ctx context.Context, w Writer, variationID id.ID, qty int, ref Ref) (Level, error) {
	if qty <= 0 {
		return Level{}, apperror.NewValidation("quantity must be positive").
			WithDetail("variation_id", variationID.String())
	}

	level, err := w.GetForUpdate(ctx, variationID)
	if err != nil {
		return Level{}, err
	}

	if level.Quantity-qty < 0 {
		return Level{}, apperror.NewInsufficientStock(variationID.String(), qty, level.Quantity)
	}

	return l.apply(ctx, w, level, -qty, ref)
}

// Increment puts qty units back on a variation.
func (l *Ledger) Increment(ctx context.Context, w Writer, variationID id.ID, qty int, ref Ref) (Level, error) {
	if qty <= 0 {
		return Level{}, apperror.NewValidation("quantity must be positive").
			WithDetail("variation_id", variationID.String())
	}

	level, err := w.GetForUpdate(ctx, variationID)
	if err != nil {
		return Level{}, err
	}
	if qty > types.MaxQuantity-level.Quantity {
		return Level{}, apperror.NewFieldValidation("quantity", "resulting quantity exceeds 2147483647").
			WithDetail("variation_id", variationID.String())
	}

	return l.apply(ctx, w, level, qty, ref)
}

// Set overwrites a variation's quantity (manual stock correction).
// The journal records the difference to the previous quantity.
func (l *Ledger) Set(ctx context.Context, w Writer, variationID id.ID, qty int) (Level, error) {
	if !types.ValidQuantity(qty) {
		return Level{}, apperror.NewFieldValidation("quantity", "quantity must be between 0 and 2147483647")
	}

	level, err := w.GetForUpdate(ctx, variationID)
	if err != nil {
		return Level{}, err
	}

	return l.apply(ctx, w, level, qty-level.Quantity, Ref{Reason: ReasonManualSet})
}

// RecordOpening journals the initial quantity of a freshly created variation
// as a manual set.
// The quantity itself was stored by the catalog insert.
func (l *Ledger) RecordOpening(ctx context.Context, w Writer, variationID id.ID, qty int) error {
	if qty == 0 {
		return nil
	}
	return w.AppendMovement(ctx, Movement{
		ID:          id.New(),
		VariationID: variationID,
		Delta:       qty,
		Balance:     qty,
		Reason:      ReasonManualSet,
		CreatedAt:   l.now(),
	})
}

// History returns the newest movements of a variation.
func (l *Ledger) History(ctx context.Context, variationID id.ID, limit int) ([]Movement, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return l.reader.ListMovements(ctx, variationID, limit)
}

func (l *Ledger) apply(ctx context.Context, w Writer, level Level, delta int, ref Ref) (Level, error) {
	if delta == 0 {
		return level, nil
	}

	next := level.Quantity + delta
	if err := w.SetQuantity(ctx, level.VariationID, next); err != nil {
		return Level{}, fmt.Errorf("set quantity: %w", err)
	}

	err := w.AppendMovement(ctx, Movement{
		ID:          id.New(),
		VariationID: level.VariationID,
		Delta:       delta,
		Balance:     next,
		Reason:      ref.Reason,
		OrderID:     ref.OrderID,
		CreatedAt:   l.now(),
	})
	if err != nil {
		return Level{}, fmt.Errorf("append movement: %w", err)
	}

	logger.Debug(ctx, "stock changed",
		"variation_id", level.VariationID,
		"delta", delta,
		"balance", next,
		"reason", ref.Reason,
	)

	level.Quantity = next
	return level, nil
}
