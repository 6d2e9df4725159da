package memory

import (
	"context"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/stock"
)

// StockRepo implements stock.Writer and stock.Reader.
type StockRepo struct {
	s *Store
}

var (
	_ stock.Writer = (*StockRepo)(nil)
	_ stock.Reader = (*StockRepo)(nil)
)

// GetForUpdate returns the stock row. The store mutex held by the unit of
// work already excludes concurrent writers.
func (r *StockRepo) GetForUpdate(ctx context.Context, variationID id.ID) (stock.Level, error) {
	var level stock.Level
	err := r.s.view(ctx, func(st *state) error {
		v, ok := st.variations[variationID]
		if !ok {
			return apperror.NewNotFound("variation", variationID)
		}
		level = stock.Level{
			VariationID:   v.ID,
			ProductID:     v.ProductID,
			ProductName:   st.products[v.ProductID].Name,
			VariationName: v.Name,
			Quantity:      v.Quantity,
			Price:         v.Price,
		}
		return nil
	})
	return level, err
}

func (r *StockRepo) SetQuantity(ctx context.Context, variationID id.ID, quantity int) error {
	return r.s.update(ctx, func(st *state) error {
		v, ok := st.variations[variationID]
		if !ok {
			return apperror.NewNotFound("variation", variationID)
		}
		if quantity < 0 {
			return apperror.NewInsufficientStock(variationID.String(), v.Quantity-quantity, v.Quantity)
		}
		v.Quantity = quantity
		st.variations[variationID] = v
		return nil
	})
}

func (r *StockRepo) AppendMovement(ctx context.Context, m stock.Movement) error {
	return r.s.update(ctx, func(st *state) error {
		st.movements = append(st.movements, m)
		return nil
	})
}

func (r *StockRepo) ListMovements(ctx context.Context, variationID id.ID, limit int) ([]stock.Movement, error) {
	out := make([]stock.Movement, 0)
	err := r.s.view(ctx, func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if limit > 0 && len(out) >= limit {
				break
			}
			if st.movements[i].VariationID == variationID {
				out = append(out, st.movements[i])
			}
		}
		return nil
	})
	return out, err
}
