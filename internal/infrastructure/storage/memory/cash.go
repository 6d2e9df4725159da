package memory

import (
	"context"
	"slices"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/cash"
)

// CashRepo implements cash.Repository.
type CashRepo struct {
	s *Store
}

var _ cash.Repository = (*CashRepo)(nil)

func (r *CashRepo) Create(ctx context.Context, t *cash.Transaction) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.transactions[t.ID]; ok {
			return apperror.NewConflict("transaction already exists").WithDetail("transaction_id", t.ID.String())
		}
		st.transactions[t.ID] = *t
		return nil
	})
}

func (r *CashRepo) GetByID(ctx context.Context, txID id.ID) (*cash.Transaction, error) {
	var out *cash.Transaction
	err := r.s.view(ctx, func(st *state) error {
		t, ok := st.transactions[txID]
		if !ok {
			return apperror.NewNotFound("transaction", txID)
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *CashRepo) Update(ctx context.Context, t *cash.Transaction) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.transactions[t.ID]; !ok {
			return apperror.NewNotFound("transaction", t.ID)
		}
		st.transactions[t.ID] = *t
		return nil
	})
}

func (r *CashRepo) Delete(ctx context.Context, txID id.ID) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.transactions[txID]; !ok {
			return apperror.NewNotFound("transaction", txID)
		}
		delete(st.transactions, txID)
		return nil
	})
}

func (r *CashRepo) List(ctx context.Context) ([]cash.Transaction, error) {
	var out []cash.Transaction
	err := r.s.view(ctx, func(st *state) error {
		out = make([]cash.Transaction, 0, len(st.transactions))
		for _, t := range st.transactions {
			out = append(out, t)
		}
		slices.SortFunc(out, func(a, b cash.Transaction) int {
			return newestFirst(a.Date, b.Date, a.ID, b.ID)
		})
		return nil
	})
	return out, err
}
