package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
	"pheezes/internal/domain/cash"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/orders"
	"pheezes/pkg/numerator"
)

func seedVariation(t *testing.T, s *Store, qty int) id.ID {
	t.Helper()
	p := &catalog.Product{
		ID:        id.New(),
		Name:      "Shirt",
		CreatedAt: time.Now(),
		Variations: []catalog.Variation{
			{ID: id.New(), Name: "M", Quantity: qty, Price: types.MustMoney("500")},
		},
	}
	require.NoError(t, s.Catalog().Create(context.Background(), p))
	return p.Variations[0].ID
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	vid := seedVariation(t, s, 10)
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Stock().SetQuantity(ctx, vid, 3))
		require.NoError(t, s.Cash().Create(ctx, &cash.Transaction{ID: id.New(), Amount: types.MustMoney("1")}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	level, err := s.Stock().GetForUpdate(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 10, level.Quantity)

	txs, err := s.Cash().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestRunInTransaction_RollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	vid := seedVariation(t, s, 10)

	assert.Panics(t, func() {
		_ = s.RunInTransaction(ctx, func(ctx context.Context) error {
			_ = s.Stock().SetQuantity(ctx, vid, 0)
			panic("unexpected")
		})
	})

	level, err := s.Stock().GetForUpdate(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 10, level.Quantity)
}

func TestRunInTransaction_NestedJoins(t *testing.T) {
	s := New()
	ctx := context.Background()
	vid := seedVariation(t, s, 10)

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Stock().SetQuantity(ctx, vid, 7)
		})
	})
	require.NoError(t, err)

	level, err := s.Stock().GetForUpdate(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 7, level.Quantity)
}

func TestRunInTransaction_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTransaction(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStockRepo_RejectsNegative(t *testing.T) {
	s := New()
	vid := seedVariation(t, s, 2)

	err := s.Stock().SetQuantity(context.Background(), vid, -1)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
}

func TestSequence_ReleasedOnRollback(t *testing.T) {
	s := New()
	ctx := context.Background()
	seq := s.Numbers(numerator.DefaultConfig("ORD"))

	_ = s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := seq.Next(ctx)
		require.NoError(t, err)
		return errors.New("abort")
	})

	number, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), numerator.ParseNumber(number))
}

func TestOrderRepo_InsertUnknownVariation(t *testing.T) {
	s := New()
	o := &orders.Order{
		ID:     id.New(),
		Status: orders.StatusPending,
		Items:  []orders.Item{{ID: id.New(), ProductVariationID: id.New(), Quantity: 1}},
	}
	err := s.Orders().Insert(context.Background(), o)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCashRepo_ListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	older := &cash.Transaction{ID: id.New(), Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &cash.Transaction{ID: id.New(), Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Cash().Create(ctx, older))
	require.NoError(t, s.Cash().Create(ctx, newer))

	list, err := s.Cash().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}
