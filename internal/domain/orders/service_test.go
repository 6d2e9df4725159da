package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/orders"
	"pheezes/internal/domain/stock"
	"pheezes/internal/infrastructure/storage/memory"
	"pheezes/pkg/numerator"
)

type fixture struct {
	store   *memory.Store
	engine  *orders.Engine
	catalog *catalog.Service
}

func newFixture(t *testing.T, opts ...orders.EngineOption) *fixture {
	t.Helper()

	store := memory.New()
	ledger := stock.NewLedger(store.Stock())
	opts = append([]orders.EngineOption{orders.WithAuditor(store.Audit())}, opts...)

	return &fixture{
		store:   store,
		engine:  orders.NewEngine(store.Orders(), ledger, store.Numbers(numerator.DefaultConfig("ORD")), opts...),
		catalog: catalog.NewService(store.Catalog(), store, ledger, store.Stock()),
	}
}

// seed creates a product with one variation and returns the variation id.
func (f *fixture) seed(t *testing.T, name string, qty int, price string) id.ID {
	t.Helper()

	p, err := f.catalog.CreateProduct(context.Background(), catalog.CreateInput{
		Name: name,
		Variations: []catalog.VariationInput{
			{Name: "M", Quantity: qty, Price: types.MustMoney(price)},
		},
	})
	require.NoError(t, err)
	return p.Variations[0].ID
}

func (f *fixture) quantity(t *testing.T, variationID id.ID) int {
	t.Helper()

	level, err := f.store.Stock().GetForUpdate(context.Background(), variationID)
	require.NoError(t, err)
	return level.Quantity
}

func (f *fixture) order(t *testing.T, items ...orders.ItemInput) *orders.Order {
	t.Helper()

	o, err := f.engine.Create(context.Background(), orders.CreateInput{
		CustomerName: "Rahim",
		Items:        items,
	})
	require.NoError(t, err)
	return o
}

func item(variationID id.ID, qty int) orders.ItemInput {
	return orders.ItemInput{ProductVariationID: variationID, Quantity: qty}
}

func TestEngine_ShirtScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 10, "500")

	o := f.order(t, item(shirt, 1))
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(types.MustMoney("500")))
	assert.Equal(t, 9, f.quantity(t, shirt))

	o, err := f.engine.Process(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusProcessing, o.Status)
	assert.Equal(t, 9, f.quantity(t, shirt))

	o, err = f.engine.Return(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusReturned, o.Status)
	assert.Equal(t, 10, f.quantity(t, shirt))

	stored, err := f.engine.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusReturned, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Shirt", stored.Items[0].ProductName)
	assert.Equal(t, "M", stored.Items[0].VariationName)
}

func TestEngine_Create_SnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	shirt := f.seed(t, "Shirt", 10, "500")
	hat := f.seed(t, "Cap", 10, "150.50")
	discounted := types.MustMoney("450")

	o := f.order(t,
		item(hat, 2),
		orders.ItemInput{ProductVariationID: shirt, Quantity: 1, Price: &discounted},
	)

	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].Price.Equal(types.MustMoney("150.50")))
	assert.True(t, o.Items[1].Price.Equal(discounted))
	assert.True(t, o.TotalAmount.Equal(types.MustMoney("751")), "got %s", o.TotalAmount)
	assert.Equal(t, "ORD", o.Number[:3])
}

func TestEngine_Create_Numbers(t *testing.T) {
	f := newFixture(t)
	shirt := f.seed(t, "Shirt", 10, "500")

	first := f.order(t, item(shirt, 1))
	second := f.order(t, item(shirt, 1))

	assert.Equal(t, int64(1), numerator.ParseNumber(first.Number))
	assert.Equal(t, int64(2), numerator.ParseNumber(second.Number))
}

func TestEngine_Create_ManualOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	total := types.MustMoney("1200")

	o, err := f.engine.Create(ctx, orders.CreateInput{
		CustomerName: "Karim",
		Advance:      types.MustMoney("200"),
		TotalAmount:  &total,
	})
	require.NoError(t, err)

	assert.True(t, o.IsManual())
	assert.True(t, o.TotalAmount.Equal(total))
	assert.True(t, o.Due().Equal(types.MustMoney("1000")))
}

func TestEngine_Create_IgnoresTotalWithItems(t *testing.T) {
	f := newFixture(t)
	shirt := f.seed(t, "Shirt", 10, "500")
	bogus := types.MustMoney("1")

	o, err := f.engine.Create(context.Background(), orders.CreateInput{
		CustomerName: "Rahim",
		TotalAmount:  &bogus,
		Items:        []orders.ItemInput{item(shirt, 2)},
	})
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(types.MustMoney("1000")))
}

func TestEngine_Create_Validation(t *testing.T) {
	negative := types.MustMoney("-1")
	zero := types.Zero()
	subCent := types.MustMoney("10.005")

	tests := []struct {
		name  string
		in    orders.CreateInput
		field string
	}{
		{
			name:  "blank customer",
			in:    orders.CreateInput{CustomerName: "   ", TotalAmount: &zero},
			field: "customerName",
		},
		{
			name:  "negative advance",
			in:    orders.CreateInput{CustomerName: "A", Advance: negative, TotalAmount: &zero},
			field: "advance",
		},
		{
			name:  "sub-cent advance",
			in:    orders.CreateInput{CustomerName: "A", Advance: subCent, TotalAmount: &zero},
			field: "advance",
		},
		{
			name:  "sub-cent manual total",
			in:    orders.CreateInput{CustomerName: "A", TotalAmount: &subCent},
			field: "totalAmount",
		},
		{
			name:  "manual without total",
			in:    orders.CreateInput{CustomerName: "A"},
			field: "totalAmount",
		},
		{
			name:  "manual negative total",
			in:    orders.CreateInput{CustomerName: "A", TotalAmount: &negative},
			field: "totalAmount",
		},
		{
			name:  "zero quantity",
			in:    orders.CreateInput{CustomerName: "A", Items: []orders.ItemInput{{ProductVariationID: id.New(), Quantity: 0}}},
			field: "items",
		},
		{
			name:  "missing variation",
			in:    orders.CreateInput{CustomerName: "A", Items: []orders.ItemInput{{Quantity: 1}}},
			field: "items",
		},
		{
			name:  "negative price",
			in:    orders.CreateInput{CustomerName: "A", Items: []orders.ItemInput{{ProductVariationID: id.New(), Quantity: 1, Price: &negative}}},
			field: "items",
		},
		{
			name:  "sub-cent price",
			in:    orders.CreateInput{CustomerName: "A", Items: []orders.ItemInput{{ProductVariationID: id.New(), Quantity: 3, Price: &subCent}}},
			field: "items",
		},
		{
			name:  "quantity above int32",
			in:    orders.CreateInput{CustomerName: "A", Items: []orders.ItemInput{{ProductVariationID: id.New(), Quantity: types.MaxQuantity + 1}}},
			field: "items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.engine.Create(context.Background(), tt.in)
			require.Error(t, err)

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestEngine_Create_AtomicOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 10, "500")
	hat := f.seed(t, "Cap", 1, "150")

	_, err := f.engine.Create(ctx, orders.CreateInput{
		CustomerName: "Rahim",
		Items:        []orders.ItemInput{item(shirt, 3), item(hat, 2)},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, hat.String(), appErr.Details["variation_id"])
	assert.Equal(t, 2, appErr.Details["requested"])
	assert.Equal(t, 1, appErr.Details["available"])

	assert.Equal(t, 10, f.quantity(t, shirt))
	assert.Equal(t, 1, f.quantity(t, hat))

	list, err := f.engine.List(ctx, orders.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	history, err := f.catalog.StockHistory(ctx, shirt, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "only the opening movement remains")

	// The rolled back order did not consume a number.
	o := f.order(t, item(shirt, 1))
	assert.Equal(t, int64(1), numerator.ParseNumber(o.Number))
}

func TestEngine_Create_UnknownVariation(t *testing.T) {
	f := newFixture(t)
	shirt := f.seed(t, "Shirt", 10, "500")

	_, err := f.engine.Create(context.Background(), orders.CreateInput{
		CustomerName: "Rahim",
		Items:        []orders.ItemInput{item(shirt, 1), item(id.New(), 1)},
	})
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 10, f.quantity(t, shirt))
}

type failingAuditor struct {
	action string
}

func (a failingAuditor) Record(_ context.Context, e orders.AuditEvent) error {
	if e.Action == a.action {
		return errors.New("audit table unavailable")
	}
	return nil
}

func (a failingAuditor) History(context.Context, id.ID, int) ([]orders.AuditEntry, error) {
	return nil, nil
}

func TestEngine_AuditFailureRollsBack(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newFixture(t, orders.WithAuditor(failingAuditor{action: orders.ActionCreate}))
		shirt := f.seed(t, "Shirt", 10, "500")

		_, err := f.engine.Create(context.Background(), orders.CreateInput{
			CustomerName: "Rahim",
			Items:        []orders.ItemInput{item(shirt, 4)},
		})
		require.Error(t, err)
		assert.Equal(t, 10, f.quantity(t, shirt))
	})

	t.Run("return", func(t *testing.T) {
		f := newFixture(t, orders.WithAuditor(failingAuditor{action: orders.ActionReturn}))
		shirt := f.seed(t, "Shirt", 10, "500")
		o := f.order(t, item(shirt, 4))

		_, err := f.engine.Return(context.Background(), o.ID)
		require.Error(t, err)
		assert.Equal(t, 6, f.quantity(t, shirt))

		stored, err := f.engine.Get(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusPending, stored.Status)
	})
}

func TestEngine_TransitionGuards(t *testing.T) {
	type op func(e *orders.Engine, ctx context.Context, orderID id.ID) error

	process := func(e *orders.Engine, ctx context.Context, orderID id.ID) error {
		_, err := e.Process(ctx, orderID)
		return err
	}
	dispatch := func(e *orders.Engine, ctx context.Context, orderID id.ID) error {
		_, err := e.Dispatch(ctx, orderID)
		return err
	}
	ret := func(e *orders.Engine, ctx context.Context, orderID id.ID) error {
		_, err := e.Return(ctx, orderID)
		return err
	}

	// path brings a fresh order into the state under test.
	tests := []struct {
		name    string
		path    []op
		attempt op
		allowed bool
	}{
		{name: "pending process", attempt: process, allowed: true},
		{name: "pending dispatch", attempt: dispatch, allowed: false},
		{name: "pending return", attempt: ret, allowed: true},
		{name: "processing process", path: []op{process}, attempt: process, allowed: false},
		{name: "processing dispatch", path: []op{process}, attempt: dispatch, allowed: true},
		{name: "processing return", path: []op{process}, attempt: ret, allowed: true},
		{name: "dispatched process", path: []op{process, dispatch}, attempt: process, allowed: false},
		{name: "dispatched dispatch", path: []op{process, dispatch}, attempt: dispatch, allowed: false},
		{name: "dispatched return", path: []op{process, dispatch}, attempt: ret, allowed: true},
		{name: "returned process", path: []op{ret}, attempt: process, allowed: false},
		{name: "returned dispatch", path: []op{ret}, attempt: dispatch, allowed: false},
		{name: "returned return", path: []op{ret}, attempt: ret, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			shirt := f.seed(t, "Shirt", 10, "500")
			o := f.order(t, item(shirt, 2))

			for _, step := range tt.path {
				require.NoError(t, step(f.engine, ctx, o.ID))
			}
			before, err := f.engine.Get(ctx, o.ID)
			require.NoError(t, err)
			stockBefore := f.quantity(t, shirt)

			err = tt.attempt(f.engine, ctx, o.ID)
			if tt.allowed {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
			assert.Equal(t, string(before.Status), appErr.Details["from"])

			after, err := f.engine.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Status, after.Status)
			assert.Equal(t, stockBefore, f.quantity(t, shirt))
		})
	}
}

func TestEngine_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Process(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.engine.Return(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.engine.Get(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestEngine_NoDoubleRestoration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 10, "500")
	o := f.order(t, item(shirt, 3))

	_, err := f.engine.Return(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, f.quantity(t, shirt))

	_, err = f.engine.Return(ctx, o.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	require.NoError(t, f.engine.Delete(ctx, o.ID))
	assert.Equal(t, 10, f.quantity(t, shirt))
}

func TestEngine_Delete(t *testing.T) {
	tests := []struct {
		name      string
		prepare   func(t *testing.T, f *fixture, orderID id.ID)
		wantStock int
	}{
		{name: "pending restores", wantStock: 10},
		{
			name: "dispatched restores",
			prepare: func(t *testing.T, f *fixture, orderID id.ID) {
				_, err := f.engine.Process(context.Background(), orderID)
				require.NoError(t, err)
				_, err = f.engine.Dispatch(context.Background(), orderID)
				require.NoError(t, err)
			},
			wantStock: 10,
		},
		{
			name: "returned does not restore again",
			prepare: func(t *testing.T, f *fixture, orderID id.ID) {
				_, err := f.engine.Return(context.Background(), orderID)
				require.NoError(t, err)
			},
			wantStock: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			shirt := f.seed(t, "Shirt", 10, "500")
			o := f.order(t, item(shirt, 4))
			if tt.prepare != nil {
				tt.prepare(t, f, o.ID)
			}

			require.NoError(t, f.engine.Delete(ctx, o.ID))
			assert.Equal(t, tt.wantStock, f.quantity(t, shirt))

			_, err := f.engine.Get(ctx, o.ID)
			assert.True(t, apperror.IsNotFound(err))
		})
	}
}

func TestEngine_Delete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 10, "500")
	o := f.order(t, item(shirt, 4))

	require.NoError(t, f.engine.Delete(ctx, o.ID))
	require.NoError(t, f.engine.Delete(ctx, o.ID))
	require.NoError(t, f.engine.Delete(ctx, id.New()))
	assert.Equal(t, 10, f.quantity(t, shirt))
}

func TestEngine_StockConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 20, "500")

	held := 0
	a := f.order(t, item(shirt, 3))
	held += 3
	b := f.order(t, item(shirt, 5))
	held += 5
	c := f.order(t, item(shirt, 2))
	held += 2

	_, err := f.engine.Process(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.engine.Return(ctx, b.ID)
	require.NoError(t, err)
	held -= 5
	require.NoError(t, f.engine.Delete(ctx, c.ID))
	held -= 2

	assert.Equal(t, 20-held, f.quantity(t, shirt))

	history, err := f.catalog.StockHistory(ctx, shirt, 0)
	require.NoError(t, err)
	sum := 0
	for _, m := range history {
		sum += m.Delta
	}
	assert.Equal(t, f.quantity(t, shirt), sum, "journal deltas add up to the stock level")
}

func TestEngine_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	shirt := f.seed(t, "Shirt", 5, "500")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Create(context.Background(), orders.CreateInput{
				CustomerName: "Rahim",
				Items:        []orders.ItemInput{item(shirt, 1)},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, f.quantity(t, shirt))
}

func TestEngine_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 10, "500")

	first := f.order(t, item(shirt, 1))
	second := f.order(t, item(shirt, 1))
	third := f.order(t, item(shirt, 1))
	_, err := f.engine.Process(ctx, second.ID)
	require.NoError(t, err)

	all, err := f.engine.List(ctx, orders.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	processing := orders.StatusProcessing
	filtered, err := f.engine.List(ctx, orders.ListFilter{Status: &processing})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)

	page, err := f.engine.List(ctx, orders.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	bogus := orders.Status("LOST")
	_, err = f.engine.List(ctx, orders.ListFilter{Status: &bogus})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestEngine_Audit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.seed(t, "Shirt", 10, "500")
	o := f.order(t, item(shirt, 1))

	_, err := f.engine.Process(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.engine.Dispatch(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.Delete(ctx, o.ID))

	history, err := f.engine.History(ctx, o.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, orders.ActionDelete, history[0].Action)
	assert.Equal(t, orders.ActionDispatch, history[1].Action)
	assert.Equal(t, orders.ActionProcess, history[2].Action)
	assert.Equal(t, orders.ActionCreate, history[3].Action)
}
