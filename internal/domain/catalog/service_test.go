package catalog_test

import (
	"context"
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

func newService(t *testing.T) (*catalog.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledger := stock.NewLedger(store.Stock())
	return catalog.NewService(store.Catalog(), store, ledger, store.Stock()), store
}

func strPtr(s string) *string { return &s }

func shirtInput() catalog.CreateInput {
	return catalog.CreateInput{
		Name:        "  Shirt ",
		Description: strPtr("cotton"),
		Variations: []catalog.VariationInput{
			{Name: "M", Quantity: 10, Price: types.MustMoney("500")},
			{Name: "L", Quantity: 0, Price: types.MustMoney("550")},
		},
	}
}

func TestService_CreateProduct(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, shirtInput())
	require.NoError(t, err)

	assert.False(t, id.IsNil(p.ID))
	assert.Equal(t, "Shirt", p.Name)
	require.Len(t, p.Variations, 2)
	for _, v := range p.Variations {
		assert.Equal(t, p.ID, v.ProductID)
	}

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Variations, 2)
	assert.Equal(t, "M", got.Variations[0].Name)
	assert.Equal(t, 10, got.Variations[0].Quantity)

	history, err := svc.StockHistory(ctx, p.Variations[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, stock.ReasonManualSet, history[0].Reason)
	assert.Equal(t, 10, history[0].Delta)

	empty, err := svc.StockHistory(ctx, p.Variations[1].ID, 10)
	require.NoError(t, err)
	assert.Empty(t, empty, "zero opening stock is not journaled")
}

func TestService_CreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *catalog.CreateInput)
		field  string
	}{
		{name: "blank name", mutate: func(in *catalog.CreateInput) { in.Name = " " }, field: "name"},
		{name: "blank variation", mutate: func(in *catalog.CreateInput) { in.Variations[0].Name = "" }, field: "variations"},
		{name: "negative quantity", mutate: func(in *catalog.CreateInput) { in.Variations[0].Quantity = -1 }, field: "variations"},
		{name: "negative price", mutate: func(in *catalog.CreateInput) { in.Variations[1].Price = types.MustMoney("-5") }, field: "variations"},
		{name: "quantity above int32", mutate: func(in *catalog.CreateInput) { in.Variations[0].Quantity = types.MaxQuantity + 1 }, field: "variations"},
		{name: "sub-cent price", mutate: func(in *catalog.CreateInput) { in.Variations[0].Price = types.MustMoney("499.999") }, field: "variations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			in := shirtInput()
			tt.mutate(&in)

			_, err := svc.CreateProduct(context.Background(), in)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])

			list, err := svc.ListProducts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestService_ListProducts_NewestFirst(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, catalog.CreateInput{Name: "Shirt"})
	require.NoError(t, err)
	second, err := svc.CreateProduct(ctx, catalog.CreateInput{Name: "Cap"})
	require.NoError(t, err)

	list, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.NotNil(t, list[0].Variations)
}

func TestService_UpdateProduct(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, shirtInput())
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, catalog.UpdateInput{Name: strPtr("Polo")})
	require.NoError(t, err)
	assert.Equal(t, "Polo", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "cotton", *updated.Description)

	updated, err = svc.UpdateProduct(ctx, p.ID, catalog.UpdateInput{Description: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Description)

	_, err = svc.UpdateProduct(ctx, p.ID, catalog.UpdateInput{Name: strPtr(" ")})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.UpdateProduct(ctx, id.New(), catalog.UpdateInput{Name: strPtr("X")})
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_DeleteProduct(t *testing.T) {
	t.Run("unreferenced", func(t *testing.T) {
		svc, _ := newService(t)
		ctx := context.Background()
		p, err := svc.CreateProduct(ctx, shirtInput())
		require.NoError(t, err)

		require.NoError(t, svc.DeleteProduct(ctx, p.ID))

		_, err = svc.GetProduct(ctx, p.ID)
		assert.True(t, apperror.IsNotFound(err))

		_, err = svc.UpdateVariationStock(ctx, p.Variations[0].ID, 3)
		assert.True(t, apperror.IsNotFound(err), "variations are removed with the product")
	})

	t.Run("referenced by order", func(t *testing.T) {
		svc, store := newService(t)
		ctx := context.Background()
		p, err := svc.CreateProduct(ctx, shirtInput())
		require.NoError(t, err)

		engine := orders.NewEngine(store.Orders(), stock.NewLedger(store.Stock()), store.Numbers(numerator.DefaultConfig("ORD")))
		_, err = engine.Create(ctx, orders.CreateInput{
			CustomerName: "Rahim",
			Items:        []orders.ItemInput{{ProductVariationID: p.Variations[0].ID, Quantity: 1}},
		})
		require.NoError(t, err)

		err = svc.DeleteProduct(ctx, p.ID)
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

		_, err = svc.GetProduct(ctx, p.ID)
		assert.NoError(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		svc, _ := newService(t)
		err := svc.DeleteProduct(context.Background(), id.New())
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestService_UpdateVariationStock(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, shirtInput())
	require.NoError(t, err)
	vid := p.Variations[0].ID

	v, err := svc.UpdateVariationStock(ctx, vid, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, v.Quantity)
	assert.Equal(t, "M", v.Name)
	assert.Equal(t, p.ID, v.ProductID)

	history, err := svc.StockHistory(ctx, vid, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 15, history[0].Delta)
	assert.Equal(t, 25, history[0].Balance)

	_, err = svc.UpdateVariationStock(ctx, vid, -1)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.UpdateVariationStock(ctx, vid, types.MaxQuantity+1)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.UpdateVariationStock(ctx, id.New(), 1)
	assert.True(t, apperror.IsNotFound(err))
}
