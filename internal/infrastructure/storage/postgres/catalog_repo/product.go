// Package catalog_repo provides the PostgreSQL catalog repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/infrastructure/storage/postgres"
)

const (
	productsTable   = "products"
	variationsTable = "product_variations"
	orderItemsTable = "order_items"
)

var (
	productColumns   = postgres.ExtractDBColumns[catalog.Product]()
	variationColumns = postgres.ExtractDBColumns[catalog.Variation]()
)

// ProductRepo implements catalog.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

var _ catalog.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		batch:   postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the product row, then its variations. Variations go through
// COPY when a transaction is active.
func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	sql, args, err := r.insertProduct(p).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("insert product", err)
	}

	if len(p.Variations) == 0 {
		return nil
	}
	for i := range p.Variations {
		p.Variations[i].ProductID = p.ID
	}

	if r.txm.GetTx(ctx) != nil {
		_, err := postgres.CopyStructs(ctx, r.batch, variationsTable, variationColumns, p.Variations)
		return err
	}

	sql, args, err = r.insertVariations(p.Variations).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("insert variations", err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	sql, args, err := r.selectProducts().Where(squirrel.Eq{"id": productID}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
			if pgxscan.NotFound(err) {
				return apperror.NewNotFound("product", productID)
			}
			return postgres.MapError("get product", err)
		}
		return r.attachVariations(ctx, []*catalog.Product{&p})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]*catalog.Product, error) {
	sql, args, err := r.selectProducts().OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*catalog.Product
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
			return postgres.MapError("list products", err)
		}
		return r.attachVariations(ctx, products)
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*catalog.Product{}
	}
	return products, nil
}

func (r *ProductRepo) Update(ctx context.Context, p *catalog.Product) error {
	sql, args, err := r.builder.Update(productsTable).
		Set("name", p.Name).
		Set("description", p.Description).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID)
	}
	return nil
}

// Delete removes the product. Variations and their journal cascade in the
// schema; order items referencing a variation make the delete a CONFLICT.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	sql, args, err := r.builder.Delete(productsTable).Where(squirrel.Eq{"id": productID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

func (r *ProductRepo) HasOrderReferences(ctx context.Context, productID id.ID) (bool, error) {
	sql, args, err := r.orderReferences(productID).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, postgres.MapError("check order references", err)
	}
	return exists, nil
}

func (r *ProductRepo) attachVariations(ctx context.Context, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]id.ID, 0, len(products))
	byID := make(map[id.ID]*catalog.Product, len(products))
	for _, p := range products {
		p.Variations = []catalog.Variation{}
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	sql, args, err := r.selectVariations(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var variations []catalog.Variation
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &variations, sql, args...); err != nil {
		return postgres.MapError("list variations", err)
	}
	for _, v := range variations {
		if p, ok := byID[v.ProductID]; ok {
			p.Variations = append(p.Variations, v)
		}
	}
	return nil
}

func (r *ProductRepo) insertProduct(p *catalog.Product) squirrel.InsertBuilder {
	return r.builder.Insert(productsTable).SetMap(postgres.StructToMap(p))
}

func (r *ProductRepo) insertVariations(vs []catalog.Variation) squirrel.InsertBuilder {
	q := r.builder.Insert(variationsTable).Columns(variationColumns...)
	for i := range vs {
		q = q.Values(postgres.Values(postgres.StructToMap(&vs[i]), variationColumns)...)
	}
	return q
}

func (r *ProductRepo) selectProducts() squirrel.SelectBuilder {
	return r.builder.Select(productColumns...).From(productsTable)
}

func (r *ProductRepo) selectVariations(productIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.Select(variationColumns...).
		From(variationsTable).
		Where(squirrel.Eq{"product_id": productIDs}).
		OrderBy("product_id", "id")
}

func (r *ProductRepo) orderReferences(productID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("1").
		From(orderItemsTable+" oi").
		Join(variationsTable+" pv ON pv.id = oi.product_variation_id").
		Where(squirrel.Eq{"pv.product_id": productID}).
		Prefix("SELECT EXISTS (").
		Suffix(")")
}
