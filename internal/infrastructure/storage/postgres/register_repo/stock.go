// Package register_repo provides the PostgreSQL stock register.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/stock"
	"pheezes/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "stock_movements"
	variationsTable     = "product_variations"
	productsTable       = "products"
)

var movementColumns = postgres.ExtractDBColumns[stock.Movement]()

// StockRepo implements stock.Writer and stock.Reader over product_variations
// and the stock_movements journal.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var (
	_ stock.Writer = (*StockRepo)(nil)
	_ stock.Reader = (*StockRepo)(nil)
)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetForUpdate locks the variation row until the surrounding transaction ends.
// Outside a transaction the lock is released right away.
func (r *StockRepo) GetForUpdate(ctx context.Context, variationID id.ID) (stock.Level, error) {
	sql, args, err := r.selectLevelForUpdate(variationID).ToSql()
	if err != nil {
		return stock.Level{}, fmt.Errorf("build query: %w", err)
	}

	var level stock.Level
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Level{}, apperror.NewNotFound("variation", variationID)
		}
		return stock.Level{}, postgres.MapError("lock stock level", err)
	}
	return level, nil
}

func (r *StockRepo) SetQuantity(ctx context.Context, variationID id.ID, quantity int) error {
	sql, args, err := r.builder.Update(variationsTable).
		Set("quantity", quantity).
		Where(squirrel.Eq{"id": variationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError("set stock quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("variation", variationID)
	}
	return nil
}

func (r *StockRepo) AppendMovement(ctx context.Context, m stock.Movement) error {
	sql, args, err := r.insertMovement(m).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("append stock movement", err)
	}
	return nil
}

// ListMovements returns the journal of a variation, newest first.
func (r *StockRepo) ListMovements(ctx context.Context, variationID id.ID, limit int) ([]stock.Movement, error) {
	sql, args, err := r.selectMovements(variationID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := make([]stock.Movement, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, postgres.MapError("list stock movements", err)
	}
	return movements, nil
}

func (r *StockRepo) selectLevelForUpdate(variationID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(
		"v.id AS variation_id",
		"v.product_id",
		"p.name AS product_name",
		"v.name AS variation_name",
		"v.quantity",
		"v.price",
	).
		From(variationsTable + " v").
		Join(productsTable + " p ON p.id = v.product_id").
		Where(squirrel.Eq{"v.id": variationID}).
		Suffix("FOR UPDATE OF v")
}

func (r *StockRepo) insertMovement(m stock.Movement) squirrel.InsertBuilder {
	return r.builder.Insert(stockMovementsTable).
		Columns(movementColumns...).
		Values(postgres.Values(postgres.StructToMap(m), movementColumns)...)
}

func (r *StockRepo) selectMovements(variationID id.ID, limit int) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"variation_id": variationID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}
