// Package order_repo provides the PostgreSQL order repository and the unit of
// work spanning orders and stock.
package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/orders"
	"pheezes/internal/domain/stock"
	"pheezes/internal/infrastructure/storage/postgres"
	"pheezes/internal/infrastructure/storage/postgres/register_repo"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

var (
	orderColumns = postgres.ExtractDBColumns[orders.Order]()
	// Display names are joined from the catalog, not stored on the item.
	itemColumns = []string{"id", "order_id", "product_variation_id", "quantity", "price"}
)

// OrderRepo implements orders.Reader and orders.Writer.
type OrderRepo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

var (
	_ orders.Reader = (*OrderRepo)(nil)
	_ orders.Writer = (*OrderRepo)(nil)
)

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txm:     txm,
		batch:   postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	return r.get(ctx, orderID, true)
}

// GetByID reads the order and its items from one snapshot.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	var o *orders.Order
	err := r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		o, err = r.get(ctx, orderID, false)
		return err
	})
	return o, err
}

func (r *OrderRepo) Insert(ctx context.Context, o *orders.Order) error {
	sql, args, err := r.insertOrder(o).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("insert order", err)
	}

	if len(o.Items) == 0 {
		return nil
	}

	if r.txm.GetTx(ctx) != nil {
		_, err := postgres.CopyStructs(ctx, r.batch, orderItemsTable, itemColumns, o.Items)
		return err
	}

	q := r.builder.Insert(orderItemsTable).Columns(itemColumns...)
	for i := range o.Items {
		q = q.Values(postgres.Values(postgres.StructToMap(&o.Items[i]), itemColumns)...)
	}
	sql, args, err = q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("insert order items", err)
	}
	return nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID id.ID, status orders.Status, updatedAt time.Time) error {
	sql, args, err := r.builder.Update(ordersTable).
		Set("status", status).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID)
	}
	return nil
}

// Delete removes the order; its items cascade.
func (r *OrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	sql, args, err := r.builder.Delete(ordersTable).Where(squirrel.Eq{"id": orderID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("delete order", err)
	}
	return nil
}

// List reads the page of orders and their items from one snapshot, so an
// order deleted concurrently never shows up without its items.
func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) ([]*orders.Order, error) {
	sql, args, err := r.selectList(filter.Normalize()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var list []*orders.Order
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &list, sql, args...); err != nil {
			return postgres.MapError("list orders", err)
		}
		return r.attachItems(ctx, list)
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*orders.Order{}
	}
	return list, nil
}

func (r *OrderRepo) get(ctx context.Context, orderID id.ID, lock bool) (*orders.Order, error) {
	q := r.selectOrders().Where(squirrel.Eq{"id": orderID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o orders.Order
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, postgres.MapError("get order", err)
	}

	if err := r.attachItems(ctx, []*orders.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) attachItems(ctx context.Context, list []*orders.Order) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]id.ID, 0, len(list))
	byID := make(map[id.ID]*orders.Order, len(list))
	for _, o := range list {
		o.Items = []orders.Item{}
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	sql, args, err := r.selectItems(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var items []orders.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return postgres.MapError("list order items", err)
	}
	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}

func (r *OrderRepo) insertOrder(o *orders.Order) squirrel.InsertBuilder {
	return r.builder.Insert(ordersTable).SetMap(postgres.StructToMap(o))
}

func (r *OrderRepo) selectOrders() squirrel.SelectBuilder {
	return r.builder.Select(orderColumns...).From(ordersTable)
}

func (r *OrderRepo) selectList(filter orders.ListFilter) squirrel.SelectBuilder {
	q := r.selectOrders()
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	return q.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
}

func (r *OrderRepo) selectItems(orderIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.Select(
		"oi.id",
		"oi.order_id",
		"oi.product_variation_id",
		"oi.quantity",
		"oi.price",
		"p.name AS product_name",
		"v.name AS variation_name",
	).
		From(orderItemsTable + " oi").
		Join("product_variations v ON v.id = oi.product_variation_id").
		Join("products p ON p.id = v.product_id").
		Where(squirrel.Eq{"oi.order_id": orderIDs}).
		OrderBy("oi.order_id", "oi.id")
}

// Store implements orders.Store. Units of work run in one database
// transaction shared by the order and stock repositories.
type Store struct {
	*OrderRepo
	stock *register_repo.StockRepo
}

var _ orders.Store = (*Store)(nil)

// NewStore creates a unit-of-work store over txm.
func NewStore(txm *postgres.TxManager, stockRepo *register_repo.StockRepo) *Store {
	return &Store{OrderRepo: NewOrderRepo(txm), stock: stockRepo}
}

type unitOfWork struct {
	orders *OrderRepo
	stock  *register_repo.StockRepo
}

func (u unitOfWork) Orders() orders.Writer { return u.orders }
func (u unitOfWork) Stock() stock.Writer   { return u.stock }

// WithTx implements orders.Store.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, unitOfWork{orders: s.OrderRepo, stock: s.stock})
	})
}
