package memory

import (
	"context"
	"slices"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/orders"
	"pheezes/internal/domain/stock"
	"pheezes/pkg/numerator"
)

// OrderRepo implements orders.Store and orders.Writer.
type OrderRepo struct {
	s *Store
}

var (
	_ orders.Store  = (*OrderRepo)(nil)
	_ orders.Writer = (*OrderRepo)(nil)
)

type unitOfWork struct {
	s *Store
}

func (u unitOfWork) Orders() orders.Writer { return u.s.Orders() }
func (u unitOfWork) Stock() stock.Writer   { return u.s.Stock() }

// WithTx implements orders.Store.
func (r *OrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return r.s.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, unitOfWork{s: r.s})
	})
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	return r.GetByID(ctx, orderID)
}

func (r *OrderRepo) Insert(ctx context.Context, o *orders.Order) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return apperror.NewConflict("order already exists").WithDetail("order_id", o.ID.String())
		}
		for _, item := range o.Items {
			if _, ok := st.variations[item.ProductVariationID]; !ok {
				return apperror.NewNotFound("variation", item.ProductVariationID)
			}
		}
		stored := *o
		stored.Items = slices.Clone(o.Items)
		st.orders[o.ID] = stored
		return nil
	})
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID id.ID, status orders.Status, updatedAt time.Time) error {
	return r.s.update(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("order", orderID)
		}
		o.Status = status
		o.UpdatedAt = updatedAt
		st.orders[orderID] = o
		return nil
	})
}

func (r *OrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	return r.s.update(ctx, func(st *state) error {
		delete(st.orders, orderID)
		return nil
	})
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	var out *orders.Order
	err := r.s.view(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("order", orderID)
		}
		out = st.orderView(o)
		return nil
	})
	return out, err
}

func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) ([]*orders.Order, error) {
	filter = filter.Normalize()

	var out []*orders.Order
	err := r.s.view(ctx, func(st *state) error {
		all := make([]*orders.Order, 0, len(st.orders))
		for _, o := range st.orders {
			if filter.Status != nil && o.Status != *filter.Status {
				continue
			}
			all = append(all, st.orderView(o))
		}
		slices.SortFunc(all, func(a, b *orders.Order) int {
			return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		})

		if filter.Offset >= len(all) {
			out = []*orders.Order{}
			return nil
		}
		end := min(filter.Offset+filter.Limit, len(all))
		out = all[filter.Offset:end]
		return nil
	})
	return out, err
}

// orderView returns a copy with display names filled from the catalog.
func (st *state) orderView(o orders.Order) *orders.Order {
	out := o
	out.Items = make([]orders.Item, len(o.Items))
	for i, item := range o.Items {
		if v, ok := st.variations[item.ProductVariationID]; ok {
			item.VariationName = v.Name
			item.ProductName = st.products[v.ProductID].Name
		}
		out.Items[i] = item
	}
	return &out
}

// Sequence issues order numbers from an in-memory counter. The counter is
// part of the snapshot, so a rolled back unit of work releases its number.
type Sequence struct {
	s   *Store
	cfg numerator.Config
}

var _ orders.Numberer = (*Sequence)(nil)

// Numbers returns a number sequence for cfg.
func (s *Store) Numbers(cfg numerator.Config) *Sequence {
	return &Sequence{s: s, cfg: cfg}
}

func (q *Sequence) Next(ctx context.Context) (string, error) {
	var number string
	err := q.s.update(ctx, func(st *state) error {
		now := q.s.now()
		key := numerator.Key(q.cfg, now)
		st.sequences[key]++
		number = numerator.Format(q.cfg, now, st.sequences[key])
		return nil
	})
	return number, err
}

// AuditLog implements orders.Auditor.
type AuditLog struct {
	s *Store
}

var _ orders.Auditor = (*AuditLog)(nil)

func (a *AuditLog) Record(ctx context.Context, event orders.AuditEvent) error {
	return a.s.update(ctx, func(st *state) error {
		st.audit = append(st.audit, AuditRecord{AuditEvent: event, CreatedAt: a.s.now()})
		return nil
	})
}

func (a *AuditLog) History(ctx context.Context, orderID id.ID, limit int) ([]orders.AuditEntry, error) {
	out := make([]orders.AuditEntry, 0)
	err := a.s.view(ctx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			if limit > 0 && len(out) >= limit {
				break
			}
			rec := st.audit[i]
			if rec.OrderID == orderID {
				out = append(out, orders.AuditEntry{Action: rec.Action, Changes: rec.Changes, CreatedAt: rec.CreatedAt})
			}
		}
		return nil
	})
	return out, err
}
