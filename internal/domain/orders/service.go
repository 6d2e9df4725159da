package orders

import (
	"context"
	"fmt"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
	"pheezes/internal/domain/stock"
	"pheezes/pkg/logger"
)

// Audit actions.
const (
	ActionCreate   = "create"
	ActionProcess  = "process"
	ActionDispatch = "dispatch"
	ActionReturn   = "return"
	ActionDelete   = "delete"
)

// Engine drives orders through their lifecycle.
// Every operation runs as one unit of work covering the order and the stock
// of its items.
type Engine struct {
	store   Store
	ledger  *stock.Ledger
	numbers Numberer
	audit   Auditor
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAuditor records lifecycle changes through a.
func WithAuditor(a Auditor) EngineOption {
	return func(e *Engine) { e.audit = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an order workflow engine.
func NewEngine(store Store, ledger *stock.Ledger, numbers Numberer, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		ledger:  ledger,
		numbers: numbers,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create places an order and takes its items out of stock.
// Nothing is stored if any item cannot be reserved.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *Order
	err := e.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		number, err := e.numbers.Next(ctx)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}

		now := e.now()
		order := &Order{
			ID:              id.New(),
			Number:          number,
			CustomerName:    in.CustomerName,
			CustomerContact: in.CustomerContact,
			CustomerAddress: in.CustomerAddress,
			Details:         in.Details,
			Status:          StatusPending,
			Advance:         in.Advance,
			CreatedAt:       now,
			UpdatedAt:       now,
			Items:           make([]Item, 0, len(in.Items)),
		}

		total := types.Zero()
		for _, it := range in.Items {
			level, err := e.ledger.Decrement(ctx, tx.Stock(), it.ProductVariationID, it.Quantity, stock.Ref{
				Reason:  stock.ReasonOrderCreated,
				OrderID: &order.ID,
			})
			if err != nil {
				return err
			}

			price := level.Price
			if it.Price != nil {
				price = *it.Price
			}

			item := Item{
				ID:                 id.New(),
				OrderID:            order.ID,
				ProductVariationID: it.ProductVariationID,
				Quantity:           it.Quantity,
				Price:              price,
				ProductName:        level.ProductName,
				VariationName:      level.VariationName,
			}
			order.Items = append(order.Items, item)
			total = total.Add(item.Amount())
		}

		if order.IsManual() {
			total = *in.TotalAmount
		}
		order.TotalAmount = total

		if err := tx.Orders().Insert(ctx, order); err != nil {
			return err
		}

		if err := e.record(ctx, order.ID, ActionCreate, map[string]any{
			"number":      order.Number,
			"status":      order.Status,
			"totalAmount": order.TotalAmount.StringFixed(types.MoneyScale),
			"items":       len(order.Items),
		}); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", created.ID,
		"number", created.Number,
		"items", len(created.Items),
		"total", created.TotalAmount.String(),
	)
	return created, nil
}

// Process moves a pending order to PROCESSING.
func (e *Engine) Process(ctx context.Context, orderID id.ID) (*Order, error) {
	return e.transition(ctx, orderID, StatusProcessing, ActionProcess, nil)
}

// Dispatch moves a processing order to DISPATCHED.
func (e *Engine) Dispatch(ctx context.Context, orderID id.ID) (*Order, error) {
	return e.transition(ctx, orderID, StatusDispatched, ActionDispatch, nil)
}

// Return marks an order RETURNED and puts its items back in stock.
// A returned order cannot be returned again.
func (e *Engine) Return(ctx context.Context, orderID id.ID) (*Order, error) {
	return e.transition(ctx, orderID, StatusReturned, ActionReturn, func(ctx context.Context, tx Tx, order *Order) error {
		return e.restock(ctx, tx, order, stock.ReasonOrderReturned)
	})
}

// Delete removes an order. Items of an order that still holds stock are put
// back first. Deleting an unknown order succeeds without effect.
func (e *Engine) Delete(ctx context.Context, orderID id.ID) error {
	deleted := false
	err := e.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil
			}
			return err
		}

		if order.Status.HoldsStock() {
			if err := e.restock(ctx, tx, order, stock.ReasonOrderDeleted); err != nil {
				return err
			}
		}

		if err := tx.Orders().Delete(ctx, order.ID); err != nil {
			return err
		}

		if err := e.record(ctx, order.ID, ActionDelete, map[string]any{
			"number":   order.Number,
			"status":   order.Status,
			"restored": order.Status.HoldsStock(),
		}); err != nil {
			return err
		}

		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	if deleted {
		logger.Info(ctx, "order deleted", "order_id", orderID)
	}
	return nil
}

// Get returns an order with its items.
func (e *Engine) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return e.store.GetByID(ctx, orderID)
}

// List returns orders newest first.
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperror.NewFieldValidation("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	return e.store.List(ctx, filter.Normalize())
}

// History returns the audit trail of an order, newest first.
// The trail outlives the order, so deleted orders still have one.
func (e *Engine) History(ctx context.Context, orderID id.ID, limit int) ([]AuditEntry, error) {
	if e.audit == nil {
		return []AuditEntry{}, nil
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return e.audit.History(ctx, orderID, limit)
}

type transitionEffect func(ctx context.Context, tx Tx, order *Order) error

func (e *Engine) transition(ctx context.Context, orderID id.ID, to Status, action string, effect transitionEffect) (*Order, error) {
	var updated *Order
	err := e.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		from := order.Status
		if !from.CanTransitionTo(to) {
			return apperror.NewInvalidTransition("order", orderID, string(from), string(to))
		}

		if effect != nil {
			if err := effect(ctx, tx, order); err != nil {
				return err
			}
		}

		now := e.now()
		if err := tx.Orders().UpdateStatus(ctx, order.ID, to, now); err != nil {
			return err
		}
		order.Status = to
		order.UpdatedAt = now

		if err := e.record(ctx, order.ID, action, map[string]any{
			"status": map[string]any{"old": from, "new": to},
		}); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order status changed",
		"order_id", updated.ID,
		"number", updated.Number,
		"status", updated.Status,
	)
	return updated, nil
}

func (e *Engine) restock(ctx context.Context, tx Tx, order *Order, reason stock.Reason) error {
	for _, item := range order.Items {
		_, err := e.ledger.Increment(ctx, tx.Stock(), item.ProductVariationID, item.Quantity, stock.Ref{
			Reason:  reason,
			OrderID: &order.ID,
		})
		if err != nil {
			return fmt.Errorf("restock item %s: %w", item.ID, err)
		}
	}
	return nil
}

func (e *Engine) record(ctx context.Context, orderID id.ID, action string, changes map[string]any) error {
	if e.audit == nil {
		return nil
	}
	if err := e.audit.Record(ctx, AuditEvent{OrderID: orderID, Action: action, Changes: changes}); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}
