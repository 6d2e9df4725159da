package catalog

import (
	"context"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/tx"
	"pheezes/internal/domain/stock"
	"pheezes/pkg/logger"
)

// Service manages the product catalog.
type Service struct {
	repo   Repository
	txm    tx.Manager
	ledger *stock.Ledger
	stock  stock.Writer
	now    func() time.Time
}

// NewService creates a catalog service.
// stockWriter must resolve the transaction from ctx, so it joins the
// transactions opened through txm.
func NewService(repo Repository, txm tx.Manager, ledger *stock.Ledger, stockWriter stock.Writer) *Service {
	return &Service{
		repo:   repo,
		txm:    txm,
		ledger: ledger,
		stock:  stockWriter,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateProduct stores a product with its variations and journals their
// initial stock.
func (s *Service) CreateProduct(ctx context.Context, in CreateInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	product := &Product{
		ID:          id.New(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Variations:  make([]Variation, 0, len(in.Variations)),
	}
	for _, v := range in.Variations {
		product.Variations = append(product.Variations, Variation{
			ID:        id.New(),
			ProductID: product.ID,
			Name:      v.Name,
			Quantity:  v.Quantity,
			Price:     v.Price,
		})
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, product); err != nil {
			return err
		}
		for _, v := range product.Variations {
			if err := s.ledger.RecordOpening(ctx, s.stock, v.ID, v.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created", "product_id", product.ID, "variations", len(product.Variations))
	return product, nil
}

// ListProducts returns all products newest first.
func (s *Service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

// GetProduct returns one product with variations.
func (s *Service) GetProduct(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// UpdateProduct edits name and description.
func (s *Service) UpdateProduct(ctx context.Context, productID id.ID, in UpdateInput) (*Product, error) {
	var updated *Product
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := in.Apply(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product updated", "product_id", productID)
	return updated, nil
}

// DeleteProduct removes a product and its variations.
// Products sold in any order are kept so order history stays intact.
func (s *Service) DeleteProduct(ctx context.Context, productID id.ID) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, productID); err != nil {
			return err
		}

		referenced, err := s.repo.HasOrderReferences(ctx, productID)
		if err != nil {
			return err
		}
		if referenced {
			return apperror.NewConflict("product is referenced by orders").
				WithDetail("product_id", productID.String())
		}

		return s.repo.Delete(ctx, productID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product deleted", "product_id", productID)
	return nil
}

// UpdateVariationStock overwrites a variation's quantity.
func (s *Service) UpdateVariationStock(ctx context.Context, variationID id.ID, quantity int) (*Variation, error) {
	var level stock.Level
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		level, err = s.ledger.Set(ctx, s.stock, variationID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "variation stock set", "variation_id", variationID, "quantity", level.Quantity)
	return &Variation{
		ID:        level.VariationID,
		ProductID: level.ProductID,
		Name:      level.VariationName,
		Quantity:  level.Quantity,
		Price:     level.Price,
	}, nil
}

// StockHistory returns the newest stock movements of a variation.
func (s *Service) StockHistory(ctx context.Context, variationID id.ID, limit int) ([]stock.Movement, error) {
	return s.ledger.History(ctx, variationID, limit)
}
