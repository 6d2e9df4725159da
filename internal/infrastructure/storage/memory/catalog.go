package memory

import (
	"bytes"
	"context"
	"slices"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/stock"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	s *Store
}

var _ catalog.Repository = (*CatalogRepo)(nil)

func (r *CatalogRepo) Create(ctx context.Context, p *catalog.Product) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return apperror.NewConflict("product already exists").WithDetail("product_id", p.ID.String())
		}
		stored := *p
		stored.Variations = nil
		st.products[p.ID] = stored
		for _, v := range p.Variations {
			v.ProductID = p.ID
			st.variations[v.ID] = v
		}
		return nil
	})
}

func (r *CatalogRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.s.view(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		out = st.productWithVariations(p)
		return nil
	})
	return out, err
}

func (r *CatalogRepo) List(ctx context.Context) ([]*catalog.Product, error) {
	var out []*catalog.Product
	err := r.s.view(ctx, func(st *state) error {
		out = make([]*catalog.Product, 0, len(st.products))
		for _, p := range st.products {
			out = append(out, st.productWithVariations(p))
		}
		slices.SortFunc(out, func(a, b *catalog.Product) int {
			return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		})
		return nil
	})
	return out, err
}

func (r *CatalogRepo) Update(ctx context.Context, p *catalog.Product) error {
	return r.s.update(ctx, func(st *state) error {
		stored, ok := st.products[p.ID]
		if !ok {
			return apperror.NewNotFound("product", p.ID)
		}
		stored.Name = p.Name
		stored.Description = p.Description
		stored.UpdatedAt = p.UpdatedAt
		st.products[p.ID] = stored
		return nil
	})
}

func (r *CatalogRepo) Delete(ctx context.Context, productID id.ID) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.products[productID]; !ok {
			return apperror.NewNotFound("product", productID)
		}
		if st.referencedByOrders(productID) {
			return apperror.NewConflict("product is referenced by orders").
				WithDetail("product_id", productID.String())
		}

		delete(st.products, productID)
		removed := make(map[id.ID]bool)
		for vid, v := range st.variations {
			if v.ProductID == productID {
				removed[vid] = true
				delete(st.variations, vid)
			}
		}
		st.movements = slices.DeleteFunc(st.movements, func(m stock.Movement) bool {
			return removed[m.VariationID]
		})
		return nil
	})
}

func (r *CatalogRepo) HasOrderReferences(ctx context.Context, productID id.ID) (bool, error) {
	var referenced bool
	err := r.s.view(ctx, func(st *state) error {
		referenced = st.referencedByOrders(productID)
		return nil
	})
	return referenced, err
}

func (st *state) productWithVariations(p catalog.Product) *catalog.Product {
	out := p
	out.Variations = make([]catalog.Variation, 0)
	for _, v := range st.variations {
		if v.ProductID == p.ID {
			out.Variations = append(out.Variations, v)
		}
	}
	slices.SortFunc(out.Variations, func(a, b catalog.Variation) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return &out
}

func (st *state) referencedByOrders(productID id.ID) bool {
	for _, o := range st.orders {
		for _, item := range o.Items {
			if v, ok := st.variations[item.ProductVariationID]; ok && v.ProductID == productID {
				return true
			}
		}
	}
	return false
}
