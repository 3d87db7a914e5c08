package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/sales-api/internal/sale"
)

// Lookup adapts the catalog service to the pricing-side product resolver.
type Lookup struct {
	Svc *Service
}

// Resolve loads a product and its category name for cart pricing. Missing or
// deactivated products surface as sale.ProductNotFoundError so cart handlers
// can map them uniformly.
func (l *Lookup) Resolve(ctx context.Context, productID uuid.UUID) (sale.Product, error) {
	if l == nil || l.Svc == nil {
		return sale.Product{}, errors.New("catalog lookup not configured")
	}
	p, err := l.Svc.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return sale.Product{}, &sale.ProductNotFoundError{ProductID: productID}
		}
		return sale.Product{}, err
	}
	categoryName := ""
	if p.CategoryID != uuid.Nil {
		cat, err := l.Svc.GetCategory(ctx, p.CategoryID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return sale.Product{}, err
		}
		if err == nil {
			categoryName = cat.Name
		}
	}
	return sale.Product{
		UnitPrice:    p.Price,
		IsActive:     p.Active,
		CategoryName: categoryName,
	}, nil
}

var _ sale.Catalog = (*Lookup)(nil)
