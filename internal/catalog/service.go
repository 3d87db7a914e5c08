package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested product or category could not be located.
var ErrNotFound = errors.New("catalog: not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("catalog: invalid input")

// Product is the catalog's product record.
type Product struct {
	ID          uuid.UUID
	Title       string
	Description string
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups products.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the persistence surface the catalog service depends on.
// Implementations return ErrNotFound for missing rows.
type Store interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]Product, int64, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates catalog persistence and caching.
type Service struct {
	Store Store
	Cache *Cache
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	if strings.TrimSpace(p.Title) == "" {
		return Product{}, fmt.Errorf("title required: %w", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return Product{}, fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	if p.CategoryID != uuid.Nil {
		if _, err := s.Store.GetCategory(ctx, p.CategoryID); err != nil {
			return Product{}, err
		}
	}
	now := s.now()
	p.ID = uuid.New()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.Store.CreateProduct(ctx, p)
}

// GetProduct fetches a product, serving repeated reads from cache.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	key := productCacheKey(id)
	var cached Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, p)
	return p, nil
}

// ListProducts returns a page of products with the total count.
func (s *Service) ListProducts(ctx context.Context, page, perPage int) ([]Product, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("catalog service not configured")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return s.Store.ListProducts(ctx, perPage, (page-1)*perPage)
}

// UpdateProduct replaces mutable product fields and invalidates the cache.
func (s *Service) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	if strings.TrimSpace(p.Title) == "" {
		return Product{}, fmt.Errorf("title required: %w", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return Product{}, fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	if p.CategoryID != uuid.Nil {
		if _, err := s.Store.GetCategory(ctx, p.CategoryID); err != nil {
			return Product{}, err
		}
	}
	p.UpdatedAt = s.now()
	updated, err := s.Store.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.Delete(ctx, productCacheKey(p.ID))
	return updated, nil
}

// DeleteProduct removes a product and its cached projection.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	_ = s.Cache.Delete(ctx, productCacheKey(id))
	return nil
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if s == nil || s.Store == nil {
		return Category{}, errors.New("catalog service not configured")
	}
	if strings.TrimSpace(c.Name) == "" {
		return Category{}, fmt.Errorf("name required: %w", ErrInvalidInput)
	}
	now := s.now()
	c.ID = uuid.New()
	c.CreatedAt = now
	c.UpdatedAt = now
	return s.Store.CreateCategory(ctx, c)
}

// GetCategory fetches one category.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	if s == nil || s.Store == nil {
		return Category{}, errors.New("catalog service not configured")
	}
	return s.Store.GetCategory(ctx, id)
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.Store.ListCategories(ctx)
}

// UpdateCategory replaces mutable category fields.
func (s *Service) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	if s == nil || s.Store == nil {
		return Category{}, errors.New("catalog service not configured")
	}
	if strings.TrimSpace(c.Name) == "" {
		return Category{}, fmt.Errorf("name required: %w", ErrInvalidInput)
	}
	c.UpdatedAt = s.now()
	return s.Store.UpdateCategory(ctx, c)
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	return s.Store.DeleteCategory(ctx, id)
}

func productCacheKey(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}
