package catalog_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/catalog"
	"github.com/noah-isme/sales-api/internal/sale"
)

type fakeStore struct {
	products   map[uuid.UUID]catalog.Product
	categories map[uuid.UUID]catalog.Category

	productGets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   make(map[uuid.UUID]catalog.Product),
		categories: make(map[uuid.UUID]catalog.Category),
	}
}

func (f *fakeStore) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	f.productGets++
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListProducts(_ context.Context, limit, offset int) ([]catalog.Product, int64, error) {
	all := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	if _, ok := f.products[p.ID]; !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) CreateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetCategory(_ context.Context, id uuid.UUID) (catalog.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]catalog.Category, error) {
	all := make([]catalog.Category, 0, len(f.categories))
	for _, c := range f.categories {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	if _, ok := f.categories[c.ID]; !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	if _, ok := f.categories[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func newTestService(t *testing.T, store catalog.Store) *catalog.Service {
	t.Helper()
	return &catalog.Service{
		Store: store,
		Cache: newTestCache(t),
		Now:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeStore())

	_, err := svc.CreateProduct(ctx, catalog.Product{Title: "  ", Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, catalog.ErrInvalidInput)

	_, err = svc.CreateProduct(ctx, catalog.Product{Title: "Keyboard", Price: decimal.NewFromInt(-5)})
	require.ErrorIs(t, err, catalog.ErrInvalidInput)

	_, err = svc.CreateProduct(ctx, catalog.Product{
		Title:      "Keyboard",
		Price:      decimal.NewFromInt(5),
		CategoryID: uuid.New(),
	})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCreateProductAssignsIdentityAndTimestamps(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(t, store)

	p, err := svc.CreateProduct(ctx, catalog.Product{
		Title: "Mechanical Keyboard",
		Price: decimal.RequireFromString("149.90"),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, p.ID)
	require.True(t, p.Active)
	require.False(t, p.CreatedAt.IsZero())
	require.Equal(t, p.CreatedAt, p.UpdatedAt)
	require.Len(t, store.products, 1)
}

func TestGetProductServesSecondReadFromCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(t, store)

	created, err := svc.CreateProduct(ctx, catalog.Product{
		Title: "Monitor",
		Price: decimal.RequireFromString("299.00"),
	})
	require.NoError(t, err)

	first, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	second, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.True(t, first.Price.Equal(second.Price))
	require.Equal(t, 1, store.productGets)
}

func TestUpdateProductInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(t, store)

	created, err := svc.CreateProduct(ctx, catalog.Product{
		Title: "Monitor",
		Price: decimal.RequireFromString("299.00"),
	})
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)

	created.Price = decimal.RequireFromString("279.00")
	_, err = svc.UpdateProduct(ctx, created)
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.Price.Equal(decimal.RequireFromString("279.00")))
}

func TestDeleteProductRemovesCachedCopy(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(t, store)

	created, err := svc.CreateProduct(ctx, catalog.Product{
		Title: "Webcam",
		Price: decimal.RequireFromString("59.00"),
	})
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	_, err = svc.GetProduct(ctx, created.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeStore())

	_, err := svc.CreateCategory(ctx, catalog.Category{Name: " "})
	require.ErrorIs(t, err, catalog.ErrInvalidInput)

	c, err := svc.CreateCategory(ctx, catalog.Category{Name: "Peripherals"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.ID)

	c.Description = "Desk accessories"
	updated, err := svc.UpdateCategory(ctx, c)
	require.NoError(t, err)
	require.Equal(t, "Desk accessories", updated.Description)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	_, err = svc.GetCategory(ctx, c.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLookupResolvesPricingView(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(t, store)

	cat, err := svc.CreateCategory(ctx, catalog.Category{Name: "Audio"})
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, catalog.Product{
		Title:      "Headphones",
		Price:      decimal.RequireFromString("89.90"),
		CategoryID: cat.ID,
	})
	require.NoError(t, err)

	lookup := &catalog.Lookup{Svc: svc}

	resolved, err := lookup.Resolve(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, resolved.UnitPrice.Equal(decimal.RequireFromString("89.90")))
	require.True(t, resolved.IsActive)
	require.Equal(t, "Audio", resolved.CategoryName)
}

func TestLookupMissingProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeStore())
	lookup := &catalog.Lookup{Svc: svc}

	missing := uuid.New()
	_, err := lookup.Resolve(ctx, missing)
	var notFound *sale.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, missing, notFound.ProductID)
}
