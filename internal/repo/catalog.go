package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sales-api/internal/catalog"
)

// CatalogRepo persists products and categories in PostgreSQL.
type CatalogRepo struct {
	Pool *pgxpool.Pool
}

var _ catalog.Store = (*CatalogRepo)(nil)

// CreateProduct stores a new product row.
func (r *CatalogRepo) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO products (id, title, description, price, category_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		p.ID, p.Title, p.Description, p.Price.String(), nullableUUID(p.CategoryID), p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// GetProduct reads one product row.
func (r *CatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT id, title, description, price::text, category_id, active, created_at, updated_at
		FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// ListProducts returns a page of products ordered by title plus the total count.
func (r *CatalogRepo) ListProducts(ctx context.Context, limit, offset int) ([]catalog.Product, int64, error) {
	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, title, description, price::text, category_id, active, created_at, updated_at
		FROM products ORDER BY title, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// UpdateProduct replaces the mutable columns of a product.
func (r *CatalogRepo) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE products
		SET title = $1, description = $2, price = $3::numeric, category_id = $4,
		    active = $5, updated_at = $6
		WHERE id = $7`,
		p.Title, p.Description, p.Price.String(), nullableUUID(p.CategoryID),
		p.Active, p.UpdatedAt, p.ID)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// DeleteProduct removes a product row.
func (r *CatalogRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CreateCategory stores a new category row.
func (r *CatalogRepo) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// GetCategory reads one category row.
func (r *CatalogRepo) GetCategory(ctx context.Context, id uuid.UUID) (catalog.Category, error) {
	var c catalog.Category
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Category{}, catalog.ErrNotFound
		}
		return catalog.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns every category ordered by name.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory replaces the mutable columns of a category.
func (r *CatalogRepo) UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE categories SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		c.Name, c.Description, c.UpdatedAt, c.ID)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return c, nil
}

// DeleteCategory removes a category row.
func (r *CatalogRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p          catalog.Product
		price      string
		categoryID *uuid.UUID
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &price, &categoryID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("scan product: %w", err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return catalog.Product{}, fmt.Errorf("parse price: %w", err)
	}
	if categoryID != nil {
		p.CategoryID = *categoryID
	}
	return p, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
