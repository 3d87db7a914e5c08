package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sales-api/internal/sale"
)

// uniqueViolation is PostgreSQL SQLSTATE 23505.
const uniqueViolation = "23505"

// saleNumberConstraint is the unique index guarding sale_number.
const saleNumberConstraint = "sales_sale_number_key"

// isSaleNumberCollision reports whether err is a unique violation on the
// sale number. Other unique violations are left to surface as plain errors.
func isSaleNumberCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == saleNumberConstraint
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so cart scanning
// helpers can run inside and outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SalesRepo persists carts in PostgreSQL and implements the sale gateway.
type SalesRepo struct {
	Pool *pgxpool.Pool
}

var _ sale.Gateway = (*SalesRepo)(nil)

// Begin opens a transactional unit of work.
func (r *SalesRepo) Begin(ctx context.Context) (sale.UnitOfWork, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("sales repo not configured")
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &salesUnitOfWork{tx: tx}, nil
}

// GetCart reads one cart with its items, deleted ones included. Callers
// decide how tombstoned carts surface.
func (r *SalesRepo) GetCart(ctx context.Context, id uuid.UUID) (*sale.Cart, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("sales repo not configured")
	}
	return loadCart(ctx, r.Pool, id, false)
}

// ListCarts returns a page of non-deleted carts ordered by sale time,
// newest first, plus the total count.
func (r *SalesRepo) ListCarts(ctx context.Context, page, perPage int) ([]sale.Cart, int64, error) {
	if r == nil || r.Pool == nil {
		return nil, 0, errors.New("sales repo not configured")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT id, sale_number, status, store_name, bought_by, created_by,
		       sold_at, cancelled_at, cancelled_by, deleted_at, deleted_by,
		       total_sale_amount::text, version
		FROM sales
		WHERE deleted_at IS NULL
		ORDER BY sold_at DESC, id
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	carts := make([]sale.Cart, 0, perPage)
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, 0, err
		}
		carts = append(carts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range carts {
		items, err := loadItems(ctx, r.Pool, carts[i].ID)
		if err != nil {
			return nil, 0, err
		}
		carts[i].Items = items
	}
	return carts, total, nil
}

// salesUnitOfWork runs cart reads and writes inside one pgx transaction.
type salesUnitOfWork struct {
	tx       pgx.Tx
	affected int64
	done     bool
}

var _ sale.UnitOfWork = (*salesUnitOfWork)(nil)

// LoadCart reads the cart with a row lock so concurrent writers queue up.
func (u *salesUnitOfWork) LoadCart(ctx context.Context, id uuid.UUID) (*sale.Cart, error) {
	return loadCart(ctx, u.tx, id, true)
}

// SaveCart inserts a fresh cart or updates an existing one with a version
// guard. Items are replaced wholesale on every save.
func (u *salesUnitOfWork) SaveCart(ctx context.Context, c *sale.Cart) error {
	if c.Version == 0 {
		return u.insertCart(ctx, c)
	}
	return u.updateCart(ctx, c)
}

func (u *salesUnitOfWork) insertCart(ctx context.Context, c *sale.Cart) error {
	tag, err := u.tx.Exec(ctx, `
		INSERT INTO sales (id, sale_number, status, store_name, bought_by, created_by,
		                   sold_at, total_sale_amount, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, 1)`,
		c.ID, c.SaleNumber, string(c.Status), c.StoreName, c.BoughtBy, c.CreatedBy,
		c.SoldAt, c.TotalSaleAmount.String())
	if err != nil {
		if isSaleNumberCollision(err) {
			return sale.ErrConcurrencyConflict
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	u.affected += tag.RowsAffected()
	c.Version = 1
	return u.replaceItems(ctx, c)
}

func (u *salesUnitOfWork) updateCart(ctx context.Context, c *sale.Cart) error {
	tag, err := u.tx.Exec(ctx, `
		UPDATE sales
		SET status = $1, store_name = $2,
		    cancelled_at = $3, cancelled_by = $4,
		    deleted_at = $5, deleted_by = $6,
		    total_sale_amount = $7::numeric,
		    version = version + 1
		WHERE id = $8 AND version = $9`,
		string(c.Status), c.StoreName,
		c.CancelledAt, c.CancelledBy,
		c.DeletedAt, c.DeletedBy,
		c.TotalSaleAmount.String(),
		c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sale.ErrConcurrencyConflict
	}
	u.affected += tag.RowsAffected()
	c.Version++
	return u.replaceItems(ctx, c)
}

func (u *salesUnitOfWork) replaceItems(ctx context.Context, c *sale.Cart) error {
	tag, err := u.tx.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, c.ID)
	if err != nil {
		return fmt.Errorf("clear sale items: %w", err)
	}
	u.affected += tag.RowsAffected()
	for i, item := range c.Items {
		tag, err := u.tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, line_no, quantity, unit_price,
			                        discount_percentage, discount_amount,
			                        total_before_discount, total_after_discount)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric)`,
			c.ID, item.ProductID, i, item.Quantity, item.UnitPrice.String(),
			item.DiscountPercentage.String(), item.DiscountAmount.String(),
			item.TotalBeforeDiscount.String(), item.TotalAfterDiscount.String())
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
		u.affected += tag.RowsAffected()
	}
	return nil
}

// SaleNumberIsUnique probes for a sale number collision before insert.
func (u *salesUnitOfWork) SaleNumberIsUnique(ctx context.Context, candidate int64) (bool, error) {
	var exists bool
	err := u.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales WHERE sale_number = $1)`, candidate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe sale number: %w", err)
	}
	return !exists, nil
}

// Commit finalises the unit of work and reports the rows it touched.
func (u *salesUnitOfWork) Commit(ctx context.Context) (int64, error) {
	if err := u.tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	u.done = true
	return u.affected, nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (u *salesUnitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func loadCart(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*sale.Cart, error) {
	query := `
		SELECT id, sale_number, status, store_name, bought_by, created_by,
		       sold_at, cancelled_at, cancelled_by, deleted_at, deleted_by,
		       total_sale_amount::text, version
		FROM sales
		WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanCart(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &sale.CartNotFoundError{CartID: id}
		}
		return nil, fmt.Errorf("load sale: %w", err)
	}
	items, err := loadItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return c, nil
}

func loadItems(ctx context.Context, q querier, saleID uuid.UUID) ([]sale.LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, quantity, unit_price::text,
		       discount_percentage::text, discount_amount::text,
		       total_before_discount::text, total_after_discount::text
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY line_no`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	var items []sale.LineItem
	for rows.Next() {
		var (
			item   sale.LineItem
			unit   string
			pct    string
			disc   string
			before string
			after  string
		)
		if err := rows.Scan(&item.ProductID, &item.Quantity, &unit, &pct, &disc, &before, &after); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, err
		}
		if item.DiscountPercentage, err = decimal.NewFromString(pct); err != nil {
			return nil, err
		}
		if item.DiscountAmount, err = decimal.NewFromString(disc); err != nil {
			return nil, err
		}
		if item.TotalBeforeDiscount, err = decimal.NewFromString(before); err != nil {
			return nil, err
		}
		if item.TotalAfterDiscount, err = decimal.NewFromString(after); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanCart(row pgx.Row) (*sale.Cart, error) {
	var (
		c      sale.Cart
		status string
		total  string
	)
	err := row.Scan(&c.ID, &c.SaleNumber, &status, &c.StoreName, &c.BoughtBy, &c.CreatedBy,
		&c.SoldAt, &c.CancelledAt, &c.CancelledBy, &c.DeletedAt, &c.DeletedBy,
		&total, &c.Version)
	if err != nil {
		return nil, err
	}
	c.Status = sale.Status(status)
	if c.TotalSaleAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	return &c, nil
}
