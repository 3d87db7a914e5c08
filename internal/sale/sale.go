package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status describes the purchase lifecycle of a cart. Deletion is not a status:
// it is an orthogonal tombstone recorded by DeletedAt/DeletedBy, so a cart can
// be both cancelled and deleted but never un-cancelled or un-deleted.
type Status string

const (
	// StatusActive marks a cart that may still be mutated.
	StatusActive Status = "active"
	// StatusCancelled is terminal for purchasing: items and prices are frozen.
	StatusCancelled Status = "cancelled"
)

const (
	// StoreNameMinLen and StoreNameMaxLen bound the free-text store name.
	StoreNameMinLen = 2
	StoreNameMaxLen = 100
)

// LineItem is one priced product line. Lines are value-like: they exist only
// inside their cart and are replaced wholesale, never patched.
type LineItem struct {
	ProductID           uuid.UUID
	Quantity            int
	UnitPrice           decimal.Decimal
	DiscountPercentage  decimal.Decimal
	DiscountAmount      decimal.Decimal
	TotalBeforeDiscount decimal.Decimal
	TotalAfterDiscount  decimal.Decimal
}

// Cart is the aggregate root. TotalSaleAmount is always kept equal to the sum
// of the items' TotalAfterDiscount; every mutation recomputes it.
type Cart struct {
	ID              uuid.UUID
	SaleNumber      int64
	Status          Status
	StoreName       string
	BoughtBy        uuid.UUID
	CreatedBy       uuid.UUID
	SoldAt          time.Time
	CancelledAt     *time.Time
	CancelledBy     *uuid.UUID
	DeletedAt       *time.Time
	DeletedBy       *uuid.UUID
	TotalSaleAmount decimal.Decimal
	Items           []LineItem
	Version         int64
}

// NewCart assembles a freshly priced cart in the Active state.
func NewCart(id uuid.UUID, saleNumber int64, boughtBy, createdBy uuid.UUID, storeName string, soldAt time.Time, items []LineItem) *Cart {
	c := &Cart{
		ID:         id,
		SaleNumber: saleNumber,
		Status:     StatusActive,
		StoreName:  storeName,
		BoughtBy:   boughtBy,
		CreatedBy:  createdBy,
		SoldAt:     soldAt,
		Items:      items,
	}
	c.recomputeTotal()
	return c
}

// Deleted reports whether the cart has been tombstoned.
func (c *Cart) Deleted() bool {
	return c.DeletedAt != nil
}

// stateLabel names the current state for transition errors.
func (c *Cart) stateLabel() string {
	if c.Deleted() {
		return "deleted"
	}
	return string(c.Status)
}

// ReplaceItems swaps the full item set, as if rebuilding the cart from
// scratch. Only an active, non-deleted cart may be mutated.
func (c *Cart) ReplaceItems(items []LineItem) error {
	if c.Deleted() || c.Status != StatusActive {
		return &InvalidStateTransitionError{From: c.stateLabel(), To: string(StatusActive)}
	}
	if len(items) == 0 {
		return ErrNoLines
	}
	c.Items = items
	c.recomputeTotal()
	return nil
}

// Cancel moves the cart to the Cancelled state. Cancelling a cancelled or
// deleted cart is rejected.
func (c *Cart) Cancel(actor uuid.UUID, now time.Time) error {
	if c.Deleted() || c.Status != StatusActive {
		return &InvalidStateTransitionError{From: c.stateLabel(), To: string(StatusCancelled)}
	}
	c.Status = StatusCancelled
	c.CancelledAt = &now
	c.CancelledBy = &actor
	return nil
}

// SoftDelete tombstones the cart. Legal from Active or Cancelled; deleting an
// already deleted cart is rejected. Audit fields remain readable.
func (c *Cart) SoftDelete(actor uuid.UUID, now time.Time) error {
	if c.Deleted() {
		return &InvalidStateTransitionError{From: "deleted", To: "deleted"}
	}
	c.DeletedAt = &now
	c.DeletedBy = &actor
	return nil
}

func (c *Cart) recomputeTotal() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.TotalAfterDiscount)
	}
	c.TotalSaleAmount = total
}
