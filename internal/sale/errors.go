package sale

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoLines is returned when a create or update carries an empty line list.
	ErrNoLines = errors.New("sale: at least one line item is required")
	// ErrConcurrencyConflict indicates a concurrent writer touched the cart
	// first. The whole operation is safe to retry from scratch.
	ErrConcurrencyConflict = errors.New("sale: cart was modified concurrently")
	// ErrSaleNumberExhausted is surfaced when sale number generation keeps
	// colliding past the bounded retry count.
	ErrSaleNumberExhausted = errors.New("sale: could not allocate a unique sale number")
)

// QuantityLimitExceededError rejects a line asking for more units than the
// per-product cart limit allows.
type QuantityLimitExceededError struct {
	ProductID uuid.UUID
	Requested int
	Max       int
}

func (e *QuantityLimitExceededError) Error() string {
	return fmt.Sprintf("sale: quantity %d for product %s exceeds the limit of %d", e.Requested, e.ProductID, e.Max)
}

// InvalidStateTransitionError rejects a lifecycle transition the state machine
// does not allow.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("sale: cannot transition from %s to %s", e.From, e.To)
}

// ProductNotFoundError indicates the catalog could not resolve a product.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("sale: product %s not found", e.ProductID)
}

// CartNotFoundError indicates the requested cart does not exist or has been
// soft deleted.
type CartNotFoundError struct {
	CartID uuid.UUID
}

func (e *CartNotFoundError) Error() string {
	return fmt.Sprintf("sale: cart %s not found", e.CartID)
}
