package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sales-api/internal/obs"
	"github.com/noah-isme/sales-api/internal/pricing"
)

// Product is the catalog projection the orchestrator needs to price a line.
type Product struct {
	UnitPrice    decimal.Decimal
	IsActive     bool
	CategoryName string
}

// Catalog resolves product pricing and availability. Implementations return
// *ProductNotFoundError when the product does not exist.
type Catalog interface {
	Resolve(ctx context.Context, productID uuid.UUID) (Product, error)
}

// UnitOfWork scopes one transactional operation against cart storage. Commit
// is called at most once; Rollback is safe to call unconditionally afterwards.
type UnitOfWork interface {
	LoadCart(ctx context.Context, id uuid.UUID) (*Cart, error)
	SaveCart(ctx context.Context, c *Cart) error
	SaleNumberIsUnique(ctx context.Context, candidate int64) (bool, error)
	Commit(ctx context.Context) (int64, error)
	Rollback(ctx context.Context) error
}

// Gateway opens units of work and serves the read-only projections.
type Gateway interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	GetCart(ctx context.Context, id uuid.UUID) (*Cart, error)
	ListCarts(ctx context.Context, page, perPage int) ([]Cart, int64, error)
}

// Emitter publishes fire-and-forget lifecycle notifications after commit.
type Emitter interface {
	Emit(ctx context.Context, action string, cartID uuid.UUID, saleNumber int64) error
}

// LineInput is the raw (product, quantity) pair supplied by callers.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput carries everything needed to open a new cart.
type CreateInput struct {
	BoughtBy  uuid.UUID
	CreatedBy uuid.UUID
	StoreName string
	Lines     []LineInput
}

// Service sequences the pure pricing components against the catalog and the
// persistence gateway. Each operation is one unit of work: either the whole
// cart is validated, priced and persisted, or nothing is written.
type Service struct {
	Catalog Catalog
	Gateway Gateway
	Events  Emitter
	Logger  zerolog.Logger

	// Now, NewID and NextNumber exist so tests can pin time, identity and
	// sale number generation.
	Now        func() time.Time
	NewID      func() uuid.UUID
	NextNumber func() (int64, error)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() uuid.UUID {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New()
}

func (s *Service) nextNumber() (int64, error) {
	if s.NextNumber != nil {
		return s.NextNumber()
	}
	return NextSaleNumber()
}

// Create validates, prices and persists a new cart.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Cart, error) {
	if s == nil || s.Catalog == nil || s.Gateway == nil {
		return nil, errors.New("sale service not configured")
	}
	items, err := s.buildLines(ctx, in.Lines)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	uow, err := s.Gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	number, err := s.allocateSaleNumber(ctx, uow)
	if err != nil {
		return nil, err
	}

	cart := NewCart(s.newID(), number, in.BoughtBy, in.CreatedBy, in.StoreName, s.now(), items)
	if err := uow.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	s.countOperation("create", "ok")
	s.emit(ctx, "created", cart)
	return cart, nil
}

// Update replaces the full item set of an active cart, re-validating and
// re-pricing every line as if the cart were rebuilt from scratch.
func (s *Service) Update(ctx context.Context, cartID uuid.UUID, lines []LineInput) (*Cart, error) {
	if s == nil || s.Catalog == nil || s.Gateway == nil {
		return nil, errors.New("sale service not configured")
	}
	items, err := s.buildLines(ctx, lines)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	cart, err := s.mutate(ctx, cartID, "update", func(c *Cart) error {
		return c.ReplaceItems(items)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, "updated", cart)
	return cart, nil
}

// Cancel transitions an active cart to the Cancelled state.
func (s *Service) Cancel(ctx context.Context, cartID, actor uuid.UUID) (*Cart, error) {
	cart, err := s.mutate(ctx, cartID, "cancel", func(c *Cart) error {
		return c.Cancel(actor, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, "cancelled", cart)
	return cart, nil
}

// Delete tombstones a cart while preserving its audit fields.
func (s *Service) Delete(ctx context.Context, cartID, actor uuid.UUID) (*Cart, error) {
	cart, err := s.mutate(ctx, cartID, "delete", func(c *Cart) error {
		return c.SoftDelete(actor, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, "deleted", cart)
	return cart, nil
}

// Get returns a cart projection. Deleted carts read as not found.
func (s *Service) Get(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	if s == nil || s.Gateway == nil {
		return nil, errors.New("sale service not configured")
	}
	cart, err := s.Gateway.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Deleted() {
		return nil, &CartNotFoundError{CartID: cartID}
	}
	return cart, nil
}

// List returns non-deleted carts with the total count for pagination.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Cart, int64, error) {
	if s == nil || s.Gateway == nil {
		return nil, 0, errors.New("sale service not configured")
	}
	return s.Gateway.ListCarts(ctx, page, perPage)
}

// mutate loads the cart, applies the change and persists it inside one unit
// of work, rolling back on every failure path.
func (s *Service) mutate(ctx context.Context, cartID uuid.UUID, action string, apply func(*Cart) error) (*Cart, error) {
	if s == nil || s.Gateway == nil {
		return nil, errors.New("sale service not configured")
	}
	uow, err := s.Gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	cart, err := uow.LoadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := apply(cart); err != nil {
		s.countRejection(err)
		return nil, err
	}
	if err := uow.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	s.countOperation(action, "ok")
	return cart, nil
}

// buildLines resolves, limit-checks and prices every requested line. Any
// failure rejects the whole operation; there is no partial application.
func (s *Service) buildLines(ctx context.Context, lines []LineInput) ([]LineItem, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		limit, err := pricing.CheckLimit(line.Quantity)
		if err != nil {
			return nil, err
		}
		if !limit.WithinLimit {
			return nil, &QuantityLimitExceededError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Max:       limit.MaxAllowed,
			}
		}
		product, err := s.Catalog.Resolve(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		priced := pricing.PriceLine(product.UnitPrice, line.Quantity)
		items = append(items, LineItem{
			ProductID:           line.ProductID,
			Quantity:            line.Quantity,
			UnitPrice:           product.UnitPrice,
			DiscountPercentage:  priced.DiscountPercentage,
			DiscountAmount:      priced.DiscountAmount,
			TotalBeforeDiscount: priced.TotalBeforeDiscount,
			TotalAfterDiscount:  priced.TotalAfterDiscount,
		})
	}
	return items, nil
}

// allocateSaleNumber runs the bounded generate-then-verify loop.
func (s *Service) allocateSaleNumber(ctx context.Context, uow UnitOfWork) (int64, error) {
	for attempt := 0; attempt < maxSaleNumberAttempts; attempt++ {
		candidate, err := s.nextNumber()
		if err != nil {
			return 0, err
		}
		unique, err := uow.SaleNumberIsUnique(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if unique {
			return candidate, nil
		}
		if obs.SaleNumberRetriesTotal != nil {
			obs.SaleNumberRetriesTotal.Inc()
		}
	}
	return 0, ErrSaleNumberExhausted
}

// emit dispatches a fire-and-forget notification; failures are logged and
// never affect the committed operation.
func (s *Service) emit(ctx context.Context, action string, cart *Cart) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, action, cart.ID, cart.SaleNumber); err != nil {
		s.Logger.Warn().Err(err).
			Str("action", action).
			Str("cart_id", cart.ID.String()).
			Msg("emit sale notification")
	}
}

func (s *Service) countOperation(action, result string) {
	if obs.SaleOperationsTotal != nil {
		obs.SaleOperationsTotal.WithLabelValues(action, result).Inc()
	}
}

func (s *Service) countRejection(err error) {
	if obs.SaleRejectionsTotal == nil {
		return
	}
	var (
		limitErr      *QuantityLimitExceededError
		transitionErr *InvalidStateTransitionError
	)
	switch {
	case errors.As(err, &limitErr):
		obs.SaleRejectionsTotal.WithLabelValues("quantity_limit").Inc()
	case errors.As(err, &transitionErr):
		obs.SaleRejectionsTotal.WithLabelValues("invalid_transition").Inc()
	case errors.Is(err, ErrNoLines):
		obs.SaleRejectionsTotal.WithLabelValues("empty_cart").Inc()
	}
}
