package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveQuantity is returned when a caller asks to price or limit-check
// a quantity that is zero or negative. That is an input error, not a limit
// violation, and must be rejected before the limit policy applies.
var ErrNonPositiveQuantity = errors.New("pricing: quantity must be positive")

// MaxQuantityPerProduct is the maximum number of units of a single product
// allowed in one cart.
const MaxQuantityPerProduct = 20

// Tier boundaries. Each tier is inclusive of its lower bound; quantities below
// tier2Min earn no discount.
const (
	tier2Min = 4
	tier3Min = 10
)

var (
	zeroRate  = decimal.Zero
	tier2Rate = decimal.NewFromInt(10)
	tier3Rate = decimal.NewFromInt(20)

	hundred = decimal.NewFromInt(100)
)

// LimitResult reports the outcome of a quantity limit check.
type LimitResult struct {
	WithinLimit bool
	MaxAllowed  int
}

// CheckLimit decides whether the requested quantity may be purchased for a
// single product within one cart.
func CheckLimit(quantity int) (LimitResult, error) {
	if quantity <= 0 {
		return LimitResult{}, ErrNonPositiveQuantity
	}
	return LimitResult{
		WithinLimit: quantity <= MaxQuantityPerProduct,
		MaxAllowed:  MaxQuantityPerProduct,
	}, nil
}

// LinePricing is the monetary breakdown of a single priced line.
type LinePricing struct {
	DiscountPercentage  decimal.Decimal
	DiscountAmount      decimal.Decimal
	TotalBeforeDiscount decimal.Decimal
	TotalAfterDiscount  decimal.Decimal
}

// DiscountPercent returns the discount percentage for a quantity. The tiering
// is a monotonic step function: 1-3 units earn 0%, 4-9 earn 10%, 10 and above
// earn 20%. Callers are expected to have already applied CheckLimit, so
// quantities above MaxQuantityPerProduct are not treated specially here.
func DiscountPercent(quantity int) decimal.Decimal {
	switch {
	case quantity < tier2Min:
		return zeroRate
	case quantity < tier3Min:
		return tier2Rate
	default:
		return tier3Rate
	}
}

// PriceLine computes the monetary breakdown for one line item. The discount
// amount is rounded half up to two fractional digits; the before/after totals
// are exact so that summing line totals never accumulates rounding drift.
// PriceLine is pure and never fails for a positive price and a quantity the
// limit policy accepted.
func PriceLine(unitPrice decimal.Decimal, quantity int) LinePricing {
	qty := decimal.NewFromInt(int64(quantity))
	percent := DiscountPercent(quantity)
	before := unitPrice.Mul(qty)
	// decimal.Round rounds half away from zero, which is round half up for
	// the non-negative amounts handled here.
	discount := before.Mul(percent).Div(hundred).Round(2)
	return LinePricing{
		DiscountPercentage:  percent,
		DiscountAmount:      discount,
		TotalBeforeDiscount: before,
		TotalAfterDiscount:  before.Sub(discount),
	}
}
