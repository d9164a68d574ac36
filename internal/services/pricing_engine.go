package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gohaste/storefront/internal/domain"
)

var (
	// ErrPricingInvalidInput signals bad request data such as negative prices or quantities.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrPricingCurrencyMismatch is returned when items use multiple currencies.
	ErrPricingCurrencyMismatch = errors.New("pricing: currency mismatch")
)

// DiscountRule contributes an order-level discount during pricing. Rules are
// optional; the engine runs without any.
type DiscountRule interface {
	Name() string
	Apply(ctx context.Context, items []domain.LineItem, subtotal int64) (DiscountResult, error)
}

// DiscountResult is the outcome of applying a single discount rule.
type DiscountResult struct {
	Amount      int64
	Description string
}

// PricingEngine deterministically derives a PricingBreakdown from a set of
// line items. All amounts are minor units of the engine currency. Shipping is
// a step function: free strictly above the threshold, a flat fee otherwise,
// applied uniformly including to the empty cart.
type PricingEngine struct {
	currency              string
	taxRateBasisPoints    int64
	freeShippingThreshold int64
	shippingFlatFee       int64
	rules                 []DiscountRule
	now                   func() time.Time
	logger                func(context.Context, string, map[string]any)
}

// PricingEngineDeps carries the construction parameters for the engine.
type PricingEngineDeps struct {
	Currency              string
	TaxRateBasisPoints    int64
	FreeShippingThreshold int64
	ShippingFlatFee       int64
	Rules                 []DiscountRule
	Now                   func() time.Time
	Logger                func(context.Context, string, map[string]any)
}

// NewPricingEngine validates the parameters and constructs an engine.
func NewPricingEngine(deps PricingEngineDeps) (*PricingEngine, error) {
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if len(currency) != 3 {
		return nil, errors.New("pricing engine: three-letter currency code is required")
	}
	if deps.TaxRateBasisPoints < 0 {
		return nil, errors.New("pricing engine: tax rate cannot be negative")
	}
	if deps.FreeShippingThreshold < 0 {
		return nil, errors.New("pricing engine: free-shipping threshold cannot be negative")
	}
	if deps.ShippingFlatFee < 0 {
		return nil, errors.New("pricing engine: shipping flat fee cannot be negative")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &PricingEngine{
		currency:              currency,
		taxRateBasisPoints:    deps.TaxRateBasisPoints,
		freeShippingThreshold: deps.FreeShippingThreshold,
		shippingFlatFee:       deps.ShippingFlatFee,
		rules:                 deps.Rules,
		now:                   func() time.Time { return now().UTC() },
		logger:                logger,
	}, nil
}

// Currency returns the engine's pricing currency.
func (e *PricingEngine) Currency() string {
	return e.currency
}

// ComputeBreakdown prices the given line items. It is a pure computation:
// no I/O, no mutation of the input, safe to call on every cart change.
func (e *PricingEngine) ComputeBreakdown(ctx context.Context, items []domain.LineItem) (domain.PricingBreakdown, error) {
	if err := e.validateItems(items); err != nil {
		return domain.PricingBreakdown{}, err
	}

	var subtotal int64
	for _, item := range items {
		quantity := int64(item.Quantity)
		if item.UnitPrice > 0 && item.UnitPrice > math.MaxInt64/quantity {
			return domain.PricingBreakdown{}, fmt.Errorf("%w: line %s subtotal overflow", ErrPricingInvalidInput, item.ProductID)
		}
		lineSubtotal := item.UnitPrice * quantity
		if subtotal > math.MaxInt64-lineSubtotal {
			return domain.PricingBreakdown{}, fmt.Errorf("%w: cart subtotal overflow", ErrPricingInvalidInput)
		}
		subtotal += lineSubtotal
	}

	shipping := e.shippingFlatFee
	freeShipping := subtotal > e.freeShippingThreshold
	if freeShipping {
		shipping = 0
	}

	discount, discounts, err := e.applyRules(ctx, items, subtotal)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}

	tax, err := e.taxFor(subtotal)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}

	total := subtotal - discount + shipping + tax
	if total < 0 {
		total = 0
	}

	return domain.PricingBreakdown{
		Currency:     e.currency,
		Subtotal:     subtotal,
		Discount:     discount,
		Shipping:     shipping,
		Tax:          tax,
		Total:        total,
		FreeShipping: freeShipping,
		Discounts:    discounts,
	}, nil
}

// SetQuantity returns a new line-item collection with the product's quantity
// replaced. A quantity of zero or less removes the line (decrement-to-remove).
// The input slice is never mutated; untouched items keep their order. Setting
// a quantity for an unknown product is a warned no-op.
func (e *PricingEngine) SetQuantity(ctx context.Context, items []domain.LineItem, productID string, newQuantity int) []domain.LineItem {
	productID = strings.TrimSpace(productID)

	found := false
	for _, item := range items {
		if item.ProductID == productID {
			found = true
			break
		}
	}
	if !found {
		if newQuantity > 0 {
			e.logger(ctx, "pricing.set_quantity_unknown_product", map[string]any{"productId": productID, "quantity": newQuantity})
		}
		out := make([]domain.LineItem, len(items))
		copy(out, items)
		return out
	}

	out := make([]domain.LineItem, 0, len(items))
	updatedAt := e.now()
	for _, item := range items {
		if item.ProductID != productID {
			out = append(out, item)
			continue
		}
		if newQuantity <= 0 {
			continue
		}
		updated := item
		updated.Quantity = newQuantity
		updated.UpdatedAt = &updatedAt
		out = append(out, updated)
	}
	return out
}

func (e *PricingEngine) validateItems(items []domain.LineItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: line %s quantity must be positive", ErrPricingInvalidInput, item.ProductID)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: line %s unit price cannot be negative", ErrPricingInvalidInput, item.ProductID)
		}
		currency := strings.ToUpper(strings.TrimSpace(item.Currency))
		if currency != "" && currency != e.currency {
			return fmt.Errorf("%w: line %s is priced in %s, engine expects %s", ErrPricingCurrencyMismatch, item.ProductID, currency, e.currency)
		}
	}
	return nil
}

func (e *PricingEngine) applyRules(ctx context.Context, items []domain.LineItem, subtotal int64) (int64, []domain.DiscountBreakdown, error) {
	if len(e.rules) == 0 {
		return 0, nil, nil
	}

	var total int64
	breakdowns := make([]domain.DiscountBreakdown, 0, len(e.rules))
	for _, rule := range e.rules {
		result, err := rule.Apply(ctx, items, subtotal)
		if err != nil {
			return 0, nil, err
		}
		if result.Amount < 0 {
			return 0, nil, fmt.Errorf("%w: rule %s produced a negative discount", ErrPricingInvalidInput, rule.Name())
		}
		if result.Amount == 0 {
			continue
		}
		total += result.Amount
		breakdowns = append(breakdowns, domain.DiscountBreakdown{
			Rule:        rule.Name(),
			Description: result.Description,
			Amount:      result.Amount,
		})
	}

	if total > subtotal {
		e.logger(ctx, "pricing.discount_clamped", map[string]any{"subtotal": subtotal, "discount": total})
		total = subtotal
	}
	if len(breakdowns) == 0 {
		return total, nil, nil
	}
	return total, breakdowns, nil
}

func (e *PricingEngine) taxFor(subtotal int64) (int64, error) {
	if e.taxRateBasisPoints == 0 || subtotal == 0 {
		return 0, nil
	}
	if subtotal > math.MaxInt64/e.taxRateBasisPoints {
		return 0, fmt.Errorf("%w: tax computation overflow", ErrPricingInvalidInput)
	}
	return roundHalfEven(subtotal*e.taxRateBasisPoints, 10_000), nil
}

// roundHalfEven divides numerator by denominator rounding exact halves to the
// nearest even integer (banker's rounding).
func roundHalfEven(numerator, denominator int64) int64 {
	quotient := numerator / denominator
	remainder := numerator % denominator
	double := remainder * 2
	switch {
	case double > denominator:
		return quotient + 1
	case double == denominator:
		if quotient%2 != 0 {
			return quotient + 1
		}
		return quotient
	default:
		return quotient
	}
}
