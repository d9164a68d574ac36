package domain

// PricingBreakdown captures the derived monetary results of pricing a cart.
// It has no identity of its own: it is recomputed from the current line items
// on every change and never stored independently.
type PricingBreakdown struct {
	Currency     string
	Subtotal     int64
	Discount     int64
	Shipping     int64
	Tax          int64
	Total        int64
	FreeShipping bool
	Discounts    []DiscountBreakdown
}

// DiscountBreakdown lists an individual discount adjustment applied to the cart.
type DiscountBreakdown struct {
	Rule        string
	Description string
	Amount      int64
}
