package domain

import "github.com/shopspring/decimal"

// PricingPolicy holds the storefront constants that drive derived totals.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricingPolicy returns the storefront defaults: free shipping from
// 999, otherwise a flat 99.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(999),
		ShippingFee:           decimal.NewFromInt(99),
	}
}

// Pricing is the derived pricing block of a cart.
type Pricing struct {
	SubtotalAtOriginalPrice decimal.Decimal `json:"subtotalAtOriginalPrice"`
	SubtotalAtCurrentPrice  decimal.Decimal `json:"subtotalAtCurrentPrice"`
	TotalDiscount           decimal.Decimal `json:"totalDiscount"`
	DiscountPercent         int64           `json:"discountPercent"`
	ShippingCost            decimal.Decimal `json:"shippingCost"`
	GrandTotal              decimal.Decimal `json:"grandTotal"`
	FreeShipping            bool            `json:"freeShipping"`
	AmountToFreeShipping    decimal.Decimal `json:"amountToFreeShipping"`

	// RawDiscount is the unclamped difference. It goes negative when a stored
	// originalPrice is below price.
	RawDiscount decimal.Decimal `json:"-"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives pricing from the items. The shipping fee applies to any
// subtotal below the threshold, including an empty cart.
func (p PricingPolicy) Compute(items []LineItem) Pricing {
	original := decimal.Zero
	current := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		original = original.Add(item.ListPrice().Mul(qty))
		current = current.Add(item.Price.Mul(qty))
	}

	raw := original.Sub(current)
	discount := raw
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	var percent int64
	if original.IsPositive() {
		percent = discount.Div(original).Mul(hundred).Round(0).IntPart()
	}

	qualifies := current.GreaterThanOrEqual(p.FreeShippingThreshold)
	shipping := p.ShippingFee
	if qualifies {
		shipping = decimal.Zero
	}

	remaining := p.FreeShippingThreshold.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Pricing{
		SubtotalAtOriginalPrice: original,
		SubtotalAtCurrentPrice:  current,
		TotalDiscount:           discount,
		DiscountPercent:         percent,
		ShippingCost:            shipping,
		GrandTotal:              current.Add(shipping),
		FreeShipping:            qualifies,
		AmountToFreeShipping:    remaining,
		RawDiscount:             raw,
	}
}
