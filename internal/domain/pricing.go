package domain

// ShippingPolicy prices delivery: free at or above FreeShippingMinimum,
// otherwise a flat Fee. Amounts are in minor units.
type ShippingPolicy struct {
	Fee                 int64
	FreeShippingMinimum int64
}

// PricingBreakdown captures order totals in minor units.
type PricingBreakdown struct {
	Currency      string
	ItemsPrice    int64
	ShippingPrice int64
	TotalPrice    int64
}

// Price computes the totals for itemsPrice under p.
func (p ShippingPolicy) Price(itemsPrice int64, currency string) PricingBreakdown {
	shipping := p.Fee
	if itemsPrice <= 0 || (p.FreeShippingMinimum > 0 && itemsPrice >= p.FreeShippingMinimum) {
		shipping = 0
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return PricingBreakdown{
		Currency:      currency,
		ItemsPrice:    itemsPrice,
		ShippingPrice: shipping,
		TotalPrice:    itemsPrice + shipping,
	}
}
