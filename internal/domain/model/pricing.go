package model

import "github.com/shopspring/decimal"

var (
	taxRate           = decimal.NewFromFloat(0.1)
	freeShippingAbove = decimal.NewFromInt(100)
	flatShippingFee   = decimal.NewFromInt(10)
)

// PriceBreakdown is the computed order total: items + 10% tax (rounded to two
// decimals) + shipping (free above the threshold, flat fee otherwise).
type PriceBreakdown struct {
	ItemsPrice    decimal.Decimal
	TaxPrice      decimal.Decimal
	ShippingPrice decimal.Decimal
	TotalPrice    decimal.Decimal
}

// ComputePriceBreakdown derives the breakdown from line snapshots. Unit prices
// must come from the same transaction that reserved the stock.
func ComputePriceBreakdown(lines []OrderLine) PriceBreakdown {
	items := decimal.Zero
	for _, line := range lines {
		items = items.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	items = items.Round(2)

	tax := items.Mul(taxRate).Round(2)

	shipping := flatShippingFee
	if items.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}

	return PriceBreakdown{
		ItemsPrice:    items,
		TaxPrice:      tax,
		ShippingPrice: shipping,
		TotalPrice:    items.Add(tax).Add(shipping).Round(2),
	}
}
