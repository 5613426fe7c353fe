package model

import "github.com/shopspring/decimal"

// Product is the ledger's view of a catalog item: only the fields needed to
// sell it. The catalog subsystem owns everything else.
type Product struct {
	ID       int64
	SellerID int64
	Name     string
	Price    decimal.Decimal
	Stock    int
	ImageURL string
	Approved bool
}

// Purchasable reports whether the product can be sold at the requested quantity.
func (p *Product) Purchasable(quantity int) bool {
	return p.Approved && quantity >= 1 && p.Stock >= quantity
}
