package repository

import (
	"context"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// ProductRepository is the ledger's narrow contract with the catalog store.
type ProductRepository interface {
	// GetForPurchase loads the purchase-relevant fields of a product.
	GetForPurchase(ctx context.Context, productID int64) (*model.Product, error)

	// AdjustStock shifts the stock counter by delta, failing if the result
	// would go negative. Used by admin stock corrections; order paths adjust
	// stock inside their own transactions.
	AdjustStock(ctx context.Context, productID int64, delta int) error
}
