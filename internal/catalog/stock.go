package catalog

import (
	"context"

	"gorm.io/gorm"

	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// StockKeeper performs atomic stock mutations on product variants. Both
// operations run as single conditional UPDATE statements so concurrent
// checkouts can never oversell a variant.
type StockKeeper interface {
	ReserveStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sku string, qty int) error
	AdjustStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sku string, delta int) error
}

type stockKeeperImpl struct{}

// NewStockKeeper exposes the default stock mutation implementation.
func NewStockKeeper() StockKeeper {
	return stockKeeperImpl{}
}

// ReserveStock decrements stock and bumps the sold counter in one statement.
// The WHERE guard makes the decrement conditional; zero rows affected means
// the variant no longer has qty units available.
func (stockKeeperImpl) ReserveStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sku string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reserve")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock_level = stock_level - ?,
			total_sold = total_sold + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND sku = ? AND stock_level >= ?
	`, qty, qty, productID, sku, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for variant")
	}
	return nil
}

// AdjustStock returns delta units to stock and reverses the sold counter,
// used when cancelling or refunding an order before fulfilment.
func (stockKeeperImpl) AdjustStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sku string, delta int) error {
	if delta <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock adjust")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock_level = stock_level + ?,
			total_sold = total_sold - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND sku = ?
	`, delta, delta, productID, sku)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock")
	}
	return nil
}
