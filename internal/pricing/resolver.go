// Package pricing resolves the authoritative unit price for a product and
// optional variant. Both the cart and wishlist reconciliation engines and
// the checkout workflow go through this single precedence chain.
package pricing

import "github.com/kiranlabs/storefront-backend/pkg/db/models"

// ResolvePrice returns the unit price in whole rupees. Precedence, first
// present value wins:
//
//	variant price override > variant price > product sale price >
//	product base price > product price > 0
//
// A nil pointer means the field is absent; absent is never treated as
// zero. Zero is only the final fallback. No side effects.
func ResolvePrice(product *models.Product, variant *models.ProductVariant) int64 {
	if variant != nil {
		if variant.PriceOverride != nil {
			return *variant.PriceOverride
		}
		if variant.Price != nil {
			return *variant.Price
		}
	}
	if product != nil {
		if product.SalePrice != nil {
			return *product.SalePrice
		}
		if product.BasePrice != nil {
			return *product.BasePrice
		}
		if product.Price != nil {
			return *product.Price
		}
	}
	return 0
}
