package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
)

// ItemDTO is the API shape for a cart line.
type ItemDTO struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	ProductSlug   string    `json:"product_slug"`
	VariantSKU    string    `json:"variant_sku"`
	Title         string    `json:"title"`
	UnitPrice     int64     `json:"unit_price"`
	Quantity      int       `json:"quantity"`
	Size          string    `json:"size,omitempty"`
	Color         string    `json:"color,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	SavedForLater bool      `json:"saved_for_later"`
	Subtotal      int64     `json:"subtotal"`
	AddedAt       time.Time `json:"added_at"`
}

// CartDTO is the API shape for the full cart.
type CartDTO struct {
	ID             uuid.UUID `json:"id"`
	Items          []ItemDTO `json:"items"`
	Subtotal       int64     `json:"subtotal"`
	ItemCount      int       `json:"item_count"`
	SavedItemCount int       `json:"saved_item_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SummaryDTO is the cheap read path: totals without the item payload.
type SummaryDTO struct {
	ItemCount      int   `json:"item_count"`
	Subtotal       int64 `json:"subtotal"`
	SavedItemCount int   `json:"saved_item_count"`
}

// Issue describes one reconciliation problem found by Validate.
type Issue struct {
	ItemID     uuid.UUID           `json:"item_id"`
	Type       enums.CartIssueType `json:"type"`
	ProductRef string              `json:"product_ref"`
	VariantSKU string              `json:"variant_sku,omitempty"`
	Available  int                 `json:"available,omitempty"`
	Requested  int                 `json:"requested,omitempty"`
	OldPrice   int64               `json:"old_price,omitempty"`
	NewPrice   int64               `json:"new_price,omitempty"`
}

// ValidationResult reports the issues found plus the cart after any price
// snapshots were synced.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []Issue  `json:"issues"`
	Cart   *CartDTO `json:"cart"`
}

func toItemDTO(item *models.CartItem) ItemDTO {
	return ItemDTO{
		ID:            item.ID,
		ProductID:     item.ProductID,
		ProductSlug:   item.ProductSlug,
		VariantSKU:    item.VariantSKU,
		Title:         item.Title,
		UnitPrice:     item.UnitPrice,
		Quantity:      item.Quantity,
		Size:          item.Size,
		Color:         item.Color,
		ImageURL:      item.ImageURL,
		SavedForLater: item.SavedForLater,
		Subtotal:      item.Subtotal(),
		AddedAt:       item.CreatedAt,
	}
}

func toCartDTO(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:             cart.ID,
		Items:          make([]ItemDTO, 0, len(cart.Items)),
		Subtotal:       cart.Subtotal,
		ItemCount:      cart.ItemCount,
		SavedItemCount: cart.SavedItemCount,
		UpdatedAt:      cart.UpdatedAt,
	}
	for i := range cart.Items {
		dto.Items = append(dto.Items, toItemDTO(&cart.Items[i]))
	}
	return dto
}
