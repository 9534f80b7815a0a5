package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
)

// ItemDTO is the API shape for a wishlist entry.
type ItemDTO struct {
	ID          uuid.UUID              `json:"id"`
	ProductID   uuid.UUID              `json:"product_id"`
	ProductSlug string                 `json:"product_slug"`
	VariantSKU  *string                `json:"variant_sku,omitempty"`
	Title       string                 `json:"title"`
	ImageURL    string                 `json:"image_url,omitempty"`
	Price       *int64                 `json:"price,omitempty"`
	Size        *string                `json:"size,omitempty"`
	Color       *string                `json:"color,omitempty"`
	InStock     bool                   `json:"in_stock"`
	Priority    enums.WishlistPriority `json:"priority"`
	Notes       *string                `json:"notes,omitempty"`
	AddedAt     time.Time              `json:"added_at"`
}

// WishlistDTO is the API shape for the full wishlist.
type WishlistDTO struct {
	ID        uuid.UUID `json:"id"`
	Items     []ItemDTO `json:"items"`
	ItemCount int       `json:"item_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddResult reports whether AddItem inserted a new entry. A duplicate add
// is a no-op, not an error.
type AddResult struct {
	Added    bool         `json:"added"`
	Wishlist *WishlistDTO `json:"wishlist"`
}

func toItemDTO(item *models.WishlistItem) ItemDTO {
	return ItemDTO{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductSlug: item.ProductSlug,
		VariantSKU:  item.VariantSKU,
		Title:       item.Title,
		ImageURL:    item.ImageURL,
		Price:       item.Price,
		Size:        item.Size,
		Color:       item.Color,
		InStock:     item.InStock,
		Priority:    item.Priority,
		Notes:       item.Notes,
		AddedAt:     item.CreatedAt,
	}
}

func toWishlistDTO(list *models.Wishlist) *WishlistDTO {
	dto := &WishlistDTO{
		ID:        list.ID,
		Items:     make([]ItemDTO, 0, len(list.Items)),
		ItemCount: list.ItemCount,
		UpdatedAt: list.UpdatedAt,
	}
	for i := range list.Items {
		dto.Items = append(dto.Items, toItemDTO(&list.Items[i]))
	}
	return dto
}
