package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/enums"
)

// WishlistItem is one saved product, optionally pinned to a variant.
// Snapshot fields follow the same refresh rules as cart lines; InStock is
// kept current by the sync pass.
type WishlistItem struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	WishlistID  uuid.UUID              `gorm:"column:wishlist_id;type:uuid;not null;index:wishlist_items_wishlist_id_idx"`
	ProductID   uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	ProductSlug string                 `gorm:"column:product_slug;not null"`
	VariantSKU  *string                `gorm:"column:variant_sku"`
	Title       string                 `gorm:"column:title;not null"`
	ImageURL    string                 `gorm:"column:image_url"`
	Price       *int64                 `gorm:"column:price"`
	Size        *string                `gorm:"column:size"`
	Color       *string                `gorm:"column:color"`
	InStock     bool                   `gorm:"column:in_stock;not null;default:true"`
	Priority    enums.WishlistPriority `gorm:"column:priority;not null;default:'medium'"`
	Notes       *string                `gorm:"column:notes"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (i *WishlistItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
