package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one cart line. Title, price, size, color, and image are
// denormalized snapshots refreshed opportunistically from the catalog;
// they are never authoritative at checkout. The product slug is stored so
// clients may address the line by slug or SKU as well as by item id.
type CartItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID        uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index:cart_items_cart_id_idx"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductSlug   string    `gorm:"column:product_slug;not null"`
	VariantSKU    string    `gorm:"column:variant_sku;not null"`
	Title         string    `gorm:"column:title;not null"`
	UnitPrice     int64     `gorm:"column:unit_price;not null"`
	Size          string    `gorm:"column:size"`
	Color         string    `gorm:"column:color"`
	ImageURL      string    `gorm:"column:image_url"`
	Quantity      int       `gorm:"column:quantity;not null;default:1"`
	SavedForLater bool      `gorm:"column:saved_for_later;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Subtotal returns the line total for active items.
func (i *CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
