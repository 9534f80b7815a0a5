package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem is the frozen copy of a cart line at order creation.
// Subtotal equals UnitPrice times Quantity at creation and is never
// recomputed; catalog price changes must not alter a placed order.
type OrderItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantSKU string    `gorm:"column:variant_sku;not null"`
	Title      string    `gorm:"column:title;not null"`
	ImageURL   string    `gorm:"column:image_url"`
	Size       string    `gorm:"column:size"`
	Color      string    `gorm:"column:color"`
	UnitPrice  int64     `gorm:"column:unit_price;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	Subtotal   int64     `gorm:"column:subtotal;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
