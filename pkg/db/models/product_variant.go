package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is a purchasable size/color combination with its own SKU
// and stock counter. StockLevel and TotalSold are only ever mutated through
// atomic relative updates, never read-modify-write.
type ProductVariant struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:product_variants_product_id_idx;uniqueIndex:product_variants_product_sku_key"`
	SKU           string    `gorm:"column:sku;not null;uniqueIndex:product_variants_product_sku_key"`
	Size          string    `gorm:"column:size;not null"`
	Color         string    `gorm:"column:color;not null"`
	Price         *int64    `gorm:"column:price"`
	PriceOverride *int64    `gorm:"column:price_override"`
	StockLevel    int       `gorm:"column:stock_level;not null;default:0"`
	TotalSold     int       `gorm:"column:total_sold;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
