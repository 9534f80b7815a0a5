package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Product is the canonical catalog listing. Monetary amounts across the
// schema are whole rupees; price fields are nullable because the pricing
// resolver must distinguish "absent" from zero.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Title       string           `gorm:"column:title;not null"`
	Description *string          `gorm:"column:description"`
	Category    string           `gorm:"column:category;not null;index:products_category_idx"`
	BasePrice   *int64           `gorm:"column:base_price"`
	SalePrice   *int64           `gorm:"column:sale_price"`
	Price       *int64           `gorm:"column:price"`
	Images      pq.StringArray   `gorm:"column:images;type:text[]"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PrimaryImage returns the first catalog image, if any.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Variant returns the variant matching the SKU, or nil.
func (p *Product) Variant(sku string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}
