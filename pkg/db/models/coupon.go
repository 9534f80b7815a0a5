package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/enums"
)

// Coupon is a discount code applied at checkout. Value is a percentage
// for percentage coupons and whole rupees for fixed ones.
type Coupon struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code        string           `gorm:"column:code;not null;uniqueIndex:coupons_code_key"`
	Type        enums.CouponType `gorm:"column:type;not null"`
	Value       int64            `gorm:"column:value;not null"`
	MinSubtotal int64            `gorm:"column:min_subtotal;not null;default:0"`
	MaxDiscount *int64           `gorm:"column:max_discount"`
	UsageLimit  *int             `gorm:"column:usage_limit"`
	UsedCount   int              `gorm:"column:used_count;not null;default:0"`
	ExpiresAt   *time.Time       `gorm:"column:expires_at"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
