package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the single mutable cart per user. It is created lazily on first
// access and emptied rather than deleted. The totals columns are derived
// and recomputed on every mutation.
type Cart struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:carts_user_id_key"`
	Subtotal       int64      `gorm:"column:subtotal;not null;default:0"`
	ItemCount      int        `gorm:"column:item_count;not null;default:0"`
	SavedItemCount int        `gorm:"column:saved_item_count;not null;default:0"`
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// RecomputeTotals refreshes the derived totals from the loaded items.
// Saved-for-later items never count toward subtotal or item count.
func (c *Cart) RecomputeTotals() {
	var subtotal int64
	itemCount := 0
	saved := 0
	for i := range c.Items {
		if c.Items[i].SavedForLater {
			saved++
			continue
		}
		subtotal += c.Items[i].UnitPrice * int64(c.Items[i].Quantity)
		itemCount += c.Items[i].Quantity
	}
	c.Subtotal = subtotal
	c.ItemCount = itemCount
	c.SavedItemCount = saved
}

// BeforeSave recomputes totals as a final safety net whenever the cart is
// persisted with its items loaded.
func (c *Cart) BeforeSave(tx *gorm.DB) error {
	if len(c.Items) > 0 {
		c.RecomputeTotals()
	}
	return nil
}
