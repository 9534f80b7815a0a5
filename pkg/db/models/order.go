package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/enums"
	"github.com/kiranlabs/storefront-backend/pkg/types"
)

// Order is created once with immutable identity fields (order number,
// user, frozen items) and mutable operational fields (status, payment,
// delivery, timeline, return request). Item prices are locked at creation
// and never recomputed.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string                 `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	Status          enums.OrderStatus      `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;not null;default:'cod'"`
	PaymentStatus   enums.PaymentStatus    `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentRef      *string                `gorm:"column:payment_ref"`
	Subtotal        int64                  `gorm:"column:subtotal;not null"`
	Shipping        int64                  `gorm:"column:shipping;not null;default:0"`
	Tax             int64                  `gorm:"column:tax;not null;default:0"`
	Discount        int64                  `gorm:"column:discount;not null;default:0"`
	GrandTotal      int64                  `gorm:"column:grand_total;not null"`
	CouponCode      *string                `gorm:"column:coupon_code"`
	ShippingAddress types.ShippingAddress  `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	DeliveryWindow  string                 `gorm:"column:delivery_window"`
	Timeline        types.Timeline         `gorm:"column:timeline;type:jsonb;serializer:json"`
	ReturnRequest   *types.ReturnRequest   `gorm:"column:return_request;type:jsonb;serializer:json"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt     *time.Time             `gorm:"column:delivered_at"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Item returns the ordered line with the given id, or nil.
func (o *Order) Item(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}
