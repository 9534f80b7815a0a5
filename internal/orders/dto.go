package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	"github.com/kiranlabs/storefront-backend/pkg/types"
)

// ItemDTO is the API shape for a frozen order line.
type ItemDTO struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	VariantSKU string    `json:"variant_sku"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"image_url,omitempty"`
	Size       string    `json:"size,omitempty"`
	Color      string    `json:"color,omitempty"`
	UnitPrice  int64     `json:"unit_price"`
	Quantity   int       `json:"quantity"`
	Subtotal   int64     `json:"subtotal"`
}

// PricingDTO groups the order's money breakdown.
type PricingDTO struct {
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	Tax        int64 `json:"tax"`
	Discount   int64 `json:"discount"`
	GrandTotal int64 `json:"grand_total"`
}

// OrderDTO is the API shape for an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	UserID          uuid.UUID             `json:"user_id"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus   `json:"payment_status"`
	Pricing         PricingDTO            `json:"pricing"`
	CouponCode      *string               `json:"coupon_code,omitempty"`
	Items           []ItemDTO             `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	DeliveryWindow  string                `json:"delivery_window,omitempty"`
	Timeline        types.Timeline        `json:"timeline"`
	ReturnRequest   *types.ReturnRequest  `json:"return_request,omitempty"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// OrderListResult bundles a page of orders with its next cursor.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToOrderDTO maps a persisted order onto the response shape. Checkout
// reuses it so freshly placed orders render identically to fetched ones.
func ToOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		Pricing: PricingDTO{
			Subtotal:   order.Subtotal,
			Shipping:   order.Shipping,
			Tax:        order.Tax,
			Discount:   order.Discount,
			GrandTotal: order.GrandTotal,
		},
		CouponCode:      order.CouponCode,
		Items:           make([]ItemDTO, 0, len(order.Items)),
		ShippingAddress: order.ShippingAddress,
		DeliveryWindow:  order.DeliveryWindow,
		Timeline:        order.Timeline,
		ReturnRequest:   order.ReturnRequest,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for i := range order.Items {
		item := &order.Items[i]
		dto.Items = append(dto.Items, ItemDTO{
			ID:         item.ID,
			ProductID:  item.ProductID,
			VariantSKU: item.VariantSKU,
			Title:      item.Title,
			ImageURL:   item.ImageURL,
			Size:       item.Size,
			Color:      item.Color,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal,
		})
	}
	return dto
}

func toOrderListResult(rows []models.Order, next string) *OrderListResult {
	result := &OrderListResult{
		Orders:     make([]OrderDTO, 0, len(rows)),
		NextCursor: next,
	}
	for i := range rows {
		result.Orders = append(result.Orders, *ToOrderDTO(&rows[i]))
	}
	return result
}
