package orders

import (
	"fmt"

	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

// orderTransitions is the total transition table for the order lifecycle.
// A status absent from a row's set is unreachable from that row; terminal
// statuses have empty rows.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:      {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:     {enums.OrderStatusPacked, enums.OrderStatusCancelled},
	enums.OrderStatusPacked:         {enums.OrderStatusShipped},
	enums.OrderStatusShipped:        {enums.OrderStatusOutForDelivery},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:      {},
	enums.OrderStatusCancelled:      {enums.OrderStatusRefunded},
	enums.OrderStatusRefunded:       {},
}

// returnTransitions is the transition table for the embedded return
// request workflow.
var returnTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusRequested: {enums.ReturnStatusApproved, enums.ReturnStatusRejected, enums.ReturnStatusCancelled},
	enums.ReturnStatusApproved:  {enums.ReturnStatusInTransit, enums.ReturnStatusCancelled},
	enums.ReturnStatusInTransit: {enums.ReturnStatusReceived, enums.ReturnStatusCancelled},
	enums.ReturnStatusReceived:  {enums.ReturnStatusCompleted, enums.ReturnStatusCancelled},
	enums.ReturnStatusCompleted: {},
	enums.ReturnStatusRejected:  {},
	enums.ReturnStatusCancelled: {},
}

// CanTransition reports whether the order status change is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionReturn reports whether the return status change is legal.
func CanTransitionReturn(from, to enums.ReturnStatus) bool {
	for _, allowed := range returnTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot transition order from %s to %s", from, to))
}

func invalidReturnTransition(from, to enums.ReturnStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot transition return request from %s to %s", from, to))
}

// timelineEventFor maps each reachable status to the customer-facing
// timeline entry appended on entering it.
func timelineEventFor(status enums.OrderStatus) (title, description string) {
	switch status {
	case enums.OrderStatusConfirmed:
		return "Order confirmed", "Payment received and order confirmed"
	case enums.OrderStatusProcessing:
		return "Preparing items", "Your items are being prepared"
	case enums.OrderStatusPacked:
		return "Order packed", "Your order has been packed"
	case enums.OrderStatusShipped:
		return "Shipped", "Your order is on its way"
	case enums.OrderStatusOutForDelivery:
		return "Out for delivery", "Your order is out for delivery"
	case enums.OrderStatusDelivered:
		return "Delivered", "Your order has been delivered"
	case enums.OrderStatusCancelled:
		return "Order cancelled", "Your order was cancelled"
	case enums.OrderStatusRefunded:
		return "Refund issued", "Your refund has been processed"
	default:
		return "Order update", ""
	}
}

func returnTimelineEventFor(status enums.ReturnStatus) (title, description string) {
	switch status {
	case enums.ReturnStatusRequested:
		return "Return requested", "We received your return request"
	case enums.ReturnStatusApproved:
		return "Return approved", "Ship the items back to us"
	case enums.ReturnStatusRejected:
		return "Return rejected", "Your return request was not approved"
	case enums.ReturnStatusInTransit:
		return "Return in transit", "Your return shipment is on its way"
	case enums.ReturnStatusReceived:
		return "Return received", "We received your returned items"
	case enums.ReturnStatusCompleted:
		return "Return completed", "Your refund has been initiated"
	case enums.ReturnStatusCancelled:
		return "Return cancelled", "The return request was cancelled"
	default:
		return "Return update", ""
	}
}
