package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/pkg/enums"
)

// ReturnItem selects one ordered line (or part of it) for return.
type ReturnItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
	Reason   string    `json:"reason,omitempty"`
}

// ReturnRequest is the single active return workflow embedded in an order.
// Status changes are validated by the orders state machine; RefundAmount is
// whole rupees like every other amount in the schema.
type ReturnRequest struct {
	Status        enums.ReturnStatus `json:"status"`
	Reason        string             `json:"reason"`
	CustomerNotes *string            `json:"customer_notes,omitempty"`
	AdminNotes    *string            `json:"admin_notes,omitempty"`
	Resolution    *string            `json:"resolution,omitempty"`
	RefundAmount  *int64             `json:"refund_amount,omitempty"`
	Items         []ReturnItem       `json:"items"`
	Evidence      []string           `json:"evidence,omitempty"`
	Timeline      Timeline           `json:"timeline,omitempty"`
	RequestedAt   time.Time          `json:"requested_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	ProcessedBy   *uuid.UUID         `json:"processed_by,omitempty"`
}

// Active reports whether the request still occupies the order's single
// return slot (a new request may only be opened once this is false).
func (r *ReturnRequest) Active() bool {
	if r == nil {
		return false
	}
	return !r.Status.IsFinal()
}
