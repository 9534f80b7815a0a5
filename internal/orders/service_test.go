package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/internal/catalog"
	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/types"
)

type orderFixture struct {
	conn *gorm.DB
	svc  Service
	user uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.ProductVariant{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), catalog.NewStockKeeper())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &orderFixture{conn: conn, svc: svc, user: uuid.New()}
}

func (f *orderFixture) seedOrder(t *testing.T, status enums.OrderStatus) *models.Order {
	t.Helper()
	product := &models.Product{
		Slug:     "order-tee-" + uuid.NewString()[:8],
		Title:    "Order Tee",
		Category: "tshirts",
		IsActive: true,
		Variants: []models.ProductVariant{
			{SKU: "OT-M", Size: "M", Color: "black", StockLevel: 8, TotalSold: 2},
		},
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	order := &models.Order{
		OrderNumber: "ORD-" + uuid.NewString()[:12],
		UserID:      f.user,
		Status:      status,
		Subtotal:    1000,
		Shipping:    150,
		Tax:         60,
		GrandTotal:  1210,
		Timeline: types.Timeline{}.Append(types.TimelineEvent{
			Title: "Order received",
		}, false),
		Items: []models.OrderItem{
			{
				ProductID:  product.ID,
				VariantSKU: "OT-M",
				Title:      product.Title,
				UnitPrice:  500,
				Quantity:   2,
				Subtotal:   1000,
			},
		},
	}
	if err := f.conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestTransitionTable_IsTotalAndClosed(t *testing.T) {
	all := []enums.OrderStatus{
		enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusProcessing,
		enums.OrderStatusPacked, enums.OrderStatusShipped, enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded,
	}

	for _, status := range all {
		if _, ok := orderTransitions[status]; !ok {
			t.Fatalf("transition table missing row for %s", status)
		}
		for _, target := range orderTransitions[status] {
			if !target.IsValid() {
				t.Fatalf("row %s points at invalid status %q", status, target)
			}
		}
		if status.IsTerminal() && len(orderTransitions[status]) != 0 {
			t.Fatalf("terminal status %s must have an empty row", status)
		}
	}

	// Spot checks on the shape the customer journey depends on.
	if !CanTransition(enums.OrderStatusPending, enums.OrderStatusCancelled) {
		t.Fatal("pending must be cancellable")
	}
	if CanTransition(enums.OrderStatusPacked, enums.OrderStatusCancelled) {
		t.Fatal("packed must not be cancellable")
	}
	if !CanTransition(enums.OrderStatusCancelled, enums.OrderStatusRefunded) {
		t.Fatal("refunded must be reachable from cancelled")
	}
	if CanTransition(enums.OrderStatusPending, enums.OrderStatusRefunded) {
		t.Fatal("refunded must only be reachable from cancelled")
	}
	if CanTransition(enums.OrderStatusPending, enums.OrderStatusProcessing) {
		t.Fatal("pending must not skip confirmed")
	}
}

func TestUpdateStatus_WalksHappyPathWithTimeline(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending)
	ctx := context.Background()

	path := []enums.OrderStatus{
		enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusPacked,
		enums.OrderStatusShipped, enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered,
	}

	var dto *OrderDTO
	var err error
	for _, next := range path {
		dto, err = f.svc.UpdateStatus(ctx, order.ID, next)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
		if dto.Status != next {
			t.Fatalf("expected status %s, got %s", next, dto.Status)
		}

		currents := 0
		for _, event := range dto.Timeline {
			if event.Status == enums.TimelineStatusCurrent {
				currents++
			}
		}
		if next.IsTerminal() {
			if currents != 0 {
				t.Fatalf("terminal timeline must have no current event, got %d", currents)
			}
		} else if currents != 1 {
			t.Fatalf("timeline must have exactly one current event, got %d", currents)
		}
	}

	if dto.DeliveredAt == nil {
		t.Fatal("delivered transition must stamp DeliveredAt")
	}
	if len(dto.Timeline) != 1+len(path) {
		t.Fatalf("expected %d timeline events, got %d", 1+len(path), len(dto.Timeline))
	}
}

func TestUpdateStatus_IllegalTransitionLeavesStateUnchanged(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPacked)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var got models.Order
	if err := f.conn.First(&got, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != enums.OrderStatusPacked {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
}

func TestCancelOrder_RestoresStockAndReversesSold(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusConfirmed)
	ctx := context.Background()

	dto, err := f.svc.CancelOrder(ctx, f.user, order.ID.String())
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if dto.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", dto.Status)
	}
	if dto.CancelledAt == nil {
		t.Fatal("cancel must stamp CancelledAt")
	}

	var variant models.ProductVariant
	if err := f.conn.First(&variant, "sku = ?", "OT-M").Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	if variant.StockLevel != 10 {
		t.Fatalf("expected stock restored to 10, got %d", variant.StockLevel)
	}
	if variant.TotalSold != 0 {
		t.Fatalf("expected total_sold reversed to 0, got %d", variant.TotalSold)
	}
}

func TestCancelOrder_OwnershipEnforced(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending)
	ctx := context.Background()

	_, err := f.svc.CancelOrder(ctx, uuid.New(), order.ID.String())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign order must read as not found, got %v", err)
	}
}

func TestGetOrder_ByNumberAndByID(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending)
	ctx := context.Background()

	byID, err := f.svc.GetOrder(ctx, f.user, order.ID.String())
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	byNumber, err := f.svc.GetOrder(ctx, f.user, order.OrderNumber)
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if byID.ID != byNumber.ID {
		t.Fatal("id and number lookups must return the same order")
	}
	if len(byID.Items) != 1 || byID.Items[0].Subtotal != 1000 {
		t.Fatalf("expected frozen item subtotal 1000, got %+v", byID.Items)
	}
}

func TestRequestReturn_Preconditions(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	notDelivered := f.seedOrder(t, enums.OrderStatusShipped)
	_, err := f.svc.RequestReturn(ctx, f.user, notDelivered.ID.String(), ReturnRequestInput{
		Reason: "wrong size",
		Items:  []ReturnItemInput{{ItemID: notDelivered.Items[0].ID, Quantity: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for non-delivered order, got %v", err)
	}

	delivered := f.seedOrder(t, enums.OrderStatusDelivered)
	itemID := delivered.Items[0].ID

	cases := []struct {
		name  string
		items []ReturnItemInput
	}{
		{"unknownItem", []ReturnItemInput{{ItemID: uuid.New(), Quantity: 1}}},
		{"duplicateItem", []ReturnItemInput{{ItemID: itemID, Quantity: 1}, {ItemID: itemID, Quantity: 1}}},
		{"zeroQuantity", []ReturnItemInput{{ItemID: itemID, Quantity: 0}}},
		{"overQuantity", []ReturnItemInput{{ItemID: itemID, Quantity: 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestReturn(ctx, f.user, delivered.ID.String(), ReturnRequestInput{
				Reason: "wrong size",
				Items:  tc.items,
			})
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReturnLifecycle_FullWorkflow(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	ctx := context.Background()

	dto, err := f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "wrong size",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 2, Reason: "too small"}},
	})
	if err != nil {
		t.Fatalf("request return failed: %v", err)
	}
	if dto.ReturnRequest == nil || dto.ReturnRequest.Status != enums.ReturnStatusRequested {
		t.Fatalf("expected requested return, got %+v", dto.ReturnRequest)
	}

	// A second request is blocked while the first is active.
	_, err = f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "changed my mind",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for active return, got %v", err)
	}

	refund := int64(1000)
	path := []enums.ReturnStatus{
		enums.ReturnStatusApproved, enums.ReturnStatusInTransit,
		enums.ReturnStatusReceived, enums.ReturnStatusCompleted,
	}
	for _, next := range path {
		dto, err = f.svc.UpdateReturnStatus(ctx, order.ID, next, ReturnUpdateInput{
			RefundAmount: &refund,
		})
		if err != nil {
			t.Fatalf("return transition to %s failed: %v", next, err)
		}
		if dto.ReturnRequest.Status != next {
			t.Fatalf("expected return status %s, got %s", next, dto.ReturnRequest.Status)
		}
		if next.IsFinal() {
			if dto.ReturnRequest.ResolvedAt == nil {
				t.Fatal("final return status must stamp resolvedAt")
			}
		} else if dto.ReturnRequest.ResolvedAt != nil {
			t.Fatal("active return status must not carry resolvedAt")
		}
	}

	if len(dto.ReturnRequest.Timeline) != 1+len(path) {
		t.Fatalf("expected %d return timeline events, got %d", 1+len(path), len(dto.ReturnRequest.Timeline))
	}
	for _, event := range dto.ReturnRequest.Timeline {
		if event.Status == enums.TimelineStatusCurrent {
			t.Fatal("completed return timeline must have no current event")
		}
	}

	// Terminal return statuses accept no further transitions.
	_, err = f.svc.UpdateReturnStatus(ctx, order.ID, enums.ReturnStatusCancelled, ReturnUpdateInput{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict after completion, got %v", err)
	}

	// With the previous return final, a fresh request may open.
	if _, err := f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "second return",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("new return after final failed: %v", err)
	}
}

func TestUpdateReturnStatus_RejectedStampsResolvedAt(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	ctx := context.Background()

	if _, err := f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "defective",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("request return failed: %v", err)
	}

	notes := "photos show no defect"
	dto, err := f.svc.UpdateReturnStatus(ctx, order.ID, enums.ReturnStatusRejected, ReturnUpdateInput{
		AdminNotes: &notes,
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if dto.ReturnRequest.ResolvedAt == nil {
		t.Fatal("rejection must stamp resolvedAt")
	}
	if dto.ReturnRequest.AdminNotes == nil || *dto.ReturnRequest.AdminNotes != notes {
		t.Fatalf("expected admin notes persisted, got %v", dto.ReturnRequest.AdminNotes)
	}
}

func TestCancelReturn_CustomerWithdrawsRequest(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusDelivered)
	ctx := context.Background()

	if _, err := f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "wrong size",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("request return failed: %v", err)
	}

	dto, err := f.svc.CancelReturn(ctx, f.user, order.ID.String())
	if err != nil {
		t.Fatalf("cancel return failed: %v", err)
	}
	if dto.ReturnRequest == nil || dto.ReturnRequest.Status != enums.ReturnStatusCancelled {
		t.Fatalf("expected cancelled return, got %+v", dto.ReturnRequest)
	}
	if dto.ReturnRequest.ResolvedAt == nil {
		t.Fatal("cancellation must stamp resolvedAt")
	}

	// Withdrawing frees the slot for a fresh request.
	if _, err := f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "actually defective",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("new return after cancellation failed: %v", err)
	}
}

func TestCancelReturn_Preconditions(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	noReturn := f.seedOrder(t, enums.OrderStatusDelivered)
	_, err := f.svc.CancelReturn(ctx, f.user, noReturn.ID.String())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found without a return request, got %v", err)
	}

	order := f.seedOrder(t, enums.OrderStatusDelivered)
	if _, err := f.svc.RequestReturn(ctx, f.user, order.ID.String(), ReturnRequestInput{
		Reason: "defective",
		Items:  []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("request return failed: %v", err)
	}

	_, err = f.svc.CancelReturn(ctx, uuid.New(), order.ID.String())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign order must read as not found, got %v", err)
	}

	if _, err := f.svc.UpdateReturnStatus(ctx, order.ID, enums.ReturnStatusRejected, ReturnUpdateInput{}); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	_, err = f.svc.CancelReturn(ctx, f.user, order.ID.String())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict after rejection, got %v", err)
	}
}

func TestUpdateStatus_RefundedSetsPaymentStatus(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusConfirmed)
	ctx := context.Background()

	if _, err := f.svc.CancelOrder(ctx, f.user, order.ID.String()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	dto, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusRefunded)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if dto.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected payment status refunded, got %s", dto.PaymentStatus)
	}
}
