package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/pagination"
	"github.com/kiranlabs/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockAdjuster restores variant stock when an order is cancelled.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sku string, delta int) error
}

// Service drives the order lifecycle after creation: status transitions,
// cancellation, and the embedded return request workflow.
type Service interface {
	GetOrder(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error)
	ListAllOrders(ctx context.Context, status string, page pagination.Params) (*OrderListResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
	CancelOrder(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error)
	RequestReturn(ctx context.Context, userID uuid.UUID, ref string, input ReturnRequestInput) (*OrderDTO, error)
	CancelReturn(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error)
	UpdateReturnStatus(ctx context.Context, orderID uuid.UUID, next enums.ReturnStatus, input ReturnUpdateInput) (*OrderDTO, error)
}

// ReturnItemInput selects one ordered line for return.
type ReturnItemInput struct {
	ItemID   uuid.UUID
	Quantity int
	Reason   string
}

// ReturnRequestInput captures the customer's return request.
type ReturnRequestInput struct {
	Reason        string
	CustomerNotes *string
	Items         []ReturnItemInput
	Evidence      []string
}

// ReturnUpdateInput carries the admin-side fields of a return transition.
type ReturnUpdateInput struct {
	AdminNotes   *string
	Resolution   *string
	RefundAmount *int64
	ProcessedBy  *uuid.UUID
}

type service struct {
	repo  *Repository
	tx    txRunner
	stock StockAdjuster
}

// NewService constructs an orders service instance.
func NewService(repo *Repository, tx txRunner, stock StockAdjuster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	return &service{repo: repo, tx: tx, stock: stock}, nil
}

// GetOrder loads an order by id or order number, enforcing ownership.
func (s *service) GetOrder(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error) {
	order, err := s.resolveOwned(ctx, s.repo, userID, ref)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// ListOrders returns a page of the user's own orders.
func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toOrderListResult(rows, next), nil
}

// ListAllOrders returns a page over every order for the admin surface.
func (s *service) ListAllOrders(ctx context.Context, status string, page pagination.Params) (*OrderListResult, error) {
	if status != "" {
		if _, err := enums.ParseOrderStatus(status); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	}
	rows, next, err := s.repo.ListAll(ctx, status, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list all orders")
	}
	return toOrderListResult(rows, next), nil
}

// UpdateStatus applies one lifecycle transition with its side effects.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", next))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.applyTransition(ctx, tx, repo, order, next); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "update order status")
	}
	return ToOrderDTO(updated), nil
}

// CancelOrder is the customer-facing cancel: the same transition as the
// admin path, but scoped to the owner and always targeting cancelled.
func (s *service) CancelOrder(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.resolveOwned(ctx, repo, userID, ref)
		if err != nil {
			return err
		}
		if err := s.applyTransition(ctx, tx, repo, order, enums.OrderStatusCancelled); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "cancel order")
	}
	return ToOrderDTO(updated), nil
}

func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, repo *Repository, order *models.Order, next enums.OrderStatus) error {
	if !CanTransition(order.Status, next) {
		return invalidTransition(order.Status, next)
	}

	now := time.Now().UTC()
	switch next {
	case enums.OrderStatusCancelled:
		for i := range order.Items {
			item := &order.Items[i]
			if err := s.stock.AdjustStock(ctx, tx, item.ProductID, item.VariantSKU, item.Quantity); err != nil {
				return err
			}
		}
		order.CancelledAt = &now
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusRefunded:
		order.PaymentStatus = enums.PaymentStatusRefunded
	}

	title, description := timelineEventFor(next)
	order.Status = next
	order.Timeline = order.Timeline.Append(types.TimelineEvent{
		Title:       title,
		Description: description,
		At:          now,
	}, next.IsTerminal())

	_, err := repo.Update(ctx, order)
	return err
}

// RequestReturn opens the single return slot on a delivered order.
func (s *service) RequestReturn(ctx context.Context, userID uuid.UUID, ref string, input ReturnRequestInput) (*OrderDTO, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one return item is required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.resolveOwned(ctx, repo, userID, ref)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "returns can only be requested for delivered orders")
		}
		if order.ReturnRequest.Active() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a return request is already in progress").
				WithDetails(map[string]string{"return_status": string(order.ReturnRequest.Status)})
		}

		items, err := validateReturnItems(order, input.Items)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		title, description := returnTimelineEventFor(enums.ReturnStatusRequested)
		request := &types.ReturnRequest{
			Status:        enums.ReturnStatusRequested,
			Reason:        strings.TrimSpace(input.Reason),
			CustomerNotes: input.CustomerNotes,
			Items:         items,
			Evidence:      input.Evidence,
			RequestedAt:   now,
			UpdatedAt:     now,
		}
		request.Timeline = request.Timeline.Append(types.TimelineEvent{
			Title:       title,
			Description: description,
			At:          now,
		}, false)

		order.ReturnRequest = request
		if _, err := repo.Update(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "request return")
	}
	return ToOrderDTO(updated), nil
}

// CancelReturn lets the owner withdraw a return request that has not
// progressed past the transit handoff.
func (s *service) CancelReturn(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.resolveOwned(ctx, repo, userID, ref)
		if err != nil {
			return err
		}
		request := order.ReturnRequest
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order has no return request")
		}
		if !CanTransitionReturn(request.Status, enums.ReturnStatusCancelled) {
			return invalidReturnTransition(request.Status, enums.ReturnStatusCancelled)
		}

		now := time.Now().UTC()
		request.Status = enums.ReturnStatusCancelled
		request.UpdatedAt = now
		request.ResolvedAt = &now

		title, description := returnTimelineEventFor(enums.ReturnStatusCancelled)
		request.Timeline = request.Timeline.Append(types.TimelineEvent{
			Title:       title,
			Description: description,
			At:          now,
		}, true)

		if _, err := repo.Update(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "cancel return")
	}
	return ToOrderDTO(updated), nil
}

// UpdateReturnStatus advances the return workflow one step.
func (s *service) UpdateReturnStatus(ctx context.Context, orderID uuid.UUID, next enums.ReturnStatus, input ReturnUpdateInput) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid return status %q", next))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		request := order.ReturnRequest
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order has no return request")
		}
		if !CanTransitionReturn(request.Status, next) {
			return invalidReturnTransition(request.Status, next)
		}

		now := time.Now().UTC()
		request.Status = next
		request.UpdatedAt = now
		if input.AdminNotes != nil {
			request.AdminNotes = input.AdminNotes
		}
		if input.Resolution != nil {
			request.Resolution = input.Resolution
		}
		if input.RefundAmount != nil {
			request.RefundAmount = input.RefundAmount
		}
		if input.ProcessedBy != nil {
			request.ProcessedBy = input.ProcessedBy
		}
		if next.IsFinal() {
			request.ResolvedAt = &now
		} else {
			// The table never reopens a final status, but a stale
			// resolvedAt must not survive if it ever happens.
			request.ResolvedAt = nil
		}

		title, description := returnTimelineEventFor(next)
		request.Timeline = request.Timeline.Append(types.TimelineEvent{
			Title:       title,
			Description: description,
			At:          now,
		}, next.IsFinal())

		if _, err := repo.Update(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "update return status")
	}
	return ToOrderDTO(updated), nil
}

func (s *service) resolveOwned(ctx context.Context, repo *Repository, userID uuid.UUID, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	var order *models.Order
	var err error
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		order, err = repo.FindByID(ctx, id)
	} else {
		order, err = repo.FindByNumber(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// Ownership mismatch reads as not found, not forbidden.
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func validateReturnItems(order *models.Order, inputs []ReturnItemInput) ([]types.ReturnItem, error) {
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	items := make([]types.ReturnItem, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.ItemID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("item %s selected more than once", in.ItemID))
		}
		seen[in.ItemID] = struct{}{}

		ordered := order.Item(in.ItemID)
		if ordered == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("item %s is not part of this order", in.ItemID))
		}
		if in.Quantity < 1 || in.Quantity > ordered.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("return quantity for item %s must be between 1 and %d", in.ItemID, ordered.Quantity))
		}
		items = append(items, types.ReturnItem{
			ItemID:   in.ItemID,
			Quantity: in.Quantity,
			Reason:   strings.TrimSpace(in.Reason),
		})
	}
	return items, nil
}

func wrapOrderErr(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
