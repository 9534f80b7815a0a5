package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/internal/address"
	"github.com/kiranlabs/storefront-backend/internal/cart"
	"github.com/kiranlabs/storefront-backend/internal/catalog"
	"github.com/kiranlabs/storefront-backend/internal/coupons"
	"github.com/kiranlabs/storefront-backend/internal/orders"
	"github.com/kiranlabs/storefront-backend/internal/payments"
	"github.com/kiranlabs/storefront-backend/internal/pricing"
	"github.com/kiranlabs/storefront-backend/pkg/config"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service turns a customer's cart into a placed order.
type Service interface {
	// PlaceOrder runs the full cash-on-delivery checkout workflow.
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error)
	// CreatePaymentIntent opens a gateway payment for the current cart and
	// stashes the pending checkout until the client confirms.
	CreatePaymentIntent(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PaymentIntentDTO, error)
	// ConfirmPayment verifies the gateway signature and materializes the
	// pending checkout as a paid order.
	ConfirmPayment(ctx context.Context, userID uuid.UUID, input ConfirmPaymentInput) (*orders.OrderDTO, error)
}

// PlaceOrderInput is the validated checkout payload.
type PlaceOrderInput struct {
	AddressID     uuid.UUID
	PaymentMethod enums.PaymentMethod
	UseCart       bool
	Items         []ExplicitItem
	CouponCode    string
}

// ExplicitItem is a direct buy-now line. Accepted in the payload shape
// but not implemented; checkout always consumes the cart.
type ExplicitItem struct {
	ProductRef string
	VariantSKU string
	Quantity   int
}

// ConfirmPaymentInput carries the fields the client returns from the
// hosted gateway checkout.
type ConfirmPaymentInput struct {
	IntentID  string
	PaymentID string
	Signature string
}

// PaymentIntentDTO is handed to the frontend to drive the gateway SDK.
type PaymentIntentDTO struct {
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id,omitempty"`
	Gateway  string `json:"gateway"`
}

type service struct {
	ordersRepo  *orders.Repository
	cartRepo    *cart.Repository
	catalogRepo *catalog.Repository
	addressRepo *address.Repository
	users       userFinder
	stock       catalog.StockKeeper
	coupons     coupons.Service
	gateway     payments.Gateway
	pending     pendingStore
	tx          txRunner
	cfg         config.CheckoutConfig
	pendingTTL  time.Duration
	now         func() time.Time
}

// Deps bundles the checkout collaborators.
type Deps struct {
	Orders   *orders.Repository
	Cart     *cart.Repository
	Catalog  *catalog.Repository
	Address  *address.Repository
	Users    userFinder
	Stock    catalog.StockKeeper
	Coupons  coupons.Service
	Gateway  payments.Gateway
	Pending  pendingStore
	Tx       txRunner
	Checkout config.CheckoutConfig
	Payments config.PaymentsConfig
}

// NewService constructs the checkout service.
func NewService(deps Deps) (Service, error) {
	for name, missing := range map[string]bool{
		"orders repository":  deps.Orders == nil,
		"cart repository":    deps.Cart == nil,
		"catalog repository": deps.Catalog == nil,
		"address repository": deps.Address == nil,
		"user finder":        deps.Users == nil,
		"stock keeper":       deps.Stock == nil,
		"transaction runner": deps.Tx == nil,
	} {
		if missing {
			return nil, fmt.Errorf("checkout: %s required", name)
		}
	}
	return &service{
		ordersRepo:  deps.Orders,
		cartRepo:    deps.Cart,
		catalogRepo: deps.Catalog,
		addressRepo: deps.Address,
		users:       deps.Users,
		stock:       deps.Stock,
		coupons:     deps.Coupons,
		gateway:     deps.Gateway,
		pending:     deps.Pending,
		tx:          deps.Tx,
		cfg:         deps.Checkout,
		pendingTTL:  deps.Payments.PendingOrderTTL,
		now:         time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error) {
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}
	addr, err := s.loadParticipants(ctx, userID, input.AddressID)
	if err != nil {
		return nil, err
	}
	return s.materialize(ctx, userID, addr, input, paymentMeta{
		method: input.PaymentMethod,
		status: enums.PaymentStatusPending,
	})
}

func (s *service) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PaymentIntentDTO, error) {
	if s.gateway == nil || s.pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "online payments are not configured")
	}
	input.PaymentMethod = enums.PaymentMethodOnline
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}
	if _, err := s.loadParticipants(ctx, userID, input.AddressID); err != nil {
		return nil, err
	}

	// Quote against the live catalog so the intent amount matches what the
	// confirmation-time workflow will charge, absent concurrent changes.
	quote, err := s.buildQuote(ctx, nil, userID, input.CouponCode)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.CreateIntentInput{
		Amount:    quote.grandTotal,
		Reference: userID.String(),
		Notes: map[string]string{
			"user_id":    userID.String(),
			"address_id": input.AddressID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.stashPending(ctx, intent.ID, pendingOrder{
		UserID:     userID,
		AddressID:  input.AddressID,
		CouponCode: input.CouponCode,
		Amount:     quote.grandTotal,
		CreatedAt:  s.now().UTC(),
	}); err != nil {
		return nil, err
	}

	return &PaymentIntentDTO{
		IntentID: intent.ID,
		Amount:   intent.Amount,
		Currency: intent.Currency,
		KeyID:    intent.KeyID,
		Gateway:  s.gateway.Name(),
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, userID uuid.UUID, input ConfirmPaymentInput) (*orders.OrderDTO, error) {
	if s.gateway == nil || s.pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "online payments are not configured")
	}
	if input.IntentID == "" || input.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id and payment id are required")
	}

	pending, err := s.loadPending(ctx, input.IntentID)
	if err != nil {
		return nil, err
	}
	if pending.UserID != userID {
		// Someone else's pending checkout reads as absent.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending order for this payment")
	}

	if err := s.gateway.Verify(ctx, payments.VerifyInput{
		IntentID:  input.IntentID,
		PaymentID: input.PaymentID,
		Signature: input.Signature,
	}); err != nil {
		return nil, err
	}

	addr, err := s.loadParticipants(ctx, userID, pending.AddressID)
	if err != nil {
		return nil, err
	}

	paymentRef := input.PaymentID
	dto, err := s.materialize(ctx, userID, addr, PlaceOrderInput{
		AddressID:     pending.AddressID,
		PaymentMethod: enums.PaymentMethodOnline,
		UseCart:       true,
		CouponCode:    pending.CouponCode,
	}, paymentMeta{
		method:        enums.PaymentMethodOnline,
		status:        enums.PaymentStatusPaid,
		ref:           &paymentRef,
		chargedAmount: &pending.Amount,
	})
	if err != nil {
		return nil, err
	}
	s.dropPending(ctx, input.IntentID)
	return dto, nil
}

type paymentMeta struct {
	method enums.PaymentMethod
	status enums.PaymentStatus
	ref    *string
	// chargedAmount, when set, is the total the gateway captured. The
	// confirm-time quote must match it or the order is refused.
	chargedAmount *int64
}

// materialize runs the transactional tail of the workflow: re-quote the
// cart, price, allocate an order number, persist, decrement stock, and
// clear the cart. Any failure rolls the whole order back.
func (s *service) materialize(ctx context.Context, userID uuid.UUID, addr *models.Address, input PlaceOrderInput, pay paymentMeta) (*orders.OrderDTO, error) {
	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		quote, err := s.buildQuote(ctx, tx, userID, input.CouponCode)
		if err != nil {
			return err
		}

		// The cart may have changed between intent and confirmation. An
		// order must never record a total the gateway did not capture.
		if pay.chargedAmount != nil && quote.grandTotal != *pay.chargedAmount {
			return pkgerrors.New(pkgerrors.CodePaymentFailed, "payment amount no longer matches the cart").
				WithDetails(map[string]int64{
					"charged_amount": *pay.chargedAmount,
					"current_total":  quote.grandTotal,
				})
		}

		number, err := allocateOrderNumber(ctx, s.ordersRepo.WithTx(tx), s.now(), s.cfg.OrderNumberAttempts)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		order := &models.Order{
			OrderNumber:     number,
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			PaymentMethod:   pay.method,
			PaymentStatus:   pay.status,
			PaymentRef:      pay.ref,
			Subtotal:        quote.subtotal,
			Shipping:        quote.shipping,
			Tax:             quote.tax,
			Discount:        quote.discount,
			GrandTotal:      quote.grandTotal,
			ShippingAddress: freezeAddress(addr),
			DeliveryWindow:  deliveryWindow(now, s.cfg.DeliveryMinDays, s.cfg.DeliveryMaxDays),
			Timeline:        initialTimeline(now),
			Items:           quote.items,
		}
		if input.CouponCode != "" && quote.discount > 0 {
			code := quote.couponCode
			order.CouponCode = &code
		}

		placed, err = s.ordersRepo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}

		for i := range quote.items {
			item := &quote.items[i]
			if err := s.stock.ReserveStock(ctx, tx, item.ProductID, item.VariantSKU, item.Quantity); err != nil {
				return err
			}
		}

		if input.CouponCode != "" && quote.discount > 0 && s.coupons != nil {
			if err := s.coupons.Consume(ctx, tx, quote.couponCode); err != nil {
				return err
			}
		}

		cartRepo := s.cartRepo.WithTx(tx)
		if err := cartRepo.DeleteAllItems(ctx, quote.cartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		emptied := &models.Cart{ID: quote.cartID}
		if err := cartRepo.SaveTotals(ctx, emptied); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset cart totals")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders.ToOrderDTO(placed), nil
}

// quote is the priced, frozen view of the cart at checkout time.
type quote struct {
	cartID     uuid.UUID
	items      []models.OrderItem
	subtotal   int64
	shipping   int64
	tax        int64
	discount   int64
	grandTotal int64
	couponCode string
}

// buildQuote re-resolves every active cart line against the live catalog
// and locks its price. tx may be nil for a read-only preview quote.
func (s *service) buildQuote(ctx context.Context, tx *gorm.DB, userID uuid.UUID, couponCode string) (*quote, error) {
	cartRepo := s.cartRepo
	catalogRepo := s.catalogRepo
	if tx != nil {
		cartRepo = cartRepo.WithTx(tx)
		catalogRepo = catalogRepo.WithTx(tx)
	}

	record, err := cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	q := &quote{cartID: record.ID}
	for i := range record.Items {
		line := &record.Items[i]
		if line.SavedForLater {
			continue
		}

		product, err := catalogRepo.Resolve(ctx, line.ProductID.String())
		if err != nil || !product.IsActive {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve product")
			}
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is no longer available").
				WithDetails(map[string]string{"product": line.ProductSlug})
		}

		variant := product.Variant(line.VariantSKU)
		if variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeVariantNotFound, "variant is no longer available").
				WithDetails(map[string]string{"sku": line.VariantSKU})
		}
		if variant.StockLevel < line.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
				WithDetails(map[string]any{
					"sku":       line.VariantSKU,
					"available": variant.StockLevel,
					"requested": line.Quantity,
				})
		}

		unitPrice := pricing.ResolvePrice(product, variant)
		q.items = append(q.items, models.OrderItem{
			ProductID:  product.ID,
			VariantSKU: variant.SKU,
			Title:      product.Title,
			ImageURL:   product.PrimaryImage(),
			Size:       variant.Size,
			Color:      variant.Color,
			UnitPrice:  unitPrice,
			Quantity:   line.Quantity,
			Subtotal:   unitPrice * int64(line.Quantity),
		})
		q.subtotal += unitPrice * int64(line.Quantity)
	}

	if len(q.items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	if q.subtotal < s.cfg.FreeShippingThreshold {
		q.shipping = s.cfg.FlatShippingFee
	}
	q.tax = decimal.NewFromInt(q.subtotal).
		Mul(decimal.NewFromFloat(s.cfg.TaxRate)).
		Round(0).
		IntPart()

	if couponCode != "" && s.coupons != nil {
		discount, err := s.coupons.ComputeDiscount(ctx, couponCode, q.subtotal, userID.String())
		if err != nil {
			return nil, err
		}
		q.discount = discount.Amount
		q.couponCode = discount.Code
	}

	q.grandTotal = q.subtotal + q.shipping + q.tax - q.discount
	return q, nil
}

func (s *service) loadParticipants(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	addr, err := s.addressRepo.FindForUser(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	return addr, nil
}

func validateOrderInput(input PlaceOrderInput) error {
	if len(input.Items) > 0 || !input.UseCart {
		return pkgerrors.New(pkgerrors.CodeNotImplemented, "explicit item checkout is not supported; order from the cart")
	}
	if input.AddressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	return nil
}

func freezeAddress(addr *models.Address) types.ShippingAddress {
	frozen := types.ShippingAddress{
		Name:       addr.Name,
		Phone:      addr.Phone,
		Line1:      addr.Line1,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
	if addr.Line2 != nil {
		frozen.Line2 = *addr.Line2
	}
	return frozen
}

func initialTimeline(now time.Time) types.Timeline {
	return types.Timeline{
		{Title: "Order received", Description: "We have received your order.", Status: enums.TimelineStatusComplete, At: now},
		{Title: "Payment processing", Description: "Your payment is being processed.", Status: enums.TimelineStatusCurrent, At: now},
		{Title: "Preparing items", Description: "Your items will be packed shortly.", Status: enums.TimelineStatusUpcoming, At: now},
	}
}

// deliveryWindow renders the estimated range as a human string, counting
// business days and skipping weekends.
func deliveryWindow(now time.Time, minDays, maxDays int) string {
	if minDays < 1 {
		minDays = 3
	}
	if maxDays < minDays {
		maxDays = minDays + 2
	}
	from := addBusinessDays(now, minDays)
	to := addBusinessDays(now, maxDays)
	return fmt.Sprintf("%s - %s", from.Format("Mon, 2 Jan"), to.Format("Mon, 2 Jan"))
}

func addBusinessDays(from time.Time, days int) time.Time {
	t := from
	for days > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days--
	}
	return t
}
