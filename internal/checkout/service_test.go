package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/internal/address"
	"github.com/kiranlabs/storefront-backend/internal/cart"
	"github.com/kiranlabs/storefront-backend/internal/catalog"
	"github.com/kiranlabs/storefront-backend/internal/coupons"
	"github.com/kiranlabs/storefront-backend/internal/orders"
	"github.com/kiranlabs/storefront-backend/internal/payments"
	"github.com/kiranlabs/storefront-backend/pkg/config"
	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

type gormUserFinder struct {
	conn *gorm.DB
}

func (f gormUserFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := f.conn.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// memPendingStore stands in for the redis-backed TTL store.
type memPendingStore struct {
	entries map[string]string
}

func newMemPendingStore() *memPendingStore {
	return &memPendingStore{entries: map[string]string{}}
}

func (m *memPendingStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.entries[key] = value.(string)
	return nil
}

func (m *memPendingStore) Get(ctx context.Context, key string) (string, error) {
	raw, ok := m.entries[key]
	if !ok {
		return "", goredis.Nil
	}
	return raw, nil
}

func (m *memPendingStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memPendingStore) PendingOrderKey(intentID string) string {
	return "sf:pending_order:" + intentID
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	pending *memPendingStore
	userID  uuid.UUID
	addrID  uuid.UUID
	product *models.Product
	variant *models.ProductVariant
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		TaxRate:               0.06,
		FlatShippingFee:       150,
		FreeShippingThreshold: 5000,
		DeliveryMinDays:       3,
		DeliveryMaxDays:       5,
		OrderNumberAttempts:   5,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{}, &models.Address{},
		&models.Product{}, &models.ProductVariant{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
		&models.Coupon{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	user := &models.User{
		Email:        "asha@example.com",
		PasswordHash: "x",
		FirstName:    "Asha",
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	addr := &models.Address{
		UserID:     user.ID,
		Name:       "Asha Rao",
		Phone:      "+919800000000",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
		IsDefault:  true,
	}
	if err := conn.Create(addr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}

	product := &models.Product{
		Slug:     "classic-tee",
		Title:    "Classic Tee",
		Category: "tshirts",
		IsActive: true,
	}
	price := int64(500)
	product.Price = &price
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := &models.ProductVariant{
		ProductID:  product.ID,
		SKU:        "TEE-M-BLK",
		Size:       "M",
		Color:      "black",
		StockLevel: 10,
		TotalSold:  0,
	}
	if err := conn.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}

	pending := newMemPendingStore()
	svc, err := NewService(Deps{
		Orders:   orders.NewRepository(conn),
		Cart:     cart.NewRepository(conn),
		Catalog:  catalog.NewRepository(conn),
		Address:  address.NewRepository(conn),
		Users:    gormUserFinder{conn: conn},
		Stock:    catalog.NewStockKeeper(),
		Coupons:  coupons.NewService(coupons.NewRepository(conn)),
		Gateway:  payments.NewCODGateway(),
		Pending:  pending,
		Tx:       db.NewFromConn(conn),
		Checkout: testCheckoutConfig(),
		Payments: config.PaymentsConfig{PendingOrderTTL: time.Minute},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	return &fixture{
		conn:    conn,
		svc:     svc,
		pending: pending,
		userID:  user.ID,
		addrID:  addr.ID,
		product: product,
		variant: variant,
	}
}

// fillCart puts qty units of the fixture variant in the user's cart.
func (f *fixture) fillCart(t *testing.T, qty int) {
	t.Helper()
	record, err := cart.NewRepository(f.conn).FindOrCreateByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	item := &models.CartItem{
		CartID:      record.ID,
		ProductID:   f.product.ID,
		ProductSlug: f.product.Slug,
		VariantSKU:  f.variant.SKU,
		Title:       f.product.Title,
		UnitPrice:   500,
		Size:        f.variant.Size,
		Color:       f.variant.Color,
		Quantity:    qty,
	}
	if err := f.conn.Create(item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

func cartInput(addrID uuid.UUID) PlaceOrderInput {
	return PlaceOrderInput{
		AddressID:     addrID,
		PaymentMethod: enums.PaymentMethodCOD,
		UseCart:       true,
	}
}

func (f *fixture) reloadVariant(t *testing.T) *models.ProductVariant {
	t.Helper()
	var v models.ProductVariant
	if err := f.conn.First(&v, "id = ?", f.variant.ID).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	return &v
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func TestPlaceOrder_HappyPathPricing(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	dto, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if dto.Pricing.Subtotal != 1000 {
		t.Fatalf("expected subtotal 1000, got %d", dto.Pricing.Subtotal)
	}
	if dto.Pricing.Shipping != 150 {
		t.Fatalf("expected shipping 150, got %d", dto.Pricing.Shipping)
	}
	if dto.Pricing.Tax != 60 {
		t.Fatalf("expected tax 60, got %d", dto.Pricing.Tax)
	}
	if dto.Pricing.GrandTotal != 1210 {
		t.Fatalf("expected grand total 1210, got %d", dto.Pricing.GrandTotal)
	}
	if !strings.HasPrefix(dto.OrderNumber, "SF-") {
		t.Fatalf("unexpected order number %q", dto.OrderNumber)
	}
	if dto.Status != enums.OrderStatusPending {
		t.Fatalf("expected status pending, got %s", dto.Status)
	}
	if len(dto.Items) != 1 || dto.Items[0].Subtotal != 1000 {
		t.Fatalf("unexpected items %+v", dto.Items)
	}
	if dto.DeliveryWindow == "" {
		t.Fatal("expected a delivery window")
	}
	if len(dto.Timeline) != 3 {
		t.Fatalf("expected 3 timeline events, got %d", len(dto.Timeline))
	}
	if dto.Timeline[0].Status != enums.TimelineStatusComplete ||
		dto.Timeline[1].Status != enums.TimelineStatusCurrent ||
		dto.Timeline[2].Status != enums.TimelineStatusUpcoming {
		t.Fatalf("unexpected timeline statuses %+v", dto.Timeline)
	}

	variant := f.reloadVariant(t)
	if variant.StockLevel != 8 {
		t.Fatalf("expected stock 8 after checkout, got %d", variant.StockLevel)
	}
	if variant.TotalSold != 2 {
		t.Fatalf("expected total sold 2, got %d", variant.TotalSold)
	}

	record, err := cart.NewRepository(f.conn).FindByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(record.Items) != 0 || record.Subtotal != 0 || record.ItemCount != 0 {
		t.Fatalf("expected emptied cart, got %+v", record)
	}
}

func TestPlaceOrder_FreeShippingAboveThreshold(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 10) // 10 x 500 = 5000, at the threshold

	dto, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if dto.Pricing.Shipping != 0 {
		t.Fatalf("expected free shipping at threshold, got %d", dto.Pricing.Shipping)
	}
}

func TestPlaceOrder_InsufficientStockAbortsEverything(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 12) // only 10 in stock

	_, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	if count := f.orderCount(t); count != 0 {
		t.Fatalf("expected no persisted orders, got %d", count)
	}
	if variant := f.reloadVariant(t); variant.StockLevel != 10 {
		t.Fatalf("expected stock untouched, got %d", variant.StockLevel)
	}
	record, err := cart.NewRepository(f.conn).FindByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(record.Items) != 1 {
		t.Fatal("expected cart to survive the failed checkout")
	}
}

func TestPlaceOrder_PriceLockedAtCreation(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	dto, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// Catalog price changes must not alter the placed order.
	newPrice := int64(999)
	if err := f.conn.Model(&models.Product{}).
		Where("id = ?", f.product.ID).
		Update("price", newPrice).Error; err != nil {
		t.Fatalf("reprice product: %v", err)
	}

	var stored models.Order
	if err := f.conn.Preload("Items").First(&stored, "id = ?", dto.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if stored.Items[0].UnitPrice != 500 || stored.Items[0].Subtotal != 1000 {
		t.Fatalf("expected locked prices, got %+v", stored.Items[0])
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected EMPTY_CART with no cart, got %v", err)
	}

	// A cart holding only saved-for-later lines is still empty.
	record, err := cart.NewRepository(f.conn).FindOrCreateByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	saved := &models.CartItem{
		CartID:        record.ID,
		ProductID:     f.product.ID,
		ProductSlug:   f.product.Slug,
		VariantSKU:    f.variant.SKU,
		Title:         f.product.Title,
		UnitPrice:     500,
		Quantity:      1,
		SavedForLater: true,
	}
	if err := f.conn.Create(saved).Error; err != nil {
		t.Fatalf("seed saved item: %v", err)
	}

	_, err = f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected EMPTY_CART with saved-only cart, got %v", err)
	}
}

func TestPlaceOrder_ExplicitItemsNotImplemented(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 1)

	input := cartInput(f.addrID)
	input.Items = []ExplicitItem{{ProductRef: f.product.Slug, VariantSKU: f.variant.SKU, Quantity: 1}}
	_, err := f.svc.PlaceOrder(context.Background(), f.userID, input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotImplemented {
		t.Fatalf("expected NOT_IMPLEMENTED for explicit items, got %v", err)
	}

	input = cartInput(f.addrID)
	input.UseCart = false
	_, err = f.svc.PlaceOrder(context.Background(), f.userID, input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotImplemented {
		t.Fatalf("expected NOT_IMPLEMENTED without use_cart, got %v", err)
	}
}

func TestPlaceOrder_ForeignAddressReadsAsNotFound(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 1)

	other := &models.User{Email: "other@example.com", PasswordHash: "x", FirstName: "Dev", IsActive: true}
	if err := f.conn.Create(other).Error; err != nil {
		t.Fatalf("seed other user: %v", err)
	}
	foreign := &models.Address{
		UserID: other.ID, Name: "Dev", Phone: "1", Line1: "x",
		City: "c", State: "s", PostalCode: "1", Country: "IN",
	}
	if err := f.conn.Create(foreign).Error; err != nil {
		t.Fatalf("seed foreign address: %v", err)
	}

	_, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(foreign.ID))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign address, got %v", err)
	}
}

func TestPlaceOrder_InactiveProductUnavailable(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 1)

	if err := f.conn.Model(&models.Product{}).
		Where("id = ?", f.product.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := f.svc.PlaceOrder(context.Background(), f.userID, cartInput(f.addrID))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeProductUnavailable {
		t.Fatalf("expected PRODUCT_UNAVAILABLE, got %v", err)
	}
	if count := f.orderCount(t); count != 0 {
		t.Fatalf("expected no persisted orders, got %d", count)
	}
}

func TestPlaceOrder_CouponAppliedAndConsumed(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	limit := 5
	coupon := &models.Coupon{
		Code:     "SAVE10",
		Type:     enums.CouponTypePercentage,
		Value:    10,
		IsActive: true,
	}
	coupon.UsageLimit = &limit
	if err := coupons.NewRepository(f.conn).Create(context.Background(), coupon); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	input := cartInput(f.addrID)
	input.CouponCode = "save10"
	dto, err := f.svc.PlaceOrder(context.Background(), f.userID, input)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	// 10% of 1000 = 100 off: 1000 + 150 + 60 - 100.
	if dto.Pricing.Discount != 100 {
		t.Fatalf("expected discount 100, got %d", dto.Pricing.Discount)
	}
	if dto.Pricing.GrandTotal != 1110 {
		t.Fatalf("expected grand total 1110, got %d", dto.Pricing.GrandTotal)
	}

	var stored models.Coupon
	if err := f.conn.First(&stored, "code = ?", "SAVE10").Error; err != nil {
		t.Fatalf("reload coupon: %v", err)
	}
	if stored.UsedCount != 1 {
		t.Fatalf("expected coupon consumed once, got %d", stored.UsedCount)
	}
}

func TestPlaceOrder_InvalidCouponAborts(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	input := cartInput(f.addrID)
	input.CouponCode = "GHOST"
	_, err := f.svc.PlaceOrder(context.Background(), f.userID, input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeCouponInvalid {
		t.Fatalf("expected COUPON_INVALID, got %v", err)
	}
	if count := f.orderCount(t); count != 0 {
		t.Fatalf("expected no persisted orders, got %d", count)
	}
}

func TestPaymentIntentAndConfirm_MaterializesPaidOrder(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	intent, err := f.svc.CreatePaymentIntent(context.Background(), f.userID, cartInput(f.addrID))
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Amount != 1210 {
		t.Fatalf("expected intent amount 1210, got %d", intent.Amount)
	}
	if intent.Gateway != payments.GatewayCOD {
		t.Fatalf("unexpected gateway %q", intent.Gateway)
	}
	if count := f.orderCount(t); count != 0 {
		t.Fatal("intent creation must not persist an order")
	}
	if len(f.pending.entries) != 1 {
		t.Fatalf("expected one pending entry, got %d", len(f.pending.entries))
	}

	dto, err := f.svc.ConfirmPayment(context.Background(), f.userID, ConfirmPaymentInput{
		IntentID:  intent.IntentID,
		PaymentID: "pay_123",
		Signature: "any",
	})
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if dto.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid order, got %s", dto.PaymentStatus)
	}
	if dto.PaymentMethod != enums.PaymentMethodOnline {
		t.Fatalf("expected online payment method, got %s", dto.PaymentMethod)
	}
	if dto.Pricing.GrandTotal != 1210 {
		t.Fatalf("expected grand total 1210, got %d", dto.Pricing.GrandTotal)
	}
	if len(f.pending.entries) != 0 {
		t.Fatal("expected pending entry dropped after confirmation")
	}
	if variant := f.reloadVariant(t); variant.StockLevel != 8 {
		t.Fatalf("expected stock 8 after confirmed checkout, got %d", variant.StockLevel)
	}
}

func TestConfirmPayment_CartChangedSinceIntentAborts(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	intent, err := f.svc.CreatePaymentIntent(context.Background(), f.userID, cartInput(f.addrID))
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Amount != 1210 {
		t.Fatalf("expected intent amount 1210, got %d", intent.Amount)
	}

	// Grow the cart after the gateway captured 1210.
	f.fillCart(t, 8)

	_, err = f.svc.ConfirmPayment(context.Background(), f.userID, ConfirmPaymentInput{
		IntentID:  intent.IntentID,
		PaymentID: "pay_123",
		Signature: "any",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodePaymentFailed {
		t.Fatalf("expected PAYMENT_FAILED for changed cart, got %v", err)
	}
	if count := f.orderCount(t); count != 0 {
		t.Fatal("a mismatched confirmation must not persist an order")
	}
	if variant := f.reloadVariant(t); variant.StockLevel != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", variant.StockLevel)
	}
	if len(f.pending.entries) != 1 {
		t.Fatal("pending entry must survive a failed confirmation")
	}
}

func TestConfirmPayment_WrongUserReadsAsNotFound(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 1)

	intent, err := f.svc.CreatePaymentIntent(context.Background(), f.userID, cartInput(f.addrID))
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	_, err = f.svc.ConfirmPayment(context.Background(), uuid.New(), ConfirmPaymentInput{
		IntentID:  intent.IntentID,
		PaymentID: "pay_123",
		Signature: "any",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign pending order, got %v", err)
	}
}

func TestConfirmPayment_UnknownIntent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmPayment(context.Background(), f.userID, ConfirmPaymentInput{
		IntentID:  "order_missing",
		PaymentID: "pay_123",
		Signature: "any",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for missing intent, got %v", err)
	}
}

func TestDeliveryWindow_SkipsWeekends(t *testing.T) {
	// Friday. Three business days later is Wednesday, five is Friday.
	friday := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	window := deliveryWindow(friday, 3, 5)
	if window != "Wed, 2 Sep - Fri, 4 Sep" {
		t.Fatalf("unexpected window %q", window)
	}
}

func TestAllocateOrderNumber_Format(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	number := newOrderNumber(now)
	if !strings.HasPrefix(number, "SF-20260829-") {
		t.Fatalf("unexpected order number %q", number)
	}
	if len(number) != len("SF-20260829-")+8 {
		t.Fatalf("unexpected order number length %q", number)
	}
}
