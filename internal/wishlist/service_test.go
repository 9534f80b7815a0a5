package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/internal/cart"
	"github.com/kiranlabs/storefront-backend/internal/catalog"
	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

type wishlistFixture struct {
	conn *gorm.DB
	svc  Service
	cart cart.Service
	user uuid.UUID
}

func newWishlistFixture(t *testing.T) *wishlistFixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.ProductVariant{},
		&models.Cart{}, &models.CartItem{},
		&models.Wishlist{}, &models.WishlistItem{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	client := db.NewFromConn(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.NewRepository(conn), client, catalogRepo)
	if err != nil {
		t.Fatalf("build cart service: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client, catalogRepo, cartSvc)
	if err != nil {
		t.Fatalf("build wishlist service: %v", err)
	}
	return &wishlistFixture{conn: conn, svc: svc, cart: cartSvc, user: uuid.New()}
}

func (f *wishlistFixture) seedProduct(t *testing.T, slug string, price int64, skus map[string]int) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:      slug,
		Title:     "Product " + slug,
		Category:  "tshirts",
		BasePrice: &price,
		IsActive:  true,
	}
	for sku, stock := range skus {
		product.Variants = append(product.Variants, models.ProductVariant{
			SKU:        sku,
			Size:       "M",
			Color:      "black",
			StockLevel: stock,
		})
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("seed product %s: %v", slug, err)
	}
	return product
}

func strPtr(s string) *string { return &s }

func TestAddItem_DuplicateIsNoop(t *testing.T) {
	f := newWishlistFixture(t)
	f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	first, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")})
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if !first.Added {
		t.Fatal("expected first add to insert")
	}

	second, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")})
	if err != nil {
		t.Fatalf("duplicate add errored: %v", err)
	}
	if second.Added {
		t.Fatal("expected duplicate add to be a no-op")
	}
	if len(second.Wishlist.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(second.Wishlist.Items))
	}
	if second.Wishlist.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", second.Wishlist.ItemCount)
	}

	// Same product without a sku is a distinct entry.
	third, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt"})
	if err != nil {
		t.Fatalf("sku-less add failed: %v", err)
	}
	if !third.Added {
		t.Fatal("expected sku-less add to insert")
	}
}

func TestUpdateStock_RefreshesVariantSnapshot(t *testing.T) {
	f := newWishlistFixture(t)
	product := f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	if _, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := f.conn.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]any{"title": "Linen Shirt v2", "sale_price": 999}).Error; err != nil {
		t.Fatalf("drift product: %v", err)
	}
	if err := f.conn.Model(&models.ProductVariant{}).
		Where("product_id = ? AND sku = ?", product.ID, "LS-M").
		Update("stock_level", 0).Error; err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	dto, err := f.svc.UpdateStock(ctx, f.user)
	if err != nil {
		t.Fatalf("update stock failed: %v", err)
	}
	item := dto.Items[0]
	if item.Title != "Linen Shirt v2" {
		t.Fatalf("expected refreshed title, got %q", item.Title)
	}
	if item.Price == nil || *item.Price != 999 {
		t.Fatalf("expected refreshed price 999, got %v", item.Price)
	}
	if item.InStock {
		t.Fatal("expected out of stock after drain")
	}
}

func TestUpdateStock_MissingVariantFallsBackToProductPrice(t *testing.T) {
	f := newWishlistFixture(t)
	product := f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	if _, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// The pinned variant disappears from the catalog.
	if err := f.conn.Delete(&models.ProductVariant{}, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("drop variant: %v", err)
	}

	dto, err := f.svc.UpdateStock(ctx, f.user)
	if err != nil {
		t.Fatalf("update stock failed: %v", err)
	}
	item := dto.Items[0]
	if item.InStock {
		t.Fatal("expected out of stock for missing variant")
	}
	if item.Price == nil || *item.Price != 1200 {
		t.Fatalf("expected product-level fallback price 1200, got %v", item.Price)
	}
	if item.Size != nil || item.Color != nil {
		t.Fatalf("expected stale size/color cleared, got size=%v color=%v", item.Size, item.Color)
	}
}

func TestMoveToCart_RequiresVariant(t *testing.T) {
	f := newWishlistFixture(t)
	f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	res, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	_, err = f.svc.MoveToCart(ctx, f.user, res.Wishlist.Items[0].ID.String())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeVariantRequired {
		t.Fatalf("expected variant required, got %v", err)
	}
}

func TestMoveToCart_AddsToCartAndRemoves(t *testing.T) {
	f := newWishlistFixture(t)
	f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	res, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	dto, err := f.svc.MoveToCart(ctx, f.user, res.Wishlist.Items[0].ID.String())
	if err != nil {
		t.Fatalf("move to cart failed: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected wishlist emptied, got %d items", len(dto.Items))
	}

	cartDTO, err := f.cart.GetCart(ctx, f.user)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(cartDTO.Items) != 1 || cartDTO.Items[0].VariantSKU != "LS-M" {
		t.Fatalf("expected one LS-M cart line, got %+v", cartDTO.Items)
	}
	if cartDTO.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", cartDTO.Items[0].Quantity)
	}
}

func TestMoveToCart_RetryAfterPartialFailureDoesNotDuplicate(t *testing.T) {
	f := newWishlistFixture(t)
	f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	res, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	itemID := res.Wishlist.Items[0].ID.String()

	// Simulate a first attempt that wrote the cart line but died before the
	// wishlist removal: the retry's cart add must merge, not append.
	if _, err := f.cart.AddItem(ctx, f.user, cart.AddItemInput{
		ProductRef: "linen-shirt",
		VariantSKU: "LS-M",
		Quantity:   1,
	}); err != nil {
		t.Fatalf("seed cart line: %v", err)
	}

	if _, err := f.svc.MoveToCart(ctx, f.user, itemID); err != nil {
		t.Fatalf("retry move to cart failed: %v", err)
	}

	cartDTO, err := f.cart.GetCart(ctx, f.user)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(cartDTO.Items) != 1 {
		t.Fatalf("expected single merged cart line, got %d", len(cartDTO.Items))
	}
}

func TestUpdateItem_PriorityAndNotes(t *testing.T) {
	f := newWishlistFixture(t)
	f.seedProduct(t, "linen-shirt", 1200, map[string]int{"LS-M": 5})
	ctx := context.Background()

	res, err := f.svc.AddItem(ctx, f.user, AddItemInput{ProductRef: "linen-shirt", VariantSKU: strPtr("LS-M")})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	high := enums.WishlistPriorityHigh
	dto, err := f.svc.UpdateItem(ctx, f.user, res.Wishlist.Items[0].ID.String(), UpdateItemInput{
		Priority: &high,
		Notes:    strPtr("birthday gift"),
	})
	if err != nil {
		t.Fatalf("update item failed: %v", err)
	}
	if dto.Items[0].Priority != enums.WishlistPriorityHigh {
		t.Fatalf("expected high priority, got %s", dto.Items[0].Priority)
	}
	if dto.Items[0].Notes == nil || *dto.Items[0].Notes != "birthday gift" {
		t.Fatalf("expected notes persisted, got %v", dto.Items[0].Notes)
	}
}
