package catalog

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/pagination"
)

func int64Ptr(v int64) *int64 { return &v }

func newServiceForTest(t *testing.T, conn *gorm.DB, repo *Repository) Service {
	t.Helper()
	svc, err := NewService(repo, db.NewFromConn(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestResolve_ByIDThenSlug(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := &models.Product{
		Slug:      "cargo-pants",
		Title:     "Cargo Pants",
		Category:  "pants",
		BasePrice: int64Ptr(1999),
		IsActive:  true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	byID, err := repo.Resolve(ctx, product.ID.String())
	if err != nil {
		t.Fatalf("resolve by id failed: %v", err)
	}
	if byID.Slug != "cargo-pants" {
		t.Fatalf("resolve by id returned wrong product: %s", byID.Slug)
	}

	bySlug, err := repo.Resolve(ctx, "cargo-pants")
	if err != nil {
		t.Fatalf("resolve by slug failed: %v", err)
	}
	if bySlug.ID != product.ID {
		t.Fatalf("resolve by slug returned wrong product: %s", bySlug.ID)
	}

	if _, err := repo.Resolve(ctx, "no-such-product"); err == nil {
		t.Fatal("expected not found for unknown reference")
	}
}

func TestResolve_PreloadsVariants(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	product := &models.Product{
		Slug:     "hoodie",
		Title:    "Hoodie",
		Category: "hoodies",
		IsActive: true,
		Variants: []models.ProductVariant{
			{SKU: "HD-S-GRY", Size: "S", Color: "grey", StockLevel: 4},
			{SKU: "HD-M-GRY", Size: "M", Color: "grey", StockLevel: 2},
		},
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	got, err := repo.Resolve(context.Background(), "hoodie")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got.Variants) != 2 {
		t.Fatalf("expected 2 variants preloaded, got %d", len(got.Variants))
	}
	if got.Variant("HD-M-GRY") == nil {
		t.Fatal("expected variant lookup by sku to succeed")
	}
}

func TestList_FiltersInactiveAndCategory(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	rows := []*models.Product{
		{Slug: "tee-1", Title: "Tee One", Category: "tshirts", IsActive: true},
		{Slug: "tee-2", Title: "Tee Two", Category: "tshirts", IsActive: false},
		{Slug: "pant-1", Title: "Pant One", Category: "pants", IsActive: true},
	}
	for _, row := range rows {
		if err := conn.Create(row).Error; err != nil {
			t.Fatalf("seed product %s: %v", row.Slug, err)
		}
	}

	all, next, err := repo.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(all))
	}
	if next != "" {
		t.Fatalf("expected no next cursor, got %q", next)
	}

	tees, _, err := repo.List(context.Background(), ListParams{Category: "tshirts"})
	if err != nil {
		t.Fatalf("list by category failed: %v", err)
	}
	if len(tees) != 1 || tees[0].Slug != "tee-1" {
		t.Fatalf("expected only active tee, got %+v", tees)
	}
}

func TestList_CursorPagination(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	for _, slug := range []string{"a-item", "b-item", "c-item"} {
		if err := conn.Create(&models.Product{
			Slug:     slug,
			Title:    slug,
			Category: "misc",
			IsActive: true,
		}).Error; err != nil {
			t.Fatalf("seed %s: %v", slug, err)
		}
	}

	first, cursor, err := repo.List(context.Background(), ListParams{
		Page: pagination.Params{Limit: 2},
	})
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 rows on first page, got %d", len(first))
	}
	if cursor == "" {
		t.Fatal("expected a next cursor")
	}

	second, last, err := repo.List(context.Background(), ListParams{
		Page: pagination.Params{Limit: 2, Cursor: cursor},
	})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 row on second page, got %d", len(second))
	}
	if last != "" {
		t.Fatalf("expected empty cursor on last page, got %q", last)
	}
	if second[0].ID == first[0].ID || second[0].ID == first[1].ID {
		t.Fatal("pages must not overlap")
	}
}

func TestService_GetProduct_HidesInactive(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := newServiceForTest(t, conn, repo)

	product := &models.Product{
		Slug:     "retired-jacket",
		Title:    "Retired Jacket",
		Category: "jackets",
		IsActive: false,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	_, err := svc.GetProduct(context.Background(), "retired-jacket")
	if err == nil {
		t.Fatal("expected not found for inactive product")
	}
}

func TestService_GetProduct_ResolvesVariantPrices(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := newServiceForTest(t, conn, repo)

	product := &models.Product{
		Slug:      "graphic-tee",
		Title:     "Graphic Tee",
		Category:  "tshirts",
		BasePrice: int64Ptr(999),
		SalePrice: int64Ptr(799),
		IsActive:  true,
		Variants: []models.ProductVariant{
			{SKU: "GT-S", Size: "S", Color: "white", StockLevel: 1},
			{SKU: "GT-XL", Size: "XL", Color: "white", PriceOverride: int64Ptr(899), StockLevel: 0},
		},
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	dto, err := svc.GetProduct(context.Background(), "graphic-tee")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if dto.Price != 799 {
		t.Fatalf("expected product price 799, got %d", dto.Price)
	}
	for _, v := range dto.Variants {
		switch v.SKU {
		case "GT-S":
			if v.Price != 799 {
				t.Fatalf("expected GT-S to inherit sale price 799, got %d", v.Price)
			}
			if !v.InStock {
				t.Fatal("expected GT-S in stock")
			}
		case "GT-XL":
			if v.Price != 899 {
				t.Fatalf("expected GT-XL override 899, got %d", v.Price)
			}
			if v.InStock {
				t.Fatal("expected GT-XL out of stock")
			}
		}
	}
}
