package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/internal/pricing"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
)

// VariantDTO is the API shape for a purchasable variant. Price carries the
// fully resolved effective price, not the raw column value.
type VariantDTO struct {
	ID         uuid.UUID `json:"id"`
	SKU        string    `json:"sku"`
	Size       string    `json:"size"`
	Color      string    `json:"color"`
	Price      int64     `json:"price"`
	StockLevel int       `json:"stock_level"`
	InStock    bool      `json:"in_stock"`
}

// ProductDTO is the API shape for a catalog listing.
type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Category    string       `json:"category"`
	Price       int64        `json:"price"`
	Images      []string     `json:"images"`
	IsActive    bool         `json:"is_active"`
	Variants    []VariantDTO `json:"variants"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ProductListResult bundles a page of listings with its next cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          product.ID,
		Slug:        product.Slug,
		Title:       product.Title,
		Description: product.Description,
		Category:    product.Category,
		Price:       pricing.ResolvePrice(product, nil),
		Images:      product.Images,
		IsActive:    product.IsActive,
		Variants:    make([]VariantDTO, 0, len(product.Variants)),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	for i := range product.Variants {
		variant := &product.Variants[i]
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:         variant.ID,
			SKU:        variant.SKU,
			Size:       variant.Size,
			Color:      variant.Color,
			Price:      pricing.ResolvePrice(product, variant),
			StockLevel: variant.StockLevel,
			InStock:    variant.StockLevel > 0,
		})
	}
	return dto
}
