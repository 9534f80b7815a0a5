package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

// Service exposes catalog read paths and admin product management.
type Service interface {
	GetProduct(ctx context.Context, ref string) (*ProductDTO, error)
	ListProducts(ctx context.Context, params ListParams) (*ProductListResult, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	SetProductActive(ctx context.Context, productID uuid.UUID, active bool) error
}

// VariantInput captures a variant row on create or update.
type VariantInput struct {
	SKU           string
	Size          string
	Color         string
	Price         *int64
	PriceOverride *int64
	StockLevel    int
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Slug        string
	Title       string
	Description *string
	Category    string
	BasePrice   *int64
	SalePrice   *int64
	Price       *int64
	Images      []string
	IsActive    bool
	Variants    []VariantInput
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Title       *string
	Description *string
	Category    *string
	BasePrice   *int64
	SalePrice   *int64
	Price       *int64
	Images      *[]string
	IsActive    *bool
	Variants    *[]VariantInput
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// GetProduct resolves an id or slug to a public product detail. Inactive
// products read as not found.
func (s *service) GetProduct(ctx context.Context, ref string) (*ProductDTO, error) {
	product, err := s.repo.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return toProductDTO(product), nil
}

// ListProducts returns a page of active listings.
func (s *service) ListProducts(ctx context.Context, params ListParams) (*ProductListResult, error) {
	products, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := &ProductListResult{
		Products:   make([]ProductDTO, 0, len(products)),
		NextCursor: next,
	}
	for i := range products {
		result.Products = append(result.Products, *toProductDTO(&products[i]))
	}
	return result, nil
}

// CreateProduct inserts a product with its variants inside a transaction.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Slug:        strings.ToLower(strings.TrimSpace(input.Slug)),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		BasePrice:   input.BasePrice,
		SalePrice:   input.SalePrice,
		Price:       input.Price,
		Images:      input.Images,
		IsActive:    input.IsActive,
	}
	for _, v := range input.Variants {
		product.Variants = append(product.Variants, models.ProductVariant{
			SKU:           strings.TrimSpace(v.SKU),
			Size:          v.Size,
			Color:         v.Color,
			Price:         v.Price,
			PriceOverride: v.PriceOverride,
			StockLevel:    v.StockLevel,
		})
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, product)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return toProductDTO(product), nil
}

// UpdateProduct applies partial field updates and, when provided, upserts the
// given variants by SKU. Variant stock is intentionally left out of updates;
// stock only moves through the StockKeeper.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		if input.Title != nil {
			product.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			product.Description = input.Description
		}
		if input.Category != nil {
			product.Category = strings.TrimSpace(*input.Category)
		}
		if input.BasePrice != nil {
			product.BasePrice = input.BasePrice
		}
		if input.SalePrice != nil {
			product.SalePrice = input.SalePrice
		}
		if input.Price != nil {
			product.Price = input.Price
		}
		if input.Images != nil {
			product.Images = *input.Images
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}

		if _, err := repo.Update(ctx, product); err != nil {
			return err
		}

		if input.Variants != nil {
			for _, v := range *input.Variants {
				existing := product.Variant(strings.TrimSpace(v.SKU))
				variant := &models.ProductVariant{
					ProductID:     product.ID,
					SKU:           strings.TrimSpace(v.SKU),
					Size:          v.Size,
					Color:         v.Color,
					Price:         v.Price,
					PriceOverride: v.PriceOverride,
					StockLevel:    v.StockLevel,
				}
				if existing != nil {
					variant.ID = existing.ID
					variant.StockLevel = existing.StockLevel
					variant.TotalSold = existing.TotalSold
					variant.CreatedAt = existing.CreatedAt
				}
				if _, err := repo.UpsertVariant(ctx, variant); err != nil {
					return err
				}
			}
		}

		updated, err = repo.FindByID(ctx, productID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return toProductDTO(updated), nil
}

// SetProductActive toggles a listing's visibility.
func (s *service) SetProductActive(ctx context.Context, productID uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, productID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product active")
	}
	return nil
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	seen := make(map[string]struct{}, len(input.Variants))
	for _, v := range input.Variants {
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
		}
		if _, dup := seen[sku]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate variant sku %q", sku))
		}
		seen[sku] = struct{}{}
		if v.StockLevel < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant stock_level cannot be negative")
		}
	}
	return nil
}
