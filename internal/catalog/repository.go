package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/pagination"
)

// Repository wires together all catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product with its variants.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads the product with its variants by URL slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Resolve looks the product up by id first and falls back to slug when the
// reference does not parse as a UUID or no row matches the id. Callers hold
// stale cart and wishlist references that may carry either form.
func (r *Repository) Resolve(ctx context.Context, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		product, err := r.FindByID(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return r.FindBySlug(ctx, ref)
}

// ListParams filters the public catalog listing.
type ListParams struct {
	Category string
	Search   string
	Page     pagination.Params
}

// List returns active products ordered newest first using cursor pagination.
// The second return value is the cursor for the next page, empty on the last.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Product, string, error) {
	window, err := pagination.Open(params.Page)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Variants").
		Where("is_active = ?", true)

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ?", pattern)
	}

	if after := window.After; after != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID,
		)
	}

	var products []models.Product
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(window.FetchLimit()).
		Find(&products).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if keep, more := window.Clip(len(products)); more {
		products = products[:keep]
		last := products[keep-1]
		next = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Token()
	}
	return products, next, nil
}

// Create inserts a product together with any attached variants.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update persists the product row. Variants are managed separately.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Variants").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpsertVariant inserts or updates a variant row.
func (r *Repository) UpsertVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Save(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// FindVariant loads a single variant scoped to its product.
func (r *Repository) FindVariant(ctx context.Context, productID uuid.UUID, sku string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).
		First(&variant, "product_id = ? AND sku = ?", productID, sku).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// SetActive toggles product visibility without touching other columns.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
