package coupons

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
)

// Repository wraps coupon persistence.
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

// FindByCode loads a coupon by its code. Codes are stored uppercase.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		First(&coupon, "code = ?", normalizeCode(code)).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Create persists a new coupon, normalizing its code.
func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = normalizeCode(coupon.Code)
	return r.db.WithContext(ctx).Create(coupon).Error
}

// IncrementUsage bumps used_count, but only while the coupon stays under its
// usage limit. Returns gorm.ErrRecordNotFound when the guarded update matched
// no row, so concurrent checkouts cannot push a capped coupon past its limit.
func (r *Repository) IncrementUsage(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND (usage_limit IS NULL OR used_count < usage_limit)", normalizeCode(code)).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
