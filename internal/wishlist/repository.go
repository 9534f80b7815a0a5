package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
)

// Repository owns wishlist and wishlist item persistence.
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

// FindByUser loads the user's wishlist with items in insertion order.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Wishlist, error) {
	var list models.Wishlist
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&list, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// FindOrCreateByUser returns the user's wishlist, creating one lazily.
func (r *Repository) FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Wishlist, error) {
	list, err := r.FindByUser(ctx, userID)
	if err == nil {
		return list, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	list = &models.Wishlist{UserID: userID}
	if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CreateItem inserts a wishlist entry.
func (r *Repository) CreateItem(ctx context.Context, item *models.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem persists an existing wishlist entry.
func (r *Repository) UpdateItem(ctx context.Context, item *models.WishlistItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes a wishlist entry.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.WishlistItem{}, "id = ?", itemID).Error
}

// SaveItemCount writes the derived item count column.
func (r *Repository) SaveItemCount(ctx context.Context, listID uuid.UUID, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Where("id = ?", listID).
		Update("item_count", count).Error
}
