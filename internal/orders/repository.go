package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/pagination"
)

// Repository owns order persistence.
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

// Create inserts the order with its frozen items.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber loads an order by its public order number.
func (r *Repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "order_number = ?", orderNumber).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Update persists mutable order fields. Items are frozen and never saved
// through this path.
func (r *Repository) Update(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// NumberExists reports whether the order number is already taken.
func (r *Repository) NumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns a page of the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, string, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("user_id = ?", userID), page)
}

// ListAll returns a page of all orders for the admin surface, optionally
// filtered by status.
func (r *Repository) ListAll(ctx context.Context, status string, page pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return r.list(ctx, query, page)
}

func (r *Repository) list(ctx context.Context, query *gorm.DB, page pagination.Params) ([]models.Order, string, error) {
	window, err := pagination.Open(page)
	if err != nil {
		return nil, "", err
	}
	if after := window.After; after != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID,
		)
	}

	var rows []models.Order
	if err := query.
		Model(&models.Order{}).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(window.FetchLimit()).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if keep, more := window.Clip(len(rows)); more {
		rows = rows[:keep]
		last := rows[keep-1]
		next = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Token()
	}
	return rows, next, nil
}
