package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/internal/pricing"
	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productResolver interface {
	Resolve(ctx context.Context, ref string) (*models.Product, error)
}

// Service exposes the per-user cart reconciliation operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, itemRef string, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, itemRef string) (*CartDTO, error)
	SaveForLater(ctx context.Context, userID uuid.UUID, itemRef string) (*CartDTO, error)
	MoveToCart(ctx context.Context, userID uuid.UUID, itemRef string) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Validate(ctx context.Context, userID uuid.UUID) (*ValidationResult, error)
}

// AddItemInput captures the validated payload to add a cart line.
type AddItemInput struct {
	ProductRef string
	VariantSKU string
	Quantity   int
}

type service struct {
	repo    *Repository
	tx      txRunner
	catalog productResolver
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, tx txRunner, catalog productResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog}, nil
}

// GetCart returns the full cart, creating it lazily on first access.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return toCartDTO(cart), nil
}

// GetSummary returns totals from the cart row without loading the items.
func (s *service) GetSummary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &SummaryDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart summary")
	}
	return &SummaryDTO{
		ItemCount:      cart.ItemCount,
		Subtotal:       cart.Subtotal,
		SavedItemCount: cart.SavedItemCount,
	}, nil
}

// AddItem resolves the product, checks stock, and merges or appends the line.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	sku := strings.TrimSpace(input.VariantSKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeVariantRequired, "variant_sku is required")
	}

	product, variant, err := s.resolveVariant(ctx, input.ProductRef, sku)
	if err != nil {
		return nil, err
	}
	if variant.StockLevel < input.Quantity {
		return nil, insufficientStock(variant.StockLevel, input.Quantity)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}

		if existing := findActiveLine(cart, product.ID, sku); existing != nil {
			existing.Quantity += input.Quantity
			if variant.StockLevel < existing.Quantity {
				return insufficientStock(variant.StockLevel, existing.Quantity)
			}
			applySnapshot(existing, product, variant)
			if err := repo.UpdateItem(ctx, existing); err != nil {
				return err
			}
		} else {
			item := &models.CartItem{
				CartID:   cart.ID,
				Quantity: input.Quantity,
			}
			applySnapshot(item, product, variant)
			if err := repo.CreateItem(ctx, item); err != nil {
				return err
			}
			cart.Items = append(cart.Items, *item)
		}

		return persistTotals(ctx, repo, cart)
	})
	if err != nil {
		return nil, wrapCartErr(err, "add cart item")
	}
	return s.GetCart(ctx, userID)
}

// UpdateQuantity changes a line's quantity after refreshing its snapshot
// from the live catalog.
func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, itemRef string, quantity int) (*CartDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		item := findLine(cart, itemRef)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		product, variant, err := s.resolveVariant(ctx, item.ProductID.String(), item.VariantSKU)
		if err != nil {
			return err
		}
		if variant.StockLevel < quantity {
			return insufficientStock(variant.StockLevel, quantity)
		}

		applySnapshot(item, product, variant)
		item.Quantity = quantity
		if err := repo.UpdateItem(ctx, item); err != nil {
			return err
		}
		return persistTotals(ctx, repo, cart)
	})
	if err != nil {
		return nil, wrapCartErr(err, "update cart quantity")
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes the line addressed by id, sku, or slug.
func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, itemRef string) (*CartDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		item := findLine(cart, itemRef)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		cart.Items = removeLine(cart.Items, item.ID)
		return persistTotals(ctx, repo, cart)
	})
	if err != nil {
		return nil, wrapCartErr(err, "remove cart item")
	}
	return s.GetCart(ctx, userID)
}

// SaveForLater parks the line outside the totals and checkout path.
func (s *service) SaveForLater(ctx context.Context, userID uuid.UUID, itemRef string) (*CartDTO, error) {
	return s.setSaved(ctx, userID, itemRef, true)
}

// MoveToCart reactivates a saved line. If an active line for the same
// (product, sku) already exists the quantities merge so the active-line
// uniqueness invariant holds.
func (s *service) MoveToCart(ctx context.Context, userID uuid.UUID, itemRef string) (*CartDTO, error) {
	return s.setSaved(ctx, userID, itemRef, false)
}

func (s *service) setSaved(ctx context.Context, userID uuid.UUID, itemRef string, saved bool) (*CartDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		item := findLine(cart, itemRef)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if item.SavedForLater == saved {
			return nil
		}

		if !saved {
			if active := findActiveLine(cart, item.ProductID, item.VariantSKU); active != nil && active.ID != item.ID {
				active.Quantity += item.Quantity
				if err := repo.UpdateItem(ctx, active); err != nil {
					return err
				}
				if err := repo.DeleteItem(ctx, item.ID); err != nil {
					return err
				}
				cart.Items = removeLine(cart.Items, item.ID)
				return persistTotals(ctx, repo, cart)
			}
		}

		item.SavedForLater = saved
		if err := repo.UpdateItem(ctx, item); err != nil {
			return err
		}
		return persistTotals(ctx, repo, cart)
	})
	if err != nil {
		return nil, wrapCartErr(err, "toggle saved for later")
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart and zeroes the totals. The cart row survives.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := repo.DeleteAllItems(ctx, cart.ID); err != nil {
			return err
		}
		cart.Items = nil
		cart.Subtotal = 0
		cart.ItemCount = 0
		cart.SavedItemCount = 0
		return repo.SaveTotals(ctx, cart)
	})
	if err != nil {
		return wrapCartErr(err, "clear cart")
	}
	return nil
}

// Validate reconciles every active line against the live catalog. Price
// drift is synced in place, so an immediate second call reports no
// price_changed issues for unchanged catalog state.
func (s *service) Validate(ctx context.Context, userID uuid.UUID) (*ValidationResult, error) {
	issues := []Issue{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}

		issues = issues[:0]
		dirty := false
		for i := range cart.Items {
			item := &cart.Items[i]
			if item.SavedForLater {
				continue
			}

			product, err := s.catalog.Resolve(ctx, item.ProductID.String())
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					issues = append(issues, Issue{
						ItemID:     item.ID,
						Type:       enums.CartIssueProductNotFound,
						ProductRef: item.ProductSlug,
						VariantSKU: item.VariantSKU,
					})
					continue
				}
				return err
			}

			variant := product.Variant(item.VariantSKU)
			if variant == nil {
				issues = append(issues, Issue{
					ItemID:     item.ID,
					Type:       enums.CartIssueVariantNotFound,
					ProductRef: product.Slug,
					VariantSKU: item.VariantSKU,
				})
				continue
			}

			if variant.StockLevel < item.Quantity {
				issues = append(issues, Issue{
					ItemID:     item.ID,
					Type:       enums.CartIssueInsufficientStock,
					ProductRef: product.Slug,
					VariantSKU: item.VariantSKU,
					Available:  variant.StockLevel,
					Requested:  item.Quantity,
				})
			}

			if current := pricing.ResolvePrice(product, variant); current != item.UnitPrice {
				issues = append(issues, Issue{
					ItemID:     item.ID,
					Type:       enums.CartIssuePriceChanged,
					ProductRef: product.Slug,
					VariantSKU: item.VariantSKU,
					OldPrice:   item.UnitPrice,
					NewPrice:   current,
				})
				applySnapshot(item, product, variant)
				if err := repo.UpdateItem(ctx, item); err != nil {
					return err
				}
				dirty = true
			}
		}

		if dirty {
			return persistTotals(ctx, repo, cart)
		}
		return nil
	})
	if err != nil {
		return nil, wrapCartErr(err, "validate cart")
	}

	dto, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{
		Valid:  len(issues) == 0,
		Issues: issues,
		Cart:   dto,
	}, nil
}

func (s *service) resolveVariant(ctx context.Context, productRef, sku string) (*models.Product, *models.ProductVariant, error) {
	product, err := s.catalog.Resolve(ctx, productRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product")
	}
	if !product.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is no longer available")
	}
	variant := product.Variant(sku)
	if variant == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeVariantNotFound, "variant not found on product")
	}
	return product, variant, nil
}

// findLine resolves a line by item id with a fallback on product id, sku,
// or slug for clients that never stored the generated id.
func findLine(cart *models.Cart, ref string) *models.CartItem {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		for i := range cart.Items {
			if cart.Items[i].ID == id {
				return &cart.Items[i]
			}
		}
		for i := range cart.Items {
			if cart.Items[i].ProductID == id {
				return &cart.Items[i]
			}
		}
		return nil
	}
	for i := range cart.Items {
		if cart.Items[i].VariantSKU == ref || cart.Items[i].ProductSlug == ref {
			return &cart.Items[i]
		}
	}
	return nil
}

func findActiveLine(cart *models.Cart, productID uuid.UUID, sku string) *models.CartItem {
	for i := range cart.Items {
		item := &cart.Items[i]
		if !item.SavedForLater && item.ProductID == productID && item.VariantSKU == sku {
			return item
		}
	}
	return nil
}

func removeLine(items []models.CartItem, itemID uuid.UUID) []models.CartItem {
	out := items[:0]
	for i := range items {
		if items[i].ID != itemID {
			out = append(out, items[i])
		}
	}
	return out
}

func applySnapshot(item *models.CartItem, product *models.Product, variant *models.ProductVariant) {
	item.ProductID = product.ID
	item.ProductSlug = product.Slug
	item.VariantSKU = variant.SKU
	item.Title = product.Title
	item.UnitPrice = pricing.ResolvePrice(product, variant)
	item.Size = variant.Size
	item.Color = variant.Color
	item.ImageURL = product.PrimaryImage()
}

func persistTotals(ctx context.Context, repo *Repository, cart *models.Cart) error {
	cart.RecomputeTotals()
	return repo.SaveTotals(ctx, cart)
}

func insufficientStock(available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]int{
			"available": available,
			"requested": requested,
		})
}

func wrapCartErr(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
