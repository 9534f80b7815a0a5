package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/internal/cart"
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

type cartAdder interface {
	AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.CartDTO, error)
}

// Service exposes the per-user wishlist operations.
type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*AddResult, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, itemRef string) (*WishlistDTO, error)
	UpdateItem(ctx context.Context, userID uuid.UUID, itemRef string, input UpdateItemInput) (*WishlistDTO, error)
	UpdateStock(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error)
	MoveToCart(ctx context.Context, userID uuid.UUID, itemRef string) (*WishlistDTO, error)
}

// AddItemInput captures the validated payload to add a wishlist entry.
type AddItemInput struct {
	ProductRef string
	VariantSKU *string
	Priority   *enums.WishlistPriority
	Notes      *string
}

// UpdateItemInput carries optional metadata updates for an entry.
type UpdateItemInput struct {
	Priority *enums.WishlistPriority
	Notes    *string
}

type service struct {
	repo    *Repository
	tx      txRunner
	catalog productResolver
	cart    cartAdder
}

// NewService constructs a wishlist service instance.
func NewService(repo *Repository, tx txRunner, catalog productResolver, cartSvc cartAdder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog, cart: cartSvc}, nil
}

// GetWishlist returns the wishlist, creating it lazily on first access.
func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error) {
	list, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	return toWishlistDTO(list), nil
}

// AddItem inserts an entry for the product, optionally pinned to a variant.
// A duplicate (product, sku) add reports added=false instead of failing.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*AddResult, error) {
	product, err := s.resolveProduct(ctx, input.ProductRef)
	if err != nil {
		return nil, err
	}

	var sku *string
	var variant *models.ProductVariant
	if input.VariantSKU != nil && strings.TrimSpace(*input.VariantSKU) != "" {
		trimmed := strings.TrimSpace(*input.VariantSKU)
		variant = product.Variant(trimmed)
		if variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeVariantNotFound, "variant not found on product")
		}
		sku = &trimmed
	}

	added := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		if findEntry(list, product.ID, sku) != nil {
			return nil
		}

		item := &models.WishlistItem{
			WishlistID: list.ID,
			VariantSKU: sku,
			Priority:   enums.WishlistPriorityMedium,
			Notes:      input.Notes,
		}
		if input.Priority != nil {
			if !input.Priority.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid wishlist priority")
			}
			item.Priority = *input.Priority
		}
		applySnapshot(item, product, variant)
		if err := repo.CreateItem(ctx, item); err != nil {
			return err
		}
		added = true
		return repo.SaveItemCount(ctx, list.ID, len(list.Items)+1)
	})
	if err != nil {
		return nil, wrapWishlistErr(err, "add wishlist item")
	}

	dto, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AddResult{Added: added, Wishlist: dto}, nil
}

// RemoveItem deletes the entry addressed by id, sku, or slug.
func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, itemRef string) (*WishlistDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		item := findItem(list, itemRef)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		return repo.SaveItemCount(ctx, list.ID, len(list.Items)-1)
	})
	if err != nil {
		return nil, wrapWishlistErr(err, "remove wishlist item")
	}
	return s.GetWishlist(ctx, userID)
}

// UpdateItem changes priority or notes on an entry.
func (s *service) UpdateItem(ctx context.Context, userID uuid.UUID, itemRef string, input UpdateItemInput) (*WishlistDTO, error) {
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wishlist priority")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}
		item := findItem(list, itemRef)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		if input.Priority != nil {
			item.Priority = *input.Priority
		}
		if input.Notes != nil {
			item.Notes = input.Notes
		}
		return repo.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, wrapWishlistErr(err, "update wishlist item")
	}
	return s.GetWishlist(ctx, userID)
}

// UpdateStock reconciles every entry against the live catalog. A missing
// product marks the entry out of stock and leaves its snapshot alone. A
// missing variant marks it out of stock and falls back to product-level
// price, clearing the stale size and color.
func (s *service) UpdateStock(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}

		for i := range list.Items {
			item := &list.Items[i]

			product, err := s.catalog.Resolve(ctx, item.ProductID.String())
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					item.InStock = false
					if err := repo.UpdateItem(ctx, item); err != nil {
						return err
					}
					continue
				}
				return err
			}

			item.Title = product.Title
			item.ImageURL = product.PrimaryImage()
			item.ProductSlug = product.Slug

			if item.VariantSKU != nil {
				if variant := product.Variant(*item.VariantSKU); variant != nil {
					price := pricing.ResolvePrice(product, variant)
					item.Price = &price
					item.Size = &variant.Size
					item.Color = &variant.Color
					item.InStock = variant.StockLevel > 0
				} else {
					price := pricing.ResolvePrice(product, nil)
					item.Price = &price
					item.Size = nil
					item.Color = nil
					item.InStock = false
				}
			} else {
				price := pricing.ResolvePrice(product, nil)
				item.Price = &price
				item.InStock = product.IsActive && anyVariantInStock(product)
			}

			if err := repo.UpdateItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapWishlistErr(err, "sync wishlist stock")
	}
	return s.GetWishlist(ctx, userID)
}

// MoveToCart adds the entry to the cart and removes it from the wishlist.
// The two writes are not atomic across aggregates; the cart add merges on
// retry, so re-running after a partial failure cannot duplicate cart rows.
func (s *service) MoveToCart(ctx context.Context, userID uuid.UUID, itemRef string) (*WishlistDTO, error) {
	list, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	item := findItem(list, itemRef)
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	if item.VariantSKU == nil || strings.TrimSpace(*item.VariantSKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeVariantRequired, "select a size before moving to cart")
	}

	if _, err := s.cart.AddItem(ctx, userID, cart.AddItemInput{
		ProductRef: item.ProductID.String(),
		VariantSKU: *item.VariantSKU,
		Quantity:   1,
	}); err != nil {
		return nil, err
	}

	return s.RemoveItem(ctx, userID, item.ID.String())
}

func (s *service) resolveProduct(ctx context.Context, ref string) (*models.Product, error) {
	product, err := s.catalog.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is no longer available")
	}
	return product, nil
}

func findEntry(list *models.Wishlist, productID uuid.UUID, sku *string) *models.WishlistItem {
	for i := range list.Items {
		item := &list.Items[i]
		if item.ProductID != productID {
			continue
		}
		if equalSKU(item.VariantSKU, sku) {
			return item
		}
	}
	return nil
}

func findItem(list *models.Wishlist, ref string) *models.WishlistItem {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		for i := range list.Items {
			if list.Items[i].ID == id {
				return &list.Items[i]
			}
		}
		for i := range list.Items {
			if list.Items[i].ProductID == id {
				return &list.Items[i]
			}
		}
		return nil
	}
	for i := range list.Items {
		item := &list.Items[i]
		if item.ProductSlug == ref {
			return item
		}
		if item.VariantSKU != nil && *item.VariantSKU == ref {
			return item
		}
	}
	return nil
}

func equalSKU(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func anyVariantInStock(product *models.Product) bool {
	for i := range product.Variants {
		if product.Variants[i].StockLevel > 0 {
			return true
		}
	}
	return false
}

func applySnapshot(item *models.WishlistItem, product *models.Product, variant *models.ProductVariant) {
	item.ProductID = product.ID
	item.ProductSlug = product.Slug
	item.Title = product.Title
	item.ImageURL = product.PrimaryImage()
	price := pricing.ResolvePrice(product, variant)
	item.Price = &price
	if variant != nil {
		item.Size = &variant.Size
		item.Color = &variant.Color
		item.InStock = variant.StockLevel > 0
	} else {
		item.InStock = product.IsActive && anyVariantInStock(product)
	}
}

func wrapWishlistErr(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
