package controllers

import (
	"net/http"

	"github.com/kiranlabs/storefront-backend/api/responses"
	"github.com/kiranlabs/storefront-backend/api/validators"
	"github.com/kiranlabs/storefront-backend/internal/catalog"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
)

type variantPayload struct {
	SKU           string `json:"sku" validate:"required"`
	Size          string `json:"size"`
	Color         string `json:"color"`
	Price         *int64 `json:"price"`
	PriceOverride *int64 `json:"price_override"`
	StockLevel    int    `json:"stock_level" validate:"min=0"`
}

type createProductPayload struct {
	Slug        string           `json:"slug" validate:"required"`
	Title       string           `json:"title" validate:"required"`
	Description *string          `json:"description"`
	Category    string           `json:"category" validate:"required"`
	BasePrice   *int64           `json:"base_price"`
	SalePrice   *int64           `json:"sale_price"`
	Price       *int64           `json:"price"`
	Images      []string         `json:"images"`
	IsActive    bool             `json:"is_active"`
	Variants    []variantPayload `json:"variants" validate:"dive"`
}

type updateProductPayload struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Category    *string           `json:"category"`
	BasePrice   *int64            `json:"base_price"`
	SalePrice   *int64            `json:"sale_price"`
	Price       *int64            `json:"price"`
	Images      *[]string         `json:"images"`
	IsActive    *bool             `json:"is_active"`
	Variants    *[]variantPayload `json:"variants" validate:"omitempty,dive"`
}

type setActivePayload struct {
	Active bool `json:"active"`
}

func toVariantInputs(payloads []variantPayload) []catalog.VariantInput {
	variants := make([]catalog.VariantInput, 0, len(payloads))
	for _, p := range payloads {
		variants = append(variants, catalog.VariantInput{
			SKU:           p.SKU,
			Size:          p.Size,
			Color:         p.Color,
			Price:         p.Price,
			PriceOverride: p.PriceOverride,
			StockLevel:    p.StockLevel,
		})
	}
	return variants
}

// AdminCreateProduct adds a listing to the catalog.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body createProductPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Slug:        body.Slug,
			Title:       body.Title,
			Description: body.Description,
			Category:    body.Category,
			BasePrice:   body.BasePrice,
			SalePrice:   body.SalePrice,
			Price:       body.Price,
			Images:      body.Images,
			IsActive:    body.IsActive,
			Variants:    toVariantInputs(body.Variants),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies partial updates to a listing.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Title:       body.Title,
			Description: body.Description,
			Category:    body.Category,
			BasePrice:   body.BasePrice,
			SalePrice:   body.SalePrice,
			Price:       body.Price,
			Images:      body.Images,
			IsActive:    body.IsActive,
		}
		if body.Variants != nil {
			variants := toVariantInputs(*body.Variants)
			input.Variants = &variants
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminSetProductActive toggles a listing's visibility.
func AdminSetProductActive(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setActivePayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetProductActive(r.Context(), productID, body.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"active": body.Active})
	}
}
