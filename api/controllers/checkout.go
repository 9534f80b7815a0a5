package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/api/responses"
	"github.com/kiranlabs/storefront-backend/api/validators"
	"github.com/kiranlabs/storefront-backend/internal/checkout"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
)

type checkoutItemPayload struct {
	ProductRef string `json:"product_ref" validate:"required"`
	VariantSKU string `json:"variant_sku"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
}

type checkoutPayload struct {
	AddressID     string                `json:"address_id" validate:"required,uuid"`
	PaymentMethod string                `json:"payment_method" validate:"required"`
	UseCart       *bool                 `json:"use_cart"`
	Items         []checkoutItemPayload `json:"items" validate:"dive"`
	CouponCode    string                `json:"coupon_code"`
}

type confirmPaymentPayload struct {
	IntentID  string `json:"intent_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

func (p checkoutPayload) toInput() (checkout.PlaceOrderInput, error) {
	addressID, err := uuid.Parse(p.AddressID)
	if err != nil {
		return checkout.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address_id")
	}
	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return checkout.PlaceOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	useCart := true
	if p.UseCart != nil {
		useCart = *p.UseCart
	}
	items := make([]checkout.ExplicitItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, checkout.ExplicitItem{
			ProductRef: item.ProductRef,
			VariantSKU: item.VariantSKU,
			Quantity:   item.Quantity,
		})
	}

	return checkout.PlaceOrderInput{
		AddressID:     addressID,
		PaymentMethod: method,
		UseCart:       useCart,
		Items:         items,
		CouponCode:    p.CouponCode,
	}, nil
}

// Checkout places a cash-on-delivery order from the current cart.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// PaymentIntent opens a gateway payment for the current cart.
func PaymentIntent(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreatePaymentIntent(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// PaymentConfirm verifies the gateway callback and materializes the order.
func PaymentConfirm(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmPaymentPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), userID, checkout.ConfirmPaymentInput{
			IntentID:  body.IntentID,
			PaymentID: body.PaymentID,
			Signature: body.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
