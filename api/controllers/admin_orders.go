package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kiranlabs/storefront-backend/api/middleware"
	"github.com/kiranlabs/storefront-backend/api/responses"
	"github.com/kiranlabs/storefront-backend/api/validators"
	"github.com/kiranlabs/storefront-backend/internal/orders"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
	"github.com/kiranlabs/storefront-backend/pkg/pagination"
)

type updateOrderStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

type updateReturnStatusPayload struct {
	Status       string  `json:"status" validate:"required"`
	AdminNotes   *string `json:"admin_notes"`
	Resolution   *string `json:"resolution"`
	RefundAmount *int64  `json:"refund_amount"`
}

// AdminOrdersList pages over every order, optionally filtered by status.
func AdminOrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAllOrders(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminUpdateOrderStatus applies one lifecycle transition to an order.
func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderStatusPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminUpdateReturnStatus advances an order's return workflow.
func AdminUpdateReturnStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateReturnStatusPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseReturnStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		input := orders.ReturnUpdateInput{
			AdminNotes:   body.AdminNotes,
			Resolution:   body.Resolution,
			RefundAmount: body.RefundAmount,
		}
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			if adminID, parseErr := uuid.Parse(raw); parseErr == nil {
				input.ProcessedBy = &adminID
			}
		}

		order, err := svc.UpdateReturnStatus(r.Context(), orderID, status, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
