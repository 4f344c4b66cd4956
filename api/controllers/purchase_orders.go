package controllers

import (
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/api/middleware"
	"github.com/mercatohq/stockroom-backend/api/responses"
	"github.com/mercatohq/stockroom-backend/api/validators"
	"github.com/mercatohq/stockroom-backend/internal/purchaseorders"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type createPurchaseOrderRequest struct {
	ProductID         string          `json:"product_id" validate:"required,uuid"`
	SupplierID        string          `json:"supplier_id" validate:"required,uuid"`
	OrderedQuantity   int             `json:"ordered_quantity" validate:"required,gt=0"`
	UnitCost          decimal.Decimal `json:"unit_cost" validate:"required"`
	ExpectedArrivalAt *time.Time      `json:"expected_arrival_at,omitempty"`
}

type receivePurchaseOrderRequest struct {
	Quantity        int        `json:"quantity" validate:"required,gt=0"`
	ActualArrivalAt *time.Time `json:"actual_arrival_at,omitempty"`
}

func PurchaseOrderCreate(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPurchaseOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParsePathUUID(req.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParsePathUUID(req.SupplierID, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), purchaseorders.CreateInput{
			ProductID:         productID,
			SupplierID:        supplierID,
			OrderedQuantity:   req.OrderedQuantity,
			UnitCost:          req.UnitCost,
			ExpectedArrivalAt: req.ExpectedArrivalAt,
			ActorUserID:       middleware.UserIDFromContext(r.Context()),
			ActorRole:         middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func PurchaseOrderDetail(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func PurchaseOrderList(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildPurchaseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, hasMore, err := svc.List(r.Context(), pagination.Params{Limit: limit}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"purchase_orders": orders,
			"has_more":        hasMore,
		})
	}
}

// PurchaseOrderReceive books an incoming delivery against an open order.
func PurchaseOrderReceive(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req receivePurchaseOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		arrivedAt := time.Now().UTC()
		if req.ActualArrivalAt != nil {
			arrivedAt = *req.ActualArrivalAt
		}
		order, err := svc.Receive(r.Context(), purchaseorders.ReceiveInput{
			OrderID:         orderID,
			Quantity:        req.Quantity,
			ActualArrivalAt: arrivedAt,
			ActorUserID:     middleware.UserIDFromContext(r.Context()),
			ActorRole:       middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func PurchaseOrderCancel(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), orderID, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusNoContent, nil)
	}
}

// PublicPurchaseOrderConfirm handles the supplier confirmation link. The
// version carried in the link must still match the stored row.
func PublicPurchaseOrderConfirm(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, version, err := parseLinkParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Confirm(r.Context(), orderID, version); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": enums.PurchaseOrderStatusDeliveryInProcess})
	}
}

// PublicPurchaseOrderCancel handles the supplier rejection link.
func PublicPurchaseOrderCancel(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, version, err := parseLinkParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelByLink(r.Context(), orderID, version); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": enums.PurchaseOrderStatusCancelled})
	}
}

func parseLinkParams(r *http.Request) (uuid.UUID, int, error) {
	orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
	if err != nil {
		return uuid.Nil, 0, err
	}
	version, err := validators.ParseQueryInt(r, "version", -1, -1, math.MaxInt32)
	if err != nil {
		return uuid.Nil, 0, err
	}
	if version < 0 {
		return uuid.Nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "version query parameter is required")
	}
	return orderID, version, nil
}

func buildPurchaseOrderFilters(r *http.Request) (purchaseorders.Filters, error) {
	var filters purchaseorders.Filters

	supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
	if err != nil {
		return filters, err
	}
	filters.SupplierID = supplierID

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParsePurchaseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase order status").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}

	return filters, nil
}
