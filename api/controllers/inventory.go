package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/stockroom-backend/api/responses"
	"github.com/mercatohq/stockroom-backend/api/validators"
	"github.com/mercatohq/stockroom-backend/internal/inventory"
	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type updateLevelsRequest struct {
	CurrentStock *int `json:"current_stock,omitempty" validate:"omitempty,min=0"`
	MinLevel     *int `json:"min_level,omitempty" validate:"omitempty,min=0"`
}

func InventoryDetail(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, hasMore, err := svc.List(r.Context(), pagination.Params{Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"records":  page,
			"has_more": hasMore,
		})
	}
}

// InventoryUpdateLevels applies a manual stock correction.
func InventoryUpdateLevels(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateLevelsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateLevels(r.Context(), inventory.UpdateLevelsInput{
			ProductID:    productID,
			CurrentStock: req.CurrentStock,
			MinLevel:     req.MinLevel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func InventoryDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusNoContent, nil)
	}
}

// InventoryMovements returns the audit trail for one SKU.
func InventoryMovements(repo movements.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.ListByProduct(r.Context(), productID, pagination.Params{Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, hasMore := pagination.TrimPage(rows, limit)
		responses.WriteSuccess(w, map[string]any{
			"movements": page,
			"has_more":  hasMore,
		})
	}
}
