package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercatohq/stockroom-backend/api/responses"
	"github.com/mercatohq/stockroom-backend/api/validators"
	"github.com/mercatohq/stockroom-backend/internal/suppliers"
	"github.com/mercatohq/stockroom-backend/pkg/db"
	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type createSupplierRequest struct {
	Code  string `json:"code" validate:"required,max=32"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

func SupplierCreate(repo suppliers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSupplierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := repo.Create(r.Context(), &models.Supplier{
			ID:    uuid.New(),
			Code:  req.Code,
			Name:  req.Name,
			Email: req.Email,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_suppliers_code") {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "supplier code already exists"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, supplier)
	}
}

func SupplierList(repo suppliers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := repo.List(r.Context(), pagination.Params{Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers"))
			return
		}
		page, hasMore := pagination.TrimPage(rows, limit)
		responses.WriteSuccess(w, map[string]any{
			"suppliers": page,
			"has_more":  hasMore,
		})
	}
}
