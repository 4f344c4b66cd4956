package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/internal/inventory"
	dbpkg "github.com/mercatohq/stockroom-backend/pkg/db"
	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput captures a new catalog entry plus its initial stock levels.
type CreateInput struct {
	SKU          string
	Name         string
	Description  *string
	UnitPrice    decimal.Decimal
	SupplierID   *uuid.UUID
	CurrentStock int
	MinLevel     int
}

// Service exposes the product catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params) ([]models.Product, bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error
}

type service struct {
	repo Repository
	inv  inventory.Repository
	tx   txRunner
}

// NewService builds the products service with the required dependencies.
func NewService(repo Repository, inv inventory.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, inv: inv, tx: tx}, nil
}

// Create inserts the product and its ledger row in one transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.CurrentStock < 0 || input.MinLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock levels cannot be negative")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	product := &models.Product{
		ID:          uuid.New(),
		SKU:         strings.TrimSpace(input.SKU),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Status:      enums.ProductStatusActive,
		UnitPrice:   input.UnitPrice,
		SupplierID:  input.SupplierID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, product); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_products_sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		record := &models.InventoryRecord{
			ProductID:    product.ID,
			CurrentStock: input.CurrentStock,
			MinLevel:     input.MinLevel,
			Status:       inventory.DeriveStatus(product.Status, false, input.CurrentStock, input.MinLevel),
		}
		if err := s.inv.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
		}
		product.Inventory = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Product, bool, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page, hasMore := pagination.TrimPage(rows, params.Limit)
	return page, hasMore, nil
}

// UpdateStatus changes the product lifecycle status and recomputes the
// ledger status, since restricted and archived products invalidate stock.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", status))
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invRepo := s.inv.WithTx(tx)

		product, err := repo.Find(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Status == status {
			return nil
		}
		if err := repo.Updates(ctx, id, map[string]any{"status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product status")
		}

		record, err := invRepo.FindForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		derived := inventory.DeriveStatus(status, record.Incoming, record.CurrentStock, record.MinLevel)
		if derived == record.Status {
			return nil
		}
		return invRepo.Updates(ctx, id, map[string]any{"status": derived})
	})
}
