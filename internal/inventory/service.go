package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the stock ledger operations. Reserve, Fulfill, Release and
// AddStock accept an ambient transaction so order and purchase workflows can
// compose them; passing a nil tx runs the operation in its own transaction.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Fulfill(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	AddStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	UpdateLevels(ctx context.Context, input UpdateLevelsInput) (*models.InventoryRecord, error)
	SetIncoming(ctx context.Context, tx *gorm.DB, productID uuid.UUID, incoming bool) error
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	List(ctx context.Context, params pagination.Params) ([]models.InventoryRecord, bool, error)
	Delete(ctx context.Context, productID uuid.UUID) error
}

// UpdateLevelsInput carries an admin stock correction. Nil fields are left
// untouched.
type UpdateLevelsInput struct {
	ProductID    uuid.UUID
	CurrentStock *int
	MinLevel     *int
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// DeriveStatus computes the ledger status from product state and stock levels.
func DeriveStatus(productStatus enums.ProductStatus, incoming bool, currentStock, minLevel int) enums.InventoryStatus {
	if productStatus.IsInvalidForStock() {
		return enums.InventoryStatusInvalid
	}
	if incoming {
		return enums.InventoryStatusIncoming
	}
	if currentStock <= minLevel {
		return enums.InventoryStatusLowStock
	}
	return enums.InventoryStatusInStock
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		available := record.AvailableStock()
		if available < qty {
			return pkgerrors.InsufficientStock(available, qty)
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_records
			SET reserved_stock = reserved_stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND current_stock - reserved_stock >= ?
		`, qty, productID, qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.InsufficientStock(available, qty)
		}
		return nil
	})
}

func (s *service) Fulfill(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "fulfill quantity must be positive")
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		if qty > record.ReservedStock {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cannot fulfill %d: only %d reserved", qty, record.ReservedStock))
		}

		record.CurrentStock -= qty
		record.ReservedStock -= qty
		status, err := s.deriveStatusTx(ctx, repo, productID, record)
		if err != nil {
			return err
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_records
			SET current_stock = current_stock - ?,
				reserved_stock = reserved_stock - ?,
				status = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND reserved_stock >= ?
		`, qty, qty, status, productID, qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "fulfill inventory")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inventory changed during fulfillment")
		}
		return nil
	})
}

// Release returns reserved stock. Releasing more than is reserved clamps at
// zero and logs a warning instead of failing, so compensation paths always
// succeed.
func (s *service) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		release := qty
		if release > record.ReservedStock {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"product_id": productID.String(),
					"reserved":   record.ReservedStock,
					"requested":  qty,
				})
				s.logg.Warn(logCtx, "release exceeds reserved stock, clamping")
			}
			release = record.ReservedStock
		}
		if release == 0 {
			return nil
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_records
			SET reserved_stock = reserved_stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND reserved_stock >= ?
		`, release, productID, release)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
		}
		return nil
	})
}

// AddStock increases on-hand stock, used when purchase order deliveries
// arrive, and recomputes the ledger status.
func (s *service) AddStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must be positive")
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		record.CurrentStock += qty
		status, err := s.deriveStatusTx(ctx, repo, productID, record)
		if err != nil {
			return err
		}
		if err := repo.Updates(ctx, productID, map[string]any{
			"current_stock": gorm.Expr("current_stock + ?", qty),
			"status":        status,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add stock")
		}
		return nil
	})
}

func (s *service) UpdateLevels(ctx context.Context, input UpdateLevelsInput) (*models.InventoryRecord, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.CurrentStock == nil && input.MinLevel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if input.CurrentStock != nil && *input.CurrentStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "current stock cannot be negative")
	}
	if input.MinLevel != nil && *input.MinLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min level cannot be negative")
	}

	var updated *models.InventoryRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}

		if input.CurrentStock != nil {
			if *input.CurrentStock < record.ReservedStock {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("current stock %d below reserved %d", *input.CurrentStock, record.ReservedStock))
			}
			record.CurrentStock = *input.CurrentStock
		}
		if input.MinLevel != nil {
			record.MinLevel = *input.MinLevel
		}

		status, err := s.deriveStatusTx(ctx, repo, input.ProductID, record)
		if err != nil {
			return err
		}
		record.Status = status

		if err := repo.Updates(ctx, input.ProductID, map[string]any{
			"current_stock": record.CurrentStock,
			"min_level":     record.MinLevel,
			"status":        record.Status,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock levels")
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetIncoming flips the incoming flag and recomputes the ledger status.
func (s *service) SetIncoming(ctx context.Context, tx *gorm.DB, productID uuid.UUID, incoming bool) error {
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		record.Incoming = incoming
		status, err := s.deriveStatusTx(ctx, repo, productID, record)
		if err != nil {
			return err
		}
		return repo.Updates(ctx, productID, map[string]any{
			"incoming": incoming,
			"status":   status,
		})
	})
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	record, err := s.repo.Find(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.InventoryRecord, bool, error) {
	records, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	page, hasMore := pagination.TrimPage(records, params.Limit)
	return page, hasMore, nil
}

// Delete removes a ledger row. Rows with outstanding reservations cannot be
// deleted.
func (s *service) Delete(ctx context.Context, productID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		if record.ReservedStock > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot delete record with %d reserved units", record.ReservedStock))
		}
		return repo.Delete(ctx, productID)
	})
}

func (s *service) deriveStatusTx(ctx context.Context, repo Repository, productID uuid.UUID, record *models.InventoryRecord) (enums.InventoryStatus, error) {
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return DeriveStatus(product.Status, record.Incoming, record.CurrentStock, record.MinLevel), nil
}

func (s *service) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.tx.WithTx(ctx, fn)
}
