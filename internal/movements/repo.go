package movements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

// Repository appends and reads the stock movement audit trail. Movement rows
// are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, movement *models.StockMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
	ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.StockMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a movements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, movement *models.StockMovement) error {
	if movement.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement quantity must be positive")
	}
	if !movement.Direction.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement direction")
	}
	if !movement.ReferenceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement reference type")
	}
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Outbound builds an OUT movement for a sales order fulfillment.
func Outbound(productID, orderID uuid.UUID, qty int) *models.StockMovement {
	return &models.StockMovement{
		ProductID:     productID,
		Direction:     enums.MovementDirectionOut,
		Quantity:      qty,
		ReferenceType: enums.MovementReferenceSalesOrder,
		ReferenceID:   orderID,
	}
}

// Inbound builds an IN movement for a purchase order receipt.
func Inbound(productID, purchaseOrderID uuid.UUID, qty int) *models.StockMovement {
	return &models.StockMovement{
		ProductID:     productID,
		Direction:     enums.MovementDirectionIn,
		Quantity:      qty,
		ReferenceType: enums.MovementReferencePurchaseOrder,
		ReferenceID:   purchaseOrderID,
	}
}
