package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

// Repository defines persistence operations for the inventory ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.InventoryRecord) error
	Find(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	FindForUpdate(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Updates(ctx context.Context, productID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, productID uuid.UUID) error
	List(ctx context.Context, params pagination.Params) ([]models.InventoryRecord, error)
}
