package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

// Repository defines persistence operations for sales orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.SalesOrder) (*models.SalesOrder, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error)
	FindOrderByReference(ctx context.Context, reference string) (*models.SalesOrder, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	NextReferenceSeq(ctx context.Context, day string) (int, error)
}
