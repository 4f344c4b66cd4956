package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// PurchaseOrder references one product and one supplier. Version backs the
// optimistic check on the externally reachable confirm/cancel entry points.
type PurchaseOrder struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	Number            string                    `gorm:"column:number;not null;uniqueIndex:ux_purchase_orders_number"`
	ProductID         uuid.UUID                 `gorm:"column:product_id;type:uuid;not null"`
	SupplierID        uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	OrderedQuantity   int                       `gorm:"column:ordered_quantity;not null"`
	ReceivedQuantity  int                       `gorm:"column:received_quantity;not null;default:0"`
	UnitCost          decimal.Decimal           `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	Status            enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status;not null;default:'awaiting_approval'"`
	Version           int                       `gorm:"column:version;not null;default:0"`
	ExpectedArrivalAt *time.Time                `gorm:"column:expected_arrival_at"`
	ActualArrivalAt   *time.Time                `gorm:"column:actual_arrival_at"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
