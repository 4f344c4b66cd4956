package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// StockMovement is an append-only audit row recorded for every physical
// stock change. Rows are never updated or deleted.
type StockMovement struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID                `gorm:"column:product_id;type:uuid;not null;index:ix_stock_movements_product"`
	Direction     enums.MovementDirection  `gorm:"column:direction;not null"`
	Quantity      int                      `gorm:"column:quantity;not null"`
	ReferenceType enums.MovementReference  `gorm:"column:reference_type;not null"`
	ReferenceID   uuid.UUID                `gorm:"column:reference_id;type:uuid;not null;index:ix_stock_movements_reference"`
	Note          *string                  `gorm:"column:note"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
}
