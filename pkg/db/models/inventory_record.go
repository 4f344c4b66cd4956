package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// InventoryRecord is the per-SKU stock ledger row. ReservedStock never exceeds
// CurrentStock at any commit point; available stock is always derived, never
// stored.
type InventoryRecord struct {
	ProductID     uuid.UUID             `gorm:"column:product_id;type:uuid;primaryKey"`
	CurrentStock  int                   `gorm:"column:current_stock;not null;default:0"`
	ReservedStock int                   `gorm:"column:reserved_stock;not null;default:0"`
	MinLevel      int                   `gorm:"column:min_level;not null;default:0"`
	Incoming      bool                  `gorm:"column:incoming;not null;default:false"`
	Status        enums.InventoryStatus `gorm:"column:status;type:inventory_status;not null;default:'in_stock'"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableStock is the quantity a new reservation may draw from.
func (r InventoryRecord) AvailableStock() int {
	return r.CurrentStock - r.ReservedStock
}
