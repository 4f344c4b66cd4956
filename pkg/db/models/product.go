package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// Product represents a sellable or orderable catalog entry.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SKU         string              `gorm:"column:sku;not null;uniqueIndex:ux_products_sku"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description"`
	Status      enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'active'"`
	UnitPrice   decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	SupplierID  *uuid.UUID          `gorm:"column:supplier_id;type:uuid"`
	Inventory   *InventoryRecord    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
