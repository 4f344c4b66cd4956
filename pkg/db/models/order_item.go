package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// OrderItem is one line of a sales order. ApprovedQuantity only ever grows and
// never exceeds Quantity.
type OrderItem struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	ProductID        uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Quantity         int                   `gorm:"column:quantity;not null"`
	ApprovedQuantity int                   `gorm:"column:approved_quantity;not null;default:0"`
	UnitPrice        decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Status           enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'pending'"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingQuantity is the portion of the ordered quantity not yet approved.
func (i OrderItem) RemainingQuantity() int {
	return i.Quantity - i.ApprovedQuantity
}
