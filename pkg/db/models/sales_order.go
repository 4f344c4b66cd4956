package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// SalesOrder is the aggregate root owning its order items. Items are
// cascade-deleted with the order; the order is never deleted independently of
// them.
type SalesOrder struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Reference   string                 `gorm:"column:reference;not null;uniqueIndex:ux_sales_orders_reference"`
	CustomerID  uuid.UUID              `gorm:"column:customer_id;type:uuid;not null"`
	Status      enums.SalesOrderStatus `gorm:"column:status;type:sales_order_status;not null;default:'pending'"`
	TotalAmount decimal.Decimal        `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	LabelKey    *string                `gorm:"column:label_key"`
	Notes       *string                `gorm:"column:notes"`
	Items       []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
