package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// CreateOrderLine is one requested product/quantity pair.
type CreateOrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput captures a new sales order request.
type CreateOrderInput struct {
	CustomerID  uuid.UUID
	Lines       []CreateOrderLine
	Notes       *string
	ActorUserID uuid.UUID
	ActorRole   string
}

// StockOutInput maps product IDs to the quantity approved for shipment.
// Products absent from the map are left untouched.
type StockOutInput struct {
	OrderID     uuid.UUID
	Approved    map[uuid.UUID]int
	ActorUserID uuid.UUID
	ActorRole   string
}

// AddItemInput appends a line to an open order.
type AddItemInput struct {
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	ActorUserID uuid.UUID
	ActorRole   string
}

// OrderFilters describe the inputs supported by the order list.
type OrderFilters struct {
	CustomerID *uuid.UUID
	Status     *enums.SalesOrderStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// OrderSummary is the aggregated row returned by the order list.
type OrderSummary struct {
	ID          uuid.UUID              `json:"id"`
	Reference   string                 `json:"reference"`
	CustomerID  uuid.UUID              `json:"customer_id"`
	Status      enums.SalesOrderStatus `json:"status"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	TotalItems  int                    `json:"total_items"`
	CreatedAt   time.Time              `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderCreatedEvent is emitted when an order is persisted.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	Reference   string          `json:"reference"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// StockOutEvent is emitted when approved quantities ship.
type StockOutEvent struct {
	OrderID   uuid.UUID              `json:"order_id"`
	Reference string                 `json:"reference"`
	Status    enums.SalesOrderStatus `json:"status"`
	Shipped   map[string]int         `json:"shipped"`
}

// OrderCancelledEvent is emitted when an order is cancelled and its
// reservations returned.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	Reference     string    `json:"reference"`
	ReleasedUnits int       `json:"released_units"`
}
