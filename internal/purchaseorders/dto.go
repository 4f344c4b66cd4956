package purchaseorders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatohq/stockroom-backend/pkg/enums"
)

// CreateInput opens a purchase order against a supplier for one product.
type CreateInput struct {
	ProductID         uuid.UUID
	SupplierID        uuid.UUID
	OrderedQuantity   int
	UnitCost          decimal.Decimal
	ExpectedArrivalAt *time.Time
	ActorUserID       uuid.UUID
	ActorRole         string
}

// ReceiveInput records a delivery against a purchase order.
type ReceiveInput struct {
	OrderID         uuid.UUID
	Quantity        int
	ActualArrivalAt time.Time
	ActorUserID     uuid.UUID
	ActorRole       string
}

// Filters narrows purchase order listings.
type Filters struct {
	SupplierID *uuid.UUID
	Status     *enums.PurchaseOrderStatus
}

// ReceivedEvent is emitted for every booked delivery.
type ReceivedEvent struct {
	OrderID          uuid.UUID                 `json:"order_id"`
	Number           string                    `json:"number"`
	ProductID        uuid.UUID                 `json:"product_id"`
	Quantity         int                       `json:"quantity"`
	ReceivedQuantity int                       `json:"received_quantity"`
	OrderedQuantity  int                       `json:"ordered_quantity"`
	Status           enums.PurchaseOrderStatus `json:"status"`
}

// CancelledEvent is emitted when a purchase order is cancelled.
type CancelledEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	Number    string    `json:"number"`
	ProductID uuid.UUID `json:"product_id"`
}

// ConfirmedEvent is emitted when a supplier confirms a purchase order.
type ConfirmedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	Number  string    `json:"number"`
}
