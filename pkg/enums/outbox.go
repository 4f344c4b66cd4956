package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSalesOrder    OutboxAggregateType = "sales_order"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateInventory     OutboxAggregateType = "inventory"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSalesOrder,
	AggregatePurchaseOrder,
	AggregateInventory,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStockOut      OutboxEventType = "order_stock_out"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventOrderItemAdded     OutboxEventType = "order_item_added"
	EventOrderItemRemoved   OutboxEventType = "order_item_removed"
	EventPurchaseReceived   OutboxEventType = "purchase_received"
	EventPurchaseCancelled  OutboxEventType = "purchase_cancelled"
	EventPurchaseConfirmed  OutboxEventType = "purchase_confirmed"
	EventInventoryAdjusted  OutboxEventType = "inventory_adjusted"
	EventReservationRelease OutboxEventType = "reservation_released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStockOut,
	EventOrderCancelled,
	EventOrderItemAdded,
	EventOrderItemRemoved,
	EventPurchaseReceived,
	EventPurchaseCancelled,
	EventPurchaseConfirmed,
	EventInventoryAdjusted,
	EventReservationRelease,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
