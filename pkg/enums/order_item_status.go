package enums

import "fmt"

// OrderItemStatus tracks per-line fulfillment state as approved quantity
// accumulates.
type OrderItemStatus string

const (
	OrderItemStatusPending           OrderItemStatus = "pending"
	OrderItemStatusPartiallyApproved OrderItemStatus = "partially_approved"
	OrderItemStatusApproved          OrderItemStatus = "approved"
	OrderItemStatusCancelled         OrderItemStatus = "cancelled"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusPartiallyApproved,
	OrderItemStatusApproved,
	OrderItemStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderItemStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (o OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
