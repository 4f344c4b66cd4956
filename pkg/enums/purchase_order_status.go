package enums

import "fmt"

// PurchaseOrderStatus tracks the receiving lifecycle of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusAwaitingApproval  PurchaseOrderStatus = "awaiting_approval"
	PurchaseOrderStatusDeliveryInProcess PurchaseOrderStatus = "delivery_in_process"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
	PurchaseOrderStatusFailed            PurchaseOrderStatus = "failed"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusAwaitingApproval,
	PurchaseOrderStatusDeliveryInProcess,
	PurchaseOrderStatusPartiallyReceived,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
	PurchaseOrderStatusFailed,
}

// String implements fmt.Stringer.
func (p PurchaseOrderStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (p PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsFinalized reports whether the purchase order accepts no further mutation.
func (p PurchaseOrderStatus) IsFinalized() bool {
	switch p {
	case PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled, PurchaseOrderStatusFailed:
		return true
	default:
		return false
	}
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
