package enums

import "fmt"

// SalesOrderStatus tracks the lifecycle of a sales order. It is derived from
// the aggregate of its item statuses plus delivery progress.
type SalesOrderStatus string

const (
	SalesOrderStatusPending            SalesOrderStatus = "pending"
	SalesOrderStatusPartiallyApproved  SalesOrderStatus = "partially_approved"
	SalesOrderStatusPartiallyDelivered SalesOrderStatus = "partially_delivered"
	SalesOrderStatusApproved           SalesOrderStatus = "approved"
	SalesOrderStatusDeliveryInProcess  SalesOrderStatus = "delivery_in_process"
	SalesOrderStatusDelivered          SalesOrderStatus = "delivered"
	SalesOrderStatusCompleted          SalesOrderStatus = "completed"
	SalesOrderStatusCancelled          SalesOrderStatus = "cancelled"
)

var validSalesOrderStatuses = []SalesOrderStatus{
	SalesOrderStatusPending,
	SalesOrderStatusPartiallyApproved,
	SalesOrderStatusPartiallyDelivered,
	SalesOrderStatusApproved,
	SalesOrderStatusDeliveryInProcess,
	SalesOrderStatusDelivered,
	SalesOrderStatusCompleted,
	SalesOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s SalesOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SalesOrderStatus.
func (s SalesOrderStatus) IsValid() bool {
	for _, candidate := range validSalesOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsFinalized reports whether the order accepts no further mutation.
func (s SalesOrderStatus) IsFinalized() bool {
	switch s {
	case SalesOrderStatusDelivered, SalesOrderStatusCompleted, SalesOrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseSalesOrderStatus converts raw input into a SalesOrderStatus.
func ParseSalesOrderStatus(value string) (SalesOrderStatus, error) {
	for _, candidate := range validSalesOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sales order status %q", value)
}
