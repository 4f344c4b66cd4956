package enums

import "fmt"

// InventoryStatus is derived from the ledger row and the owning product; it is
// never set directly by callers.
type InventoryStatus string

const (
	InventoryStatusInStock  InventoryStatus = "in_stock"
	InventoryStatusLowStock InventoryStatus = "low_stock"
	InventoryStatusIncoming InventoryStatus = "incoming"
	InventoryStatusInvalid  InventoryStatus = "invalid"
)

var validInventoryStatuses = []InventoryStatus{
	InventoryStatusInStock,
	InventoryStatusLowStock,
	InventoryStatusIncoming,
	InventoryStatusInvalid,
}

// String implements fmt.Stringer.
func (i InventoryStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryStatus.
func (i InventoryStatus) IsValid() bool {
	for _, candidate := range validInventoryStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryStatus converts raw input into an InventoryStatus.
func ParseInventoryStatus(value string) (InventoryStatus, error) {
	for _, candidate := range validInventoryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory status %q", value)
}
