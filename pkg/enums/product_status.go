package enums

import "fmt"

// ProductStatus tracks the sale/order lifecycle of a product.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusOnOrder      ProductStatus = "on_order"
	ProductStatusRestricted   ProductStatus = "restricted"
	ProductStatusArchived     ProductStatus = "archived"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusOnOrder,
	ProductStatusRestricted,
	ProductStatusArchived,
	ProductStatusDiscontinued,
}

// String implements fmt.Stringer.
func (p ProductStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductStatus.
func (p ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsSellable reports whether sales orders may draw stock for the product.
func (p ProductStatus) IsSellable() bool {
	return p == ProductStatusActive || p == ProductStatusOnOrder
}

// IsInvalidForStock reports whether the inventory row must derive as invalid.
func (p ProductStatus) IsInvalidForStock() bool {
	switch p {
	case ProductStatusRestricted, ProductStatusArchived, ProductStatusDiscontinued:
		return true
	default:
		return false
	}
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
