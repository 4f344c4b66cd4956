package enums

import "fmt"

// MovementDirection marks whether a stock movement added or removed units.
type MovementDirection string

const (
	MovementDirectionIn  MovementDirection = "in"
	MovementDirectionOut MovementDirection = "out"
)

// String implements fmt.Stringer.
func (m MovementDirection) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementDirection.
func (m MovementDirection) IsValid() bool {
	return m == MovementDirectionIn || m == MovementDirectionOut
}

// MovementReference names the aggregate a stock movement was caused by.
type MovementReference string

const (
	MovementReferenceSalesOrder    MovementReference = "sales_order"
	MovementReferencePurchaseOrder MovementReference = "purchase_order"
	MovementReferenceAdjustment    MovementReference = "adjustment"
)

var validMovementReferences = []MovementReference{
	MovementReferenceSalesOrder,
	MovementReferencePurchaseOrder,
	MovementReferenceAdjustment,
}

// String implements fmt.Stringer.
func (m MovementReference) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementReference.
func (m MovementReference) IsValid() bool {
	for _, candidate := range validMovementReferences {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementReference converts raw input into a MovementReference.
func ParseMovementReference(value string) (MovementReference, error) {
	for _, candidate := range validMovementReferences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement reference %q", value)
}
