package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles accepted on access tokens. Tokens are minted by the identity
// service; this backend only verifies them.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleCustomer = "customer"
)

// AccessTokenClaims represents the typed JWT attached to API requests.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// CanManageStock reports whether the claims allow inventory and purchase
// order mutations.
func (c *AccessTokenClaims) CanManageStock() bool {
	if c == nil {
		return false
	}
	return c.Role == RoleAdmin || c.Role == RoleOperator
}
