package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the store operator behind a request.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string   `json:"operator_id"`
	StoreID    string   `json:"store_id,omitempty"`
	Roles      []string `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the claims include at least one of roles.
func (c Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

// Role constants
const (
	RoleAdmin     = "admin"
	RoleCashier   = "cashier"
	RoleCollector = "collector"
	RoleAuditor   = "auditor"
)
