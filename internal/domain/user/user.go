// Package user holds the caller identity model shared by the API and
// application layers. Account management lives in an external service;
// this package only models what the token verifier returns.
package user

import "github.com/google/uuid"

// Role is the marketplace role carried by a verified token.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSeller, RoleBuyer, RoleAdmin:
		return true
	}
	return false
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
