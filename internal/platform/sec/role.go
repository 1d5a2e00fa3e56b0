// Copyright (c) 2026 Roomkeeper. All rights reserved.

package sec

// # User Roles

// Role represents the authorization level granted to an account.
//
// The role model is deliberately flat: an administrator is not a superset of a
// regular user, and endpoints guard on exact role membership.
type Role string

const (
	// Campus administrators: review reservations, manage rooms and keys
	RoleAdmin Role = "admin"

	// Default role for registered students and staff
	RoleUser Role = "user"
)

// Is reports whether the role exactly matches the required role.
func (r Role) Is(required Role) bool {
	return r == required
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}
