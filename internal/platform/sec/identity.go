// Copyright (c) 2026 Roomkeeper. All rights reserved.

package sec

// Identity is the per-request authenticated principal.
//
// It is reconstructed by the session middleware on every request and carried in
// the request context. Handlers never see raw session records or password
// hashes, only this projection.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// HasRole reports whether the identity holds exactly the required role.
func (i *Identity) HasRole(required Role) bool {
	return i != nil && i.Role.Is(required)
}
