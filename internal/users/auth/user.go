// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import (
	"time"

	"github.com/campuslab/roomkeeper/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the reservation platform.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	PhoneNumber  string    `json:"phone_number"`
	Role         sec.Role  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity projects the user into the neutral caller identity carried in
// request contexts.
func (u *User) Identity() *sec.Identity {
	return &sec.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPhoneNumber     = "phone_number"
	FieldCode            = "code"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldConfirmPassword = "confirm_password"
	FieldMessage         = "message"
)
