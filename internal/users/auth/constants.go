// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// SessionTTL is the duration a session remains valid. The TTL slides on
	// every resolved request, so only idle sessions expire.
	SessionTTL = 24 * time.Hour

	// SessionIDLength is the byte length of the random session identifier.
	SessionIDLength = 32

	// UserSnapshotTTL is the lifetime of a cached user snapshot. Short (60s)
	// so credential changes propagate quickly to cached readers.
	UserSnapshotTTL = 60 * time.Second

	// ResetCodeTTL is the duration a password reset verification code remains
	// valid. Short-lived (10 minutes) because the code is only 6 digits.
	ResetCodeTTL = 10 * time.Minute

	// ResetCodeLength is the digit count of the emailed verification code.
	ResetCodeLength = 6

	// ResetTokenTTL is the duration a verified reset token remains valid.
	ResetTokenTTL = 15 * time.Minute

	// ResetTokenLength is the character length of the random reset token.
	ResetTokenLength = 32
)
