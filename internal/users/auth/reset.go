// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/constants"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
)

// # Password Reset Protocol
//
// Recovery is a three-step handshake keyed by the account email:
//
//  1. Request: a 6-digit code is emailed and recorded (10 minute window).
//  2. Verify: the correct code is exchanged for an opaque reset token
//     (15 minute window). The code is retired in the same store write.
//  3. Reset: the token authorizes exactly one password replacement.
//
// All state lives in a single store record per email, tagged with the phase
// it is in. Re-requesting a code overwrites the record wholesale, so stale
// codes and tokens from earlier rounds can never resurface.

// Reset phases stored in the state record.
const (
	resetPhaseCode  = "code"
	resetPhaseToken = "token"
)

// resetState is the per-email state record of an in-flight reset.
type resetState struct {
	Phase string `json:"phase"`
	Value string `json:"value"`
}

// Client-facing messages. Deliberately identical for every failure mode of a
// step so responses reveal nothing about which part was wrong.
const (
	msgResetRequested  = "If the email exists, a reset code has been sent."
	msgInvalidCode     = "Invalid or expired code"
	msgInvalidToken    = "Invalid or expired reset token"
	msgPasswordReset   = "Password has been reset successfully."
	resetEmailSubject  = "Password Reset Verification Code"
	resetEmailBodyTmpl = "Your password reset verification code is: %s\n\nThis code will expire in 10 minutes."
)

/*
RequestPasswordReset begins the recovery handshake for the given email.

Description: Generates a one-time code, records it as the email's reset state,
and sends it to the account's address. An unknown email is NOT an error: the
caller responds identically either way, so the endpoint cannot be used to
probe which addresses have accounts.

Parameters:
  - context: context.Context
  - email: string (raw, will be normalized)

Returns:
  - error: Storage or delivery failures (never "account not found")
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	normalized := NormalizeEmail(email)

	user, err := service.users.FindByEmail(context, normalized)
	if err != nil {
		if ae := apperr.As(err); ae != nil && ae.HTTPStatus == http.StatusNotFound {
			// Unknown account. Swallow silently for anti-enumeration.
			service.logger.InfoContext(context, "password_reset_unknown_email")
			return nil
		}
		return fmt.Errorf("auth_reset_request_lookup_failed: %w", err)
	}

	code, err := sec.RandomString(sec.AlphabetDigits, ResetCodeLength)
	if err != nil {
		return fmt.Errorf("auth_reset_code_generation_failed: %w", err)
	}

	// Overwrites any in-flight reset for this email, retiring earlier codes
	// and tokens in one write.
	if err := service.writeResetState(context, normalized, resetState{
		Phase: resetPhaseCode,
		Value: code,
	}, ResetCodeTTL); err != nil {
		return err
	}

	body := fmt.Sprintf(resetEmailBodyTmpl, code)
	if err := service.mailer.Send(context, user.Email, resetEmailSubject, body); err != nil {
		return fmt.Errorf("auth_reset_email_send_failed: %w", err)
	}

	service.logger.InfoContext(context, "password_reset_code_sent",
		slog.String("user_id", user.ID),
	)

	return nil
}

/*
VerifyResetCode exchanges a correct emailed code for a reset token.

Description: The state record must be in the code phase and the submitted code
must match in constant time. On success the record is atomically replaced with
a token-phase record, so the code cannot be replayed even within its window.

Parameters:
  - context: context.Context
  - email: string (raw, will be normalized)
  - code: string (6 digits)

Returns:
  - string: Opaque reset token for the final step
  - error: apperr.InvalidOrExpired for every verification failure
*/
func (service *Service) VerifyResetCode(context context.Context, email, code string) (string, error) {
	normalized := NormalizeEmail(email)

	state, ok := service.readResetState(context, normalized)
	if !ok || state.Phase != resetPhaseCode {
		return "", apperr.InvalidOrExpired(msgInvalidCode)
	}

	if subtle.ConstantTimeCompare([]byte(state.Value), []byte(code)) != 1 {
		return "", apperr.InvalidOrExpired(msgInvalidCode)
	}

	token, err := sec.RandomString(sec.AlphabetToken, ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_reset_token_generation_failed: %w", err)
	}

	// Single-key swap: the same write that stores the token retires the code.
	if err := service.writeResetState(context, normalized, resetState{
		Phase: resetPhaseToken,
		Value: token,
	}, ResetTokenTTL); err != nil {
		return "", err
	}

	return token, nil
}

/*
ResetPassword completes the handshake and replaces the password.

Description: The state record must be in the token phase with a matching
token. The new password is hashed, the durable store updated, and the state
record deleted so the token is single-use. Sessions minted under the old
password stop resolving on their next request because their pinned credential
hash no longer matches.

Parameters:
  - context: context.Context
  - email: string (raw, will be normalized)
  - token: string
  - newPassword: string

Returns:
  - error: apperr.InvalidOrExpired, apperr.NotFound, or storage failures
*/
func (service *Service) ResetPassword(context context.Context, email, token, newPassword string) error {
	normalized := NormalizeEmail(email)

	state, ok := service.readResetState(context, normalized)
	if !ok || state.Phase != resetPhaseToken {
		return apperr.InvalidOrExpired(msgInvalidToken)
	}

	if subtle.ConstantTimeCompare([]byte(state.Value), []byte(token)) != 1 {
		return apperr.InvalidOrExpired(msgInvalidToken)
	}

	// The token has proven control of the mailbox; from here on a missing
	// account is a genuine 404, not an enumeration concern.
	user, err := service.users.FindByEmail(context, normalized)
	if err != nil {
		return err
	}

	newHash, err := service.hasher.Hash(context, []byte(newPassword))
	if err != nil {
		return fmt.Errorf("auth_reset_password_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, user.ID, newHash); err != nil {
		return fmt.Errorf("auth_reset_password_update_failed: %w", err)
	}

	// Single use: the handshake state must be gone the moment the password
	// lands. A failed delete leaves the token replayable, so it fails the
	// whole call; the password change survives and the client retries.
	if err := service.store.Delete(context, resetStateKey(normalized)); err != nil {
		return fmt.Errorf("auth_reset_state_cleanup_failed: %w", err)
	}

	// Drop the cached snapshot so the new hash is visible immediately.
	service.backend.InvalidateUser(context, user.ID)

	service.logger.InfoContext(context, "password_reset_completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// readResetState loads and decodes the reset record for an email.
//
// Fails closed: a store error or an undecodable record reads as "no reset in
// flight", which surfaces to the client as invalid-or-expired.
func (service *Service) readResetState(context context.Context, normalizedEmail string) (resetState, bool) {
	payload, found, err := service.store.Get(context, resetStateKey(normalizedEmail))
	if err != nil {
		service.logger.WarnContext(context, "password_reset_state_read_failed",
			slog.Any("error", err),
		)
		return resetState{}, false
	}
	if !found {
		return resetState{}, false
	}

	var state resetState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return resetState{}, false
	}

	return state, true
}

// writeResetState encodes and stores the reset record for an email.
func (service *Service) writeResetState(context context.Context, normalizedEmail string, state resetState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("auth_reset_state_encode_failed: %w", err)
	}

	if err := service.store.SetWithTTL(context, resetStateKey(normalizedEmail), string(payload), ttl); err != nil {
		return fmt.Errorf("auth_reset_state_write_failed: %w", err)
	}

	return nil
}

// resetStateKey builds the storage key for an email's reset record.
func resetStateKey(normalizedEmail string) string {
	return constants.RedisPrefixResetState + normalizedEmail
}
