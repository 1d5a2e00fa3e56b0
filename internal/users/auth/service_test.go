// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
	"github.com/campuslab/roomkeeper/internal/users/auth"
	"github.com/campuslab/roomkeeper/pkg/pagination"
	"github.com/campuslab/roomkeeper/pkg/pointer"
)

/*
TestService_Register covers enrollment: hashing, normalization, default role,
and uniqueness conflicts.
*/
func TestService_Register(t *testing.T) {
	hasher := testHasher(t)
	existing := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		fx := newTestFixture(t)

		user, err := fx.service.Register(ctx, auth.RegisterInput{
			Username:    "bob",
			Email:       "  Bob@Campus.EDU ",
			Password:    "a sturdy passphrase",
			PhoneNumber: "0912345678",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "bob@campus.edu", user.Email)
		assert.Equal(t, sec.RoleUser, user.Role)

		// The password is stored only as a hash.
		assert.NotEqual(t, "a sturdy passphrase", user.PasswordHash)
		assert.NotEmpty(t, user.PasswordHash)

		_, err = fx.backend.Authenticate(ctx, "bob@campus.edu", "a sturdy passphrase")
		assert.NoError(t, err)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		fx := newTestFixture(t, existing)

		_, err := fx.service.Register(ctx, auth.RegisterInput{
			Username: "alice2",
			Email:    "ALICE@campus.edu",
			Password: "pw",
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "Email is already registered", ae.Message)
	})

	t.Run("duplicate_username", func(t *testing.T) {
		fx := newTestFixture(t, existing)

		_, err := fx.service.Register(ctx, auth.RegisterInput{
			Username: "alice",
			Email:    "other@campus.edu",
			Password: "pw",
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "Username is already taken", ae.Message)
	})
}

/*
TestService_LoginLogout checks the session lifecycle around credential
verification.
*/
func TestService_LoginLogout(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "correct pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	session, err := fx.service.Login(ctx, auth.LoginInput{
		Email:    "Alice@Campus.edu",
		Password: "correct pw",
	})
	require.NoError(t, err)
	assert.Len(t, session.SessionID, auth.SessionIDLength)
	assert.Equal(t, "user-1", session.User.ID)

	identity, err := fx.backend.ResolveSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)

	require.NoError(t, fx.service.Logout(ctx, session.SessionID))

	_, err = fx.backend.ResolveSession(ctx, session.SessionID)
	assert.Error(t, err)

	// Logging out an already-dead session still succeeds.
	assert.NoError(t, fx.service.Logout(ctx, session.SessionID))
}

/*
TestService_Login_BadCredentials verifies the uniform rejection.
*/
func TestService_Login_BadCredentials(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "correct pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)

	_, err := fx.service.Login(context.Background(), auth.LoginInput{
		Email:    "alice@campus.edu",
		Password: "wrong pw",
	})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Invalid login credentials", ae.Message)
}

/*
TestService_ChangePassword covers self-service rotation: the caller's own
session survives, every other session of the account dies.
*/
func TestService_ChangePassword(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "old pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	ownSession, err := fx.service.Login(ctx, auth.LoginInput{Email: "alice@campus.edu", Password: "old pw"})
	require.NoError(t, err)
	otherSession, err := fx.service.Login(ctx, auth.LoginInput{Email: "alice@campus.edu", Password: "old pw"})
	require.NoError(t, err)

	require.NoError(t, fx.service.ChangePassword(ctx, "user-1", "old pw", "new pw", ownSession.SessionID))

	// Credentials rotated.
	_, err = fx.backend.Authenticate(ctx, "alice@campus.edu", "old pw")
	assert.Error(t, err)
	_, err = fx.backend.Authenticate(ctx, "alice@campus.edu", "new pw")
	assert.NoError(t, err)

	// The caller stays signed in; the other device does not.
	_, err = fx.backend.ResolveSession(ctx, ownSession.SessionID)
	assert.NoError(t, err)
	_, err = fx.backend.ResolveSession(ctx, otherSession.SessionID)
	assert.Error(t, err)
}

/*
TestService_ChangePassword_WrongCurrent verifies that rotation demands the
current password.
*/
func TestService_ChangePassword_WrongCurrent(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "old pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)

	err := fx.service.ChangePassword(context.Background(), "user-1", "guessed pw", "new pw", "irrelevant")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Current password is incorrect", ae.Message)
}

/*
TestService_UpdateProfile covers partial profile updates.
*/
func TestService_UpdateProfile(t *testing.T) {
	hasher := testHasher(t)
	alice := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	bob := seedUser(t, hasher, "user-2", "bob", "bob@campus.edu", "pw", sec.RoleUser)
	ctx := context.Background()

	t.Run("partial_update", func(t *testing.T) {
		fx := newTestFixture(t, alice)

		user, err := fx.service.UpdateProfile(ctx, "user-1", auth.UpdateProfileInput{
			PhoneNumber: pointer.To("0987654321"),
		})
		require.NoError(t, err)
		assert.Equal(t, "0987654321", user.PhoneNumber)
		assert.Equal(t, "alice", user.Username, "omitted fields stay untouched")
	})

	t.Run("username_taken", func(t *testing.T) {
		fx := newTestFixture(t, alice, bob)

		_, err := fx.service.UpdateProfile(ctx, "user-1", auth.UpdateProfileInput{
			Username: pointer.To("bob"),
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "Username is already taken", ae.Message)
	})

	t.Run("same_username_is_noop", func(t *testing.T) {
		fx := newTestFixture(t, alice)

		user, err := fx.service.UpdateProfile(ctx, "user-1", auth.UpdateProfileInput{
			Username: pointer.To("alice"),
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("unknown_user", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.service.UpdateProfile(ctx, "ghost", auth.UpdateProfileInput{
			Username: pointer.To("ghost"),
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, 404, ae.HTTPStatus)
	})
}

/*
TestService_ListUsers checks the paginated admin listing.
*/
func TestService_ListUsers(t *testing.T) {
	hasher := testHasher(t)
	alice := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	bob := seedUser(t, hasher, "user-2", "bob", "bob@campus.edu", "pw", sec.RoleAdmin)
	fx := newTestFixture(t, alice, bob)

	users, meta, err := fx.service.ListUsers(context.Background(), pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, meta.Total)
}
