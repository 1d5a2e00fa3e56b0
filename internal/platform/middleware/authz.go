// Copyright (c) 2026 Roomkeeper. All rights reserved.

package middleware

import (
	"context"
	"net/http"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/constants"
	"github.com/campuslab/roomkeeper/internal/platform/ctxutil"
	"github.com/campuslab/roomkeeper/internal/platform/respond"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
)

// SessionResolver defines the interface needed to resolve sessions in middleware.
//
// # Why an interface?
//
// Defining SessionResolver here decouples the middleware from the `auth`
// backend implementation, allowing us to easily inject mocks during unit
// testing.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*sec.Identity, error)
}

// Authenticate resolves the session cookie into a caller identity.
//
// # Flow
//  1. Check for the session cookie.
//  2. If absent, request proceeds as anonymous.
//  3. If present, resolve the session via [SessionResolver]. Resolution
//     re-checks the caller's current credentials, so a stale session (for
//     example after a password change) fails here.
//  4. On failure, expire the cookie and proceed as anonymous.
//  5. On success, inject the [*sec.Identity] into the request context.
//
// # Parameters
//   - resolver: The SessionResolver instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Anonymous Access ───────────────────────────────────────────
			cookie, err := request.Cookie(constants.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Session Resolution ─────────────────────────────────────────
			identity, err := resolver.ResolveSession(request.Context(), cookie.Value)
			if err != nil {
				ExpireSessionCookie(writer)
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.Identity] exists in context.
//  2. If missing, abort with HTTP 401 Unauthorized.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity := ctxutil.GetAuthUser(request.Context())
		if identity == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
//
// # Flow
//  1. Check if [*sec.Identity] exists in context (implies AuthN).
//  2. Check if the user's role matches the required role via [sec.Identity.HasRole].
//  3. If insufficient, abort with HTTP 403 Forbidden.
func RequireRole(role sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetAuthUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.HasRole(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// ExpireSessionCookie instructs the client to drop its session cookie.
func ExpireSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
