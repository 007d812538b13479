// Package authmw provides HTTP middleware for bearer token authentication
// with per-role tokens.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
)

// Role is the caller's relationship to the mother.
type Role string

const (
	RoleMother Role = "mother"
	RoleFamily Role = "family"
)

type roleKey struct{}

// WithRole returns a copy of ctx carrying role.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFrom returns the authenticated role, if any.
func RoleFrom(ctx context.Context) (Role, bool) {
	r, ok := ctx.Value(roleKey{}).(Role)
	return r, ok
}

// Tokens maps each role to its bearer token. Roles with an empty token
// cannot authenticate.
type Tokens map[Role]string

// match returns the role whose token equals got. Every configured token is
// compared so timing does not reveal which role matched.
func (t Tokens) match(got []byte) (Role, bool) {
	var found Role
	ok := false
	for role, tok := range t {
		if tok == "" {
			continue
		}
		if subtle.ConstantTimeCompare(got, []byte(tok)) == 1 {
			found, ok = role, true
		}
	}
	return found, ok
}

// Authenticate returns middleware that resolves the caller's role from the
// Authorization header. Websocket clients that cannot set headers may pass
// the token as the access_token query parameter instead.
func Authenticate(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			role, ok := tokens.match([]byte(token))
			if !ok {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		})
	}
}

// Require returns middleware that rejects callers whose role is not in roles.
// It must run after Authenticate.
func Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFrom(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, role) {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, "Bearer ") {
			return "", false
		}
		return auth[len("Bearer "):], true
	}
	if tok := r.URL.Query().Get("access_token"); tok != "" {
		return tok, true
	}
	return "", false
}
