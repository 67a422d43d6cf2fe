/*
identity.go - Trusted-header identity middleware

PURPOSE:
  The service sits behind an authenticating proxy that injects the
  caller's identity as headers. This middleware lifts those headers into
  the request context; handlers read the caller through CallerFrom and
  never parse headers themselves.

HEADERS:
  X-Employee-Id:     required, 401 when missing
  X-Employee-Name:   optional display name
  X-Employee-Email:  optional email
  X-Employee-Admin:  "true" marks an admin caller

ADMIN GATING:
  RequireAdmin wraps the /api/admin subtree and answers 403 for
  non-admin callers.

CRON GATING:
  RequireCronSecret guards the /api/cron subtree with a shared bearer
  secret and answers 401 on mismatch, before any side effect runs.

SEE ALSO:
  - server.go: Middleware wiring
*/
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Caller is the authenticated identity handlers act on behalf of.
type Caller struct {
	ID    string
	Name  string
	Email string
	Admin bool
}

type callerKey struct{}

// CallerFrom returns the caller stored by Identity. The zero Caller is
// only possible on routes mounted outside the middleware.
func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

// Identity extracts the trusted identity headers and rejects requests
// that carry none.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Employee-Id"))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		caller := Caller{
			ID:    id,
			Name:  r.Header.Get("X-Employee-Name"),
			Email: r.Header.Get("X-Employee-Email"),
			Admin: strings.EqualFold(r.Header.Get("X-Employee-Admin"), "true"),
		}

		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin callers.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFrom(r.Context()).Admin {
			writeError(w, http.StatusForbidden, "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCronSecret guards scheduled-trigger endpoints with a shared
// bearer secret.
func RequireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if secret == "" || !ok ||
				subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid cron secret", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
