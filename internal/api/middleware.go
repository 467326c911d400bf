// Package api implements the Recall REST API using chi.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type ownerKey struct{}

// WithOwner returns a context carrying the caller's owner identity.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner identity set by AuthMiddleware.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// AuthMiddleware returns middleware that validates a Bearer token and
// attaches owner to the request context.
// If enabled is false, all requests pass through as owner (disabled mode).
func AuthMiddleware(enabled bool, token, owner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled {
				auth := r.Header.Get("Authorization")
				got := strings.TrimPrefix(auth, "Bearer ")
				if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
