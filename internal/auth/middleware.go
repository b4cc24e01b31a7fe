package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/track-invoice/track-invoice/internal/platform/httpx"
	"github.com/track-invoice/track-invoice/internal/shared"
)

// Middleware resolves bearer tokens into a shared.Principal.
type Middleware struct {
	Sessions *SessionStore
	Logger   *slog.Logger
}

// Authenticate attaches the principal for a valid bearer token. Requests
// without a token pass through anonymously; an invalid token is rejected.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Sessions.Lookup(r.Context(), token)
		if err != nil {
			if httpx.StatusFor(err) >= http.StatusInternalServerError && m.Logger != nil {
				m.Logger.Error("session lookup", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole ensures the caller is logged in with one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := shared.PrincipalFromContext(r.Context())
			if p == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
