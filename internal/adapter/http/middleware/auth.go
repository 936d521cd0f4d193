package middleware

import (
	"net/http"
	"strings"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/auth"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and stores the caller identity in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), err.Error())
				return
			}

			ctx := withIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Header names read by TrustedHeaders.
const (
	UserIDHeader = "X-User-Id"
	RoleHeader   = "X-User-Role"
)

// TrustedHeaders takes the caller identity from gateway-set headers. It is
// only installed when token auth is disabled, for local development behind a
// trusted proxy.
func TrustedHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), "missing "+UserIDHeader+" header")
			return
		}

		role := domain.Role(strings.ToLower(r.Header.Get(RoleHeader)))
		if role == "" {
			role = domain.RoleCustomer
		}
		if !role.IsValid() {
			writeError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), "unknown role")
			return
		}

		ctx := withIdentity(r.Context(), &domain.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := domain.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), "unauthorized")
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, string(domain.KindForbidden), "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
