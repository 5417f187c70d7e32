package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

// AuthMiddleware resolves the session credential on HTTP requests into a
// Principal. The same verifier gates the realtime handshake, so both paths
// authenticate identically.
type AuthMiddleware struct {
	verifier *auth.Verifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth verifies the Authorization bearer credential and stores the
// resolved Principal in the request context. Verification failure is a hard
// 401; there is no guest downgrade for malformed credentials.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		principal, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid credential")
			return
		}

		// Surface the identity to the request logger further out in the chain
		if holder, ok := r.Context().Value(principalLogKey{}).(*principalLog); ok {
			holder.p = principal
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetPrincipalFromContext retrieves the authenticated principal from the
// request context.
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	principal, ok := ctx.Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
