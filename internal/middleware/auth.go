package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lumichat/backend/internal/service/auth"
	"github.com/lumichat/backend/pkg/utils"
)

type contextKey string

const claimsKey = contextKey("adminClaims")

// RequireAdmin rejects requests lacking a valid bearer token and stores
// the verified claims on the request context.
func RequireAdmin(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := authSvc.VerifyToken(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaims extracts the verified claims stored by RequireAdmin.
func AdminClaims(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.Claims)
	return claims, ok
}
