package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aiox-platform/autopilot/internal/api"
)

type contextKey string

const ClaimsKey contextKey = "access_claims"

func Middleware(jwt *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := jwt.ValidateAccessToken(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(ClaimsKey).(*AccessClaims)
	return claims
}

// Subject returns the authenticated subject of r, or "" for anonymous requests.
func Subject(r *http.Request) string {
	if c := GetClaims(r.Context()); c != nil {
		return "sub:" + c.Subject
	}
	return ""
}
