package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	// CallerContextKey is the key used to store service claims in context
	CallerContextKey contextKey = "caller"
)

// Middleware creates an authentication middleware requiring a valid
// service token on every request.
func Middleware(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := service.ValidateToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CallerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCallerFromContext retrieves service claims from the request context
func GetCallerFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(CallerContextKey).(*Claims)
	return claims, ok
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}
