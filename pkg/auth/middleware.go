package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

type claimsKey struct{}

// ClaimsFromContext claims, положенные RequireToken
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// RequireToken промежуточное ПО: пропускает запросы с токеном выбранного окружения
func RequireToken(inspector *Inspector, apiURL string, logger interfaces.LoggerPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			claims, err := inspector.Inspect(parts[1])
			if err == nil {
				err = CheckEnvironment(claims, apiURL)
			}
			if err != nil {
				logger.Warn("Запрос с недействительным токеном",
					interfaces.LogField{Key: "error", Value: err.Error()})
				status := http.StatusUnauthorized
				if errors.Is(err, ErrEnvironmentMismatch) {
					status = http.StatusForbidden
				}
				http.Error(w, "Invalid token", status)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
