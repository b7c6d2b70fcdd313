// Package middleware содержит HTTP middleware для сервиса заказов.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mmeshcher/rideorders-system/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

const bearerPrefix = "Bearer "

// TokenVerifier определяет контракт проверки bearer-токена.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware выполняет проверку аутентификации пользователя по bearer-токену.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным верификатором токенов.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Middleware проверяет заголовок Authorization и добавляет атрибуты личности в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Префикс схемы проверяется с учётом регистра, остаток не может быть пустым.
		if !strings.HasPrefix(header, bearerPrefix) || header == bearerPrefix {
			writeJSONError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token := header[len(bearerPrefix):]

		claims, err := a.verifier.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, authErrorMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "Token revoked"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "Invalid token"
	default:
		return "Authentication failed"
	}
}

// GetClaimsFromContext извлекает атрибуты личности вызывающего из контекста запроса.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
