// Package auth реализует проверку bearer-токенов внешнего поставщика идентификации.
package auth

import (
	"errors"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired возвращается, если срок действия токена истёк.
var (
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked возвращается, если токен был отозван.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenMalformed возвращается, если токен имеет некорректный формат или подпись.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid возвращается для прочих ошибок проверки токена.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims содержит проверенные атрибуты личности вызывающего.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	AuthTime      time.Time
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

type tokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	AuthTime      int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// JWTVerifier проверяет подписанные HS256 токены и ведёт список отозванных.
type JWTVerifier struct {
	secret []byte

	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewJWTVerifier создаёт верификатор токенов с указанным секретным ключом.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret:  []byte(secret),
		revoked: make(map[string]struct{}),
	}
}

// Revoke помечает токен с указанным идентификатором (jti) как отозванный.
func (v *JWTVerifier) Revoke(tokenID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revoked[tokenID] = struct{}{}
}

func (v *JWTVerifier) isRevoked(tokenID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.revoked[tokenID]
	return ok
}

// Verify проверяет токен и возвращает атрибуты личности вызывающего.
func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrTokenInvalid
	}

	tok, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}

	c, ok := tok.Claims.(*tokenClaims)
	if !ok || c.Subject == "" {
		return nil, ErrTokenMalformed
	}

	if c.ID != "" && v.isRevoked(c.ID) {
		return nil, ErrTokenRevoked
	}

	claims := &Claims{
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
		Picture:       c.Picture,
	}
	if c.AuthTime != 0 {
		claims.AuthTime = time.Unix(c.AuthTime, 0)
	}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}

	return claims, nil
}
