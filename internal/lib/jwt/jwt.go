package jwt

import (
	"errors"
	"fmt"
	"time"

	"signin_service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims - содержимое сессионного токена. Subject хранит id пользователя.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email,omitempty"`
	Name  string      `json:"name,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}

// * NewToken подписывает claims секретом (HS256) и выставляет iat/exp
func NewToken(claims Claims, secret string, ttl time.Duration, now time.Time) (string, error) {
	const op = "jwt.NewToken"

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// * Parse проверяет подпись и срок действия токена
func Parse(tokenStr, secret string) (*Claims, error) {
	const op = "jwt.Parse"

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}
