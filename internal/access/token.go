package access

import (
	"errors"
	"fmt"
	"time"

	"deals-portal/internal/biddingerrors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a user as asserted by the identity provider.
// The admin capability is never read from a token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for uid, valid for ttl
func IssueToken(secret []byte, uid, email string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("issue token: empty signing secret")
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates the signature and expiry of tokenString
func ParseToken(secret []byte, tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %v: %w", err, biddingerrors.ErrUnauthenticated)
	}
	if !token.Valid || claims.Subject == "" {
		return Claims{}, fmt.Errorf("parse token: missing subject: %w", biddingerrors.ErrUnauthenticated)
	}
	return claims, nil
}
