// Package auth issues session tokens and publishes session changes.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that are malformed, forged, expired
// or missing a session id.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed body of a session token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenExpiry is the session lifetime.
const TokenExpiry = 7 * 24 * time.Hour

var signingMethod = jwt.SigningMethodHS256

// Issue signs a token for the user and returns it with the session it opens.
// Every token carries a fresh id so it can be revoked on its own.
func Issue(secret string, userID int64, username, role string) (string, Session, error) {
	return issue(secret, userID, username, role, time.Now())
}

func issue(secret string, userID int64, username, role string, now time.Time) (string, Session, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", Session{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, SessionFromClaims(claims), nil
}

// ValidateToken parses and verifies a token, returning its claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseSession validates a token and returns the session it carries.
func ParseSession(secret, tokenStr string) (Session, error) {
	claims, err := ValidateToken(secret, tokenStr)
	if err != nil {
		return Session{}, err
	}
	return SessionFromClaims(claims), nil
}
