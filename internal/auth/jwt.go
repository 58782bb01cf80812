// Package auth issues and validates the bearer tokens that carry the caller identity, and
// resolves that identity to a user id.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
)

// GenerateToken returns an HS256 signed token whose subject is the user id.
func GenerateToken(userId int64, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userId, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	})
	return token.SignedString(secretKey)
}

// CallerFromToken validates the token and returns the caller identity stored as its subject.
func CallerFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}

// ResolveUserId turns a caller identity into the integer user id that owns data. An empty
// identity yields common.ErrUnauthenticated. A non-integer identity yields an error that matches
// both common.ErrInvalidCaller and common.ErrUnauthenticated.
func ResolveUserId(caller string) (int64, error) {
	if caller == "" {
		return 0, common.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(caller, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %w: %q", common.ErrUnauthenticated, common.ErrInvalidCaller, caller)
	}
	return id, nil
}
