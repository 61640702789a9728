package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cleancity/waste-collection-api/models"
)

// CredentialTTL is the fixed lifetime of an issued credential
const CredentialTTL = 7 * 24 * time.Hour

// ErrCredentialInvalid covers malformed or badly signed credentials
var ErrCredentialInvalid = errors.New("credential invalid")

// ErrCredentialExpired covers credentials past their expiry
var ErrCredentialExpired = errors.New("credential expired")

// Claims is the payload of an issued credential
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewCredential issues a signed credential for the user id and role
func NewCredential(userID string, role models.Role, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(CredentialTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyCredential parses and validates a credential string. Expired and
// malformed credentials yield distinct errors, though callers map both to
// the same unauthenticated outcome.
func VerifyCredential(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, ErrCredentialInvalid
	}
	if !token.Valid {
		return nil, ErrCredentialInvalid
	}
	return claims, nil
}
