package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenTTL is the fixed lifetime of issued tokens
const SessionTokenTTL = time.Hour

// TokenVariant is one of the two token shapes this API issues. Session
// tokens carry the role and email inline; legacy tokens carry only a
// user id and require a lookup to resolve the rest.
type TokenVariant interface {
	isTokenVariant()
}

// SessionToken embeds the full identity, no database round trip needed
type SessionToken struct {
	ID    string
	Role  string
	Email string
}

// LegacyToken embeds only the user id
type LegacyToken struct {
	ID string
}

func (SessionToken) isTokenVariant() {}
func (LegacyToken) isTokenVariant()  {}

type tokenClaims struct {
	ID    string `json:"id"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a token carrying id, role and email
func IssueSessionToken(secret, id, role, email string) (string, error) {
	claims := tokenClaims{
		ID:    id,
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// IssueResetToken signs a narrower-purpose token carrying only the user id.
// Exchanging it for a new password requires the OTP-verified flag.
func IssueResetToken(secret, id string) (string, error) {
	claims := tokenClaims{
		ID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// DecodeToken verifies the signature and expiry, then discriminates the
// payload into one of the two explicit token variants.
func DecodeToken(secret, tokenString string) (TokenVariant, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token carries no user id")
	}
	if claims.Role != "" {
		return SessionToken{ID: claims.ID, Role: claims.Role, Email: claims.Email}, nil
	}
	return LegacyToken{ID: claims.ID}, nil
}
