// Package token implements the bearer-token side of the identity
// collaborator boundary: HS256 JWT validation carrying the caller's user ID
// and role. Token issuance lives with the identity service, not here.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"covergate/internal/platform/middleware"
	id "covergate/pkg/domain"
	"covergate/pkg/requestcontext"
)

// Validator validates HS256-signed bearer tokens.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a token, returning the caller identity.
func (v *Validator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return nil, errors.New("token is not valid")
	}

	userID, err := id.ParseUserID(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}

	role := requestcontext.Role(c.Role)
	if role != requestcontext.RoleUser && role != requestcontext.RoleAdmin {
		return nil, fmt.Errorf("unknown role claim %q", c.Role)
	}

	return &middleware.TokenClaims{UserID: userID, Role: role}, nil
}

// Sign mints a token for the given identity. The real issuer is the external
// identity service; this helper exists for tests and local tooling.
func (v *Validator) Sign(userID id.UserID, role requestcontext.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(v.signingKey)
}
