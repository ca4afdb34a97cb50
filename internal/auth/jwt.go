package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/careloop/careline/internal/models"
)

// Claims is the payload inside every JWT token.
//
// The token carries everything the messaging core needs to know about WHO
// is calling — role, clinic, contact details — so request handling never
// has to hit the accounts table just to establish identity.
//
// TenantID is a pointer because patient accounts are not always
// clinic-scoped; the claim is simply omitted for them.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	Role     models.Role `json:"role"`
	TenantID *uuid.UUID  `json:"tenant_id,omitempty"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the verified claims into the domain actor handed to the
// messaging core.
func (c *Claims) Actor() models.Actor {
	return models.Actor{
		UserID:   c.UserID,
		Role:     c.Role,
		TenantID: c.TenantID,
		Email:    c.Email,
		Phone:    c.Phone,
	}
}

// GenerateToken creates a signed HS256 JWT for an account.
//
// HMAC with one shared secret is enough here: this service both issues and
// verifies its own tokens. If a separate service ever needed to verify
// without being able to issue, this would move to RS256.
func GenerateToken(account *models.Account, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:   account.ID,
		Role:     account.Role,
		TenantID: account.TenantID,
		Email:    account.Email,
		Phone:    account.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "careline",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string (signature, expiry, signing method)
// and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		// Reject anything but HMAC. Without this check an attacker could
		// submit a token signed with "none" or an RSA public key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
