// Package jwt decodes the claims of an access token for display. Nothing here
// verifies a signature; the remote service remains the only authority.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/appo-client/users"
)

// Payload is the claim set carried by Appo access tokens.
type Payload struct {
	UserID string         `json:"userId"`
	Email  string         `json:"email"`
	Role   users.RoleType `json:"role"`
	jwt.RegisteredClaims
}

// ParsePayload decodes raw without verifying it.
func ParsePayload(raw string) (*Payload, error) {
	var p Payload
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &p); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	if p.UserID == "" {
		p.UserID = p.Subject
	}
	return &p, nil
}

// ExpiresAt returns the exp claim, zero when absent.
func (p *Payload) ExpiresAt() time.Time {
	if p.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return p.RegisteredClaims.ExpiresAt.Time
}

// IssuedAt returns the iat claim, zero when absent.
func (p *Payload) IssuedAt() time.Time {
	if p.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return p.RegisteredClaims.IssuedAt.Time
}

// Expired reports whether exp is set and not after now.
func (p *Payload) Expired(now time.Time) bool {
	exp := p.ExpiresAt()
	return !exp.IsZero() && !exp.After(now)
}
