package devserver

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/token/jwt"
	"github.com/jrsteele09/appo-client/users"
)

const issuer = "appo-devserver"

// Issuer signs and verifies HS256 access tokens carrying a jwt.Payload.
type Issuer struct {
	secret  []byte
	expiry  time.Duration
	now     func() time.Time
	revoked *RevokedTokens
}

func NewIssuer(secret string, expiry time.Duration, now func() time.Time) *Issuer {
	return &Issuer{secret: []byte(secret), expiry: expiry, now: now, revoked: NewRevokedTokens(now)}
}

// CreateAccessToken signs a token for user that expires after the configured expiry.
func (i *Issuer) CreateAccessToken(user *users.User) (string, error) {
	now := i.now()
	claims := jwt.Payload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.expiry)),
			ID:        uuid.New().String(), // Unique token ID
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of raw.
func (i *Issuer) Verify(raw string) (*jwt.Payload, error) {
	var payload jwt.Payload
	_, err := jwtlib.ParseWithClaims(raw, &payload, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwtlib.WithIssuer(issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(i.now),
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if apperrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	if i.revoked.IsRevoked(payload.ID) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "token %s revoked", payload.ID)
	}
	return &payload, nil
}

// Revoke rejects the token from now until it would have expired anyway.
func (i *Issuer) Revoke(payload *jwt.Payload) {
	if payload.ID == "" {
		return
	}
	i.revoked.Add(payload.ID, payload.ExpiresAt())
}
