package token

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Fixed storage keys of the credential pair.
const (
	AccessTokenKey  = "appo_access_token"
	RefreshTokenKey = "appo_refresh_token"
)

// Kind selects one half of the credential pair.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

func (k Kind) Key() string {
	if k == Refresh {
		return RefreshTokenKey
	}
	return AccessTokenKey
}

// Custodian persists the access and refresh tokens. Tokens are opaque here.
//
// Every operation is best effort: a storage failure is logged and reads as an
// absent token, writes and clears fail silently. Callers never see an error.
type Custodian struct {
	storage Storage
	logger  zerolog.Logger
}

type CustodianOption func(*Custodian)

func WithLogger(logger zerolog.Logger) CustodianOption {
	return func(c *Custodian) {
		c.logger = logger
	}
}

// NewCustodian wraps storage. A nil storage falls back to process memory.
func NewCustodian(storage Storage, options ...CustodianOption) *Custodian {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	c := &Custodian{
		storage: storage,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Read returns the stored token of the given kind. Empty values count as absent.
func (c *Custodian) Read(ctx context.Context, kind Kind) (string, bool) {
	value, ok, err := c.storage.Get(ctx, kind.Key())
	if err != nil {
		c.logger.Warn().Err(err).Str("token", string(kind)).Msg("token storage read failed")
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (c *Custodian) AccessToken(ctx context.Context) (string, bool) {
	return c.Read(ctx, Access)
}

func (c *Custodian) RefreshToken(ctx context.Context) (string, bool) {
	return c.Read(ctx, Refresh)
}

// Write stores both halves of a credential pair.
func (c *Custodian) Write(ctx context.Context, access, refresh string) {
	c.set(ctx, Access, access)
	c.set(ctx, Refresh, refresh)
}

// WriteAccess replaces the access token and keeps the stored refresh token.
func (c *Custodian) WriteAccess(ctx context.Context, access string) {
	c.set(ctx, Access, access)
}

// Clear removes both tokens.
func (c *Custodian) Clear(ctx context.Context) {
	for _, kind := range []Kind{Access, Refresh} {
		if err := c.storage.Remove(ctx, kind.Key()); err != nil {
			c.logger.Warn().Err(err).Str("token", string(kind)).Msg("token storage clear failed")
		}
	}
}

// Token returns the stored pair as a bearer oauth2.Token. Absent halves are empty.
func (c *Custodian) Token(ctx context.Context) *oauth2.Token {
	access, _ := c.AccessToken(ctx)
	refresh, _ := c.RefreshToken(ctx)
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
}

func (c *Custodian) set(ctx context.Context, kind Kind, value string) {
	if err := c.storage.Set(ctx, kind.Key(), value); err != nil {
		c.logger.Warn().Err(err).Str("token", string(kind)).Msg("token storage write failed")
	}
}
