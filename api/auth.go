package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/appo-client/users"
)

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	User         users.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Login exchanges credentials for a credential pair and stores it. A rejected
// login is returned as is and never triggers a renewal.
func (c *Client) Login(ctx context.Context, creds users.Credentials) (*AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, &Error{Message: err.Error(), Code: CodeRequestError, cause: err}
	}
	return c.authenticate(ctx, LoginPath, creds)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, reg users.Registration) (*AuthResponse, error) {
	if err := reg.Validate(); err != nil {
		return nil, &Error{Message: err.Error(), Code: CodeRequestError, cause: err}
	}
	return c.authenticate(ctx, RegisterPath, reg)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	req, err := newRequest(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.anonymous = true
	req.noRenew = true

	var auth AuthResponse
	if err := c.do(ctx, req, &auth); err != nil {
		return nil, err
	}
	c.tokens.Write(ctx, auth.AccessToken, auth.RefreshToken)
	return &auth, nil
}

// Logout revokes the refresh token with the service, best effort, and always
// clears the stored credentials.
func (c *Client) Logout(ctx context.Context) error {
	defer c.tokens.Clear(context.WithoutCancel(ctx))

	refreshToken, ok := c.tokens.RefreshToken(ctx)
	if !ok {
		return nil
	}
	req, err := newRequest(http.MethodPost, LogoutPath, logoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	req.noRenew = true
	return c.do(ctx, req, nil)
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := c.Get(ctx, ProfilePath, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile sends a partial update of the signed-in user.
func (c *Client) UpdateProfile(ctx context.Context, patch users.Patch) (*users.User, error) {
	var u users.User
	if err := c.Patch(ctx, ProfilePath, patch, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
