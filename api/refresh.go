package api

import (
	"context"
	"net/http"
	"sync"

	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const renewalKey = "refresh"

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// renewal is the shared outcome of one exchange. The listener is told once,
// after the exchange has settled.
type renewal struct {
	token  *oauth2.Token
	notify sync.Once
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// renew makes sure the stored access token is newer than sentToken.
//
// At most one renewal exchange is in flight: callers arriving while one runs
// wait for it and share its outcome. A caller whose rejected token has already
// been replaced by a settled renewal replays straight away.
func (c *Client) renew(ctx context.Context, sentToken string) error {
	c.renewMu.Lock()
	if current, ok := c.tokens.AccessToken(ctx); ok && current != sentToken {
		c.renewMu.Unlock()
		return nil
	}
	ch := c.renewals.DoChan(renewalKey, func() (any, error) {
		// The exchange outlives any single caller; the client timeout still applies.
		return c.refreshTokens(context.WithoutCancel(ctx))
	})
	c.renewMu.Unlock()

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Msg("joined in-flight token renewal")
		}
		c.announce(res)
		return res.Err
	case <-ctx.Done():
		go func() { c.announce(<-ch) }()
		return networkError(ctx.Err())
	}
}

// announce hands a successful renewal to the listener. It runs once the
// renewal key is released, so the listener may call back into the Client.
func (c *Client) announce(res singleflight.Result) {
	r, ok := res.Val.(*renewal)
	if res.Err != nil || !ok || c.onRenewal == nil {
		return
	}
	r.notify.Do(func() { c.onRenewal(r.token) })
}

// refreshTokens performs the renewal exchange and persists the new pair.
func (c *Client) refreshTokens(ctx context.Context) (*renewal, error) {
	refreshToken, ok := c.tokens.RefreshToken(ctx)
	if !ok {
		c.metrics.refreshes.WithLabelValues(refreshMissing).Inc()
		c.endSession(ctx, ReasonNoRefreshToken, apperrors.ErrNoRefreshToken)
		return nil, unauthorizedError("No refresh token available", apperrors.ErrNoRefreshToken)
	}

	req, err := newRequest(http.MethodPost, RefreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	req.anonymous = true
	req.noRenew = true

	var pair refreshResponse
	resp, _, err := c.send(ctx, req)
	if err == nil {
		err = decode(resp, &pair)
	}
	if err == nil && pair.AccessToken == "" {
		err = apperrors.ErrInvalidToken
	}
	if err != nil {
		c.metrics.refreshes.WithLabelValues(refreshRejected).Inc()
		c.endSession(ctx, ReasonRefreshRejected, err)
		return nil, unauthorizedError("Token refresh failed", err)
	}

	// A service that does not rotate refresh tokens leaves the old one valid.
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	c.renewMu.Lock()
	c.tokens.Write(ctx, pair.AccessToken, pair.RefreshToken)
	c.renewMu.Unlock()

	c.metrics.refreshes.WithLabelValues(refreshSuccess).Inc()
	c.logger.Debug().Msg("token renewal succeeded")
	return &renewal{token: &oauth2.Token{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, TokenType: "Bearer"}}, nil
}

// endSession clears the credentials and asks the host to navigate away.
func (c *Client) endSession(ctx context.Context, reason Reason, cause error) {
	c.renewMu.Lock()
	c.tokens.Clear(ctx)
	c.renewMu.Unlock()

	c.logger.Warn().Err(cause).Str("reason", string(reason)).Msg("token renewal failed, credentials cleared")
	c.navigate(Redirect{Path: c.loginPath, Reason: reason})
}
