// Package api is the authenticated gateway to the Appo service. A Client
// attaches the stored access token to every call and, when the service answers
// 401, renews the credential pair once for all concurrent callers before
// replaying the failed call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/appo-client/internal/config"
	"github.com/jrsteele09/appo-client/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
	requestIDHeader  = "X-Request-ID"
)

// Reason tells a Navigator why the session was dropped.
type Reason string

const (
	ReasonNoRefreshToken  Reason = "no_refresh_token"
	ReasonRefreshRejected Reason = "refresh_rejected"
)

// Redirect asks the host environment to move the user to Path.
type Redirect struct {
	Path   string
	Reason Reason
}

// Navigator is invoked once per failed renewal, after the stored credentials
// have been cleared. The hosting environment decides what navigation means.
type Navigator func(Redirect)

// RenewalListener observes every credential pair produced by a renewal.
type RenewalListener func(*oauth2.Token)

type Client struct {
	baseURL   string
	timeout   time.Duration
	http      *http.Client
	tokens    *token.Custodian
	logger    zerolog.Logger
	navigate  Navigator
	onRenewal RenewalListener
	loginPath string
	registry  prometheus.Registerer
	metrics   *metrics

	renewals singleflight.Group
	renewMu  sync.Mutex // orders "has the token already changed?" against credential writes
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout bounds each HTTP exchange, including the shared renewal.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithCustodian(custodian *token.Custodian) Option {
	return func(c *Client) {
		if custodian != nil {
			c.tokens = custodian
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithNavigator(navigate Navigator) Option {
	return func(c *Client) {
		c.navigate = navigate
	}
}

// WithRenewalListener is called after a renewed pair has been stored.
func WithRenewalListener(listener RenewalListener) Option {
	return func(c *Client) {
		c.onRenewal = listener
	}
}

// WithLoginPath overrides the route reported in Redirect (default LoginRoute).
func WithLoginPath(path string) Option {
	return func(c *Client) {
		c.loginPath = path
	}
}

// WithMetrics registers the client's counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registry = reg
	}
}

// New builds a Client. Without options it talks to DefaultBaseURL and keeps
// tokens in process memory.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		http:      &http.Client{},
		logger:    log.Logger,
		loginPath: LoginRoute,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = token.NewCustodian(nil, token.WithLogger(c.logger))
	}
	if c.navigate == nil {
		logger := c.logger
		c.navigate = func(r Redirect) {
			logger.Info().Str("path", r.Path).Str("reason", string(r.Reason)).Msg("session ended, navigation requested")
		}
	}
	c.metrics = newMetrics(c.registry)
	return c
}

// FromConfig builds a Client from the APPO_API_* settings. Later options win.
func FromConfig(cfg config.APIConfig, options ...Option) *Client {
	base := []Option{
		WithBaseURL(cfg.GetAPIBaseURL()),
		WithTimeout(cfg.GetAPITimeout()),
	}
	return New(append(base, options...)...)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Tokens() *token.Custodian {
	return c.tokens
}

// SetAuthToken replaces the stored access token.
func (c *Client) SetAuthToken(ctx context.Context, accessToken string) {
	c.tokens.WriteAccess(ctx, accessToken)
}

// ClearAuthToken forgets both stored tokens.
func (c *Client) ClearAuthToken(ctx context.Context) {
	c.tokens.Clear(ctx)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs an authenticated call. body is JSON encoded when non-nil and a
// 2xx response body is decoded into out when out is non-nil. Every error is an *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	req, err := newRequest(method, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// request is one logical call. retried is the per-call flag that allows a
// single replay after renewal.
type request struct {
	method    string
	path      string
	payload   []byte
	anonymous bool // never carries the access token
	noRenew   bool // a 401 is returned as is
	retried   bool
}

func newRequest(method, path string, body any) (*request, error) {
	req := &request{method: method, path: path}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, requestError(err)
		}
		req.payload = payload
	}
	return req, nil
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) do(ctx context.Context, req *request, out any) error {
	resp, sentToken, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && !req.noRenew && !req.retried {
		req.retried = true
		if err := c.renew(ctx, sentToken); err != nil {
			return err
		}
		if resp, _, err = c.send(ctx, req); err != nil {
			return err
		}
	}

	return decode(resp, out)
}

func decode(resp response, out any) error {
	if !resp.ok() {
		return serverError(resp.status, resp.body)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &Error{
			Message:    "Malformed response body",
			StatusCode: resp.status,
			cause:      err,
		}
	}
	return nil
}

// send performs one HTTP exchange and returns the access token it carried.
func (c *Client) send(ctx context.Context, req *request) (response, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.payload != nil {
		body = bytes.NewReader(req.payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.url(req.path), body)
	if err != nil {
		return response{}, "", requestError(err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)

	var sentToken string
	if !req.anonymous {
		if tok := c.tokens.Token(ctx); tok.AccessToken != "" {
			tok.SetAuthHeader(httpReq)
			sentToken = tok.AccessToken
		}
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.requests.WithLabelValues(req.method, "0").Inc()
		c.logger.Debug().Err(err).Str("method", req.method).Str("path", req.path).Str("request_id", requestID).Msg("request failed")
		return response{}, sentToken, networkError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.requests.WithLabelValues(req.method, "0").Inc()
		return response{}, sentToken, networkError(err)
	}

	c.metrics.requests.WithLabelValues(req.method, strconv.Itoa(httpResp.StatusCode)).Inc()
	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Bool("retry", req.retried).
		Msg("request")

	return response{status: httpResp.StatusCode, body: raw}, sentToken, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
