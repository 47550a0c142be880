package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/appo-client/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeService accepts one access token on /appointments and answers every
// other token with 401. /auth/refresh can be held back until a given number
// of 401s have been served so that all callers are rejected before renewal settles.
type fakeService struct {
	t *testing.T

	validAccess   string
	nextAccess    string
	nextRefresh   string
	rejectRefresh bool

	waitFor     int32
	rejected    atomic.Int32
	allRejected chan struct{}
	closeOnce   sync.Once

	refreshCalls  atomic.Int32
	refreshTokens chan string
	protected     headerRecorder
}

func newFakeService(t *testing.T, waitFor int) *fakeService {
	return &fakeService{
		t:             t,
		validAccess:   "t2",
		nextAccess:    "t2",
		nextRefresh:   "r2",
		waitFor:       int32(waitFor),
		allRejected:   make(chan struct{}),
		refreshTokens: make(chan string, 64),
	}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case api.RefreshPath:
		f.refreshCalls.Add(1)
		assert.Empty(f.t, r.Header.Get("Authorization"), "renewal must not carry the expired access token")

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.refreshTokens <- body.RefreshToken

		if f.waitFor > 0 {
			select {
			case <-f.allRejected:
			case <-time.After(5 * time.Second):
				f.t.Error("timed out waiting for every caller to be rejected")
			}
		}
		if f.rejectRefresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token revoked"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": f.nextAccess, "refreshToken": f.nextRefresh})

	default:
		f.protected.record(r)
		if r.Header.Get("Authorization") == "Bearer "+f.validAccess {
			writeJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
			return
		}
		if f.rejected.Add(1) == f.waitFor {
			f.closeOnce.Do(func() { close(f.allRejected) })
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired", "code": "TOKEN_EXPIRED"})
	}
}

// navigations collects Redirects handed to the navigator.
type navigations struct {
	mu   sync.Mutex
	seen []api.Redirect
}

func (n *navigations) navigate(r api.Redirect) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, r)
}

func (n *navigations) all() []api.Redirect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]api.Redirect(nil), n.seen...)
}

func runConcurrently(n int, call func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = call(i)
		}(i)
	}
	wg.Wait()
	return errs
}

func TestRenewal_SingleFlight(t *testing.T) {
	for _, n := range []int{2, 8, 32} {
		t.Run(fmt.Sprintf("%d callers", n), func(t *testing.T) {
			svc := newFakeService(t, n)
			srv := httptest.NewServer(svc)
			defer srv.Close()

			ctx := context.Background()
			nav := &navigations{}
			client, custodian := newTestClient(t, srv, api.WithNavigator(nav.navigate))
			custodian.Write(ctx, "t1", "r1")

			errs := runConcurrently(n, func(i int) error {
				return client.Get(ctx, fmt.Sprintf("/appointments/%d", i), nil)
			})
			for _, err := range errs {
				require.NoError(t, err)
			}

			require.Equal(t, int32(1), svc.refreshCalls.Load(), "exactly one renewal exchange")
			require.Equal(t, "r1", <-svc.refreshTokens)
			require.Empty(t, nav.all())

			var first, replayed int
			for _, h := range svc.protected.all() {
				switch h.Get("Authorization") {
				case "Bearer t1":
					first++
				case "Bearer t2":
					replayed++
				default:
					t.Fatalf("unexpected authorization %q", h.Get("Authorization"))
				}
			}
			require.Equal(t, n, first)
			require.Equal(t, n, replayed, "every call is replayed with the renewed token")

			access, _ := custodian.AccessToken(ctx)
			refresh, _ := custodian.RefreshToken(ctx)
			require.Equal(t, "t2", access)
			require.Equal(t, "r2", refresh)
		})
	}
}

func TestRenewal_SettledRenewalIsReused(t *testing.T) {
	svc := newFakeService(t, 0)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ctx := context.Background()
	client, custodian := newTestClient(t, srv)
	custodian.Write(ctx, "t1", "r1")

	require.NoError(t, client.Get(ctx, "/appointments", nil))
	require.NoError(t, client.Get(ctx, "/appointments", nil))
	require.Equal(t, int32(1), svc.refreshCalls.Load())
}

func TestRenewal_NoRefreshToken(t *testing.T) {
	svc := newFakeService(t, 0)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ctx := context.Background()
	nav := &navigations{}
	client, custodian := newTestClient(t, srv, api.WithNavigator(nav.navigate))
	custodian.WriteAccess(ctx, "t1")

	err := client.Get(ctx, "/appointments", nil)
	require.True(t, api.IsUnauthorized(err))
	apiErr, _ := api.AsError(err)
	require.Equal(t, "No refresh token available", apiErr.Message)
	require.Equal(t, api.CodeUnauthorized, apiErr.Code)

	require.Equal(t, int32(0), svc.refreshCalls.Load(), "no exchange without a refresh token")
	_, ok := custodian.AccessToken(ctx)
	require.False(t, ok, "credentials are cleared")
	require.Equal(t, []api.Redirect{{Path: api.LoginRoute, Reason: api.ReasonNoRefreshToken}}, nav.all())
}

func TestRenewal_Rejected(t *testing.T) {
	const n = 4
	svc := newFakeService(t, n)
	svc.rejectRefresh = true
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ctx := context.Background()
	nav := &navigations{}
	client, custodian := newTestClient(t, srv,
		api.WithNavigator(nav.navigate),
		api.WithLoginPath("/signin"),
	)
	custodian.Write(ctx, "t1", "r1")

	errs := runConcurrently(n, func(int) error {
		return client.Get(ctx, "/appointments", nil)
	})
	for _, err := range errs {
		require.True(t, api.IsUnauthorized(err), "got %v", err)
	}

	require.Equal(t, int32(1), svc.refreshCalls.Load())
	_, ok := custodian.RefreshToken(ctx)
	require.False(t, ok)

	redirects := nav.all()
	require.NotEmpty(t, redirects)
	reasons := map[api.Reason]bool{}
	for _, r := range redirects {
		require.Equal(t, "/signin", r.Path)
		reasons[r.Reason] = true
	}
	require.True(t, reasons[api.ReasonRefreshRejected])
}

func TestRenewal_ReplayIsAttemptedOnce(t *testing.T) {
	svc := newFakeService(t, 0)
	svc.validAccess = "never-valid"
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ctx := context.Background()
	client, custodian := newTestClient(t, srv)
	custodian.Write(ctx, "t1", "r1")

	err := client.Get(ctx, "/appointments", nil)
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "token expired", apiErr.Message, "second 401 is propagated unchanged")
	require.Equal(t, "TOKEN_EXPIRED", apiErr.Code)

	require.Equal(t, int32(1), svc.refreshCalls.Load())
	require.Len(t, svc.protected.all(), 2)
}

func TestRenewal_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	svc := newFakeService(t, 0)
	svc.nextRefresh = ""
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ctx := context.Background()
	client, custodian := newTestClient(t, srv)
	custodian.Write(ctx, "t1", "r1")

	require.NoError(t, client.Get(ctx, "/appointments", nil))
	refresh, _ := custodian.RefreshToken(ctx)
	require.Equal(t, "r1", refresh)
}

func TestRenewal_CancelledWaiterLeavesRenewalRunning(t *testing.T) {
	svc := newFakeService(t, 2)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	nav := &navigations{}
	client, custodian := newTestClient(t, srv, api.WithNavigator(nav.navigate))
	custodian.Write(context.Background(), "t1", "r1")

	// The first caller gives up while the renewal is held back; the second
	// caller is the one that releases it and must still succeed.
	shortCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	firstErr := make(chan error, 1)
	go func() { firstErr <- client.Get(shortCtx, "/appointments/1", nil) }()

	select {
	case <-svc.refreshTokens:
	case <-time.After(5 * time.Second):
		t.Fatal("renewal never started")
	}
	<-shortCtx.Done()
	require.Error(t, <-firstErr)

	require.NoError(t, client.Get(context.Background(), "/appointments/2", nil))
	require.Equal(t, int32(1), svc.refreshCalls.Load())
	require.Empty(t, nav.all())
}

func TestRenewal_Metrics(t *testing.T) {
	svc := newFakeService(t, 3)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ctx := context.Background()
	reg := prometheus.NewRegistry()
	client, custodian := newTestClient(t, srv, api.WithMetrics(reg))
	custodian.Write(ctx, "t1", "r1")

	errs := runConcurrently(3, func(int) error { return client.Get(ctx, "/appointments", nil) })
	for _, err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 1.0, counterValue(t, reg, "appo_client_token_refreshes_total", map[string]string{"outcome": "success"}))
	require.Equal(t, 3.0, counterValue(t, reg, "appo_client_requests_total", map[string]string{"method": "GET", "code": "401"}))
	require.Equal(t, 3.0, counterValue(t, reg, "appo_client_requests_total", map[string]string{"method": "GET", "code": "200"}))

	// a second client on the same registry shares the collectors
	other, _ := newTestClient(t, srv, api.WithMetrics(reg))
	require.NotNil(t, other)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, m := range family.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRenewal_Listener(t *testing.T) {
	svc := newFakeService(t, 0)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	var renewed []string
	client, custodian := newTestClient(t, srv, api.WithRenewalListener(func(tok *oauth2.Token) {
		renewed = append(renewed, tok.AccessToken+"/"+tok.RefreshToken)
	}))
	custodian.Write(context.Background(), "t1", "r1")

	require.NoError(t, client.Get(context.Background(), "/appointments", nil))
	require.Equal(t, []string{"t2/r2"}, renewed)
}

func TestRenewal_ListenerMayCallClient(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.RefreshPath {
			n := refreshes.Add(1) + 1
			writeJSON(w, http.StatusOK, map[string]string{
				"accessToken":  fmt.Sprintf("t%d", n),
				"refreshToken": fmt.Sprintf("r%d", n),
			})
			return
		}
		if r.Header.Get("Authorization") != "Bearer t3" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	defer srv.Close()

	var (
		mu      sync.Mutex
		renewed []string
		client  *api.Client
	)
	client, custodian := newTestClient(t, srv, api.WithRenewalListener(func(tok *oauth2.Token) {
		mu.Lock()
		renewed = append(renewed, tok.AccessToken)
		first := len(renewed) == 1
		mu.Unlock()
		if first {
			// The new token is rejected straight away, so this call renews again.
			assert.NoError(t, client.Get(context.Background(), "/profile", nil))
		}
	}))
	custodian.Write(context.Background(), "t1", "r1")

	done := make(chan error, 1)
	go func() { done <- client.Get(context.Background(), "/appointments", nil) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener calling back into the client deadlocked")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"t2", "t3"}, renewed)
	require.EqualValues(t, 2, refreshes.Load())
}
