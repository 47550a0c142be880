package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/appo-client/api"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	loginFailedMessage    = "Login failed"
	sessionExpiredMessage = "Session expired, please sign in again"
)

// Authenticator talks to the remote auth endpoints. *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, creds users.Credentials) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
}

// Store owns the Session record. It only changes through the transition
// methods below and notifies subscribers after every change, in the order the
// changes were made.
type Store struct {
	auth   Authenticator
	logger zerolog.Logger

	// notifyMu is held from commit until every subscriber has seen the change.
	notifyMu    sync.Mutex
	mu          sync.RWMutex
	state       Session
	subscribers map[int]func(Session)
	nextID      int
}

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithInitial seeds the store, e.g. from tokens persisted by a previous run.
// An inconsistent session is ignored.
func WithInitial(initial Session) Option {
	return func(s *Store) {
		if initial.valid() {
			s.state = initial.clone()
		}
	}
}

func New(auth Authenticator, options ...Option) *Store {
	s := &Store{
		auth:        auth,
		logger:      log.Logger,
		subscribers: make(map[int]func(Session)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login signs in through the Authenticator. While the call is in flight the
// session is loading. On failure user and tokens are left as they were and
// the error message is recorded.
func (s *Store) Login(ctx context.Context, creds users.Credentials) error {
	s.update(func(st *Session) {
		st.Loading = true
		st.Error = ""
	})

	resp, err := s.auth.Login(ctx, creds)
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = apperrors.Wrapf(apperrors.ErrInvalidToken, "login response carried no access token")
	}
	if err != nil {
		msg := failureMessage(err)
		s.update(func(st *Session) {
			st.Loading = false
			st.Error = msg
		})
		s.logger.Debug().Err(err).Msg("login failed")
		return err
	}

	s.update(func(st *Session) {
		authenticate(st, *resp)
		st.Loading = false
	})
	return nil
}

// Logout revokes the session remotely, best effort, and always resets the
// record to the signed-out value.
func (s *Store) Logout(ctx context.Context) {
	if s.auth != nil {
		if err := s.auth.Logout(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("remote logout failed")
		}
	}
	s.update(func(st *Session) {
		*st = Empty()
	})
}

// Expire ends the session after the gateway gave up on renewing it. It can be
// passed to api.WithNavigator through a closure.
func (s *Store) Expire(redirect api.Redirect) {
	s.logger.Info().Str("reason", string(redirect.Reason)).Msg("session expired")
	s.update(func(st *Session) {
		*st = Empty()
		st.Error = sessionExpiredMessage
	})
}

// UpdateUser merges patch into the current user. Without a user it is a no-op.
func (s *Store) UpdateUser(patch users.Patch) {
	s.update(func(st *Session) {
		if st.User == nil {
			return
		}
		u := patch.Apply(*st.User)
		st.User = &u
	})
}

// SetTokens overwrites the stored tokens without touching the authentication
// flag. An empty access token is refused while authenticated.
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.update(func(st *Session) {
		if st.Authenticated && accessToken == "" {
			s.logger.Warn().Msg("refusing to clear the access token of an authenticated session")
			return
		}
		st.AccessToken = accessToken
		st.RefreshToken = refreshToken
	})
}

// SetAuthenticated marks the session as signed in from a login response.
func (s *Store) SetAuthenticated(resp api.AuthResponse) error {
	if resp.AccessToken == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidToken, "missing access token")
	}
	s.update(func(st *Session) {
		authenticate(st, resp)
	})
	return nil
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *Session) {
		st.Loading = loading
	})
}

// SetError records msg and ends any loading state.
func (s *Store) SetError(msg string) {
	s.update(func(st *Session) {
		st.Error = msg
		st.Loading = false
	})
}

func (s *Store) ClearError() {
	s.update(func(st *Session) {
		st.Error = ""
	})
}

// Snapshot returns a copy of the record. Mutating it does not affect the store.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) User() *users.User {
	return s.Snapshot().User
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// Subscribe registers fn to receive a snapshot after every change. Callbacks
// run on the goroutine that made the change, one change at a time and in
// commit order. They may read the store but must not call its transitions.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) update(mutate func(*Session)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state.clone()
	listeners := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.clone())
	}
}

func authenticate(st *Session, resp api.AuthResponse) {
	u := resp.User
	st.Authenticated = true
	st.User = &u
	st.AccessToken = resp.AccessToken
	st.RefreshToken = resp.RefreshToken
	st.Error = ""
}

func failureMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return loginFailedMessage
}
