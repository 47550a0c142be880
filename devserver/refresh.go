package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/appo-client/internal/errors"
)

// storedRefreshToken is the server side record of an opaque refresh token.
type storedRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// RefreshManager issues and rotates refresh tokens. Each user holds at most
// one live token. A rotated token is remembered so that presenting it again
// revokes the user's current token as well.
type RefreshManager struct {
	length int
	expiry time.Duration
	now    func() time.Time

	lock    sync.Mutex
	tokens  map[string]*storedRefreshToken
	userIDs map[string]string             // user ID to live token
	rotated map[string]storedRefreshToken // spent tokens
}

func NewRefreshManager(length int, expiry time.Duration, now func() time.Time) *RefreshManager {
	return &RefreshManager{
		length:  length,
		expiry:  expiry,
		now:     now,
		tokens:  make(map[string]*storedRefreshToken),
		userIDs: make(map[string]string),
		rotated: make(map[string]storedRefreshToken),
	}
}

// Create replaces any live token of the user with a new one.
func (m *RefreshManager) Create(userID string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pruneRotated()
	return m.create(userID)
}

// Rotate spends token and returns the owner with a replacement token.
func (m *RefreshManager) Rotate(token string) (userID, next string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pruneRotated()

	rt, ok := m.tokens[token]
	if !ok {
		if spent, found := m.rotated[token]; found {
			m.revokeUser(spent.UserID)
			return "", "", apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "refresh token reused")
		}
		return "", "", apperrors.ErrInvalidRefreshToken
	}
	if m.now().Sub(rt.Iat) > m.expiry {
		m.revokeUser(rt.UserID)
		return "", "", apperrors.ErrRefreshTokenExpired
	}

	m.rotated[token] = *rt
	next, err = m.create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, next, nil
}

// Revoke deletes token. Unknown tokens are ignored.
func (m *RefreshManager) Revoke(token string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if rt, ok := m.tokens[token]; ok {
		m.revokeUser(rt.UserID)
	}
}

func (m *RefreshManager) create(userID string) (string, error) {
	m.revokeUser(userID)

	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)
	m.tokens[tokenStr] = &storedRefreshToken{Token: tokenStr, UserID: userID, Iat: m.now()}
	m.userIDs[userID] = tokenStr
	return tokenStr, nil
}

// Spent returns the number of rotated tokens still remembered.
func (m *RefreshManager) Spent() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.rotated)
}

// pruneRotated forgets spent tokens that would have expired anyway.
func (m *RefreshManager) pruneRotated() {
	now := m.now()
	for token, rt := range m.rotated {
		if now.Sub(rt.Iat) > m.expiry {
			delete(m.rotated, token)
		}
	}
}

func (m *RefreshManager) revokeUser(userID string) {
	if live, ok := m.userIDs[userID]; ok {
		delete(m.tokens, live)
		delete(m.userIDs, userID)
	}
}
