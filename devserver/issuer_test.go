package devserver_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/appo-client/devserver"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/token/jwt"
	"github.com/jrsteele09/appo-client/users"
	"github.com/stretchr/testify/require"
)

func TestIssuer(t *testing.T) {
	clk := newClock()
	issuer := devserver.NewIssuer("secret", 15*time.Minute, clk.Now)
	user := &users.User{ID: "u1", Email: "casey@appo.dev", Role: users.RoleCustomer}

	raw, err := issuer.CreateAccessToken(user)
	require.NoError(t, err)

	payload, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "u1", payload.UserID)
	require.Equal(t, users.RoleCustomer, payload.Role)
	require.NotEmpty(t, payload.ID)

	unverified, err := jwt.ParsePayload(raw)
	require.NoError(t, err)
	require.WithinDuration(t, clk.Now().Add(15*time.Minute), unverified.ExpiresAt(), 0)

	clk.Advance(16 * time.Minute)
	_, err = issuer.Verify(raw)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)

	other := devserver.NewIssuer("other-secret", 15*time.Minute, clk.Now)
	forged, err := other.CreateAccessToken(user)
	require.NoError(t, err)
	_, err = issuer.Verify(forged)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestIssuer_Revoke(t *testing.T) {
	clk := newClock()
	issuer := devserver.NewIssuer("secret", 15*time.Minute, clk.Now)

	raw, err := issuer.CreateAccessToken(&users.User{ID: "u1"})
	require.NoError(t, err)
	payload, err := issuer.Verify(raw)
	require.NoError(t, err)

	issuer.Revoke(payload)
	_, err = issuer.Verify(raw)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRevokedTokens_DropsExpiredEntries(t *testing.T) {
	clk := newClock()
	revoked := devserver.NewRevokedTokens(clk.Now)

	revoked.Add("a", clk.Now().Add(time.Minute))
	clk.Advance(2 * time.Minute)
	revoked.Add("b", clk.Now().Add(time.Minute))

	require.False(t, revoked.IsRevoked("a"))
	require.True(t, revoked.IsRevoked("b"))
	require.Equal(t, 1, revoked.Len())
}
