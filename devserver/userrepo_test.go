package devserver_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/appo-client/devserver"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/internal/utils"
	"github.com/jrsteele09/appo-client/users"
	"github.com/stretchr/testify/require"
)

func TestUserRepo(t *testing.T) {
	clk := newClock()
	repo := devserver.NewUserRepo()

	added, err := repo.Add(users.User{Email: "Casey@Appo.dev", Role: users.RoleCustomer, IsActive: true}, "Secret123", clk.Now())
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)

	_, err = repo.Add(users.User{Email: "casey@appo.dev"}, "Secret123", clk.Now())
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest, "emails are case insensitive")

	t.Run("authenticate", func(t *testing.T) {
		got, err := repo.Authenticate(users.Credentials{Email: "casey@appo.dev", Password: "Secret123", UserType: users.RoleCustomer})
		require.NoError(t, err)
		require.Equal(t, added.ID, got.ID)

		_, err = repo.Authenticate(users.Credentials{Email: "casey@appo.dev", Password: "wrong"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

		_, err = repo.Authenticate(users.Credentials{Email: "nobody@appo.dev", Password: "Secret123"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

		_, err = repo.Authenticate(users.Credentials{Email: "casey@appo.dev", Password: "Secret123", UserType: users.RoleAppAdmin})
		require.ErrorIs(t, err, apperrors.ErrRoleMismatch)
	})

	t.Run("update", func(t *testing.T) {
		clk.Advance(time.Minute)
		updated, err := repo.Update(added.ID, users.Patch{
			Email:    utils.Ptr("casey.c@appo.dev"),
			IsActive: utils.Ptr(false),
		}, clk.Now())
		require.NoError(t, err)
		require.Equal(t, "casey.c@appo.dev", updated.Email)
		require.True(t, updated.IsActive)
		require.Equal(t, clk.Now(), updated.UpdatedAt)

		_, err = repo.Authenticate(users.Credentials{Email: "casey.c@appo.dev", Password: "Secret123"})
		require.NoError(t, err)
		_, err = repo.Authenticate(users.Credentials{Email: "casey@appo.dev", Password: "Secret123"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("inactive", func(t *testing.T) {
		_, err := repo.Add(users.User{Email: "gone@appo.dev", Role: users.RoleCustomer}, "Secret123", clk.Now())
		require.NoError(t, err)
		_, err = repo.Authenticate(users.Credentials{Email: "gone@appo.dev", Password: "Secret123"})
		require.ErrorIs(t, err, apperrors.ErrUserInactive)
	})

	require.Len(t, repo.List(0, 0), 2)
	require.Len(t, repo.List(1, 10), 1)
	require.Empty(t, repo.List(5, 10))

	_, err = repo.GetByID("missing")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
