package users_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/appo-client/internal/utils"
	"github.com/jrsteele09/appo-client/users"
	"github.com/stretchr/testify/require"
)

func TestPatchApply(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	u := users.User{
		ID:        "u-1",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      users.RoleCustomer,
		IsActive:  true,
		CreatedAt: created,
	}

	t.Run("empty patch is identity", func(t *testing.T) {
		require.True(t, users.Patch{}.Empty())
		require.Equal(t, u, users.Patch{}.Apply(u))
	})

	t.Run("merges set fields only", func(t *testing.T) {
		got := users.Patch{
			FirstName: utils.Ptr("Janet"),
			IsActive:  utils.Ptr(false),
		}.Apply(u)

		require.Equal(t, "Janet", got.FirstName)
		require.False(t, got.IsActive)
		require.Equal(t, "Doe", got.LastName)
		require.Equal(t, "u-1", got.ID)
		require.Equal(t, created, got.CreatedAt)
		require.Equal(t, "Jane", u.FirstName, "source user must not change")
	})
}

func TestRoles(t *testing.T) {
	for _, r := range users.Roles {
		require.True(t, r.Valid(), r)
	}
	require.False(t, users.RoleType("super_admin").Valid())
	require.True(t, users.RoleBusinessCenter.BelongsToBusinessCenter())
	require.False(t, users.RoleCustomer.BelongsToBusinessCenter())
}

func TestCredentialsValidate(t *testing.T) {
	require.NoError(t, users.Credentials{Email: "a@b.c", Password: "x", UserType: users.RoleCustomer}.Validate())
	require.Error(t, users.Credentials{Password: "x", UserType: users.RoleCustomer}.Validate())
	require.Error(t, users.Credentials{Email: "a@b.c", UserType: users.RoleCustomer}.Validate())
	require.Error(t, users.Credentials{Email: "a@b.c", Password: "x", UserType: "nobody"}.Validate())
}

func TestRegistrationValidate(t *testing.T) {
	reg := users.Registration{
		Email:           "new@example.com",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
		UserType:        users.RoleCustomer,
	}
	require.NoError(t, reg.Validate())

	mismatch := reg
	mismatch.ConfirmPassword = "Secret124"
	require.ErrorContains(t, mismatch.Validate(), "do not match")

	weak := reg
	weak.Password, weak.ConfirmPassword = "secret123", "secret123"
	require.ErrorContains(t, weak.Validate(), "uppercase")
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Secret123", hash))
	require.False(t, users.CheckPasswordHash("Secret124", hash))
}
