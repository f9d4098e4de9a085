package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(openTestDB(t))

	user, token, err := svc.Register("dev@example.com", "hunter2hunter2", "Dev")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEqual(t, "hunter2hunter2", user.Password)
	require.Equal(t, "user", user.Role)

	loggedIn, token, err := svc.Login("dev@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, user.ID, loggedIn.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(openTestDB(t))

	_, _, err := svc.Register("dev@example.com", "hunter2hunter2", "Dev")
	require.NoError(t, err)

	_, _, err = svc.Login("dev@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(openTestDB(t))

	_, _, err := svc.Register("dev@example.com", "hunter2hunter2", "Dev")
	require.NoError(t, err)

	_, _, err = svc.Register("dev@example.com", "another-password", "Dev Again")
	require.ErrorIs(t, err, ErrEmailTaken)
}
