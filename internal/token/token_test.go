package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("secret")

	signed, err := BuildJWT("42", secret, time.Hour)
	require.NoError(t, err)

	userCode, err := GetUserCode(signed, secret)
	require.NoError(t, err)
	require.Equal(t, "42", userCode)

	// токены одного пользователя различаются jti
	other, err := BuildJWT("42", secret, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, signed, other)
}

func TestTokenRejected(t *testing.T) {
	secret := []byte("secret")

	signed, err := BuildJWT("42", secret, time.Hour)
	require.NoError(t, err)
	_, err = GetUserCode(signed, []byte("other"))
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := BuildJWT("42", secret, -time.Minute)
	require.NoError(t, err)
	_, err = GetUserCode(expired, secret)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = GetUserCode("not.a.token", secret)
	require.ErrorIs(t, err, ErrInvalidToken)
}
