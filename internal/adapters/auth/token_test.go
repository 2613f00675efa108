package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	uid, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, domain.UserID("user-1"), uid)
}

func TestTokenGarbageRejected(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(token)
		require.ErrorIs(t, err, core.ErrUnauthenticated)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Minute)
	verifier := NewTokenManager("secret-b", time.Minute)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestTokenExpiryRejected(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.ErrorIs(t, err, core.ErrUnauthenticated)
}
