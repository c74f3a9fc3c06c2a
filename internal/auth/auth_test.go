package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "payments-backend", time.Hour)

	tok, exp, err := tm.Generate("ops@x.com", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops@x.com", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseRejects(t *testing.T) {
	tm := NewTokenManager("secret", "payments-backend", time.Hour)
	tok, _, err := tm.Generate("ops@x.com", "admin")
	require.NoError(t, err)

	_, err = NewTokenManager("other", "payments-backend", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("secret", "someone-else", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := NewTokenManager("secret", "payments-backend", -time.Minute).Generate("ops@x.com", "admin")
	require.NoError(t, err)
	_, err = tm.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("hunter2", h))
	assert.Error(t, VerifyPassword("hunter3", h))
}
