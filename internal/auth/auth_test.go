package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	tk := NewTokens("test-secret")

	s, err := tk.Issue("player-1", "game-1")
	require.NoError(t, err)

	claims, err := tk.Verify(s)
	require.NoError(t, err)
	assert.Equal(t, "player-1", claims.PlayerID)
	assert.Equal(t, "game-1", claims.GameID)
}

func TestVerifyWrongSecret(t *testing.T) {
	s, err := NewTokens("secret-a").Issue("player-1", "game-1")
	require.NoError(t, err)

	_, err = NewTokens("secret-b").Verify(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewTokens("secret").Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	tk := NewTokens("secret")
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tk.now = func() time.Time { return issued }

	s, err := tk.Issue("player-1", "game-1")
	require.NoError(t, err)

	tk.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = tk.Verify(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
