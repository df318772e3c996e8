package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	tok, err := tm.Issue("user-1", "Ann")
	require.NoError(t, err)

	claims, err := tm.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Ann", claims.Name)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	tok, err := NewTokenManager("a", time.Hour).Issue("u", "")
	require.NoError(t, err)
	_, err = NewTokenManager("b", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("a", time.Hour).Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	start := time.Now()
	tm.now = func() time.Time { return start }
	tok, err := tm.Issue("u", "")
	require.NoError(t, err)

	tm.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = tm.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tok, err := ExtractTokenFromHeader("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer ", "Basic abc", "abc"} {
		_, err := ExtractTokenFromHeader(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(h, "correct horse"))
	assert.ErrorIs(t, ComparePassword(h, "wrong horse"), ErrInvalidCredentials)
}
