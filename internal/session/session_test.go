package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsheet/splitsheet/internal/common"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager([]byte("test-secret"), 5*24*time.Hour)

	token, err := m.Issue("provider-token-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	s, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "provider-token-1", s.ProviderToken)
	assert.True(t, s.Valid(time.Now()))
	assert.WithinDuration(t, time.Now().Add(5*24*time.Hour), s.ExpiresAt, time.Minute)
}

func TestValidate_Expired(t *testing.T) {
	m := NewManager([]byte("test-secret"), -time.Minute)

	token, err := m.Issue("provider-token-1")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := NewManager([]byte("secret-a"), time.Hour).Issue("provider-token-1")
	require.NoError(t, err)

	_, err = NewManager([]byte("secret-b"), time.Hour).Validate(token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	m := NewManager([]byte("test-secret"), time.Hour)

	_, err := m.Validate("not-a-token")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSessionValid_Boundary(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now}

	// Validity requires strict expiry in the future.
	assert.False(t, s.Valid(now))
	assert.True(t, s.Valid(now.Add(-time.Second)))
}
