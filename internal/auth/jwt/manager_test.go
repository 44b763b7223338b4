package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-development-32-chars-long"

func TestManager_IssueAndValidate(t *testing.T) {
	m := NewManager(testSecret, "secrethobby", time.Hour)

	token, err := m.Issue("sid-1", "id-fox", "fox")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)
	assert.Equal(t, time.Hour, token.ExpiresAt.Sub(token.IssuedAt))

	claims, err := m.Validate(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.ID)
	assert.Equal(t, "id-fox", claims.IdentityID)
	assert.Equal(t, "fox", claims.Alias)
	assert.Equal(t, "id-fox", claims.Subject)
}

func TestManager_Validate(t *testing.T) {
	m := NewManager(testSecret, "secrethobby", time.Hour)

	t.Run("过期令牌", func(t *testing.T) {
		now := time.Now()
		m.now = func() time.Time { return now.Add(-2 * time.Hour) }
		token, err := m.Issue("sid", "id", "fox")
		require.NoError(t, err)
		m.now = time.Now

		_, err = m.Validate(token.Value)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("错误的密钥", func(t *testing.T) {
		other := NewManager("another-secret-key-that-is-32-chars-long!!", "secrethobby", time.Hour)
		token, err := other.Issue("sid", "id", "fox")
		require.NoError(t, err)

		_, err = m.Validate(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("错误的签发者", func(t *testing.T) {
		other := NewManager(testSecret, "someone-else", time.Hour)
		token, err := other.Issue("sid", "id", "fox")
		require.NoError(t, err)

		_, err = m.Validate(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
