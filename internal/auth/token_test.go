package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhet/agri-crm/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 1)

	token, expiresAt, err := tm.GenerateToken("agent-123", domain.AgentRoleAdmin)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-123", claims.AgentID)
	assert.Equal(t, domain.AgentRoleAdmin, claims.Role)
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 1)
	token, _, err := tm.GenerateToken("agent-123", domain.AgentRoleAgent)
	require.NoError(t, err)

	other := NewTokenManager("secret-b", 1)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 1)
	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	assert.Equal(t, 14*24*time.Hour, tm.ttl)
}
