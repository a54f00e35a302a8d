package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaim(t *testing.T) {
	now := time.Now()

	t.Run("canonical field names", func(t *testing.T) {
		claim, err := ParseClaim("u1", []byte(`{"roles":["moderator"],"permissions":["projects.read"],"expiresIn":120}`), now)
		require.NoError(t, err)
		assert.Equal(t, "u1", claim.UID)
		assert.Equal(t, []string{"moderator"}, claim.Roles)
		assert.Equal(t, []string{"projects.read"}, claim.Permissions)
		assert.Equal(t, now.Add(120*time.Second), claim.ExpiresAt)
	})

	t.Run("legacy field names", func(t *testing.T) {
		claim, err := ParseClaim("u1", []byte(`{"Roles":["admin"],"perms":["x"],"expires_in":30}`), now)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, claim.Roles)
		assert.Equal(t, []string{"x"}, claim.Permissions)
		assert.Equal(t, now.Add(30*time.Second), claim.ExpiresAt)
	})

	t.Run("absent arrays are empty", func(t *testing.T) {
		claim, err := ParseClaim("u1", []byte(`{}`), now)
		require.NoError(t, err)
		assert.Empty(t, claim.Roles)
		assert.Empty(t, claim.Permissions)
		assert.NotNil(t, claim.Roles)
		assert.NotNil(t, claim.Permissions)
	})

	t.Run("absent ttl defaults", func(t *testing.T) {
		claim, err := ParseClaim("u1", []byte(`{"roles":[]}`), now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(defaultClaimTTL), claim.ExpiresAt)
	})

	t.Run("empty body is an empty grant", func(t *testing.T) {
		claim, err := ParseClaim("u1", nil, now)
		require.NoError(t, err)
		assert.Empty(t, claim.Roles)
		assert.Empty(t, claim.Permissions)
	})

	t.Run("malformed body fails", func(t *testing.T) {
		_, err := ParseClaim("u1", []byte("<nope>"), now)
		assert.Error(t, err)
	})
}

func TestClaim_Valid(t *testing.T) {
	now := time.Now()
	claim := Claim{UID: "u1", ExpiresAt: now.Add(time.Minute)}

	assert.True(t, claim.Valid("u1", now))
	assert.False(t, claim.Valid("u2", now), "mismatched uid must never grant access")
	assert.False(t, claim.Valid("u1", now.Add(2*time.Minute)), "expired claim must never grant access")
	assert.False(t, Claim{}.Valid("", now), "empty uid never validates")
}
