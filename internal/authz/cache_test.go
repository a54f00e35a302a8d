package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionhq/vision-desktop/internal/kv"
)

func newCache(t *testing.T) *ClaimCache {
	t.Helper()
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	return NewClaimCache(store)
}

func TestClaimCache(t *testing.T) {
	t.Run("round trips a valid claim", func(t *testing.T) {
		cache := newCache(t)
		claim := claimWith([]string{"moderator"}, []string{"projects.read"})

		cache.Save(claim)

		got := cache.Load("u1")
		require.NotNil(t, got)
		assert.Equal(t, claim.Roles, got.Roles)
		assert.Equal(t, claim.Permissions, got.Permissions)
	})

	t.Run("expired claim loads as absent", func(t *testing.T) {
		cache := newCache(t)
		claim := claimWith(nil, []string{"projects.read"})
		claim.ExpiresAt = time.Now().Add(-time.Second)

		cache.Save(claim)

		assert.Nil(t, cache.Load("u1"))
	})

	t.Run("mismatched uid loads as absent", func(t *testing.T) {
		cache := newCache(t)
		cache.Save(claimWith([]string{"admin"}, nil))

		assert.Nil(t, cache.Load("u2"), "a different user must not inherit a cached claim")
	})

	t.Run("clear removes the claim", func(t *testing.T) {
		cache := newCache(t)
		cache.Save(claimWith(nil, nil))
		cache.Clear()

		assert.Nil(t, cache.Load("u1"))
	})
}
