package authz

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimWith(roles, perms []string) Claim {
	now := time.Now()
	return Claim{
		UID:         "u1",
		Roles:       roles,
		Permissions: perms,
		FetchedAt:   now,
		ExpiresAt:   now.Add(time.Minute),
	}
}

// capabilityFields walks the Set struct so the admin short-circuit test
// cannot silently miss a newly added capability.
func capabilityFields(s Set) map[string]bool {
	out := map[string]bool{}
	v := reflect.ValueOf(s)
	for i := range v.NumField() {
		out[v.Type().Field(i).Name] = v.Field(i).Bool()
	}
	return out
}

func TestDerive_AdminShortCircuit(t *testing.T) {
	for _, perms := range [][]string{nil, {}, {"projects.read"}, {"unrelated.thing"}} {
		caps := Derive(claimWith([]string{"admin"}, perms))
		for name, value := range capabilityFields(caps) {
			assert.True(t, value, "admin must grant %s regardless of permissions %v", name, perms)
		}
	}
}

func TestDerive_PrefixMatching(t *testing.T) {
	t.Run("exact permission grants the fine capability", func(t *testing.T) {
		caps := Derive(claimWith(nil, []string{"media.upload"}))
		assert.True(t, caps.CanUploadMedia)
		assert.True(t, caps.CanAccessMedia)
	})

	t.Run("prefix-only permission grants coarse access only", func(t *testing.T) {
		caps := Derive(claimWith(nil, []string{"media.whatever"}))
		assert.True(t, caps.CanAccessMedia)
		assert.False(t, caps.CanUploadMedia)
		assert.False(t, caps.CanDeleteMedia)
	})

	t.Run("unrelated namespace grants nothing", func(t *testing.T) {
		caps := Derive(claimWith(nil, []string{"mediateam.upload"}))
		assert.False(t, caps.CanAccessMedia)
	})
}

func TestDerive_ProjectEditorScenario(t *testing.T) {
	caps := Derive(claimWith(nil, []string{"projects.read", "projects.create"}))

	assert.True(t, caps.CanAccessProjects)
	assert.True(t, caps.CanCreateProject)
	assert.False(t, caps.CanDeleteProject)
	assert.False(t, caps.CanAccessAdmin)
	assert.True(t, caps.CanAccessEditor)
}

func TestDerive_ModeratorScenario(t *testing.T) {
	caps := Derive(claimWith([]string{"moderator"}, nil))

	assert.True(t, caps.IsModerator)
	// The moderator OR-path widens admin-landing access even though the
	// permission-based member capability stays false.
	assert.False(t, caps.CanAccessMembers)
	assert.True(t, caps.CanAccessAdmin)
	assert.False(t, caps.CanBanMembers)
}

func TestDerive_Pure(t *testing.T) {
	claim := claimWith([]string{"moderator"}, []string{"projects.read", "news.create"})
	first := Derive(claim)
	for range 5 {
		assert.Equal(t, first, Derive(claim))
	}
}

func TestDerive_EmptyClaim(t *testing.T) {
	caps := Derive(EmptyClaim("u1", time.Now()))
	for name, value := range capabilityFields(caps) {
		require.False(t, value, "empty claim must not grant %s", name)
	}
}
