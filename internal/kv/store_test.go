package kv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestOpen(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		stateDir := filepath.Join(tmpDir, "state")

		store, err := Open(stateDir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(stateDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})
}

func TestStore_PutGet(t *testing.T) {
	t.Run("round trips a value", func(t *testing.T) {
		store, err := Open(t.TempDir())
		require.NoError(t, err)

		want := testValue{Name: "projects", Count: 3}
		require.NoError(t, store.Put("cache.projects", want))

		var got testValue
		require.True(t, store.Get("cache.projects", &got))
		assert.Equal(t, want, got)
	})

	t.Run("absent key reads as absent", func(t *testing.T) {
		store, err := Open(t.TempDir())
		require.NoError(t, err)

		var got testValue
		assert.False(t, store.Get("missing", &got))
	})

	t.Run("overwrites previous value", func(t *testing.T) {
		store, err := Open(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Put(KeySettings, testValue{Name: "a"}))
		require.NoError(t, store.Put(KeySettings, testValue{Name: "b"}))

		var got testValue
		require.True(t, store.Get(KeySettings, &got))
		assert.Equal(t, "b", got.Name)
	})
}

func TestStore_Corruption(t *testing.T) {
	t.Run("unparseable file reads as absent", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := Open(tmpDir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "authz.json"), []byte("not json"), 0600))

		var got testValue
		assert.False(t, store.Get(KeyAuthz, &got))
	})

	t.Run("checksum mismatch reads as absent", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := Open(tmpDir)
		require.NoError(t, err)

		require.NoError(t, store.Put(KeyAuthz, testValue{Name: "ok"}))

		// Flip the payload without updating the checksum.
		path := filepath.Join(tmpDir, "authz.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		env.Payload = json.RawMessage(`{"name":"tampered","count":0}`)
		tampered, err := json.Marshal(env)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, tampered, 0600))

		var got testValue
		assert.False(t, store.Get(KeyAuthz, &got))
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("removes the value", func(t *testing.T) {
		store, err := Open(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Put(KeyTokens, testValue{Name: "t"}))
		require.NoError(t, store.Delete(KeyTokens))

		var got testValue
		assert.False(t, store.Get(KeyTokens, &got))
	})

	t.Run("deleting an absent key is not an error", func(t *testing.T) {
		store, err := Open(t.TempDir())
		require.NoError(t, err)

		assert.NoError(t, store.Delete("missing"))
	})
}

func TestStore_InstallID(t *testing.T) {
	t.Run("stable across calls", func(t *testing.T) {
		store, err := Open(t.TempDir())
		require.NoError(t, err)

		first, err := store.InstallID()
		require.NoError(t, err)
		assert.NotEmpty(t, first)

		second, err := store.InstallID()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("distinct per installation", func(t *testing.T) {
		a, err := Open(t.TempDir())
		require.NoError(t, err)
		b, err := Open(t.TempDir())
		require.NoError(t, err)

		idA, err := a.InstallID()
		require.NoError(t, err)
		idB, err := b.InstallID()
		require.NoError(t, err)
		assert.NotEqual(t, idA, idB)
	})
}
