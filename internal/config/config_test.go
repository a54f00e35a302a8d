package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://api.vision.example
oauth:
  client_id: desktop
  authorization_endpoint: https://id.vision.example/authorize
  token_endpoint: https://id.vision.example/token
  redirect_uri: vision://auth/callback
  scopes: [openid, profile]
`), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://api.vision.example", cfg.ServerURL)
		assert.Equal(t, "desktop", cfg.OAuth.ClientID)
		assert.Equal(t, []string{"openid", "profile"}, cfg.OAuth.Scopes)
		assert.NoError(t, cfg.RequireOAuth())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server_url: https://file.example\n"), 0600))
		t.Setenv("VISION_SERVER_URL", "https://env.example")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example", cfg.ServerURL)
	})

	t.Run("missing file with environment succeeds", func(t *testing.T) {
		t.Setenv("VISION_SERVER_URL", "https://env.example")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "https://env.example", cfg.ServerURL)
	})

	t.Run("missing server url fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server_url")
	})

	t.Run("incomplete oauth reported by RequireOAuth", func(t *testing.T) {
		t.Setenv("VISION_SERVER_URL", "https://env.example")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Error(t, cfg.RequireOAuth())
	})
}
