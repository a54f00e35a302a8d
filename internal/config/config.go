// Package config loads the client configuration from ~/.vision/config.yaml
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// OAuth describes the identity provider endpoints used for sign-in.
type OAuth struct {
	ClientID              string   `yaml:"client_id" env:"VISION_OAUTH_CLIENT_ID"`
	AuthorizationEndpoint string   `yaml:"authorization_endpoint" env:"VISION_OAUTH_AUTH_URL"`
	TokenEndpoint         string   `yaml:"token_endpoint" env:"VISION_OAUTH_TOKEN_URL"`
	RedirectURI           string   `yaml:"redirect_uri" env:"VISION_OAUTH_REDIRECT_URI"`
	Scopes                []string `yaml:"scopes" env:"VISION_OAUTH_SCOPES" envSeparator:","`
}

// Config is the full client configuration.
type Config struct {
	ServerURL string `yaml:"server_url" env:"VISION_SERVER_URL"`
	StateDir  string `yaml:"state_dir" env:"VISION_STATE_DIR"`
	CacheDir  string `yaml:"cache_dir" env:"VISION_CACHE_DIR"`
	OAuth     OAuth  `yaml:"oauth"`
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".vision", "config.yaml")
}

// Load reads the configuration file at path (DefaultPath when empty), then
// applies environment overrides. A missing file is not an error; environment
// variables alone can provide a complete configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	return nil
}

// RequireOAuth validates that the identity provider configuration is
// complete enough to start a login flow.
func (c *Config) RequireOAuth() error {
	switch {
	case c.OAuth.ClientID == "":
		return fmt.Errorf("oauth.client_id is required")
	case c.OAuth.AuthorizationEndpoint == "":
		return fmt.Errorf("oauth.authorization_endpoint is required")
	case c.OAuth.TokenEndpoint == "":
		return fmt.Errorf("oauth.token_endpoint is required")
	case c.OAuth.RedirectURI == "":
		return fmt.Errorf("oauth.redirect_uri is required")
	}
	return nil
}
