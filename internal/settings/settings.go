// Package settings holds the flat record of named boolean app settings,
// persisted in the kv store and overridable from the environment.
package settings

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/kv"
)

// Settings is the flat record of feature flags.
type Settings struct {
	LocalCacheEnabled  bool `json:"local_cache_enabled" env:"VISION_LOCAL_CACHE"`
	AutoRefreshEnabled bool `json:"auto_refresh_enabled" env:"VISION_AUTO_REFRESH"`
	DebugMode          bool `json:"debug_mode" env:"VISION_DEBUG"`
	TelemetryEnabled   bool `json:"telemetry_enabled" env:"VISION_TELEMETRY"`
}

// Defaults returns the out-of-the-box settings.
func Defaults() Settings {
	return Settings{
		LocalCacheEnabled:  true,
		AutoRefreshEnabled: true,
	}
}

// Manager owns the current settings and their persistence.
type Manager struct {
	store *kv.Store

	mu  sync.RWMutex
	cur Settings
}

// NewManager loads persisted settings (falling back to defaults) and applies
// environment overrides on top.
func NewManager(store *kv.Store) (*Manager, error) {
	cur := Defaults()
	if !store.Get(kv.KeySettings, &cur) {
		log.Debug().Msg("no persisted settings, using defaults")
	}

	if err := env.Parse(&cur); err != nil {
		return nil, fmt.Errorf("failed to parse settings environment: %w", err)
	}

	return &Manager{store: store, cur: cur}, nil
}

// Current returns a copy of the active settings.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Update applies fn to the settings and persists the result.
func (m *Manager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cur
	fn(&next)

	if err := m.store.Put(kv.KeySettings, next); err != nil {
		return err
	}

	m.cur = next

	log.Debug().
		Bool("localCache", next.LocalCacheEnabled).
		Bool("autoRefresh", next.AutoRefreshEnabled).
		Msg("settings updated")

	return nil
}
