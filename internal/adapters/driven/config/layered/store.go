// Package layered overlays command-line flags and environment variables on
// top of a persisted driven.ConfigStore.
//
// Reads consult the overlay first, so the effective precedence is
// flag > environment > config file > default. Writes always go to the
// underlying store; overrides are never persisted.
package layered

import (
	"github.com/spf13/viper"

	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ConfigStore = (*Store)(nil)

// Store is a driven.ConfigStore whose reads are overridden by viper.
type Store struct {
	base      driven.ConfigStore
	overrides *viper.Viper
}

// New wraps base. A nil overrides behaves as an empty overlay.
func New(base driven.ConfigStore, overrides *viper.Viper) *Store {
	if overrides == nil {
		overrides = viper.New()
	}
	return &Store{base: base, overrides: overrides}
}

// Get returns the override for key if one is set, else the stored value.
func (s *Store) Get(key string) (any, bool) {
	if s.overrides.IsSet(key) {
		return s.overrides.Get(key), true
	}
	return s.base.Get(key)
}

// GetString implements driven.ConfigStore.
func (s *Store) GetString(key string) string {
	if s.overrides.IsSet(key) {
		return s.overrides.GetString(key)
	}
	return s.base.GetString(key)
}

// GetInt implements driven.ConfigStore.
func (s *Store) GetInt(key string) int {
	if s.overrides.IsSet(key) {
		return s.overrides.GetInt(key)
	}
	return s.base.GetInt(key)
}

// GetBool implements driven.ConfigStore.
func (s *Store) GetBool(key string) bool {
	if s.overrides.IsSet(key) {
		return s.overrides.GetBool(key)
	}
	return s.base.GetBool(key)
}

// GetStringSlice implements driven.ConfigStore.
func (s *Store) GetStringSlice(key string) []string {
	if s.overrides.IsSet(key) {
		return s.overrides.GetStringSlice(key)
	}
	return s.base.GetStringSlice(key)
}

// Set persists value in the underlying store.
func (s *Store) Set(key string, value any) error {
	return s.base.Set(key, value)
}

// Save implements driven.ConfigStore.
func (s *Store) Save() error {
	return s.base.Save()
}

// Load implements driven.ConfigStore.
func (s *Store) Load() error {
	return s.base.Load()
}

// Path returns the underlying file path.
func (s *Store) Path() string {
	return s.base.Path()
}
