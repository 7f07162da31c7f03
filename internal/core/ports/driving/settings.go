package driving

import "github.com/custodia-labs/slack-archive/internal/core/domain"

// SettingsService manages persisted configuration.
type SettingsService interface {
	// Get resolves the stored configuration over the defaults.
	Get() (*domain.Settings, error)

	// Value returns the stored value of a key as a string.
	Value(key string) (string, bool)

	// Set validates and stores a single key.
	Set(key, value string) error

	// Keys lists every supported key.
	Keys() []string

	// SaveToken stores the Slack token.
	SaveToken(token string) error

	// Path returns the configuration file path.
	Path() string
}
