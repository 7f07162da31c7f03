package driven

// ConfigStore holds settings under dotted keys ("retry.max_attempts").
// A key cannot be both a value and the parent of other keys.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns "" when the key is unset or not a string.
	GetString(key string) string

	// GetInt returns 0 when the key is unset or not an integer.
	GetInt(key string) int

	// GetBool returns false when the key is unset or not a bool.
	GetBool(key string) bool

	// GetStringSlice accepts lists and comma-separated strings.
	GetStringSlice(key string) []string

	// Set stores a value and persists it before returning.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path locates the backing file, for display.
	Path() string
}
