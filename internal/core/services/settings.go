package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// settingKind says how a key's string value is validated and stored.
type settingKind int

const (
	kindString settingKind = iota
	kindPositiveInt
	kindDuration
	kindStrategy
	kindConversationTypes
	kindLogLevel
	kindBool
)

// settingKinds lists every supported key.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
var settingKinds = map[string]settingKind{
	domain.KeyToken:            kindString,
	domain.KeyBaseURL:          kindString,
	domain.KeyOutputDir:        kindString,
	domain.KeyConflictStrategy: kindStrategy,
	domain.KeyWorkers:          kindPositiveInt,
	domain.KeyConversationType: kindConversationTypes,
	domain.KeyInferLocation:    kindBool,
	domain.KeyMaxAttempts:      kindPositiveInt,
	domain.KeyTier1WaitMillis:  kindDuration,
	domain.KeyTier2WaitMillis:  kindDuration,
	domain.KeyTier3WaitMillis:  kindDuration,
	domain.KeyTier4WaitMillis:  kindDuration,
	domain.KeyArchivePath:      kindString,
	domain.KeyLogFile:          kindString,
	domain.KeyLogLevel:         kindLogLevel,
}

var tierWaitKeys = [4]string{
	domain.KeyTier1WaitMillis,
	domain.KeyTier2WaitMillis,
	domain.KeyTier3WaitMillis,
	domain.KeyTier4WaitMillis,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get resolves stored settings over the defaults. The result is not
// validated; callers that need a token call Validate.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	settings.Token = s.configStore.GetString(domain.KeyToken)
	settings.BaseURL = s.getString(domain.KeyBaseURL, settings.BaseURL)
	settings.OutputDir = s.getString(domain.KeyOutputDir, settings.OutputDir)
	settings.Workers = s.getInt(domain.KeyWorkers, settings.Workers)
	settings.Retry.MaxAttempts = s.getInt(domain.KeyMaxAttempts, settings.Retry.MaxAttempts)
	settings.ArchivePath = s.configStore.GetString(domain.KeyArchivePath)
	settings.LogFile = s.configStore.GetString(domain.KeyLogFile)
	settings.LogLevel = s.getString(domain.KeyLogLevel, settings.LogLevel)

	if v := s.configStore.GetString(domain.KeyConflictStrategy); v != "" {
		strategy, err := domain.ParseConflictStrategy(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", domain.KeyConflictStrategy, err)
		}
		settings.ConflictStrategy = strategy
	}

	if v := s.configStore.GetString(domain.KeyConversationType); v != "" {
		types, err := domain.ParseConversationTypes(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", domain.KeyConversationType, err)
		}
		settings.ConversationTypes = types
	}

	if _, ok := s.configStore.Get(domain.KeyInferLocation); ok {
		settings.InferLocation = s.configStore.GetBool(domain.KeyInferLocation)
	}

	for i, key := range tierWaitKeys {
		if _, ok := s.configStore.Get(key); ok {
			settings.Retry.TierWaits[i] = time.Duration(s.configStore.GetInt(key)) * time.Millisecond
		}
	}

	return &settings, nil
}

// Value returns the stored value of a key as a string.
func (s *SettingsService) Value(key string) (string, bool) {
	v, ok := s.configStore.Get(key)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []string:
		return strings.Join(val, ","), true
	default:
		return fmt.Sprint(val), true
	}
}

// Set validates and stores a single key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var stored any
	switch kind {
	case kindString:
		stored = value
	case kindPositiveInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindDuration:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number of milliseconds", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindStrategy:
		strategy, err := domain.ParseConflictStrategy(value)
		if err != nil {
			return err
		}
		stored = string(strategy)
	case kindConversationTypes:
		if _, err := domain.ParseConversationTypes(value); err != nil {
			return err
		}
		stored = value
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		stored = b
	case kindLogLevel:
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			stored = strings.ToLower(value)
		default:
			return fmt.Errorf("%w: %s must be one of debug, info, warn, error", domain.ErrInvalidInput, key)
		}
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists every supported key in a stable order.
func (s *SettingsService) Keys() []string {
	return []string{
		domain.KeyToken,
		domain.KeyBaseURL,
		domain.KeyOutputDir,
		domain.KeyConflictStrategy,
		domain.KeyWorkers,
		domain.KeyConversationType,
		domain.KeyInferLocation,
		domain.KeyMaxAttempts,
		domain.KeyTier1WaitMillis,
		domain.KeyTier2WaitMillis,
		domain.KeyTier3WaitMillis,
		domain.KeyTier4WaitMillis,
		domain.KeyArchivePath,
		domain.KeyLogFile,
		domain.KeyLogLevel,
	}
}

// SaveToken stores the Slack token.
func (s *SettingsService) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is empty", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(domain.KeyToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if v := s.configStore.GetInt(key); v != 0 {
		return v
	}
	return defaultVal
}
