package domain

import (
	"fmt"
	"time"
)

// Settings keys as stored in the config file.
const (
	KeyToken            = "slack.token"
	KeyBaseURL          = "slack.base_url"
	KeyOutputDir        = "export.output_dir"
	KeyConflictStrategy = "export.conflict_strategy"
	KeyWorkers          = "export.workers"
	KeyConversationType = "export.conversation_types"
	KeyInferLocation    = "export.infer_location"
	KeyMaxAttempts      = "retry.max_attempts"
	KeyTier1WaitMillis  = "retry.tier1_wait_ms"
	KeyTier2WaitMillis  = "retry.tier2_wait_ms"
	KeyTier3WaitMillis  = "retry.tier3_wait_ms"
	KeyTier4WaitMillis  = "retry.tier4_wait_ms"
	KeyArchivePath      = "archive.path"
	KeyLogFile          = "logging.file"
	KeyLogLevel         = "logging.level"
)

// Defaults.
const (
	DefaultBaseURL     = "https://slack.com/api/"
	DefaultOutputDir   = "files"
	DefaultWorkers     = 3
	DefaultMaxAttempts = 3
	DefaultLogLevel    = "info"
)

// DefaultTierWaits are the rate-limit waits for Slack's four API tiers.
var DefaultTierWaits = [4]time.Duration{
	60 * time.Second,
	3 * time.Second,
	1 * time.Second,
	1 * time.Second,
}

// RetrySettings configures the retry tiers.
type RetrySettings struct {
	// MaxAttempts is the number of attempts per call, shared by all tiers.
	MaxAttempts int

	// TierWaits is the wait after a rate-limited attempt, indexed by tier-1.
	TierWaits [4]time.Duration
}

// Settings is the resolved, read-only configuration for one run.
type Settings struct {
	Token   string
	BaseURL string

	OutputDir         string
	ConflictStrategy  ConflictStrategy
	Workers           int
	ConversationTypes []ConversationType

	// InferLocation fetches share details (files.info) for files visible in
	// several conversations, so each lands where it was first shared.
	InferLocation bool

	Retry RetrySettings

	// ArchivePath is the directory holding the archive database.
	ArchivePath string

	LogFile  string
	LogLevel string
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:           DefaultBaseURL,
		OutputDir:         DefaultOutputDir,
		ConflictStrategy:  DefaultConflictStrategy,
		Workers:           DefaultWorkers,
		ConversationTypes: AllConversationTypes(),
		InferLocation:     true,
		Retry: RetrySettings{
			MaxAttempts: DefaultMaxAttempts,
			TierWaits:   DefaultTierWaits,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Validate checks the settings are usable for API calls.
func (s *Settings) Validate() error {
	if s.Token == "" {
		return fmt.Errorf("%w: no Slack token configured (use --token, SLACK_ARCHIVE_TOKEN or 'slack-archive auth')", ErrInvalidInput)
	}
	if !s.ConflictStrategy.IsValid() {
		return fmt.Errorf("%w: conflict strategy %q", ErrInvalidInput, s.ConflictStrategy)
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidInput)
	}
	if s.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be at least 1", ErrInvalidInput)
	}
	for i, w := range s.Retry.TierWaits {
		if w < 0 {
			return fmt.Errorf("%w: tier %d wait is negative", ErrInvalidInput, i+1)
		}
	}
	return nil
}
