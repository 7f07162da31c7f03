// Package cli implements the slack-archive command line using cobra.
//
// Services are attached by main through SetWiring. Wiring runs once the
// global flags have been parsed, so --config-dir and --token take effect
// before any service reads its configuration.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

// envPrefix prefixes every environment override, e.g. SLACK_ARCHIVE_EXPORT_WORKERS.
const envPrefix = "SLACK_ARCHIVE"

// ExportBuilder constructs the export service from resolved settings.
// The returned closer releases the stores it opened.
type ExportBuilder func(ctx context.Context, settings domain.Settings) (driving.ExportService, io.Closer, error)

// Services are the driving ports the commands use.
type Services struct {
	Settings driving.SettingsService
	Auth     driving.AuthService
	Export   ExportBuilder
}

// Wiring builds the services. configDir is the --config-dir value and
// overrides carries the bound flags and environment variables.
type Wiring func(configDir string, overrides *viper.Viper) (*Services, error)

var (
	version = "dev"

	verbose   bool
	tokenFlag string
	configDir string

	// overrides holds flag and environment values layered over the config file.
	overrides = newOverrides()

	wiring Wiring
)

// Services used by commands. Tests assign these directly.
var (
	settingsService driving.SettingsService
	authService     driving.AuthService
	exportService   driving.ExportService
	buildExport     ExportBuilder

	closers []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "slack-archive",
	Short: "Archive a Slack workspace",
	Long: `slack-archive retrieves conversations, users, files and message history
from a Slack workspace, keeps them in a local archive and downloads shared files
into one folder per conversation.

Calls are retried when Slack rate-limits them, using the wait of the API tier
each method belongs to.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&tokenFlag, "token", "", "Slack API token (overrides the stored token)")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.slack-archive)")

	// Errors are only returned by a nil flag, which would be a programming error.
	_ = overrides.BindPFlag(domain.KeyToken, flags.Lookup("token"))
}

func newOverrides() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The token also answers to the short name.
	_ = v.BindEnv(domain.KeyToken, envPrefix+"_TOKEN", envPrefix+"_SLACK_TOKEN")
	return v
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetWiring registers the function that builds the services.
func SetWiring(w Wiring) {
	wiring = w
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight calls.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeAll()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error("%v", err)
	}
	return err
}

// setup runs before every command: logging, then wiring.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if wiring != nil && settingsService == nil {
		svc, err := wiring(configDir, overrides)
		if err != nil {
			return fmt.Errorf("initialise: %w", err)
		}
		settingsService = svc.Settings
		authService = svc.Auth
		buildExport = svc.Export
	}

	if settingsService == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		// A broken value must not lock the user out of 'config set'.
		logger.Warn("config: %v", err)
		return nil
	}
	if settings.LogFile != "" {
		closer, err := logger.SetFile(settings.LogFile, settings.LogLevel)
		if err != nil {
			logger.Warn("log file: %v", err)
			return nil
		}
		closers = append(closers, closer)
	}
	return nil
}

// requireExport returns the export service, building it on first use.
func requireExport(ctx context.Context) (driving.ExportService, error) {
	if exportService != nil {
		return exportService, nil
	}
	if buildExport == nil || settingsService == nil {
		return nil, errors.New("export service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	svc, closer, err := buildExport(ctx, *settings)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	exportService = svc
	return svc, nil
}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}
	closers = nil
}
