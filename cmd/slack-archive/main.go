// Command slack-archive archives a Slack workspace: conversations, users,
// file metadata and message history into a local SQLite archive, and shared
// files into one folder per conversation.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/custodia-labs/slack-archive/internal/adapters/driven/config/file"
	"github.com/custodia-labs/slack-archive/internal/adapters/driven/config/layered"
	"github.com/custodia-labs/slack-archive/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/slack-archive/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/slack-archive/internal/adapters/driving/cli"
	"github.com/custodia-labs/slack-archive/internal/connectors/slack"
	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
	"github.com/custodia-labs/slack-archive/internal/core/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetWiring(wire)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// wire builds the services once flags are parsed.
func wire(configDir string, overrides *viper.Viper) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(layered.New(fileStore, overrides))

	settings, err := settingsService.Get()
	if err != nil {
		// Keep 'config set' usable; commands that need settings fail later.
		defaults := domain.DefaultSettings()
		settings = &defaults
	}
	authService := services.NewAuthService(slack.NewFactory(*settings, nil), settingsService)

	return &cli.Services{
		Settings: settingsService,
		Auth:     authService,
		Export: func(ctx context.Context, s domain.Settings) (driving.ExportService, io.Closer, error) {
			return buildExport(ctx, configDir, s)
		},
	}, nil
}

func buildExport(ctx context.Context, configDir string, s domain.Settings) (driving.ExportService, io.Closer, error) {
	api, err := slack.NewFactory(s, nil).New(ctx, s.Token)
	if err != nil {
		return nil, nil, err
	}

	dataDir := s.ArchivePath
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	cache, err := bolt.NewHashCache(dataDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	fsys := afero.NewOsFs()
	svc := services.NewExportService(
		api,
		store.ArchiveStore(),
		store.RunStore(),
		fsys,
		services.NewConflictResolver(fsys, cache),
		s,
	)
	return svc, closerFunc(func() error {
		return errors.Join(cache.Close(), store.Close())
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
