package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driving"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// AuthService verifies Slack tokens and stores them.
type AuthService struct {
	factory  driven.SlackAPIFactory
	settings driving.SettingsService
}

// NewAuthService creates a new auth service.
func NewAuthService(factory driven.SlackAPIFactory, settings driving.SettingsService) *AuthService {
	return &AuthService{
		factory:  factory,
		settings: settings,
	}
}

// Login checks the token against Slack and stores it on success.
func (s *AuthService) Login(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", domain.ErrInvalidInput)
	}

	identity, err := s.check(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.settings.SaveToken(token); err != nil {
		return nil, err
	}
	logger.Info("Authenticated as %s in %s", identity.User, identity.Team)
	return identity, nil
}

// Whoami checks the stored token.
func (s *AuthService) Whoami(ctx context.Context) (*domain.Identity, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings.Token == "" {
		return nil, fmt.Errorf("%w: no token stored", domain.ErrNotFound)
	}
	return s.check(ctx, settings.Token)
}

func (s *AuthService) check(ctx context.Context, token string) (*domain.Identity, error) {
	if s.factory == nil {
		return nil, errors.New("slack client factory not configured")
	}
	api, err := s.factory.New(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	identity, err := api.AuthTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return identity, nil
}
