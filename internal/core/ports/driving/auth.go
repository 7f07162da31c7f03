package driving

import (
	"context"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// AuthService verifies and stores Slack tokens.
type AuthService interface {
	// Login checks the token against Slack and stores it on success.
	Login(ctx context.Context, token string) (*domain.Identity, error)

	// Whoami checks the stored token.
	Whoami(ctx context.Context) (*domain.Identity, error)
}
