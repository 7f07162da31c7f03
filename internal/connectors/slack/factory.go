package slack

import (
	"context"
	"net/http"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.SlackAPIFactory = (*Factory)(nil)

// Factory creates clients sharing one configuration.
type Factory struct {
	baseURL    string
	tiers      RetryTiers
	limiter    *TierLimiter
	httpClient *http.Client
}

// NewFactory creates a factory from settings. Clients created by the same
// factory share one throttle, so concurrent retrievals stay within limits.
func NewFactory(settings domain.Settings, httpClient *http.Client) *Factory {
	return &Factory{
		baseURL:    settings.BaseURL,
		tiers:      NewRetryTiers(settings.Retry),
		limiter:    NewTierLimiter(),
		httpClient: httpClient,
	}
}

// New creates a client authenticating with token.
func (f *Factory) New(ctx context.Context, token string) (driven.SlackAPI, error) {
	tiers := f.tiers
	return NewClient(ctx, Options{
		Token:      token,
		BaseURL:    f.baseURL,
		Tiers:      &tiers,
		Limiter:    f.limiter,
		HTTPClient: f.httpClient,
	})
}
