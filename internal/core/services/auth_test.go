package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slack-archive/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// authMockFactory hands out exportMockSlackAPI clients and records tokens.
type authMockFactory struct {
	tokens  []string
	authErr error
}

type failingAuthAPI struct {
	*exportMockSlackAPI
	err error
}

func (f *failingAuthAPI) AuthTest(_ context.Context) (*domain.Identity, error) {
	return nil, f.err
}

func (f *authMockFactory) New(_ context.Context, token string) (driven.SlackAPI, error) {
	f.tokens = append(f.tokens, token)
	if f.authErr != nil {
		return &failingAuthAPI{exportMockSlackAPI: newExportMockSlackAPI(), err: f.authErr}, nil
	}
	return newExportMockSlackAPI(), nil
}

func TestAuthService_LoginStoresToken(t *testing.T) {
	store := memory.NewConfigStore()
	factory := &authMockFactory{}
	service := NewAuthService(factory, NewSettingsService(store))

	identity, err := service.Login(context.Background(), " xoxp-good ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", identity.Team)
	assert.Equal(t, []string{"xoxp-good"}, factory.tokens)
	assert.Equal(t, "xoxp-good", store.GetString(domain.KeyToken))
}

func TestAuthService_LoginRejectedTokenNotStored(t *testing.T) {
	store := memory.NewConfigStore()
	factory := &authMockFactory{authErr: errors.New("invalid_auth")}
	service := NewAuthService(factory, NewSettingsService(store))

	_, err := service.Login(context.Background(), "xoxp-bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
	assert.Empty(t, store.GetString(domain.KeyToken))
}

func TestAuthService_LoginEmptyToken(t *testing.T) {
	service := NewAuthService(&authMockFactory{}, NewSettingsService(memory.NewConfigStore()))

	_, err := service.Login(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_Whoami(t *testing.T) {
	store := memory.NewConfigStore()
	factory := &authMockFactory{}
	service := NewAuthService(factory, NewSettingsService(store))

	_, err := service.Whoami(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_ = store.Set(domain.KeyToken, "xoxp-stored")
	identity, err := service.Whoami(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.User)
	assert.Equal(t, []string{"xoxp-stored"}, factory.tokens)
}
