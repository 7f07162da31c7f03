package layered

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slack-archive/internal/adapters/driven/storage/memory"
)

func newBase(t *testing.T) *memory.ConfigStore {
	t.Helper()
	base := memory.NewConfigStore()
	require.NoError(t, base.Set("slack.token", "xoxp-file"))
	require.NoError(t, base.Set("export.workers", 2))
	return base
}

func TestStore_FallsBackToBase(t *testing.T) {
	store := New(newBase(t), nil)

	assert.Equal(t, "xoxp-file", store.GetString("slack.token"))
	assert.Equal(t, 2, store.GetInt("export.workers"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestStore_OverrideWins(t *testing.T) {
	v := viper.New()
	v.Set("slack.token", "xoxp-flag")
	v.Set("export.workers", "7")
	store := New(newBase(t), v)

	assert.Equal(t, "xoxp-flag", store.GetString("slack.token"))
	assert.Equal(t, 7, store.GetInt("export.workers"))
	val, ok := store.Get("slack.token")
	assert.True(t, ok)
	assert.Equal(t, "xoxp-flag", val)
}

func TestStore_EnvironmentOverride(t *testing.T) {
	t.Setenv("SLACK_ARCHIVE_TOKEN", "xoxp-env")
	v := viper.New()
	require.NoError(t, v.BindEnv("slack.token", "SLACK_ARCHIVE_TOKEN"))
	store := New(newBase(t), v)

	assert.Equal(t, "xoxp-env", store.GetString("slack.token"))
}

func TestStore_SetWritesThroughToBase(t *testing.T) {
	base := newBase(t)
	v := viper.New()
	v.Set("slack.token", "xoxp-flag")
	store := New(base, v)

	require.NoError(t, store.Set("slack.token", "xoxp-saved"))

	assert.Equal(t, "xoxp-saved", base.GetString("slack.token"))
	assert.Equal(t, "xoxp-flag", store.GetString("slack.token"), "override still wins on read")
}

func TestStore_StringSliceAndBool(t *testing.T) {
	v := viper.New()
	v.Set("export.types", []string{"public", "im"})
	v.Set("log.verbose", "true")
	store := New(newBase(t), v)

	assert.Equal(t, []string{"public", "im"}, store.GetStringSlice("export.types"))
	assert.True(t, store.GetBool("log.verbose"))
}
