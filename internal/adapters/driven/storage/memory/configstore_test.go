package memory

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("slack.token", "xoxp-1"))
	require.NoError(t, store.Set("slack.token", "xoxp-2"))

	val, ok := store.Get("slack.token")
	assert.True(t, ok)
	assert.Equal(t, "xoxp-2", val)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("export.workers", 4))
	require.NoError(t, store.Set("retry.max_attempts", int64(5)))
	require.NoError(t, store.Set("log.verbose", true))
	require.NoError(t, store.Set("export.types", "public, im ,"))
	require.NoError(t, store.Set("export.list", []any{"a", 1, "b"}))

	assert.Equal(t, 4, store.GetInt("export.workers"))
	assert.Equal(t, 5, store.GetInt("retry.max_attempts"))
	assert.True(t, store.GetBool("log.verbose"))
	assert.Equal(t, []string{"public", "im"}, store.GetStringSlice("export.types"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("export.list"))
}

func TestConfigStore_WrongTypesReturnZero(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("export.workers", "four"))

	assert.Zero(t, store.GetInt("export.workers"))
	assert.False(t, store.GetBool("export.workers"))
	assert.Empty(t, store.GetString("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_ConflictingKeys(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("slack.token", "xoxp-1"))

	assert.Error(t, store.Set("slack", "flat"))
	assert.Error(t, store.Set("slack.token.extra", "x"))
	assert.NoError(t, store.Set("slacker", "ok"), "shared prefix without a dot is fine")
}

func TestConfigStore_FailWrites(t *testing.T) {
	store := NewConfigStore()
	errDisk := errors.New("disk full")
	store.FailWrites(errDisk)

	assert.ErrorIs(t, store.Set("a", 1), errDisk)
	assert.ErrorIs(t, store.Save(), errDisk)
	_, ok := store.Get("a")
	assert.False(t, ok)

	store.FailWrites(nil)
	assert.NoError(t, store.Set("a", 1))
}

func TestConfigStore_Snapshot(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("a", 1))

	snap := store.Snapshot()
	snap["b"] = 2

	_, ok := store.Get("b")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, store.Snapshot())
}

func TestConfigStore_Concurrent(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("export.workers", i)
			_ = store.GetInt("export.workers")
		}()
	}
	wg.Wait()

	_, ok := store.Get("export.workers")
	assert.True(t, ok)
}
