package settings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnExternalEdit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.OverwriteActive())
	assert.Equal(t, 16, store.ChannelCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, err := NewWatcher(ctx, store, 20*time.Millisecond)
	require.NoError(t, err)
	defer watcher.Stop()

	content := "channels:\n  display_range:\n    start: 1\n    end: 24\n"
	require.NoError(t, os.WriteFile(store.Registry().ResolveActivePath(), []byte(content), 0o644))

	assert.Eventually(t, func() bool {
		return store.ChannelCount() == 24
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, watcher.Reloads(), 1)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	store := newTestStore(t)
	store.Registry().Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, err := NewWatcher(ctx, store, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Registry().Resolve("config/notes.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	watcher.Stop()
	assert.Equal(t, 0, watcher.Reloads())
}
