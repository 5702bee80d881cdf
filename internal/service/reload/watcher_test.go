package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWatcher_RebuildsOnWrite writes the watched file and waits for rebuilds,
// including after a failing rebuild.
func TestWatcher_RebuildsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "update-manager.yaml")
	require.NoError(t, os.WriteFile(path, []byte("update_manager: {}\n"), 0o600))

	calls := make(chan struct{}, 8)
	rebuild := func(context.Context) error {
		calls <- struct{}{}

		return errors.New("broken configuration")
	}

	w, err := NewWatcher(path, rebuild, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: {}\n"), 0o600))

	for range 2 {
		require.NoError(t, os.WriteFile(path, []byte("update_manager:\n  channel: stable\n"), 0o600))

		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatal("rebuild was not triggered")
		}
	}

	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

// TestNewWatcher_MissingDirectory fails when the directory cannot be watched.
func TestNewWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "cfg.yaml"), func(context.Context) error {
		return nil
	})
	require.Error(t, err)
}
