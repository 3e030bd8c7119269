package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain guards this package specifically because it is the only one
// in this codebase that spawns a background goroutine (Watcher.Run's
// event loop and its debounce timer) — everything else runs strictly
// single-threaded per spec §5.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcherDebouncesBurstIntoOneRun(t *testing.T) {
	root := t.TempDir()

	var runs int32
	w, err := New(root, 30*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.cpp"), []byte("x"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestWatcherRerunsIfChangeArrivesDuringRun(t *testing.T) {
	root := t.TempDir()

	var runs int32
	started := make(chan struct{}, 4)
	w, err := New(root, 10*time.Millisecond, func(context.Context) error {
		started <- struct{}{}
		atomic.AddInt32(&runs, 1)
		time.Sleep(40 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.cpp"), []byte("x"), 0o644))
	<-started

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.cpp"), []byte("x"), 0o644))
	<-started

	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}
