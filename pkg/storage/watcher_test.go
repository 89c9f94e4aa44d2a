package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_FiresOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"authorized_users": {}}`), 0600))

	changed := make(chan struct{}, 1)
	w := NewWatcher(path, 20*time.Millisecond, nil, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch a moment to attach before mutating the file.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"authorized_users": {"29:u1": {"name": "Alice", "role": "user"}}}`), 0600))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected onChange after file write")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"authorized_users": {}}`), 0600))

	changed := make(chan struct{}, 1)
	w := NewWatcher(path, 20*time.Millisecond, nil, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0600))

	select {
	case <-changed:
		t.Fatal("onChange fired for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_SurvivesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"authorized_users": {}}`), 0600))

	changed := make(chan struct{}, 1)
	w := NewWatcher(path, 20*time.Millisecond, nil, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)

	// Mimic FileStore.Save: write a temp file, then rename over the target.
	tmp := filepath.Join(dir, "authorized_users.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"authorized_users": {}}`), 0600))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected onChange after atomic replace")
	}
}
