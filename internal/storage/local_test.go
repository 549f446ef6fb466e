package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "nested", "scratch")

		storage, err := NewLocalStorage(tempDir)
		require.NoError(t, err)
		assert.Equal(t, tempDir, storage.TempDir())

		info, err := os.Stat(tempDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), "versesplit"), storage.TempDir())
	})
}

func TestLocalStorage_CreateTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("creates unique empty files", func(t *testing.T) {
		a, err := storage.CreateTemp(ctx, "verse-*.wav")
		require.NoError(t, err)
		b, err := storage.CreateTemp(ctx, "verse-*.wav")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		for _, p := range []string{a, b} {
			assert.Equal(t, storage.TempDir(), filepath.Dir(p))
			assert.True(t, strings.HasSuffix(p, ".wav"), p)
			info, err := os.Stat(p)
			require.NoError(t, err)
			assert.Zero(t, info.Size())
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.CreateTemp(ctx, "x-*")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		var paths []string
		for i := 0; i < 3; i++ {
			p, err := storage.CreateTemp(ctx, "cleanup-*")
			require.NoError(t, err)
			paths = append(paths, p)
		}

		require.NoError(t, storage.CleanupTemp(ctx, paths))
		for _, p := range paths {
			_, err := os.Stat(p)
			assert.True(t, os.IsNotExist(err), "file %s still exists", p)
		}
	})

	t.Run("ignores non-existent files", func(t *testing.T) {
		assert.NoError(t, storage.CleanupTemp(ctx, []string{"/non/existent/file"}))
	})

	t.Run("keeps going after a failure", func(t *testing.T) {
		dir := filepath.Join(storage.TempDir(), "not-empty")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "child"), 0o750))
		p, err := storage.CreateTemp(ctx, "after-*")
		require.NoError(t, err)

		err = storage.CleanupTemp(ctx, []string{dir, p})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not-empty")
		_, statErr := os.Stat(p)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.CleanupTemp(ctx, []string{"/some/path"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_Publish(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Publish(context.Background(), "key", bytes.NewReader([]byte("data")))
	assert.ErrorIs(t, err, ErrRemoteNotConfigured)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "verse-1.mp3", ObjectKey("", "verse-1.mp3"))
	assert.Equal(t, "audio/verse-1.mp3", ObjectKey("audio", "verse-1.mp3"))
	assert.Equal(t, "a/b/verse-1.mp3", ObjectKey("/a/b/", "verse-1.mp3"))
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}
