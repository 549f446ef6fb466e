// Package storage provides scratch-file handling for the exporter and
// optional publishing of exported files to object storage.
package storage

import (
	"context"
	"io"
)

// TempStore hands out scratch files and removes them afterwards.
type TempStore interface {
	// CreateTemp creates a new empty file whose name matches pattern (as in
	// os.CreateTemp) and returns its path. The file is closed.
	CreateTemp(ctx context.Context, pattern string) (path string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}

// Publisher copies a finished file to remote storage.
type Publisher interface {
	// Publish uploads data under key and returns its public URL.
	// Returns ErrRemoteNotConfigured if no remote is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// Storage combines scratch files and publishing.
type Storage interface {
	TempStore
	Publisher
}
