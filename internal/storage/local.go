package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrRemoteNotConfigured is returned when publishing is attempted without
// a remote backend.
var ErrRemoteNotConfigured = errors.New("remote storage is not configured")

// LocalStorage implements Storage using local disk only. Publish is not
// supported unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage instance.
// If tempDir is empty, <os temp>/versesplit is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "versesplit")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// CreateTemp creates an empty scratch file in the temp directory.
func (s *LocalStorage) CreateTemp(ctx context.Context, pattern string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	f, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// CleanupTemp removes the specified temporary files. Missing files are not
// an error; every other failure is collected and returned joined.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove temp file %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Publish is not supported by LocalStorage and returns ErrRemoteNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrRemoteNotConfigured
}
