/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemStorage implements Storage using a local directory tree.
type FilesystemStorage struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFilesystemStorage creates a filesystem-based track storage backend.
func NewFilesystemStorage(rootDir string, logger zerolog.Logger) *FilesystemStorage {
	return &FilesystemStorage{rootDir: rootDir, logger: logger}
}

// Store saves a track's audio file under tracks/{trackID}/{filename}.
func (fs *FilesystemStorage) Store(ctx context.Context, trackID, filename string, file io.Reader) (string, error) {
	key := buildTrackKey(trackID, filename)
	fullPath := filepath.Join(fs.rootDir, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("create directories: %w", err)
	}

	dest, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("write file: %w", err)
	}

	fs.logger.Debug().Str("path", fullPath).Str("track_id", trackID).Msg("filesystem storage: track stored")
	return key, nil
}

// Delete removes a track's audio file.
func (fs *FilesystemStorage) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(fs.rootDir, key)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	fs.logger.Debug().Str("path", fullPath).Msg("filesystem storage: track deleted")
	return nil
}

// URL returns the local filesystem key, unresolved against the root.
func (fs *FilesystemStorage) URL(key string) string {
	return key
}

// CheckAccess verifies the library root directory exists.
func (fs *FilesystemStorage) CheckAccess(ctx context.Context) error {
	info, err := os.Stat(fs.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("library root directory does not exist: %s", fs.rootDir)
		}
		return fmt.Errorf("cannot access library root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("library root is not a directory: %s", fs.rootDir)
	}
	return nil
}
