/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage stores and serves the audio files backing library tracks,
// on the local filesystem or S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// Storage abstracts where track audio files live.
type Storage interface {
	Store(ctx context.Context, trackID, filename string, file io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	CheckAccess(ctx context.Context) error
}

// buildTrackKey returns the storage key for a track's audio file.
func buildTrackKey(trackID, filename string) string {
	return "tracks/" + trackID + "/" + filename
}
