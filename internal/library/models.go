/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library owns the track library's persisted models and repository:
// Track, BeatGrid, HotCue, and TrackWaveform, plus object storage for the
// underlying audio files.
package library

import (
	"time"
)

// Track is one importable audio file in the library.
type Track struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	FilePath   string `gorm:"index"`
	StorageKey string
	Title      string `gorm:"index"`
	Artist     string `gorm:"index"`
	Duration   float64
	BPM        float64
	MusicalKey string `gorm:"type:varchar(8)"`
	Format     string `gorm:"type:varchar(16)"`
	SampleRate int
	BitDepth   int
	Channels   int
	FileSize   int64
	PlayCount  int
	Rating     int
	Comment    string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BeatGrid is the detected beat positions for a track.
type BeatGrid struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	TrackID           string    `gorm:"type:uuid;uniqueIndex"`
	FirstBeatOffsetMs float64
	BeatPositions     []float64 `gorm:"serializer:json"`
	Confidence        float64
	AlgorithmVersion  string `gorm:"type:varchar(32)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HotCue is a saved cue point within a track, unique per (track, slot).
type HotCue struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	TrackID   string `gorm:"type:uuid;uniqueIndex:idx_track_slot"`
	Slot      int    `gorm:"uniqueIndex:idx_track_slot"`
	Position  float64
	Name      string `gorm:"type:varchar(64)"`
	ColorR    *uint8
	ColorG    *uint8
	ColorB    *uint8
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FrequencyBands are the normalized low/mid/high energy for one waveform
// bucket, summing to approximately 1.
type FrequencyBands struct {
	Low  float32 `json:"low"`
	Mid  float32 `json:"mid"`
	High float32 `json:"high"`
}

// TrackWaveform is the precomputed peak-amplitude (and optional per-band)
// waveform data used to render a track's scrub bar.
type TrackWaveform struct {
	ID             string           `gorm:"type:uuid;primaryKey"`
	TrackID        string           `gorm:"type:uuid;uniqueIndex"`
	Samples        []float32        `gorm:"serializer:json"`
	Bands          []FrequencyBands `gorm:"serializer:json"`
	SampleCount    int
	DurationSecs   float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
