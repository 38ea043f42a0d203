/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lumentrack/console/internal/consoleerr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Repository persists Track, BeatGrid, HotCue, and TrackWaveform records.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRepository wraps a gorm connection for library persistence.
func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, logger: logger.With().Str("component", "library").Logger()}
}

// CreateTrack inserts a new track, assigning it a fresh ID.
func (r *Repository) CreateTrack(ctx context.Context, t *Track) error {
	t.ID = uuid.NewString()
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create track: %w", err)
	}
	return nil
}

// GetTrack fetches one track by id.
func (r *Repository) GetTrack(ctx context.Context, id string) (*Track, error) {
	var t Track
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("track %s: %w", id, consoleerr.ErrNotFound)
		}
		return nil, fmt.Errorf("query track: %w", err)
	}
	return &t, nil
}

// ListTracks returns tracks ordered by artist then title.
func (r *Repository) ListTracks(ctx context.Context) ([]Track, error) {
	var tracks []Track
	if err := r.db.WithContext(ctx).Order("artist, title").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

// UpdateTrack persists changed fields on an existing track.
func (r *Repository) UpdateTrack(ctx context.Context, t *Track) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	return nil
}

// DeleteTrack removes a track and its dependent beat grid, hot cues, and
// waveform rows.
func (r *Repository) DeleteTrack(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&HotCue{}, "track_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete hot cues: %w", err)
		}
		if err := tx.Delete(&BeatGrid{}, "track_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete beat grid: %w", err)
		}
		if err := tx.Delete(&TrackWaveform{}, "track_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete waveform: %w", err)
		}
		if err := tx.Delete(&Track{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete track: %w", err)
		}
		return nil
	})
}

// UpsertBeatGrid replaces the beat grid for a track.
func (r *Repository) UpsertBeatGrid(ctx context.Context, bg *BeatGrid) error {
	var existing BeatGrid
	err := r.db.WithContext(ctx).First(&existing, "track_id = ?", bg.TrackID).Error
	switch {
	case err == nil:
		bg.ID = existing.ID
		if err := r.db.WithContext(ctx).Save(bg).Error; err != nil {
			return fmt.Errorf("update beat grid: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		bg.ID = uuid.NewString()
		if err := r.db.WithContext(ctx).Create(bg).Error; err != nil {
			return fmt.Errorf("create beat grid: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("query beat grid: %w", err)
	}
}

// GetBeatGrid fetches the beat grid for a track, if analyzed.
func (r *Repository) GetBeatGrid(ctx context.Context, trackID string) (*BeatGrid, error) {
	var bg BeatGrid
	if err := r.db.WithContext(ctx).First(&bg, "track_id = ?", trackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("beat grid for track %s: %w", trackID, consoleerr.ErrNotFound)
		}
		return nil, fmt.Errorf("query beat grid: %w", err)
	}
	return &bg, nil
}

// SetHotCue creates or replaces the hot cue in the given slot (0..=3).
func (r *Repository) SetHotCue(ctx context.Context, hc *HotCue) error {
	if hc.Slot < 0 || hc.Slot > 3 {
		return fmt.Errorf("hot cue slot %d: %w", hc.Slot, consoleerr.ErrInvalidInput)
	}

	var existing HotCue
	err := r.db.WithContext(ctx).First(&existing, "track_id = ? AND slot = ?", hc.TrackID, hc.Slot).Error
	switch {
	case err == nil:
		hc.ID = existing.ID
		if err := r.db.WithContext(ctx).Save(hc).Error; err != nil {
			return fmt.Errorf("update hot cue: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		hc.ID = uuid.NewString()
		if err := r.db.WithContext(ctx).Create(hc).Error; err != nil {
			return fmt.Errorf("create hot cue: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("query hot cue: %w", err)
	}
}

// ListHotCues returns a track's hot cues ordered by slot.
func (r *Repository) ListHotCues(ctx context.Context, trackID string) ([]HotCue, error) {
	var cues []HotCue
	if err := r.db.WithContext(ctx).Order("slot").Find(&cues, "track_id = ?", trackID).Error; err != nil {
		return nil, fmt.Errorf("list hot cues: %w", err)
	}
	return cues, nil
}

// DeleteHotCue clears the hot cue in the given slot.
func (r *Repository) DeleteHotCue(ctx context.Context, trackID string, slot int) error {
	if err := r.db.WithContext(ctx).Delete(&HotCue{}, "track_id = ? AND slot = ?", trackID, slot).Error; err != nil {
		return fmt.Errorf("delete hot cue: %w", err)
	}
	return nil
}

// UpsertWaveform replaces the precomputed waveform for a track.
func (r *Repository) UpsertWaveform(ctx context.Context, wf *TrackWaveform) error {
	var existing TrackWaveform
	err := r.db.WithContext(ctx).First(&existing, "track_id = ?", wf.TrackID).Error
	switch {
	case err == nil:
		wf.ID = existing.ID
		if err := r.db.WithContext(ctx).Save(wf).Error; err != nil {
			return fmt.Errorf("update waveform: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		wf.ID = uuid.NewString()
		if err := r.db.WithContext(ctx).Create(wf).Error; err != nil {
			return fmt.Errorf("create waveform: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("query waveform: %w", err)
	}
}

// GetWaveform fetches the precomputed waveform for a track, if generated.
func (r *Repository) GetWaveform(ctx context.Context, trackID string) (*TrackWaveform, error) {
	var wf TrackWaveform
	if err := r.db.WithContext(ctx).First(&wf, "track_id = ?", trackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("waveform for track %s: %w", trackID, consoleerr.ErrNotFound)
		}
		return nil, fmt.Errorf("query waveform: %w", err)
	}
	return &wf, nil
}
