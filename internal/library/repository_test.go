/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"errors"
	"testing"

	"github.com/lumentrack/console/internal/consoleerr"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Track{}, &BeatGrid{}, &HotCue{}, &TrackWaveform{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewRepository(db, zerolog.Nop())
}

func TestCreateAndGetTrack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	track := &Track{Title: "Strobe", Artist: "deadmau5", BPM: 128}
	if err := repo.CreateTrack(ctx, track); err != nil {
		t.Fatalf("CreateTrack() unexpected error: %v", err)
	}
	if track.ID == "" {
		t.Fatal("CreateTrack() did not assign an ID")
	}

	got, err := repo.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetTrack() unexpected error: %v", err)
	}
	if got.Title != "Strobe" {
		t.Errorf("GetTrack() title = %v, want Strobe", got.Title)
	}
}

func TestGetTrackNotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.GetTrack(context.Background(), "missing")
	if !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("GetTrack() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTrackCascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	track := &Track{Title: "Ghosts 'n' Stuff"}
	if err := repo.CreateTrack(ctx, track); err != nil {
		t.Fatalf("CreateTrack() unexpected error: %v", err)
	}
	if err := repo.UpsertBeatGrid(ctx, &BeatGrid{TrackID: track.ID, BeatPositions: []float64{0, 0.5, 1}}); err != nil {
		t.Fatalf("UpsertBeatGrid() unexpected error: %v", err)
	}
	if err := repo.SetHotCue(ctx, &HotCue{TrackID: track.ID, Slot: 0, Position: 12.5}); err != nil {
		t.Fatalf("SetHotCue() unexpected error: %v", err)
	}

	if err := repo.DeleteTrack(ctx, track.ID); err != nil {
		t.Fatalf("DeleteTrack() unexpected error: %v", err)
	}

	if _, err := repo.GetTrack(ctx, track.ID); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected track to be gone, got %v", err)
	}
	if _, err := repo.GetBeatGrid(ctx, track.ID); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected beat grid to be gone, got %v", err)
	}
}

func TestUpsertBeatGridReplacesExisting(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	track := &Track{Title: "Clarity"}
	if err := repo.CreateTrack(ctx, track); err != nil {
		t.Fatalf("CreateTrack() unexpected error: %v", err)
	}

	if err := repo.UpsertBeatGrid(ctx, &BeatGrid{TrackID: track.ID, Confidence: 0.5}); err != nil {
		t.Fatalf("UpsertBeatGrid() unexpected error: %v", err)
	}
	if err := repo.UpsertBeatGrid(ctx, &BeatGrid{TrackID: track.ID, Confidence: 0.9}); err != nil {
		t.Fatalf("UpsertBeatGrid() unexpected error: %v", err)
	}

	got, err := repo.GetBeatGrid(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetBeatGrid() unexpected error: %v", err)
	}
	if got.Confidence != 0.9 {
		t.Errorf("GetBeatGrid() confidence = %v, want 0.9", got.Confidence)
	}
}

func TestSetHotCueRejectsOutOfRangeSlot(t *testing.T) {
	repo := newTestRepository(t)
	err := repo.SetHotCue(context.Background(), &HotCue{TrackID: "t1", Slot: 4})
	if !errors.Is(err, consoleerr.ErrInvalidInput) {
		t.Fatalf("SetHotCue() error = %v, want ErrInvalidInput", err)
	}
}

func TestSetHotCueUpsertsBySlot(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	track := &Track{Title: "Raise Your Weapon"}
	if err := repo.CreateTrack(ctx, track); err != nil {
		t.Fatalf("CreateTrack() unexpected error: %v", err)
	}

	if err := repo.SetHotCue(ctx, &HotCue{TrackID: track.ID, Slot: 1, Position: 4.0, Name: "drop"}); err != nil {
		t.Fatalf("SetHotCue() unexpected error: %v", err)
	}
	if err := repo.SetHotCue(ctx, &HotCue{TrackID: track.ID, Slot: 1, Position: 8.0, Name: "drop2"}); err != nil {
		t.Fatalf("SetHotCue() unexpected error: %v", err)
	}

	cues, err := repo.ListHotCues(ctx, track.ID)
	if err != nil {
		t.Fatalf("ListHotCues() unexpected error: %v", err)
	}
	if len(cues) != 1 {
		t.Fatalf("ListHotCues() len = %d, want 1", len(cues))
	}
	if cues[0].Position != 8.0 {
		t.Errorf("ListHotCues() position = %v, want 8.0", cues[0].Position)
	}
}

func TestUpsertAndGetWaveform(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	track := &Track{Title: "Animal Rights"}
	if err := repo.CreateTrack(ctx, track); err != nil {
		t.Fatalf("CreateTrack() unexpected error: %v", err)
	}

	wf := &TrackWaveform{
		TrackID:      track.ID,
		Samples:      []float32{0.1, 0.4, 0.9, 0.2},
		Bands:        []FrequencyBands{{Low: 0.6, Mid: 0.3, High: 0.1}},
		SampleCount:  4,
		DurationSecs: 200,
	}
	if err := repo.UpsertWaveform(ctx, wf); err != nil {
		t.Fatalf("UpsertWaveform() unexpected error: %v", err)
	}

	got, err := repo.GetWaveform(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetWaveform() unexpected error: %v", err)
	}
	if len(got.Samples) != 4 {
		t.Errorf("GetWaveform() samples len = %d, want 4", len(got.Samples))
	}
}
