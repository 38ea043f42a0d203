/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package settings implements the persisted show-configuration document:
// target frame rate, autosave policy, audio device selection, MIDI and
// Art-Net transport parameters, and the WLED toggle. It round-trips through
// JSON and validates every field against its declared range.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lumentrack/console/internal/consoleerr"
)

// SchemaVersion is bumped whenever a field is added or its meaning changes.
// A mismatched version on Load only warns; it never blocks startup.
const SchemaVersion = 1

// Document is the on-disk JSON settings document.
type Document struct {
	Version      int       `json:"version"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// Settings is the validated settings payload described in the command/event
// interface's config-file schema.
type Settings struct {
	TargetFPS            uint32 `json:"target_fps"`
	EnableAutosave       bool   `json:"enable_autosave"`
	AutosaveIntervalSecs uint32 `json:"autosave_interval_secs"`

	AudioDevice      string `json:"audio_device"`
	AudioBufferSize  uint32 `json:"audio_buffer_size"`
	AudioSampleRate  uint32 `json:"audio_sample_rate"`

	MidiEnabled bool   `json:"midi_enabled"`
	MidiDevice  string `json:"midi_device"`
	MidiChannel uint8  `json:"midi_channel"`

	DmxEnabled   bool   `json:"dmx_enabled"`
	DmxBroadcast bool   `json:"dmx_broadcast"`
	DmxSourceIP  string `json:"dmx_source_ip"`
	DmxDestIP    string `json:"dmx_dest_ip"`
	DmxPort      uint16 `json:"dmx_port"`

	WledEnabled bool   `json:"wled_enabled"`
	WledIP      string `json:"wled_ip"`
}

var validAudioBufferSizes = map[uint32]bool{128: true, 256: true, 512: true, 1024: true, 2048: true}
var validAudioSampleRates = map[uint32]bool{44100: true, 48000: true, 96000: true}

// Default returns the baseline settings document.
func Default() Settings {
	return Settings{
		TargetFPS:            44,
		EnableAutosave:       true,
		AutosaveIntervalSecs: 300,
		AudioDevice:          "",
		AudioBufferSize:      512,
		AudioSampleRate:      44100,
		MidiEnabled:          false,
		MidiChannel:          1,
		DmxEnabled:           true,
		DmxBroadcast:         true,
		DmxSourceIP:          "0.0.0.0",
		DmxDestIP:            "255.255.255.255",
		DmxPort:              6454,
		WledEnabled:          false,
	}
}

// Validate checks every field's declared range and returns a
// *consoleerr.ValidationErrors naming every field out of range, or nil.
func Validate(s Settings) error {
	var errs consoleerr.ValidationErrors

	if s.TargetFPS < 30 || s.TargetFPS > 120 {
		errs.Add("target_fps")
	}
	if s.AutosaveIntervalSecs < 60 || s.AutosaveIntervalSecs > 3600 {
		errs.Add("autosave_interval_secs")
	}
	if !validAudioBufferSizes[s.AudioBufferSize] {
		errs.Add("audio_buffer_size")
	}
	if !validAudioSampleRates[s.AudioSampleRate] {
		errs.Add("audio_sample_rate")
	}
	if s.MidiEnabled && (s.MidiChannel < 1 || s.MidiChannel > 16) {
		errs.Add("midi_channel")
	}
	if s.DmxEnabled && (s.DmxPort < 1024) {
		errs.Add("dmx_port")
	}

	return errs.ErrOrNil()
}

// Load reads and parses the settings document at path. A missing file is not
// an error: the caller receives the defaults. A schema version mismatch is
// logged by the caller (Load only returns it via Document.Version) and
// parsing proceeds regardless.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		now := time.Now()
		return Document{Version: SchemaVersion, Settings: Default(), CreatedAt: now, ModifiedAt: now}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read settings file %s: %w", path, consoleerr.ErrIoError)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse settings file %s: %w", path, consoleerr.ErrParseError)
	}
	return doc, nil
}

// Save validates and writes the settings document to path.
func Save(path string, doc Document) error {
	if err := Validate(doc.Settings); err != nil {
		return err
	}
	doc.ModifiedAt = time.Now()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", consoleerr.ErrParseError)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file %s: %w", path, consoleerr.ErrIoError)
	}
	return nil
}
