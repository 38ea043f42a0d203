/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package tracking accumulates cue values into the "tracking layer": static
// channel overlays plus active effect and pixel-effect mappings, absorbed
// from whichever cue is currently applied.
package tracking

import (
	"sync"

	"github.com/lumentrack/console/internal/effect"
	"github.com/lumentrack/console/internal/fixture"
)

// ChannelKey identifies one (fixture, role) overlay slot.
type ChannelKey struct {
	FixtureID int
	Role      fixture.ChannelRole
}

// EffectMapping is the tracking-layer record of one active effect: which
// fixtures/roles it targets, its waveform parameters, and its distribution.
type EffectMapping struct {
	Name       string
	Params     effect.Params
	FixtureIDs []int
	Roles      []fixture.ChannelRole
	Distribution effect.Distribution
}

// PixelEffectMapping is the tracking-layer record of one active pixel
// effect; the pixel engine owns interpretation of Effect.
type PixelEffectMapping struct {
	Name         string
	FixtureIDs   []int
	Effect       effect.Params
	Distribution effect.Distribution
}

// State is the tracking layer: accumulated static overlays plus ordered
// effect/pixel-effect lists, guarded by a single reader/writer lock.
type State struct {
	mu           sync.RWMutex
	statics      map[ChannelKey]uint8
	effects      []EffectMapping
	pixelEffects []PixelEffectMapping
}

// NewState returns an empty tracking layer.
func NewState() *State {
	return &State{statics: make(map[ChannelKey]uint8)}
}

// Clear removes every static overlay, effect, and pixel effect.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statics = make(map[ChannelKey]uint8)
	s.effects = nil
	s.pixelEffects = nil
}

// CueApplication is the subset of a cue's content the tracking layer merges.
type CueApplication struct {
	IsBlocking   bool
	Statics      map[ChannelKey]uint8
	Effects      []EffectMapping
	PixelEffects []PixelEffectMapping
}

// ApplyCue merges (or, for a blocking cue, replaces) a cue's values into the
// tracking layer. A blocking cue clears first; a non-blocking cue merges,
// replacing individual keys.
func (s *State) ApplyCue(c CueApplication) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.IsBlocking {
		s.statics = make(map[ChannelKey]uint8, len(c.Statics))
		s.effects = nil
		s.pixelEffects = nil
	}
	for k, v := range c.Statics {
		s.statics[k] = v
	}
	s.effects = append(s.effects, c.Effects...)
	s.pixelEffects = append(s.pixelEffects, c.PixelEffects...)
}

// Statics returns a snapshot of the current static overlay map.
func (s *State) Statics() map[ChannelKey]uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[ChannelKey]uint8, len(s.statics))
	for k, v := range s.statics {
		out[k] = v
	}
	return out
}

// Effects returns a snapshot of the active effect mappings.
func (s *State) Effects() []EffectMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EffectMapping, len(s.effects))
	copy(out, s.effects)
	return out
}

// PixelEffects returns a snapshot of the active pixel effect mappings.
func (s *State) PixelEffects() []PixelEffectMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PixelEffectMapping, len(s.pixelEffects))
	copy(out, s.pixelEffects)
	return out
}

// Count returns the number of static overlays currently tracked, used for
// the periodic "tracking count" state event (§4.10 step 10).
func (s *State) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.statics)
}
