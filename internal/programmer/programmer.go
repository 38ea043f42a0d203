/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package programmer implements the live override layer: a selection of
// fixtures, manually set channel values, and optional effects, applied as
// the highest-priority write just before DMX composition when preview mode
// is on. The override-map shape mirrors a DMX override layer sitting above
// composed state (channel overrides keyed by fixture+role, cleared in bulk
// or individually).
package programmer

import (
	"sync"

	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/tracking"
)

// State is the programmer's live-override layer.
type State struct {
	mu          sync.RWMutex
	selected    map[int]bool
	statics     map[tracking.ChannelKey]uint8
	effects     []tracking.EffectMapping
	previewMode bool
}

// NewState returns an empty programmer.
func NewState() *State {
	return &State{
		selected: make(map[int]bool),
		statics:  make(map[tracking.ChannelKey]uint8),
	}
}

// SetPreviewMode toggles whether GetValues returns overrides for the main
// loop to apply.
func (s *State) SetPreviewMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewMode = enabled
}

// PreviewMode reports whether preview mode is currently enabled.
func (s *State) PreviewMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previewMode
}

// SetSelectedFixtures replaces the selection set wholesale.
func (s *State) SetSelectedFixtures(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[int]bool, len(ids))
	for _, id := range ids {
		s.selected[id] = true
	}
}

// AddSelectedFixture adds one fixture to the selection.
func (s *State) AddSelectedFixture(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[id] = true
}

// RemoveSelectedFixture removes one fixture from the selection.
func (s *State) RemoveSelectedFixture(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// ClearSelectedFixtures empties the selection set without touching overrides.
func (s *State) ClearSelectedFixtures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[int]bool)
}

// SelectedFixtures returns a snapshot of the currently selected fixture ids.
func (s *State) SelectedFixtures() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	return out
}

// AddValue sets a manual channel override for a fixture/role.
func (s *State) AddValue(fixtureID int, role fixture.ChannelRole, value uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statics[tracking.ChannelKey{FixtureID: fixtureID, Role: role}] = value
}

// AddEffect registers a programmer-driven effect mapping.
func (s *State) AddEffect(m tracking.EffectMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, m)
}

// Clear removes all overrides, the selection, and any programmer effects,
// but leaves preview mode untouched.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[int]bool)
	s.statics = make(map[tracking.ChannelKey]uint8)
	s.effects = nil
}

// GetValues returns the current override map. The main loop applies this
// map as the final channel-writing step before DMX composition only when
// PreviewMode is on and the map is non-empty.
func (s *State) GetValues() map[tracking.ChannelKey]uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[tracking.ChannelKey]uint8, len(s.statics))
	for k, v := range s.statics {
		out[k] = v
	}
	return out
}

// GetEffects returns the current programmer-driven effect mappings.
func (s *State) GetEffects() []tracking.EffectMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracking.EffectMapping, len(s.effects))
	copy(out, s.effects)
	return out
}
