/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package fixture owns the in-memory patched-fixture array: addressing,
// channel roles, and current 8-bit channel values. Mutation happens only
// under the package's reader/writer exclusion, matching the single
// whole-array lock the console uses for every shared collection.
package fixture

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lumentrack/console/internal/consoleerr"
)

// ChannelRole is the closed set of semantic channel roles a fixture profile
// can declare.
type ChannelRole string

const (
	RoleDimmer        ChannelRole = "dimmer"
	RoleRed           ChannelRole = "red"
	RoleGreen         ChannelRole = "green"
	RoleBlue          ChannelRole = "blue"
	RoleWhite         ChannelRole = "white"
	RoleAmber         ChannelRole = "amber"
	RoleUV            ChannelRole = "uv"
	RolePan           ChannelRole = "pan"
	RoleTilt          ChannelRole = "tilt"
	RoleTiltSpeed     ChannelRole = "tilt_speed"
	RoleStrobe        ChannelRole = "strobe"
	RoleColor         ChannelRole = "color"
	RoleGobo          ChannelRole = "gobo"
	RoleBeam          ChannelRole = "beam"
	RoleFocus         ChannelRole = "focus"
	RoleZoom          ChannelRole = "zoom"
	RoleFunction      ChannelRole = "function"
	RoleFunctionSpeed ChannelRole = "function_speed"
)

// OtherRole builds the Other(string) role variant for a profile-defined
// channel name with no built-in semantic meaning.
func OtherRole(name string) ChannelRole {
	return ChannelRole("other:" + name)
}

// Channel is one addressed DMX channel within a fixture.
type Channel struct {
	Role    ChannelRole
	Value   uint8
	Is16Bit bool // when true, this role's value packs as two bytes big-endian
}

// PanTiltLimits optionally restricts Pan/Tilt channel values.
type PanTiltLimits struct {
	Enabled  bool
	PanMin   uint8
	PanMax   uint8
	TiltMin  uint8
	TiltMax  uint8
}

// Fixture is a single patched lighting fixture.
type Fixture struct {
	ID            int
	ProfileRef    string
	Universe      int
	StartAddress  int
	Channels      []Channel
	PanTiltLimits PanTiltLimits
	IsPixelBar    bool
}

// ChannelCount returns the number of DMX channels this fixture occupies,
// counting 16-bit channels as two.
func (f *Fixture) ChannelCount() int {
	n := 0
	for _, c := range f.Channels {
		if c.Is16Bit {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Validate checks the DMX address safety invariant:
// start_address + channel_count - 1 <= 512.
func (f *Fixture) Validate() error {
	if f.Universe < 0 || f.Universe > 15 {
		return fmt.Errorf("fixture %d: universe %d out of range 0..=15: %w", f.ID, f.Universe, consoleerr.ErrInvalidInput)
	}
	if f.StartAddress < 1 || f.StartAddress > 512 {
		return fmt.Errorf("fixture %d: start_address %d out of range 1..=512: %w", f.ID, f.StartAddress, consoleerr.ErrInvalidInput)
	}
	if f.StartAddress+f.ChannelCount()-1 > 512 {
		return fmt.Errorf("fixture %d: channels overrun universe at address %d: %w", f.ID, f.StartAddress, consoleerr.ErrInvalidInput)
	}
	return nil
}

// channelIndex returns the index of the channel with the given role, or -1.
func (f *Fixture) channelIndex(role ChannelRole) int {
	for i, c := range f.Channels {
		if c.Role == role {
			return i
		}
	}
	return -1
}

// SetChannel sets the named role's value, honoring pan/tilt limits. Returns
// NotFound if the fixture has no channel with that role.
func (f *Fixture) SetChannel(role ChannelRole, value uint8) error {
	i := f.channelIndex(role)
	if i < 0 {
		return fmt.Errorf("fixture %d has no %s channel: %w", f.ID, role, consoleerr.ErrNotFound)
	}
	if f.PanTiltLimits.Enabled {
		switch role {
		case RolePan:
			value = clampByte(value, f.PanTiltLimits.PanMin, f.PanTiltLimits.PanMax)
		case RoleTilt:
			value = clampByte(value, f.PanTiltLimits.TiltMin, f.PanTiltLimits.TiltMax)
		}
	}
	f.Channels[i].Value = value
	return nil
}

func clampByte(v, lo, hi uint8) uint8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// State is the console's patched-fixture table, guarded by a single
// reader/writer lock per the concurrency model in §5.
type State struct {
	mu       sync.RWMutex
	fixtures map[int]*Fixture
	nextID   int
}

// NewState returns an empty fixture table.
func NewState() *State {
	return &State{fixtures: make(map[int]*Fixture), nextID: 1}
}

// Patch validates and adds a fixture, assigning it a deterministic id if f.ID
// is zero.
func (s *State) Patch(f Fixture) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == 0 {
		f.ID = s.nextID
	}
	if f.ID >= s.nextID {
		s.nextID = f.ID + 1
	}
	if err := f.Validate(); err != nil {
		return 0, err
	}
	s.fixtures[f.ID] = &f
	return f.ID, nil
}

// Unpatch removes a fixture. Returns NotFound if it doesn't exist.
func (s *State) Unpatch(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fixtures[id]; !ok {
		return fmt.Errorf("fixture %d: %w", id, consoleerr.ErrNotFound)
	}
	delete(s.fixtures, id)
	return nil
}

// Get returns a copy of the fixture with the given id.
func (s *State) Get(id int) (Fixture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fixtures[id]
	if !ok {
		return Fixture{}, fmt.Errorf("fixture %d: %w", id, consoleerr.ErrNotFound)
	}
	return *f, nil
}

// SetChannelValue sets a single channel's value on a patched fixture.
func (s *State) SetChannelValue(id int, role ChannelRole, value uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fixtures[id]
	if !ok {
		return fmt.Errorf("fixture %d: %w", id, consoleerr.ErrNotFound)
	}
	return f.SetChannel(role, value)
}

// All returns a snapshot copy of every patched fixture, ordered by id, for
// rendering and pixel-engine declaration-order packing.
func (s *State) All() []Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Fixture, 0, len(s.fixtures))
	for _, f := range s.fixtures {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
