/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cue implements the cue manager: ordered cue lists, playback state,
// timecode-driven auto-advance, and blocking/non-blocking tracking
// semantics. Operation set and not-found-never-panic error policy are
// modeled on a cue-list playback service: StartCue/JumpToCue/NextCue/
// PreviousCue/GoToCueNumber/GoToCueName/handleFollowTime/StopCueList.
package cue

import (
	"fmt"
	"sync"
	"time"

	"github.com/lumentrack/console/internal/consoleerr"
	"github.com/lumentrack/console/internal/tracking"
)

// PlaybackState is the closed set of cue-list transport states.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

// Cue is a single stored lighting state within a cue list.
type Cue struct {
	ID           int
	Name         string
	FadeTime     time.Duration
	Timecode     *time.Duration // optional trigger offset from show start
	IsBlocking   bool
	Statics      map[tracking.ChannelKey]uint8
	Effects      []tracking.EffectMapping
	PixelEffects []tracking.PixelEffectMapping
}

func (c Cue) toApplication() tracking.CueApplication {
	return tracking.CueApplication{
		IsBlocking:   c.IsBlocking,
		Statics:      c.Statics,
		Effects:      c.Effects,
		PixelEffects: c.PixelEffects,
	}
}

// CueList is an ordered collection of cues, optionally bound to an audio
// file for synchronized playback.
type CueList struct {
	ID        int
	Name      string
	AudioFile string
	Cues      []Cue
	nextCueID int
}

// Manager owns every cue list plus the playback indices and timecode clock.
// Both the main loop and control API handlers call it, so every operation
// takes the Manager's mutex; no operation ever panics, returning
// consoleerr.ErrNotFound on a bad index instead.
type Manager struct {
	mu sync.Mutex

	lists      []*CueList
	nextListID int

	currentList int // index into lists, -1 if none selected
	currentCue  int // index into lists[currentList].Cues, -1 if none

	state           PlaybackState
	showStartTime   time.Time
	showElapsed     time.Duration
	currentTimecode time.Duration

	tracking *tracking.State
}

// NewManager returns an empty cue manager writing into the given tracking
// layer.
func NewManager(t *tracking.State) *Manager {
	return &Manager{
		currentList: -1,
		currentCue:  -1,
		tracking:    t,
	}
}

// AddCueList creates a new, empty cue list and returns its id.
func (m *Manager) AddCueList(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextListID++
	id := m.nextListID
	m.lists = append(m.lists, &CueList{ID: id, Name: name, nextCueID: 1})
	return id
}

// RemoveCueList deletes a cue list by id. Returns NotFound if absent.
func (m *Manager) RemoveCueList(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, err := m.listIndexLocked(id)
	if err != nil {
		return err
	}
	m.lists = append(m.lists[:idx], m.lists[idx+1:]...)
	if m.currentList == idx {
		m.currentList = -1
		m.currentCue = -1
		m.state = Stopped
	} else if m.currentList > idx {
		m.currentList--
	}
	return nil
}

// SetAudioFile associates an audio file path with a cue list.
func (m *Manager) SetAudioFile(listID int, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.listIndexLocked(listID)
	if err != nil {
		return err
	}
	m.lists[idx].AudioFile = path
	return nil
}

// AddCue appends a cue to a list, assigning it a deterministic id.
func (m *Manager) AddCue(listID int, c Cue) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.listIndexLocked(listID)
	if err != nil {
		return 0, err
	}
	list := m.lists[idx]
	list.nextCueID++
	c.ID = list.nextCueID
	list.Cues = append(list.Cues, c)
	return c.ID, nil
}

// RemoveCue deletes a cue from a list by id.
func (m *Manager) RemoveCue(listID, cueID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	listIdx, err := m.listIndexLocked(listID)
	if err != nil {
		return err
	}
	list := m.lists[listIdx]
	cueIdx, err := cueIndex(list, cueID)
	if err != nil {
		return err
	}
	list.Cues = append(list.Cues[:cueIdx], list.Cues[cueIdx+1:]...)
	return nil
}

// UpdateCue replaces a cue's contents in place, preserving its id.
func (m *Manager) UpdateCue(listID int, c Cue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	listIdx, err := m.listIndexLocked(listID)
	if err != nil {
		return err
	}
	list := m.lists[listIdx]
	cueIdx, err := cueIndex(list, c.ID)
	if err != nil {
		return err
	}
	list.Cues[cueIdx] = c
	return nil
}

// FindCueByTimecode returns the latest cue in listID whose timecode is
// <= tc, or NotFound if none qualifies.
func (m *Manager) FindCueByTimecode(listID int, tc time.Duration) (Cue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.listIndexLocked(listID)
	if err != nil {
		return Cue{}, err
	}
	list := m.lists[idx]

	var best *Cue
	for i := range list.Cues {
		c := &list.Cues[i]
		if c.Timecode == nil || *c.Timecode > tc {
			continue
		}
		if best == nil || *c.Timecode > *best.Timecode {
			best = c
		}
	}
	if best == nil {
		return Cue{}, fmt.Errorf("no cue at or before timecode %s: %w", tc, consoleerr.ErrNotFound)
	}
	return *best, nil
}

// Go applies the cue after the current one in the selected list to the
// tracking layer. It returns ErrNotFound when no list is selected or the
// current cue is the last one. Stop does not reset the position, so Go
// after Stop continues from the last applied cue rather than the first.
func (m *Manager) Go() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentList < 0 {
		return fmt.Errorf("no cue list selected: %w", consoleerr.ErrNotFound)
	}
	list := m.lists[m.currentList]
	next := m.currentCue + 1
	if next >= len(list.Cues) {
		return fmt.Errorf("no next cue in list %d: %w", list.ID, consoleerr.ErrNotFound)
	}
	return m.applyCueLocked(list, next)
}

// Stop halts playback and clears the tracking layer.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.tracking.Clear()
}

// Hold pauses playback, retaining the tracking layer as-is.
func (m *Manager) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Paused
}

// GoToCue selects a list and jumps directly to a cue index within it.
func (m *Manager) GoToCue(listID, cueIdx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.listIndexLocked(listID)
	if err != nil {
		return err
	}
	m.currentList = idx
	return m.applyCueLocked(m.lists[idx], cueIdx)
}

// JumpToCue jumps to a cue index within the currently selected list.
func (m *Manager) JumpToCue(cueIdx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentList < 0 {
		return fmt.Errorf("no cue list selected: %w", consoleerr.ErrNotFound)
	}
	return m.applyCueLocked(m.lists[m.currentList], cueIdx)
}

func (m *Manager) applyCueLocked(list *CueList, cueIdx int) error {
	if cueIdx < 0 || cueIdx >= len(list.Cues) {
		return fmt.Errorf("cue index %d out of range for list %d: %w", cueIdx, list.ID, consoleerr.ErrNotFound)
	}
	m.currentCue = cueIdx
	m.state = Playing
	if m.showStartTime.IsZero() {
		m.showStartTime = time.Now()
	}
	m.tracking.ApplyCue(list.Cues[cueIdx].toApplication())
	return nil
}

// Update advances show_elapsed_time by dt and auto-advances to a later cue
// if its timecode has been reached. Called once per console tick.
func (m *Manager) Update(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Playing || m.currentList < 0 {
		return
	}
	m.showElapsed += dt
	m.currentTimecode = m.showElapsed

	list := m.lists[m.currentList]
	for i := m.currentCue + 1; i < len(list.Cues); i++ {
		c := list.Cues[i]
		if c.Timecode != nil && *c.Timecode <= m.currentTimecode {
			_ = m.applyCueLocked(list, i)
		} else {
			break
		}
	}
}

// State returns the current playback state, list/cue indices, and elapsed
// show time, for periodic state events.
func (m *Manager) State() (state PlaybackState, listID, cueID int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentList < 0 {
		return m.state, 0, 0, m.showElapsed
	}
	list := m.lists[m.currentList]
	cid := 0
	if m.currentCue >= 0 && m.currentCue < len(list.Cues) {
		cid = list.Cues[m.currentCue].ID
	}
	return m.state, list.ID, cid, m.showElapsed
}

func (m *Manager) listIndexLocked(id int) (int, error) {
	for i, l := range m.lists {
		if l.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("cue list %d: %w", id, consoleerr.ErrNotFound)
}

func cueIndex(list *CueList, cueID int) (int, error) {
	for i, c := range list.Cues {
		if c.ID == cueID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("cue %d in list %d: %w", cueID, list.ID, consoleerr.ErrNotFound)
}
