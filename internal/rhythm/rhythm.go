/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rhythm maintains the beat/bar/phrase phase clock that drives the
// effect evaluator and pixel engine. It advances from either an internal BPM,
// an external tempo master (Ableton Link), or the DJ master deck.
package rhythm

import "math"

// TempoSource selects what drives the clock's BPM and phase.
type TempoSource int

const (
	Internal TempoSource = iota
	AbletonLink
	DjMaster
)

const (
	maxTickSeconds = 0.1 // Δt clamp so a lag spike doesn't jump phases.

	defaultBeatsPerBar    = 4
	defaultBarsPerPhrase  = 4
)

// State is the current rhythm phase plus the bpm/source driving it.
type State struct {
	BeatPhase   float64
	BarPhase    float64
	PhrasePhase float64

	BeatsPerBar   int
	BarsPerPhrase int

	BPM    float64
	Source TempoSource
}

// Clock owns the accumulated beat count and the source selection. It is not
// safe for concurrent use; callers hold the console's rhythm-state
// reader/writer lock around Advance and SetSource.
type Clock struct {
	accumulatedBeats float64
	beatsPerBar      int
	barsPerPhrase    int
	bpm              float64
	source           TempoSource

	// djMasterHasPlayingDeck is supplied by the caller on every Advance to
	// implement the Internal fallback when DjMaster has no playing deck.
	djMasterHasPlayingDeck bool
}

// New creates a clock with the spec's default meter (4/4, 4-bar phrases).
func New(bpm float64) *Clock {
	return &Clock{
		beatsPerBar:   defaultBeatsPerBar,
		barsPerPhrase: defaultBarsPerPhrase,
		bpm:           bpm,
		source:        Internal,
	}
}

// SetSource switches the tempo source. Switching never resets accumulated
// beats; a caller supplying an authoritative beat time from an external
// master should instead call AdoptBeatTime.
func (c *Clock) SetSource(source TempoSource) {
	c.source = source
}

// SetDjMasterDeckPlaying informs the clock whether any deck is currently
// Playing, so a DjMaster source with no playing deck falls back to Internal.
func (c *Clock) SetDjMasterDeckPlaying(playing bool) {
	c.djMasterHasPlayingDeck = playing
}

// AdoptBeatTime resets the accumulated beat count to align with an
// authoritative external beat position (e.g. an Ableton Link session beat).
func (c *Clock) AdoptBeatTime(beats float64) {
	c.accumulatedBeats = beats
}

// SetBPM updates the driving tempo (used directly by Internal, and by
// DjMaster/AbletonLink callers feeding in the external tempo each tick).
func (c *Clock) SetBPM(bpm float64) {
	if bpm > 0 {
		c.bpm = bpm
	}
}

// EffectiveSource resolves the requested source against the Internal
// fallback rule: DjMaster with no playing deck behaves as Internal.
func (c *Clock) EffectiveSource() TempoSource {
	if c.source == DjMaster && !c.djMasterHasPlayingDeck {
		return Internal
	}
	return c.source
}

// Advance moves the clock forward by dt seconds (clamped to 100ms) and
// returns the resulting phase state.
func (c *Clock) Advance(dt float64) State {
	if dt > maxTickSeconds {
		dt = maxTickSeconds
	}
	if dt < 0 {
		dt = 0
	}

	c.accumulatedBeats += dt * c.bpm / 60.0

	beatK := 1.0
	barK := float64(c.beatsPerBar)
	phraseK := float64(c.beatsPerBar) * float64(c.barsPerPhrase)

	return State{
		BeatPhase:     fract(c.accumulatedBeats / beatK),
		BarPhase:      fract(c.accumulatedBeats / barK),
		PhrasePhase:   fract(c.accumulatedBeats / phraseK),
		BeatsPerBar:   c.beatsPerBar,
		BarsPerPhrase: c.barsPerPhrase,
		BPM:           c.bpm,
		Source:        c.EffectiveSource(),
	}
}

// fract returns the fractional part of x, always in [0,1) even for negative x.
func fract(x float64) float64 {
	f := x - math.Floor(x)
	if f < 0 {
		f += 1
	}
	return f
}
