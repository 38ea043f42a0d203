/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package deck implements one deck's sample-accurate playback pipeline:
// varispeed and time-stretch (Master Tempo) rendering, beat tracking, hot
// cues, loops, and quantized play. Grounded on a deck player module's
// exact clamping/formula semantics for set_playback_rate/set_pitch/
// effective_rate/sync/nudge/schedule_play_after.
package deck

import (
	"time"

	"github.com/lumentrack/console/internal/deck/stretch"
)

// Source supplies decoded, normalized f32 interleaved stereo samples one
// frame at a time. FileSource and BufferedSource (decoder.go) decode via an
// external ffmpeg subprocess, converting any container format, channel
// count, or sample format to stereo f32.
type Source interface {
	// Next returns the next stereo frame, or ok=false at end of stream.
	Next() (left, right float32, ok bool)
	// SeekSample seeks to a source sample index; returns the sample index
	// actually seeked to.
	SeekSample(index uint64) (uint64, error)
	SampleRate() uint32
	Channels() int
	TotalSamples() uint64
}

// State is the closed set of deck transport states.
type State int

const (
	Empty State = iota
	Ready
	Playing
	Paused
)

// MasterTempoMode selects between varispeed and time-stretch pipelines.
type MasterTempoMode int

const (
	MasterTempoOff MasterTempoMode = iota
	MasterTempoOn
)

// TempoRange is the closed set of pitch-fader ranges.
type TempoRange int

const (
	Range6 TempoRange = iota
	Range10
	Range16
	Range25
	Wide
)

// AsFraction returns the range's half-width as a fraction (e.g. Range10 ->
// 0.10), used directly in the pitch/sync formulas instead of each call
// site hand-converting a percentage.
func (r TempoRange) AsFraction() float64 {
	switch r {
	case Range6:
		return 0.06
	case Range16:
		return 0.16
	case Range25:
		return 0.25
	case Wide:
		return 0.50
	default:
		return 0.10
	}
}

// PitchToRate converts a pitch fader position in [-1,1] to a playback rate
// multiplier: rate = 1 + pitch*range_fraction.
func (r TempoRange) PitchToRate(pitch float64) float64 {
	return 1.0 + clamp(pitch, -1, 1)*r.AsFraction()
}

// BeatEvent reports a beat crossing detected during the last sample tick.
type BeatEvent struct {
	BeatNumber     uint64
	PositionSecs   float64
	IsDownbeat     bool
	IsPhraseStart  bool
	BPM            float64
}

// BeatGrid is the subset of track analysis a deck needs for beat tracking.
type BeatGrid struct {
	BeatPositions []float64 // seconds, ascending
}

// Deck is one sample-accurate playback pipeline.
type Deck struct {
	source Source
	state  State

	sampleRate   uint32
	channels     int
	samplePos    uint64
	totalSamples uint64

	playbackRate     float64
	basePlaybackRate float64

	fractionalPos float64
	prevL, prevR  float32
	currL, currR  float32

	pendingSeek *uint64

	beatGrid         *BeatGrid
	baseBPM          float64
	currentBeatIndex int
	lastBeatEvent    *BeatEvent
	prevPositionSecs float64

	hotCues [4]*float64

	loopInSample, loopOutSample *uint64
	loopActive                  bool

	masterTempo MasterTempoMode
	stretcher   *stretch.Stretcher
	tempoRange  TempoRange

	syncEnabled   bool
	syncCorrection float64

	pendingPlayDelay      *float64
	playScheduledAt       time.Time
	virtualPositionOffset float64
}

// New returns an empty deck (no source loaded).
func New() *Deck {
	return &Deck{
		state:            Empty,
		sampleRate:       44100,
		channels:         2,
		playbackRate:     1.0,
		basePlaybackRate: 1.0,
		baseBPM:          120.0,
		stretcher:        stretch.New(44100, 2),
		tempoRange:       Range10,
	}
}

// Load attaches a decoded source and resets all per-track state.
func (d *Deck) Load(src Source) {
	d.source = src
	d.sampleRate = src.SampleRate()
	d.channels = src.Channels()
	d.totalSamples = src.TotalSamples()
	d.samplePos = 0
	d.fractionalPos = 0
	d.prevL, d.prevR, d.currL, d.currR = 0, 0, 0, 0
	d.pendingSeek = nil
	d.beatGrid = nil
	d.currentBeatIndex = 0
	d.lastBeatEvent = nil
	d.prevPositionSecs = 0
	d.hotCues = [4]*float64{}
	d.loopInSample, d.loopOutSample = nil, nil
	d.loopActive = false
	d.stretcher = stretch.New(int(d.sampleRate), d.channels)
	d.playbackRate = 1.0
	d.basePlaybackRate = 1.0
	d.state = Ready
}

// Play begins or resumes playback.
func (d *Deck) Play() {
	if d.state == Ready || d.state == Paused {
		d.state = Playing
	}
}

// Pause suspends playback in place.
func (d *Deck) Pause() {
	if d.state == Playing {
		d.state = Paused
	}
}

// Stop halts playback and schedules a seek to the start.
func (d *Deck) Stop() {
	if d.state != Empty {
		d.state = Ready
		zero := uint64(0)
		d.pendingSeek = &zero
	}
}

// State returns the current transport state.
func (d *Deck) State() State { return d.state }

// SetPlaybackRate directly sets the playback rate, clamped to [0.5,2.0].
func (d *Deck) SetPlaybackRate(rate float64) {
	d.playbackRate = clamp(rate, 0.5, 2.0)
	if d.masterTempo == MasterTempoOn {
		d.stretcher.SetTempo(d.playbackRate)
	}
}

// SetPitch maps a pitch fader position through the given tempo range into
// a playback rate, also recording it as the base rate for sync correction.
func (d *Deck) SetPitch(pitch float64, tempoRange TempoRange) float64 {
	rate := tempoRange.PitchToRate(pitch)
	d.basePlaybackRate = rate
	d.tempoRange = tempoRange
	d.playbackRate = d.effectiveRate()
	if d.masterTempo == MasterTempoOn {
		d.stretcher.SetTempo(d.playbackRate)
	}
	return rate
}

func (d *Deck) effectiveRate() float64 {
	if d.syncEnabled {
		return clamp(d.basePlaybackRate*(1+d.syncCorrection), 0.5, 2.0)
	}
	return d.basePlaybackRate
}

// SetSyncEnabled toggles sync; disabling resets sync_correction to 0 and
// recomputes playback_rate from base_playback_rate alone.
func (d *Deck) SetSyncEnabled(enabled bool) {
	d.syncEnabled = enabled
	if !enabled {
		d.syncCorrection = 0
		d.playbackRate = d.basePlaybackRate
	}
}

// SyncEnabled reports whether sync is currently enabled.
func (d *Deck) SyncEnabled() bool { return d.syncEnabled }

// SetSyncCorrection applies a small correction factor, clamped to ±0.02.
func (d *Deck) SetSyncCorrection(correction float64) {
	d.syncCorrection = clamp(correction, -0.02, 0.02)
	d.playbackRate = d.effectiveRate()
	if d.masterTempo == MasterTempoOn {
		d.stretcher.SetTempo(d.playbackRate)
	}
}

// Nudge applies a temporary additive adjustment to the current effective
// rate for manual beatmatching by ear, clamped to ±0.5.
func (d *Deck) Nudge(amount float64) {
	nudge := clamp(amount, -0.5, 0.5)
	d.playbackRate = clamp(d.playbackRate+nudge, 0.5, 2.0)
}

// CalculateSyncPitch returns the pitch fader value needed to reach
// targetBPM within tempoRange, or ok=false if out of range.
func (d *Deck) CalculateSyncPitch(targetBPM float64, tempoRange TempoRange) (pitch float64, ok bool) {
	originalBPM, has := d.OriginalBPM()
	if !has || originalBPM <= 0 || targetBPM <= 0 {
		return 0, false
	}
	requiredRate := targetBPM / originalBPM
	pitch = (requiredRate - 1.0) / tempoRange.AsFraction()
	if pitch < -1 || pitch > 1 {
		return 0, false
	}
	return pitch, true
}

// SyncToBPM sets this deck's pitch to match targetBPM, returning false if
// out of the tempo range.
func (d *Deck) SyncToBPM(targetBPM float64, tempoRange TempoRange) bool {
	pitch, ok := d.CalculateSyncPitch(targetBPM, tempoRange)
	if !ok {
		return false
	}
	d.SetPitch(pitch, tempoRange)
	return true
}

// PlaybackRate returns the current effective playback rate.
func (d *Deck) PlaybackRate() float64 { return d.playbackRate }

// SetMasterTempo switches between varispeed and time-stretch pipelines.
// Enabling pre-fills the stretcher with ~100ms of source audio to mask
// initial latency; disabling resets it. Either transition resets
// fractional_position for a clean start.
func (d *Deck) SetMasterTempo(mode MasterTempoMode) {
	if d.masterTempo == mode {
		return
	}
	d.masterTempo = mode
	switch mode {
	case MasterTempoOn:
		d.stretcher.Reset()
		d.stretcher.SetTempo(d.playbackRate)
		d.fractionalPos = 0
		prefill := int(d.sampleRate) / 10
		if prefill > 4410 {
			prefill = 4410
		}
		for i := 0; i < prefill && d.samplePos < d.totalSamples; i++ {
			l, r := d.readNextRawSample()
			d.samplePos++
			d.stretcher.PushSample(l, r)
		}
	case MasterTempoOff:
		d.stretcher.Reset()
		d.fractionalPos = 0
	}
}

// MasterTempo returns the current Master Tempo mode.
func (d *Deck) MasterTempo() MasterTempoMode { return d.masterTempo }

// ToggleMasterTempo flips between Off and On.
func (d *Deck) ToggleMasterTempo() {
	if d.masterTempo == MasterTempoOff {
		d.SetMasterTempo(MasterTempoOn)
	} else {
		d.SetMasterTempo(MasterTempoOff)
	}
}

// TempoRange returns the current tempo range.
func (d *Deck) TempoRange() TempoRange { return d.tempoRange }

// PositionSeconds returns the current playback position.
func (d *Deck) PositionSeconds() float64 {
	if d.sampleRate == 0 {
		return 0
	}
	return float64(d.samplePos) / float64(d.sampleRate)
}

// DurationSeconds returns the total track duration.
func (d *Deck) DurationSeconds() float64 {
	if d.sampleRate == 0 {
		return 0
	}
	return float64(d.totalSamples) / float64(d.sampleRate)
}

// Seek requests an accurate seek to the given position (clamped to the
// track's duration), performed on the next sample tick.
func (d *Deck) Seek(positionSeconds float64) {
	pos := clamp(positionSeconds, 0, d.DurationSeconds())
	samples := uint64(pos * float64(d.sampleRate))
	d.pendingSeek = &samples
}

func (d *Deck) performSeek(sampleIndex uint64) bool {
	if d.source == nil {
		return false
	}
	actual, err := d.source.SeekSample(sampleIndex)
	if err != nil {
		return false
	}
	d.samplePos = actual
	d.fractionalPos = 0
	d.prevL, d.prevR, d.currL, d.currR = 0, 0, 0, 0
	d.stretcher.Reset()
	return true
}

// SetBeatGrid attaches a beat grid and its authoritative BPM.
func (d *Deck) SetBeatGrid(grid BeatGrid, bpm float64) {
	d.beatGrid = &grid
	d.baseBPM = bpm
	d.updateBeatIndexForPosition()
}

// ClearBeatGrid detaches beat tracking.
func (d *Deck) ClearBeatGrid() {
	d.beatGrid = nil
	d.currentBeatIndex = 0
	d.lastBeatEvent = nil
}

// OriginalBPM returns the track's authored BPM, if a beat grid is set.
func (d *Deck) OriginalBPM() (float64, bool) {
	if d.beatGrid == nil {
		return 0, false
	}
	return d.baseBPM, true
}

// EffectiveBPM returns OriginalBPM scaled by the current playback rate.
func (d *Deck) EffectiveBPM() (float64, bool) {
	bpm, ok := d.OriginalBPM()
	if !ok {
		return 0, false
	}
	return bpm * d.playbackRate, true
}

func (d *Deck) updateBeatIndexForPosition() {
	if d.beatGrid == nil {
		return
	}
	pos := d.PositionSeconds()
	positions := d.beatGrid.BeatPositions
	idx := 0
	for idx < len(positions) && positions[idx] <= pos {
		idx++
	}
	if idx > 0 {
		idx--
	}
	d.currentBeatIndex = idx
}

// TakeBeatEvent returns and clears the beat event (if any) from the last
// sample tick.
func (d *Deck) TakeBeatEvent() *BeatEvent {
	e := d.lastBeatEvent
	d.lastBeatEvent = nil
	return e
}

func (d *Deck) checkBeatCrossing() {
	if d.beatGrid == nil || len(d.beatGrid.BeatPositions) == 0 {
		return
	}
	positions := d.beatGrid.BeatPositions
	current := d.PositionSeconds()
	prev := d.prevPositionSecs

	for d.currentBeatIndex < len(positions) {
		beatPos := positions[d.currentBeatIndex]
		switch {
		case prev < beatPos && current >= beatPos:
			n := uint64(d.currentBeatIndex)
			d.lastBeatEvent = &BeatEvent{
				BeatNumber:    n,
				PositionSecs:  beatPos,
				IsDownbeat:    n%4 == 0,
				IsPhraseStart: n%16 == 0,
				BPM:           d.baseBPM * d.playbackRate,
			}
			d.currentBeatIndex++
			return
		case current < beatPos:
			return
		default:
			d.currentBeatIndex++
		}
	}
}

// NextStereoSample advances the pipeline by one output sample and returns
// it, routing to varispeed or time-stretch rendering depending on Master
// Tempo mode. Call TakeBeatEvent afterward to observe any beat crossing.
func (d *Deck) NextStereoSample() (float32, float32) {
	d.lastBeatEvent = nil

	if d.state != Playing {
		return 0, 0
	}

	if d.pendingSeek != nil {
		idx := *d.pendingSeek
		d.pendingSeek = nil
		d.performSeek(idx)
		d.updateBeatIndexForPosition()
	}

	d.prevPositionSecs = d.PositionSeconds()

	var l, r float32
	if d.masterTempo == MasterTempoOn {
		l, r = d.nextTimestretchedSample()
	} else {
		l, r = d.nextVarispeedSample()
	}

	d.checkBeatCrossing()
	return l, r
}

func (d *Deck) nextVarispeedSample() (float32, float32) {
	t := float32(fract(d.fractionalPos))
	left := d.prevL*(1-t) + d.currL*t
	right := d.prevR*(1-t) + d.currR*t

	d.fractionalPos += d.playbackRate

	for d.fractionalPos >= 1.0 {
		d.fractionalPos -= 1.0
		d.prevL, d.prevR = d.currL, d.currR
		d.currL, d.currR = d.readNextRawSample()
		d.samplePos++

		if d.loopActive && d.loopOutSample != nil && d.loopInSample != nil {
			if d.samplePos >= *d.loopOutSample {
				d.performSeek(*d.loopInSample)
				d.samplePos = *d.loopInSample
			}
		}

		if d.samplePos >= d.totalSamples {
			d.state = Ready
			zero := uint64(0)
			d.pendingSeek = &zero
			return 0, 0
		}
	}

	return left, right
}

func (d *Deck) nextTimestretchedSample() (float32, float32) {
	d.fractionalPos += d.playbackRate

	for d.fractionalPos >= 1.0 && d.samplePos < d.totalSamples {
		l, r := d.readNextRawSample()
		d.samplePos++
		d.stretcher.PushSample(l, r)
		d.fractionalPos -= 1.0

		if d.loopActive && d.loopOutSample != nil && d.loopInSample != nil {
			if d.samplePos >= *d.loopOutSample {
				d.performSeek(*d.loopInSample)
				d.samplePos = *d.loopInSample
				d.stretcher.Reset()
			}
		}
	}

	if d.samplePos >= d.totalSamples && !d.stretcher.HasOutput() {
		d.state = Ready
		zero := uint64(0)
		d.pendingSeek = &zero
		return 0, 0
	}

	l, r, ok := d.stretcher.PopSample()
	if !ok {
		return 0, 0
	}
	return l, r
}

func (d *Deck) readNextRawSample() (float32, float32) {
	if d.source == nil {
		return 0, 0
	}
	l, r, ok := d.source.Next()
	if !ok {
		return 0, 0
	}
	return l, r
}

// Hot cues.

// SetHotCue stores the current position in the given slot (0-3).
func (d *Deck) SetHotCue(slot int) {
	if slot < 0 || slot >= 4 {
		return
	}
	pos := d.PositionSeconds()
	d.hotCues[slot] = &pos
}

// SetHotCueAt stores an explicit position in the given slot.
func (d *Deck) SetHotCueAt(slot int, positionSeconds float64) {
	if slot < 0 || slot >= 4 {
		return
	}
	pos := clamp(positionSeconds, 0, d.DurationSeconds())
	d.hotCues[slot] = &pos
}

// ClearHotCue empties the given slot.
func (d *Deck) ClearHotCue(slot int) {
	if slot < 0 || slot >= 4 {
		return
	}
	d.hotCues[slot] = nil
}

// TriggerHotCue seeks to and plays the given slot, or sets it at the
// current position if it was empty.
func (d *Deck) TriggerHotCue(slot int) {
	if slot < 0 || slot >= 4 {
		return
	}
	if d.hotCues[slot] != nil {
		d.Seek(*d.hotCues[slot])
		d.Play()
	} else {
		d.SetHotCue(slot)
	}
}

// HotCue returns the position stored in the given slot, if any.
func (d *Deck) HotCue(slot int) (float64, bool) {
	if slot < 0 || slot >= 4 || d.hotCues[slot] == nil {
		return 0, false
	}
	return *d.hotCues[slot], true
}

// Loops.

// SetLoop stores loop IN/OUT points, converted to sample indices.
func (d *Deck) SetLoop(loopInSecs, loopOutSecs float64) {
	in := uint64(loopInSecs * float64(d.sampleRate))
	out := uint64(loopOutSecs * float64(d.sampleRate))
	d.loopInSample = &in
	d.loopOutSample = &out
	d.loopActive = true
}

// SetLoopActive enables or disables a previously defined loop.
func (d *Deck) SetLoopActive(active bool) {
	if d.loopInSample != nil && d.loopOutSample != nil {
		d.loopActive = active
	}
}

// ClearLoop removes the loop definition entirely.
func (d *Deck) ClearLoop() {
	d.loopInSample, d.loopOutSample = nil, nil
	d.loopActive = false
}

// IsLoopActive reports whether a defined loop is currently wrapping.
func (d *Deck) IsLoopActive() bool { return d.loopActive }

// Quantized play.

// SchedulePlayAfter records a wall-clock deadline delaySeconds from now,
// and a virtual position offset (negative) so callers can display a
// countdown to firstBeatTime.
func (d *Deck) SchedulePlayAfter(delaySeconds, firstBeatTime float64) {
	d.pendingPlayDelay = &delaySeconds
	d.playScheduledAt = time.Now()
	d.virtualPositionOffset = -(delaySeconds + firstBeatTime)
	d.state = Paused
}

// IsWaitingForQuantizedStart reports whether a scheduled play is pending.
func (d *Deck) IsWaitingForQuantizedStart() bool { return d.pendingPlayDelay != nil }

// CancelQuantizedPlay clears any pending scheduled play.
func (d *Deck) CancelQuantizedPlay() {
	d.pendingPlayDelay = nil
	d.virtualPositionOffset = 0
}

// CheckQuantizedPlay flips to Playing once the scheduled deadline has
// passed, returning true exactly on the tick that triggers it.
func (d *Deck) CheckQuantizedPlay() bool {
	if d.pendingPlayDelay == nil {
		return false
	}
	if time.Since(d.playScheduledAt).Seconds() >= *d.pendingPlayDelay {
		d.pendingPlayDelay = nil
		d.virtualPositionOffset = 0
		d.state = Playing
		return true
	}
	return false
}

// VirtualPosition returns the position used for UI display, which can be
// negative during a quantized-play countdown.
func (d *Deck) VirtualPosition() float64 {
	if d.pendingPlayDelay != nil {
		elapsed := time.Since(d.playScheduledAt).Seconds()
		remaining := *d.pendingPlayDelay - elapsed
		return -remaining + d.PositionSeconds()
	}
	return d.PositionSeconds() + d.virtualPositionOffset
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fract(v float64) float64 {
	return v - float64(int64(v))
}
