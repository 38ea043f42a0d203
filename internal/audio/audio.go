/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audio implements the audio engine: two deck players mixed on the
// real-time callback thread, lock-free with respect to the control loop.
// Per-sample mixing follows the pure-Go, allocation-free sample arithmetic
// style of a PCM crossfade session's mixS16LE, generalized here to
// floating point and to live two-deck summing rather than a scheduled
// crossfade.
package audio

import (
	"sync"

	"github.com/lumentrack/console/internal/deck"
)

// BeatEvent pairs a deck identifier with the beat event it produced.
type BeatEvent struct {
	Deck  string
	Event deck.BeatEvent
}

// Engine owns deck A and deck B and mixes their output on the audio
// callback thread.
type Engine struct {
	deckA *deck.Deck
	deckB *deck.Deck

	mu sync.Mutex // guards deck field mutation from control-loop commands

	beatEvents chan BeatEvent
}

// NewEngine returns an engine with two empty decks.
func NewEngine() *Engine {
	return &Engine{
		deckA:      deck.New(),
		deckB:      deck.New(),
		beatEvents: make(chan BeatEvent, 64),
	}
}

// DeckA returns deck A for control-loop commands. Callers must only mutate
// it while holding no audio-thread lock (WithDeck acquires the engine's
// exclusion primitive for command-side mutation).
func (e *Engine) DeckA() *deck.Deck { return e.deckA }

// DeckB returns deck B for control-loop commands.
func (e *Engine) DeckB() *deck.Deck { return e.deckB }

// WithDeck runs fn with exclusive access to deck mutation state, for use
// by control-loop commands (budgeted at well under 1ms).
func (e *Engine) WithDeck(fn func(a, b *deck.Deck)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.deckA, e.deckB)
}

// NextFrame produces one mixed stereo output frame for the audio host's
// real-time callback. It never allocates and never blocks: if the control
// loop currently holds the mutation lock, this frame is silence instead of
// waiting.
func (e *Engine) NextFrame() (float32, float32) {
	if !e.mu.TryLock() {
		return 0, 0
	}
	defer e.mu.Unlock()

	al, ar := e.deckA.NextStereoSample()
	bl, br := e.deckB.NextStereoSample()

	if ev := e.deckA.TakeBeatEvent(); ev != nil {
		e.trySendBeatEvent("A", *ev)
	}
	if ev := e.deckB.TakeBeatEvent(); ev != nil {
		e.trySendBeatEvent("B", *ev)
	}

	left := clampSample(al + bl)
	right := clampSample(ar + br)
	return left, right
}

func (e *Engine) trySendBeatEvent(id string, ev deck.BeatEvent) {
	select {
	case e.beatEvents <- BeatEvent{Deck: id, Event: ev}:
	default:
		// Control loop is behind; drop rather than block the audio thread.
	}
}

// DrainBeatEvents returns all beat events queued since the last drain,
// called by the control loop once per tick.
func (e *Engine) DrainBeatEvents() []BeatEvent {
	var out []BeatEvent
	for {
		select {
		case ev := <-e.beatEvents:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func clampSample(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
