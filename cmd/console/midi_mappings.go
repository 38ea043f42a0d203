/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"github.com/lumentrack/console/internal/console"
	"github.com/lumentrack/console/internal/midi"
)

// defaultMIDIMappings is the static, declared translation table from
// incoming MIDI messages to console commands (§6). A real deployment
// supplies its own table (per-controller note/CC layout); this baseline
// maps play, pause, pitch and four hot cues for deck a on MIDI channel 0
// and deck b on channel 1. No other dj.* command has a mapping.
func defaultMIDIMappings() []midi.Mapping {
	deckFor := func(channel uint8) string {
		if channel == 1 {
			return "b"
		}
		return "a"
	}

	mappings := []midi.Mapping{
		{Kind: midi.KindNoteOn, Channel: 0, Key: 0x0B, Command: "dj.play", Build: func(uint8) any {
			return console.DJCommand{Deck: "a"}
		}},
		{Kind: midi.KindNoteOn, Channel: 0, Key: 0x0C, Command: "dj.pause", Build: func(uint8) any {
			return console.DJCommand{Deck: "a"}
		}},
		{Kind: midi.KindNoteOn, Channel: 1, Key: 0x0B, Command: "dj.play", Build: func(uint8) any {
			return console.DJCommand{Deck: "b"}
		}},
		{Kind: midi.KindNoteOn, Channel: 1, Key: 0x0C, Command: "dj.pause", Build: func(uint8) any {
			return console.DJCommand{Deck: "b"}
		}},
		{Kind: midi.KindControlChange, Channel: 0, Key: 0x09, Command: "dj.pitch", Build: func(value uint8) any {
			return console.DJCommand{Deck: "a", Pitch: ccToPitch(value)}
		}},
		{Kind: midi.KindControlChange, Channel: 1, Key: 0x09, Command: "dj.pitch", Build: func(value uint8) any {
			return console.DJCommand{Deck: "b", Pitch: ccToPitch(value)}
		}},
	}

	for slot := 0; slot < 4; slot++ {
		for _, channel := range []uint8{0, 1} {
			s := slot
			ch := channel
			mappings = append(mappings, midi.Mapping{
				Kind:    midi.KindNoteOn,
				Channel: ch,
				Key:     uint8(0x14 + s),
				Command: "dj.hotcue.trigger",
				Build: func(uint8) any {
					return console.DJCommand{Deck: deckFor(ch), Slot: s}
				},
			})
		}
	}

	return mappings
}

// ccToPitch maps a 7-bit MIDI CC value (0-127) onto the deck pitch
// fader's [-1, 1] range, center at 64.
func ccToPitch(value uint8) float64 {
	return (float64(value) - 64.0) / 64.0
}
