/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pixel implements the pixel engine: optional sequential universe
// packing for pixel-bar fixtures and rendering of pixel effect mappings into
// per-universe DMX buffers. Has no direct reference file in the corpus;
// built from the universe-buffer conventions shared with internal/dmx.
package pixel

import (
	"sort"

	"github.com/lumentrack/console/internal/effect"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/rhythm"
	"github.com/lumentrack/console/internal/tracking"
)

// UniverseSize is the DMX512 channel count per universe.
const UniverseSize = 512

// Universe is one 512-slot DMX buffer.
type Universe = [UniverseSize]byte

// AssignSequentialUniverses computes a pixel-bar-ID → universe mapping when
// sequential packing is enabled: pixel bars are assigned contiguous
// universes in fixture-ID order starting from the first declared pixel
// bar's own universe, overflowing deterministically when a bar's channel
// count would not fit in the remaining space of the current universe.
func AssignSequentialUniverses(fixtures []fixture.Fixture) map[int]int {
	bars := make([]fixture.Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if f.IsPixelBar {
			bars = append(bars, f)
		}
	}
	if len(bars) == 0 {
		return nil
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].ID < bars[j].ID })

	assignment := make(map[int]int, len(bars))
	universe := bars[0].Universe
	offset := 0
	for _, f := range bars {
		n := f.ChannelCount()
		if offset+n > UniverseSize {
			universe++
			offset = 0
		}
		assignment[f.ID] = universe
		offset += n
	}
	return assignment
}

// Render produces per-universe buffers containing every pixel-bar fixture's
// contribution: effect-driven channel values if a pixel effect targets the
// fixture, otherwise its static channel values. Non-pixel fixtures and
// remaining channels within a touched universe are left for the DMX
// renderer to fill.
func Render(fixtures []fixture.Fixture, effects []tracking.PixelEffectMapping, state rhythm.State) map[int]*Universe {
	byID := make(map[int]fixture.Fixture, len(fixtures))
	for _, f := range fixtures {
		if f.IsPixelBar {
			byID[f.ID] = f
		}
	}
	if len(byID) == 0 {
		return nil
	}

	out := make(map[int]*Universe)
	writeFixture := func(f fixture.Fixture, channels []fixture.Channel) {
		buf, ok := out[f.Universe]
		if !ok {
			buf = &Universe{}
			out[f.Universe] = buf
		}
		start := f.StartAddress - 1
		for i, ch := range channels {
			idx := start + i
			if idx < 0 || idx >= UniverseSize {
				continue
			}
			buf[idx] = ch.Value
		}
	}

	applied := make(map[int]bool)
	for _, m := range effects {
		for i, fid := range m.FixtureIDs {
			f, ok := byID[fid]
			if !ok {
				continue
			}
			channels := renderEffectChannels(f, m, state, i)
			writeFixture(f, channels)
			applied[fid] = true
		}
	}

	for id, f := range byID {
		if applied[id] {
			continue
		}
		writeFixture(f, f.Channels)
	}

	return out
}

func renderEffectChannels(f fixture.Fixture, m tracking.PixelEffectMapping, state rhythm.State, index int) []fixture.Channel {
	out := make([]fixture.Channel, len(f.Channels))
	copy(out, f.Channels)
	for i := range out {
		out[i].Value = effect.Evaluate(state, m.Effect, m.Distribution, index)
	}
	return out
}
