/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package effect evaluates rhythm-synchronized channel values: given a
// rhythm phase, a waveform, and a distribution across a set of fixtures, it
// produces one 8-bit value per fixture. Every function here is pure — no
// mutation of inputs, no I/O, no panics.
package effect

import (
	"math"

	"github.com/lumentrack/console/internal/rhythm"
)

// Interval selects which rhythm phase an effect tracks.
type Interval int

const (
	Beat Interval = iota
	Bar
	Phrase
)

// Waveform is the closed set of supported waveform functions.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
)

// Params parameterizes one effect's phase and output range.
type Params struct {
	Waveform     Waveform
	Min          uint8
	Max          uint8
	Interval     Interval
	IntervalRatio float64
	Phase        float64
}

// DistributionKind is the closed set of ways an effect's phase is staggered
// across the fixtures it targets.
type DistributionKind int

const (
	DistAll DistributionKind = iota
	DistStep
	DistWave
)

// Distribution selects how fixture index i offsets the base phase.
type Distribution struct {
	Kind DistributionKind
	// N is used by Step: fixture i adds its group index ⌊i/N⌋ to the base
	// phase before the mod 1. The index is a whole number, so every fixture
	// ends up on the base phase.
	N int
	// Offset is used by Wave: phase offset per fixture index.
	Offset float64
}

// BasePhase selects the rhythm phase named by interval.
func BasePhase(state rhythm.State, interval Interval) float64 {
	switch interval {
	case Bar:
		return state.BarPhase
	case Phrase:
		return state.PhrasePhase
	default:
		return state.BeatPhase
	}
}

// Phase computes an effect's phase at distribution index i:
// phase = (base_phase*interval_ratio + params.phase) mod 1, then staggered
// by the distribution.
func Phase(state rhythm.State, p Params, dist Distribution, i int) float64 {
	base := mod1(BasePhase(state, p.Interval)*p.IntervalRatio + p.Phase)

	switch dist.Kind {
	case DistStep:
		n := dist.N
		if n < 1 {
			n = 1
		}
		return mod1(base + float64(i/n))
	case DistWave:
		return mod1(base + float64(i)*dist.Offset)
	default:
		return base
	}
}

// Evaluate computes an effect's value for fixture index i: it derives the
// phase, evaluates the waveform, and scales to [params.Min, params.Max].
func Evaluate(state rhythm.State, p Params, dist Distribution, i int) uint8 {
	phase := Phase(state, p, dist, i)
	v := evalWaveform(p.Waveform, phase)
	scaled := float64(p.Min) + (float64(p.Max)-float64(p.Min))*v
	return clampToByte(scaled)
}

func evalWaveform(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		return squareWave(phase)
	case Sawtooth:
		return sawtoothWave(phase)
	default:
		return sineWave(phase)
	}
}

// sineWave maps phase ∈ [0,1) to [0,1] via a shifted sine wave.
func sineWave(phase float64) float64 {
	return (math.Sin(2*math.Pi*phase) + 1) / 2
}

// squareWave maps phase ∈ [0,1) to {0,1}, high for the first half of the cycle.
func squareWave(phase float64) float64 {
	if phase < 0.5 {
		return 1
	}
	return 0
}

// sawtoothWave maps phase ∈ [0,1) to [0,1] linearly.
func sawtoothWave(phase float64) float64 {
	return phase
}

func mod1(x float64) float64 {
	f := math.Mod(x, 1)
	if f < 0 {
		f += 1
	}
	return f
}

func clampToByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
