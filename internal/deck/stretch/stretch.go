/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package stretch implements a real-time, pitch-preserving time stretcher
// for stereo float32 audio: fixed-hop overlap-add synthesis with a
// Hann-windowed analysis window, chosen over a search-based WSOLA variant
// to keep the implementation pure Go with no CGO/FFI dependency (matching
// the reference's own CGO-avoidance philosophy for sample-level audio
// math). Exposes the push_sample/pop_sample/set_tempo/reset/
// num_unprocessed_samples contract used by a Master Tempo deck pipeline.
package stretch

import "math"

const (
	windowSize        = 1024
	synthesisHop      = windowSize / 4 // 75% overlap
	minTempo          = 0.01
	maxTempo          = 2.0
	tempoChangeThresh = 0.001
)

type frame struct {
	l, r float32
}

// Stretcher is a single-channel-pair (stereo) pitch-preserving time
// stretcher. Not safe for concurrent use; callers serialize access to one
// deck's stretcher on the audio callback thread.
type Stretcher struct {
	sampleRate int
	tempo      float64

	hann []float64

	input []frame // pushed, not-yet-windowed input frames

	acc  []float64 // overlap-add accumulator, 2 floats (l,r) per frame
	norm []float64 // window-energy normalizer, aligned with acc

	output []frame // finalized output ready to pop
}

// New returns a stretcher at unity tempo for the given sample rate.
// channels is accepted for interface parity with the reference but this
// package always operates in interleaved stereo.
func New(sampleRate int, channels int) *Stretcher {
	s := &Stretcher{
		sampleRate: sampleRate,
		tempo:      1.0,
		hann:       hannWindow(windowSize),
	}
	s.resetBuffers()
	return s
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func (s *Stretcher) resetBuffers() {
	s.input = s.input[:0]
	s.acc = make([]float64, windowSize*2)
	s.norm = make([]float64, windowSize)
	s.output = s.output[:0]
}

// SetTempo sets the tempo ratio (1.0 = normal speed), clamped to [0.01,2.0].
// Matches the reference's dead-band: changes smaller than 0.001 are ignored.
func (s *Stretcher) SetTempo(ratio float64) {
	ratio = clamp(ratio, minTempo, maxTempo)
	if math.Abs(ratio-s.tempo) > tempoChangeThresh {
		s.tempo = ratio
	}
}

// Tempo returns the current tempo ratio.
func (s *Stretcher) Tempo() float64 { return s.tempo }

// PushSample feeds one stereo input frame and advances synthesis as far as
// buffered input allows.
func (s *Stretcher) PushSample(left, right float32) {
	s.input = append(s.input, frame{left, right})
	s.process()
}

// PopSample returns the next finalized output frame, or false if none is
// ready yet (startup/transition latency).
func (s *Stretcher) PopSample() (float32, float32, bool) {
	if len(s.output) == 0 {
		return 0, 0, false
	}
	f := s.output[0]
	s.output = s.output[1:]
	return f.l, f.r, true
}

// HasOutput reports whether a finalized frame is ready to pop.
func (s *Stretcher) HasOutput() bool { return len(s.output) > 0 }

// OutputLen returns the number of buffered, finalized output frames.
func (s *Stretcher) OutputLen() int { return len(s.output) }

func (s *Stretcher) process() {
	hopIn := int(math.Round(float64(synthesisHop) * s.tempo))
	if hopIn < 1 {
		hopIn = 1
	}

	for len(s.input) >= windowSize {
		for i := 0; i < windowSize; i++ {
			w := s.hann[i]
			s.acc[i*2] += float64(s.input[i].l) * w
			s.acc[i*2+1] += float64(s.input[i].r) * w
			s.norm[i] += w * w
		}
		s.flushHop(synthesisHop)

		if hopIn >= len(s.input) {
			s.input = s.input[:0]
		} else {
			s.input = s.input[hopIn:]
		}
	}
}

// flushHop finalizes the first n frames of the accumulator into output
// (normalizing by accumulated window energy) and shifts the accumulator
// left by n frames.
func (s *Stretcher) flushHop(n int) {
	if n > len(s.norm) {
		n = len(s.norm)
	}
	for i := 0; i < n; i++ {
		energy := s.norm[i]
		if energy < 1e-6 {
			energy = 1e-6
		}
		l := float32(s.acc[i*2] / energy)
		r := float32(s.acc[i*2+1] / energy)
		s.output = append(s.output, frame{l, r})
	}

	copy(s.acc, s.acc[n*2:])
	for i := len(s.acc) - n*2; i < len(s.acc); i++ {
		s.acc[i] = 0
	}
	copy(s.norm, s.norm[n:])
	for i := len(s.norm) - n; i < len(s.norm); i++ {
		s.norm[i] = 0
	}
}

// Flush drains any remaining buffered input by zero-padding one final
// window and emptying the accumulator in full.
func (s *Stretcher) Flush() {
	if len(s.input) > 0 {
		padded := make([]frame, windowSize)
		copy(padded, s.input)
		for i := 0; i < windowSize; i++ {
			w := s.hann[i]
			s.acc[i*2] += float64(padded[i].l) * w
			s.acc[i*2+1] += float64(padded[i].r) * w
			s.norm[i] += w * w
		}
		s.input = s.input[:0]
	}
	s.flushHop(windowSize)
}

// Reset discards all buffered and accumulated state.
func (s *Stretcher) Reset() {
	s.resetBuffers()
}

// LatencySamples approximates the number of input frames currently
// in-flight (buffered but not yet emitted as output).
func (s *Stretcher) LatencySamples() int {
	return len(s.input)
}

// LatencySeconds converts LatencySamples to seconds at the stretcher's
// configured sample rate.
func (s *Stretcher) LatencySeconds() float64 {
	if s.sampleRate == 0 {
		return 0
	}
	return float64(s.LatencySamples()) / float64(s.sampleRate)
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
