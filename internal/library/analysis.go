/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lumentrack/console/internal/deck"
)

// analysisSampleRate is the rate audio is decoded at for waveform/beat grid
// analysis; it does not need to match a deck's live playback rate.
const analysisSampleRate = 44100

// waveformBucketCount is the number of peak-amplitude buckets stored per
// track, matching the scrub-bar resolution the control API serves.
const waveformBucketCount = 600

// Analyzer decodes an imported track once, off the real-time path, to
// populate its waveform and beat grid. Runs detached from the request that
// triggered it: a cancelled context simply abandons the in-flight decode
// without writing partial results.
type Analyzer struct {
	repo      *Repository
	ffmpegBin string
	logger    zerolog.Logger
}

// NewAnalyzer constructs an Analyzer that persists results via repo.
func NewAnalyzer(repo *Repository, ffmpegBin string, logger zerolog.Logger) *Analyzer {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Analyzer{repo: repo, ffmpegBin: ffmpegBin, logger: logger}
}

// Analyze decodes the file at path and writes its waveform and beat grid
// for trackID. Intended to be launched via `go a.Analyze(ctx, ...)` right
// after a track import; the caller does not wait on it.
func (a *Analyzer) Analyze(ctx context.Context, trackID, path string) {
	buf, err := deck.DecodeToBuffer(ctx, path, analysisSampleRate, a.ffmpegBin)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn().Err(err).Str("track_id", trackID).Msg("track analysis decode failed")
		return
	}
	if ctx.Err() != nil {
		return
	}

	samples := monoMix(buf)
	wf := computeWaveform(trackID, samples, analysisSampleRate)
	if err := a.repo.UpsertWaveform(ctx, &wf); err != nil {
		a.logger.Warn().Err(err).Str("track_id", trackID).Msg("store waveform failed")
		return
	}

	bg := computeBeatGrid(trackID, samples, analysisSampleRate)
	if err := a.repo.UpsertBeatGrid(ctx, &bg); err != nil {
		a.logger.Warn().Err(err).Str("track_id", trackID).Msg("store beat grid failed")
		return
	}

	a.logger.Debug().Str("track_id", trackID).Float64("bpm", 60.0/bg.beatIntervalSecs()).Msg("track analysis complete")
}

func monoMix(buf *deck.BufferedSource) []float32 {
	n := buf.TotalSamples()
	out := make([]float32, 0, n)
	for {
		l, r, ok := buf.Next()
		if !ok {
			break
		}
		out = append(out, (l+r)/2)
	}
	return out
}

// computeWaveform buckets samples into waveformBucketCount peaks and a
// crude three-band energy split per bucket, via single-pole low/high-pass
// filters rather than an FFT.
func computeWaveform(trackID string, samples []float32, sampleRate uint32) TrackWaveform {
	n := len(samples)
	bucketCount := waveformBucketCount
	if n < bucketCount {
		bucketCount = n
	}
	if bucketCount == 0 {
		bucketCount = 1
	}
	bucketSize := (n + bucketCount - 1) / bucketCount

	peaks := make([]float32, 0, bucketCount)
	bands := make([]FrequencyBands, 0, bucketCount)

	var lowState, highState float32
	const lowAlpha = 0.05
	const highAlpha = 0.6

	for start := 0; start < n; start += bucketSize {
		end := start + bucketSize
		if end > n {
			end = n
		}

		var peak float32
		var lowEnergy, midEnergy, highEnergy float64
		for _, s := range samples[start:end] {
			abs := float32(math.Abs(float64(s)))
			if abs > peak {
				peak = abs
			}
			lowState += lowAlpha * (s - lowState)
			low := lowState
			highState += highAlpha * (s - highState)
			high := s - highState
			mid := s - low - high

			lowEnergy += float64(low * low)
			midEnergy += float64(mid * mid)
			highEnergy += float64(high * high)
		}

		total := lowEnergy + midEnergy + highEnergy
		band := FrequencyBands{Low: 1.0 / 3, Mid: 1.0 / 3, High: 1.0 / 3}
		if total > 0 {
			band = FrequencyBands{
				Low:  float32(lowEnergy / total),
				Mid:  float32(midEnergy / total),
				High: float32(highEnergy / total),
			}
		}

		peaks = append(peaks, peak)
		bands = append(bands, band)
	}

	return TrackWaveform{
		ID:           uuid.NewString(),
		TrackID:      trackID,
		Samples:      peaks,
		Bands:        bands,
		SampleCount:  len(peaks),
		DurationSecs: float64(n) / float64(sampleRate),
	}
}

// beatGridFrameSize is the onset-envelope analysis window, 20ms at
// analysisSampleRate.
const beatGridFrameSize = analysisSampleRate / 50

// computeBeatGrid estimates a constant-tempo beat grid from an energy
// novelty curve: compute per-frame RMS energy, take the positive-going
// difference between consecutive frames as the onset strength, pick the
// strongest onset in the first few seconds as the first beat, then
// estimate the inter-beat interval via autocorrelation of the onset curve
// restricted to DJ-typical tempos (80-180 BPM) and lay out a regular grid
// from the first beat at that interval.
func computeBeatGrid(trackID string, samples []float32, sampleRate uint32) BeatGrid {
	frames := frameEnergies(samples, beatGridFrameSize)
	onsets := noveltyCurve(frames)

	minBPM, maxBPM := 80.0, 180.0
	frameRate := float64(sampleRate) / float64(beatGridFrameSize)
	bestLagFrames := int(frameRate * 60.0 / maxBPM)
	bestScore := -1.0
	bestBPM := 120.0

	minLag := int(frameRate * 60.0 / maxBPM)
	maxLag := int(frameRate * 60.0 / minBPM)
	for lag := minLag; lag <= maxLag && lag < len(onsets); lag++ {
		score := autocorrelationAt(onsets, lag)
		if score > bestScore {
			bestScore = score
			bestLagFrames = lag
			bestBPM = frameRate * 60.0 / float64(lag)
		}
	}

	firstBeatFrame := strongestOnsetIn(onsets, int(frameRate*3)) // search first 3s
	firstBeatOffsetMs := float64(firstBeatFrame) / frameRate * 1000

	intervalSecs := float64(bestLagFrames) / frameRate
	if intervalSecs <= 0 {
		intervalSecs = 60.0 / bestBPM
	}

	durationSecs := float64(len(samples)) / float64(sampleRate)
	positions := make([]float64, 0, int(durationSecs/intervalSecs)+1)
	for t := firstBeatOffsetMs / 1000; t < durationSecs; t += intervalSecs {
		positions = append(positions, t)
	}

	return BeatGrid{
		ID:                uuid.NewString(),
		TrackID:           trackID,
		FirstBeatOffsetMs: firstBeatOffsetMs,
		BeatPositions:     positions,
		Confidence:        math.Min(1.0, math.Max(0, bestScore)),
		AlgorithmVersion:  "onset-autocorrelation-v1",
	}
}

func (bg BeatGrid) beatIntervalSecs() float64 {
	if len(bg.BeatPositions) < 2 {
		return 0.5
	}
	total := bg.BeatPositions[len(bg.BeatPositions)-1] - bg.BeatPositions[0]
	return total / float64(len(bg.BeatPositions)-1)
}

func frameEnergies(samples []float32, frameSize int) []float64 {
	if frameSize <= 0 {
		frameSize = 1
	}
	energies := make([]float64, 0, len(samples)/frameSize+1)
	for start := 0; start < len(samples); start += frameSize {
		end := start + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, s := range samples[start:end] {
			sum += float64(s) * float64(s)
		}
		energies = append(energies, sum)
	}
	return energies
}

func noveltyCurve(energies []float64) []float64 {
	onsets := make([]float64, len(energies))
	for i := 1; i < len(energies); i++ {
		d := energies[i] - energies[i-1]
		if d > 0 {
			onsets[i] = d
		}
	}
	return onsets
}

func autocorrelationAt(onsets []float64, lag int) float64 {
	if lag <= 0 || lag >= len(onsets) {
		return 0
	}
	var sum, norm float64
	for i := lag; i < len(onsets); i++ {
		sum += onsets[i] * onsets[i-lag]
		norm += onsets[i] * onsets[i]
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

func strongestOnsetIn(onsets []float64, window int) int {
	if window > len(onsets) {
		window = len(onsets)
	}
	best, bestVal := 0, -1.0
	for i := 0; i < window; i++ {
		if onsets[i] > bestVal {
			bestVal = onsets[i]
			best = i
		}
	}
	return best
}
