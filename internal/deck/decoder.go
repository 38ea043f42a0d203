/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package deck

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"

	"github.com/lumentrack/console/internal/consoleerr"
)

// FileSource decodes an audio file to normalized f32 interleaved stereo by
// piping it through an external ffmpeg process, rather than linking a
// format demuxer into the console itself.
//
// ffmpeg is asked for raw little-endian f32 stereo at the deck's native
// processing rate; any source sample rate, channel count, or container
// format is handled by ffmpeg's own demux/resample/downmix, matching the
// "any channel count downmixed/duplicated to stereo, any sample format
// normalized to f32" input contract.
type FileSource struct {
	path       string
	sampleRate uint32
	ffmpegBin  string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout *bufio.Reader
	pos    uint64
	total  uint64
}

// NewFileSource constructs a FileSource for path, decoding at sampleRate.
// total, if known in advance (e.g. from a cached TrackWaveform duration),
// is returned by TotalSamples; pass 0 when unknown.
func NewFileSource(path string, sampleRate uint32, total uint64, ffmpegBin string) *FileSource {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &FileSource{path: path, sampleRate: sampleRate, total: total, ffmpegBin: ffmpegBin}
}

// Open starts the decode subprocess. Must be called before Next.
func (f *FileSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := exec.CommandContext(ctx, f.ffmpegBin,
		"-i", f.path,
		"-f", "f32le",
		"-ac", "2",
		"-ar", fmt.Sprintf("%d", f.sampleRate),
		"-loglevel", "error",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decode %s: create stdout pipe: %w", f.path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("decode %s: start ffmpeg: %w: %w", f.path, err, consoleerr.ErrDecodeError)
	}

	f.cmd = cmd
	f.stdout = bufio.NewReaderSize(stdout, 64*1024)
	f.pos = 0
	return nil
}

// Close waits for the subprocess to exit and releases its resources.
func (f *FileSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cmd == nil {
		return nil
	}
	_ = f.cmd.Wait()
	f.cmd = nil
	return nil
}

// Next implements Source. A short or malformed frame at end of stream is
// treated as end-of-stream, not a decode error.
func (f *FileSource) Next() (left, right float32, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var frame [8]byte
	if _, err := io.ReadFull(f.stdout, frame[:]); err != nil {
		return 0, 0, false
	}
	left = math.Float32frombits(binary.LittleEndian.Uint32(frame[0:4]))
	right = math.Float32frombits(binary.LittleEndian.Uint32(frame[4:8]))
	f.pos++
	return left, right, true
}

// SeekSample is unsupported on a streaming subprocess decode; callers that
// need hot-cue or loop seeking decode through a seekable buffered Source
// instead (see BufferedSource).
func (f *FileSource) SeekSample(index uint64) (uint64, error) {
	return f.pos, fmt.Errorf("seek unsupported on streaming decode: %w", consoleerr.ErrDecodeError)
}

func (f *FileSource) SampleRate() uint32   { return f.sampleRate }
func (f *FileSource) Channels() int        { return 2 }
func (f *FileSource) TotalSamples() uint64 { return f.total }

// BufferedSource wraps a fully decoded sample buffer so that hot cues,
// loops, and scratch/nudge seeking (which need random access) work
// against any Source. Callers build one by draining a FileSource once at
// load time via DecodeToBuffer.
type BufferedSource struct {
	sampleRate uint32
	left       []float32
	right      []float32
	pos        uint64
}

// DecodeToBuffer fully decodes path via ffmpeg into memory and returns a
// seekable BufferedSource. Intended for track lengths typical of a DJ set
// (minutes, not hours) where holding the whole decode in memory is cheap
// compared to the cost of re-spawning ffmpeg on every seek.
func DecodeToBuffer(ctx context.Context, path string, sampleRate uint32, ffmpegBin string) (*BufferedSource, error) {
	fs := NewFileSource(path, sampleRate, 0, ffmpegBin)
	if err := fs.Open(ctx); err != nil {
		return nil, err
	}
	defer fs.Close()

	buf := &BufferedSource{sampleRate: sampleRate}
	for {
		l, r, ok := fs.Next()
		if !ok {
			break
		}
		buf.left = append(buf.left, l)
		buf.right = append(buf.right, r)
	}
	return buf, nil
}

func (b *BufferedSource) Next() (left, right float32, ok bool) {
	if b.pos >= uint64(len(b.left)) {
		return 0, 0, false
	}
	left, right = b.left[b.pos], b.right[b.pos]
	b.pos++
	return left, right, true
}

func (b *BufferedSource) SeekSample(index uint64) (uint64, error) {
	if index > uint64(len(b.left)) {
		index = uint64(len(b.left))
	}
	b.pos = index
	return b.pos, nil
}

func (b *BufferedSource) SampleRate() uint32   { return b.sampleRate }
func (b *BufferedSource) Channels() int        { return 2 }
func (b *BufferedSource) TotalSamples() uint64 { return uint64(len(b.left)) }
