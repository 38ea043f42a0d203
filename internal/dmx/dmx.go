/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dmx composes per-universe DMX buffers from fixture state and pixel
// engine output each tick, and transmits them over Art-Net with an adaptive
// high/idle rate. Adapted from lacylights-go's DMX service: dirty-universe
// tracking, currentRate/isInHighRateMode, and ticker-with-reset-channel.
package dmx

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumentrack/console/internal/dmx/artnet"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/pixel"
)

// UniverseSize is the DMX512 channel count per universe.
const UniverseSize = 512

// Config configures the DMX renderer and its Art-Net transmitter.
type Config struct {
	Enabled          bool
	BroadcastAddr    string
	Port             int
	RefreshRateHz    int
	IdleRateHz       int
	HighRateDuration time.Duration
}

// DefaultConfig returns sensible Art-Net defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		BroadcastAddr:    "255.255.255.255",
		Port:             artnet.DefaultPort,
		RefreshRateHz:    44,
		IdleRateHz:       1,
		HighRateDuration: 2 * time.Second,
	}
}

// Renderer composes universe buffers and owns the Art-Net transmit loop.
type Renderer struct {
	mu sync.Mutex

	universes      map[int]*pixel.Universe
	dirtyUniverses map[int]bool

	cfg              Config
	currentRate      int
	isInHighRateMode bool
	lastChangeTime   time.Time
	sequence         byte

	conn *net.UDPConn

	stopChan        chan struct{}
	resetTickerChan chan struct{}
	running         bool

	logger zerolog.Logger
}

// NewRenderer returns a renderer with no universes composed yet.
func NewRenderer(cfg Config, logger zerolog.Logger) *Renderer {
	if cfg.RefreshRateHz <= 0 {
		cfg.RefreshRateHz = 44
	}
	if cfg.IdleRateHz <= 0 {
		cfg.IdleRateHz = 1
	}
	if cfg.HighRateDuration <= 0 {
		cfg.HighRateDuration = 2 * time.Second
	}
	if cfg.Port <= 0 {
		cfg.Port = artnet.DefaultPort
	}
	return &Renderer{
		universes:       make(map[int]*pixel.Universe),
		dirtyUniverses:  make(map[int]bool),
		cfg:             cfg,
		currentRate:     cfg.IdleRateHz,
		stopChan:        make(chan struct{}),
		resetTickerChan: make(chan struct{}, 1),
		logger:          logger.With().Str("component", "dmx").Logger(),
	}
}

// Start opens the Art-Net UDP socket (if enabled) and begins the
// adaptive-rate transmit loop.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if r.cfg.Enabled {
		addr, err := net.ResolveUDPAddr("udp4", r.cfg.BroadcastAddr+":"+strconv.Itoa(r.cfg.Port))
		if err != nil {
			return err
		}
		conn, err := net.DialUDP("udp4", nil, addr)
		if err != nil {
			return err
		}
		r.conn = conn
	}
	r.running = true
	go r.transmitLoop()
	return nil
}

// Stop halts the transmit loop and closes the socket, sending a final
// blackout frame first.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	close(r.stopChan)
	r.running = false
	if r.conn != nil {
		for universe := range r.universes {
			r.sequence++
			blank := pixel.Universe{}
			_, _ = r.conn.Write(artnet.BuildDMXPacket(universe, blank[:], r.sequence))
		}
		_ = r.conn.Close()
		r.conn = nil
	}
}

// Compose performs one tick's buffer composition: it starts from the pixel
// engine's universe map (if any), then overlays every non-pixel fixture's
// channel slice at (start_address-1 .. start_address-1+channel_count),
// clamped to stay within index 511.
func (r *Renderer) Compose(fixtures []fixture.Fixture, pixelBuffers map[int]*pixel.Universe) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[int]*pixel.Universe, len(pixelBuffers))
	for u, buf := range pixelBuffers {
		copied := *buf
		next[u] = &copied
	}

	for _, f := range fixtures {
		if f.IsPixelBar {
			continue
		}
		buf, ok := next[f.Universe]
		if !ok {
			buf = &pixel.Universe{}
			next[f.Universe] = buf
		}
		start := f.StartAddress - 1
		for i, ch := range f.Channels {
			idx := start + i
			if idx < 0 || idx >= UniverseSize {
				continue
			}
			buf[idx] = ch.Value
		}
	}

	for u, buf := range next {
		prev, existed := r.universes[u]
		if !existed || *prev != *buf {
			r.markDirtyLocked(u)
		}
	}
	r.universes = next
}

func (r *Renderer) markDirtyLocked(universe int) {
	r.dirtyUniverses[universe] = true
	r.triggerHighRateLocked()
}

func (r *Renderer) triggerHighRateLocked() {
	r.lastChangeTime = time.Now()
	if !r.isInHighRateMode {
		r.isInHighRateMode = true
		r.currentRate = r.cfg.RefreshRateHz
	}
}

func (r *Renderer) transmitLoop() {
	r.mu.Lock()
	interval := time.Second / time.Duration(r.currentRate)
	r.mu.Unlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastRate := 0
	for {
		select {
		case <-r.stopChan:
			return
		case <-r.resetTickerChan:
			r.mu.Lock()
			rate := r.currentRate
			r.mu.Unlock()
			if rate != lastRate {
				ticker.Stop()
				ticker = time.NewTicker(time.Second / time.Duration(rate))
				lastRate = rate
			}
		case <-ticker.C:
			r.processTick()
			r.mu.Lock()
			rate := r.currentRate
			r.mu.Unlock()
			if rate != lastRate {
				ticker.Stop()
				ticker = time.NewTicker(time.Second / time.Duration(rate))
				lastRate = rate
			}
		}
	}
}

func (r *Renderer) processTick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	hasChanges := len(r.dirtyUniverses) > 0
	if hasChanges {
		r.lastChangeTime = time.Now()
	} else if r.isInHighRateMode && !r.lastChangeTime.IsZero() && time.Since(r.lastChangeTime) > r.cfg.HighRateDuration {
		r.isInHighRateMode = false
		r.currentRate = r.cfg.IdleRateHz
	}

	if !r.cfg.Enabled || r.conn == nil {
		r.dirtyUniverses = make(map[int]bool)
		return
	}

	var targets []int
	if hasChanges {
		for u := range r.dirtyUniverses {
			targets = append(targets, u)
		}
	} else {
		for u := range r.universes {
			targets = append(targets, u)
		}
	}

	for _, u := range targets {
		buf := r.universes[u]
		if buf == nil {
			continue
		}
		r.sequence++
		pkt := artnet.BuildDMXPacket(u, buf[:], r.sequence)
		if _, err := r.conn.Write(pkt); err != nil {
			r.logger.Error().Err(err).Int("universe", u).Msg("artnet send failed")
		}
	}
	r.dirtyUniverses = make(map[int]bool)
}

// CurrentRate returns the transmitter's current rate in Hz.
func (r *Renderer) CurrentRate() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentRate
}

// Snapshot returns the last composed universe buffers.
func (r *Renderer) Snapshot() map[int]*pixel.Universe {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]*pixel.Universe, len(r.universes))
	for u, buf := range r.universes {
		copied := *buf
		out[u] = &copied
	}
	return out
}
