/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package midi implements the optional MIDI scheduler module (§4.9, §6):
// it owns one input port, decodes Note On/Off, CC, and Clock messages,
// and translates them into console commands through a static, declared
// mapping table. Deck controller mappings (e.g. a Kontrol Z1) and a
// Push-style pad controller are both expressed as entries in that table;
// this package knows nothing about either controller by name.
package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"github.com/rs/zerolog"

	"github.com/lumentrack/console/internal/consoleerr"
	"github.com/lumentrack/console/internal/scheduler"
)

// Port is a source of raw incoming MIDI byte messages. DriverPort
// (driverport.go) is the implementation backed by gomidi's rtmididrv;
// cmd/console constructs it and passes it to New. Opened in
// Initialize, closed in Shutdown, per §9's module resource lifecycle.
type Port interface {
	Open() (<-chan []byte, error)
	Close() error
}

// SubmitFunc forwards one translated command to the control loop.
type SubmitFunc func(name string, payload any)

// Kind distinguishes the MIDI message shapes a Mapping matches against.
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindControlChange
)

// Mapping is one entry of the static mapping table translating an
// incoming channel voice message into a console command. Build receives
// the message's data byte (velocity for note messages, value for CC) and
// returns the command payload.
type Mapping struct {
	Kind    Kind
	Channel uint8 // 0-15
	Key     uint8 // note number (KindNoteOn/Off) or controller number (KindControlChange)
	Command string
	Build   func(value uint8) any
}

// Module is the MIDI scheduler module.
type Module struct {
	logger   zerolog.Logger
	port     Port
	mappings []Mapping
	submit   SubmitFunc
	onTempo  func(bpm float64)

	mu     sync.Mutex
	clock  clockTracker
	status string

	in <-chan []byte
}

// New constructs a MIDI module. onTempo, if non-nil, is called with an
// estimated BPM every 24 Clock pulses (one quarter note at the MIDI
// clock's fixed 24-pulses-per-quarter-note resolution).
func New(port Port, mappings []Mapping, submit SubmitFunc, onTempo func(bpm float64), logger zerolog.Logger) *Module {
	return &Module{
		logger:   logger.With().Str("component", "midi").Logger(),
		port:     port,
		mappings: mappings,
		submit:   submit,
		onTempo:  onTempo,
		status:   "initialized",
	}
}

func (m *Module) ID() scheduler.ModuleID { return scheduler.ModuleMIDI }

// Initialize opens the configured port. A missing port and a port that
// fails to open both return an error wrapping ErrModuleInitError;
// cmd/console registers this module only when midi_enabled is set, and as
// optional, so such a failure does not abort startup.
func (m *Module) Initialize(ctx context.Context) error {
	if m.port == nil {
		return fmt.Errorf("midi: no port configured: %w", consoleerr.ErrModuleInitError)
	}
	in, err := m.port.Open()
	if err != nil {
		return fmt.Errorf("midi: open port: %w: %w", err, consoleerr.ErrModuleInitError)
	}
	m.in = in
	return nil
}

// Run reads raw MIDI bytes from the port until ctx is cancelled or the
// port closes, translating each message as it arrives.
func (m *Module) Run(ctx context.Context, commands <-chan scheduler.Command, events chan<- scheduler.Message) {
	m.setStatus("running")
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-m.in:
			if !ok {
				m.setStatus("port closed")
				events <- scheduler.Message{Module: scheduler.ModuleMIDI, Kind: scheduler.KindStatus, Name: "port closed"}
				return
			}
			m.handleRaw(raw)
		}
	}
}

func (m *Module) Shutdown(ctx context.Context) error {
	if m.port == nil {
		return nil
	}
	if err := m.port.Close(); err != nil {
		return fmt.Errorf("midi: close port: %w: %w", err, consoleerr.ErrModuleShutdownError)
	}
	return nil
}

func (m *Module) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) setStatus(s string) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// handleRaw decodes one raw MIDI message and either feeds the clock
// tracker (0xF8 Timing Clock) or matches it against the mapping table.
func (m *Module) handleRaw(raw []byte) {
	if len(raw) == 1 && raw[0] == 0xF8 {
		if bpm, ok := m.clock.pulse(time.Now()); ok && m.onTempo != nil {
			m.onTempo(bpm)
		}
		return
	}

	msg := gomidi.Message(raw)
	var channel, key, velocity, controller, value uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		m.dispatch(KindNoteOn, channel, key, velocity)
	case msg.GetNoteOff(&channel, &key, &velocity):
		m.dispatch(KindNoteOff, channel, key, velocity)
	case msg.GetControlChange(&channel, &controller, &value):
		m.dispatch(KindControlChange, channel, controller, value)
	}
}

func (m *Module) dispatch(kind Kind, channel, key, value uint8) {
	for _, mp := range m.mappings {
		if mp.Kind != kind || mp.Channel != channel || mp.Key != key {
			continue
		}
		if m.submit != nil {
			m.submit(mp.Command, mp.Build(value))
		}
		return
	}
	m.logger.Debug().Uint8("channel", channel).Uint8("key", key).Msg("unmapped midi message")
}
