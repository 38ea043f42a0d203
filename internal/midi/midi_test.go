/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package midi

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumentrack/console/internal/scheduler"
)

type fakePort struct {
	ch     chan []byte
	closed bool
}

func newFakePort() *fakePort {
	return &fakePort{ch: make(chan []byte, 16)}
}

func (p *fakePort) Open() (<-chan []byte, error) { return p.ch, nil }
func (p *fakePort) Close() error                 { p.closed = true; return nil }

func TestInitializeOpensPortAndShutdownClosesIt(t *testing.T) {
	port := newFakePort()
	m := New(port, nil, nil, nil, zerolog.Nop())

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected initialize error: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if !port.closed {
		t.Fatal("expected port to be closed")
	}
}

func TestInitializeWithoutPortFails(t *testing.T) {
	m := New(nil, nil, nil, nil, zerolog.Nop())
	if err := m.Initialize(context.Background()); err == nil {
		t.Fatal("expected error when no port is configured")
	}
}

func TestNoteOnDispatchesMappedCommand(t *testing.T) {
	port := newFakePort()
	var gotName string
	var gotPayload any
	submit := func(name string, payload any) {
		gotName = name
		gotPayload = payload
	}

	mappings := []Mapping{
		{
			Kind:    KindNoteOn,
			Channel: 0,
			Key:     36,
			Command: "dj.hotcue.trigger",
			Build:   func(value uint8) any { return map[string]any{"deck": "a", "slot": 0} },
		},
	}

	m := New(port, mappings, submit, nil, zerolog.Nop())
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected initialize error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan scheduler.Message, 4)
	commands := make(chan scheduler.Command)
	done := make(chan struct{})
	go func() {
		m.Run(ctx, commands, events)
		close(done)
	}()

	port.ch <- []byte{0x90, 36, 100} // Note On, channel 1, key 36, velocity 100

	deadline := time.Now().Add(time.Second)
	for gotName == "" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if gotName != "dj.hotcue.trigger" {
		t.Fatalf("expected dj.hotcue.trigger, got %q", gotName)
	}
	if gotPayload == nil {
		t.Fatal("expected non-nil payload")
	}
}

func TestUnmappedNoteIsIgnored(t *testing.T) {
	port := newFakePort()
	called := false
	submit := func(name string, payload any) { called = true }

	m := New(port, nil, submit, nil, zerolog.Nop())
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected initialize error: %v", err)
	}

	m.handleRaw([]byte{0x90, 10, 127})

	if called {
		t.Fatal("expected submit not to be called for an unmapped note")
	}
}

func TestClockTrackerEstimatesBPM(t *testing.T) {
	var c clockTracker
	start := time.Now()

	for i := 0; i < pulsesPerQuarterNote-1; i++ {
		if _, ok := c.pulse(start); ok {
			t.Fatal("expected no estimate before 24 pulses")
		}
	}

	bpm, ok := c.pulse(start)
	if ok {
		t.Fatal("expected no estimate on the first full quarter note (no prior reference)")
	}
	_ = bpm

	next := start.Add(500 * time.Millisecond)
	for i := 0; i < pulsesPerQuarterNote-1; i++ {
		c.pulse(next)
	}
	bpm, ok = c.pulse(next)
	if !ok {
		t.Fatal("expected a bpm estimate")
	}
	if bpm < 119 || bpm > 121 {
		t.Fatalf("expected ~120 bpm, got %.2f", bpm)
	}
}
