/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events defines the console's broadcast event taxonomy and a
// simple in-process pub/sub bus. The Module Scheduler aggregates module
// output onto this bus; the control API relays it to connected clients.
package events

import "sync"

// EventType enumerates the broadcast event categories the console emits.
type EventType string

const (
	EventRhythmTick       EventType = "rhythm.tick"
	EventTimecode         EventType = "timecode"
	EventCueAdvanced      EventType = "cue.advanced"
	EventCueStopped       EventType = "cue.stopped"
	EventProgrammerChange EventType = "programmer.change"
	EventPixelFrame       EventType = "pixel.frame"
	EventDMXFrame         EventType = "dmx.frame"
	EventDeckState        EventType = "deck.state"
	EventDeckBeat         EventType = "deck.beat"
	EventDeckLoaded       EventType = "deck.loaded"
	EventWaveformReady    EventType = "library.waveform_ready"
	EventBeatGridReady    EventType = "library.beatgrid_ready"
	EventTrackImported    EventType = "library.track_imported"
	EventModuleStatus     EventType = "module.status"
	EventModuleError      EventType = "module.error"
)

// Payload is a generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements in-process pub/sub with drop-on-full delivery.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for an event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 32)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to all subscribers of eventType. Slow subscribers
// drop events rather than block the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes and closes the subscriber channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
