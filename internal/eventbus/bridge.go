/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"

	"github.com/lumentrack/console/internal/events"
)

// mirroredEventTypes lists every broadcast event a distributed deployment
// might care about mirroring off-node, matching the full enumeration in
// internal/events.
var mirroredEventTypes = []events.EventType{
	events.EventRhythmTick,
	events.EventTimecode,
	events.EventCueAdvanced,
	events.EventCueStopped,
	events.EventProgrammerChange,
	events.EventPixelFrame,
	events.EventDMXFrame,
	events.EventDeckState,
	events.EventDeckBeat,
	events.EventDeckLoaded,
	events.EventWaveformReady,
	events.EventBeatGridReady,
	events.EventTrackImported,
	events.EventModuleStatus,
	events.EventModuleError,
}

// Bridge relays every event published on the console's in-process bus onto
// a NATSBus, so a second console (or any other subscriber reachable only
// over NATS) can mirror this console's state. Runs until ctx is cancelled.
func Bridge(ctx context.Context, from *events.Bus, to *NATSBus) {
	for _, eventType := range mirroredEventTypes {
		sub := from.Subscribe(eventType)
		go func(eventType events.EventType, sub events.Subscriber) {
			defer from.Unsubscribe(eventType, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					to.Publish(eventType, payload)
				}
			}
		}(eventType, sub)
	}
}
