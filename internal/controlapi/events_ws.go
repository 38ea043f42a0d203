/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package controlapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lumentrack/console/internal/events"
	"github.com/lumentrack/console/internal/telemetry"
	ws "nhooyr.io/websocket"
)

var broadcastEventTypes = []events.EventType{
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

type wsEvent struct {
	Type    string         `json:"type"`
	Payload events.Payload `json:"payload"`
}

// handleEvents accepts a WebSocket connection and relays every console bus
// event to the client until it disconnects or the server shuts down.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("events websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	ctx := r.Context()

	subs := make([]events.Subscriber, len(broadcastEventTypes))
	for i, et := range broadcastEventTypes {
		subs[i] = a.core.Bus.Subscribe(et)
	}
	defer func() {
		for i, et := range broadcastEventTypes {
			a.core.Bus.Unsubscribe(et, subs[i])
		}
	}()

	merged := make(chan wsEvent, 256)
	for i, et := range broadcastEventTypes {
		go relaySubscriber(ctx, string(et), subs[i], merged)
	}

	pingTicker := time.NewTicker(15 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-pingTicker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case ev := <-merged:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				a.logger.Debug().Err(err).Msg("events websocket write failed")
				return
			}
		}
	}
}

func relaySubscriber(ctx context.Context, eventType string, sub events.Subscriber, out chan<- wsEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			select {
			case out <- wsEvent{Type: eventType, Payload: payload}:
			default:
			}
		}
	}
}
