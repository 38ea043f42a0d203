/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"context"
	"time"

	"github.com/lumentrack/console/internal/scheduler"
)

const beatDrainInterval = time.Second / 44

// BeatCallback receives one deck beat event as it is drained.
type BeatCallback func(ev BeatEvent)

// Module adapts an Engine to the scheduler.Module interface. The host
// audio device's sample callback calls Engine.NextFrame directly on its
// own real-time thread, outside this module's control; Module only drains
// the beat-event queue at the tick rate and forwards each event through
// onBeat, so the control loop learns about beat crossings without taking
// the engine's mutation lock itself.
type Module struct {
	engine *Engine
	onBeat BeatCallback
}

func NewModule(e *Engine, onBeat BeatCallback) *Module {
	return &Module{engine: e, onBeat: onBeat}
}

func (m *Module) ID() scheduler.ModuleID { return scheduler.ModuleAudio }

func (m *Module) Initialize(ctx context.Context) error { return nil }

func (m *Module) Run(ctx context.Context, commands <-chan scheduler.Command, events chan<- scheduler.Message) {
	ticker := time.NewTicker(beatDrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ev := range m.engine.DrainBeatEvents() {
				if m.onBeat != nil {
					m.onBeat(ev)
				}
			}
		}
	}
}

func (m *Module) Shutdown(ctx context.Context) error { return nil }

func (m *Module) Status() string { return "running" }
