/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package console implements the Console Core: the ~44 Hz main loop that
// advances the rhythm clock, applies the current cue, evaluates effects,
// renders DMX, and drains module messages, per tick.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumentrack/console/internal/audio"
	"github.com/lumentrack/console/internal/consoleerr"
	"github.com/lumentrack/console/internal/cue"
	"github.com/lumentrack/console/internal/deck"
	"github.com/lumentrack/console/internal/dmx"
	"github.com/lumentrack/console/internal/effect"
	"github.com/lumentrack/console/internal/events"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/pixel"
	"github.com/lumentrack/console/internal/programmer"
	"github.com/lumentrack/console/internal/rhythm"
	"github.com/lumentrack/console/internal/scheduler"
	"github.com/lumentrack/console/internal/tracking"
)

const tickInterval = time.Second / 44 // ~44 Hz, ≈23ms

// Command is a console command submitted by the control API or a module.
type Command struct {
	Name    string
	Payload any
}

// Core owns every shared collection and drives the per-tick pipeline.
type Core struct {
	Fixtures   *fixture.State
	Tracking   *tracking.State
	Cues       *cue.Manager
	Programmer *programmer.State
	DMX        *dmx.Renderer
	Scheduler  *scheduler.Scheduler
	Bus        *events.Bus

	// Audio is set once the audio engine is constructed (cmd/console wiring).
	// Until it is set, DJ commands dispatched through Submit only publish a
	// module.error event.
	Audio *audio.Engine

	rhythmMu sync.Mutex
	rhythm   *rhythm.Clock

	commands chan Command

	lastTick time.Time
}

// New wires a Core from its component collections. Each dependency is
// constructed by the caller (cmd/console) so tests can substitute fakes.
func New(fixtures *fixture.State, track *tracking.State, cues *cue.Manager, prog *programmer.State, dmxRenderer *dmx.Renderer, sched *scheduler.Scheduler, bus *events.Bus, bpm float64) *Core {
	return &Core{
		Fixtures:   fixtures,
		Tracking:   track,
		Cues:       cues,
		Programmer: prog,
		DMX:        dmxRenderer,
		Scheduler:  sched,
		Bus:        bus,
		rhythm:     rhythm.New(bpm),
		commands:   make(chan Command, 128),
	}
}

// SetAudioEngine attaches the two-deck audio engine so DJ commands
// dispatched through Submit can reach it. Called once during startup
// wiring, before Run.
func (c *Core) SetAudioEngine(e *audio.Engine) {
	c.Audio = e
}

// Submit enqueues a command for the next tick's drain step. Never blocks on
// I/O; if the queue is full the command is dropped and an error event is
// published so the caller can retry.
func (c *Core) Submit(cmd Command) {
	select {
	case c.commands <- cmd:
	default:
		c.Bus.Publish(events.EventModuleError, events.Payload{"error": "command queue full", "command": cmd.Name})
	}
}

// Run drives the ~44 Hz tick loop until ctx is cancelled.
func (c *Core) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	c.lastTick = time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(c.lastTick)
			c.lastTick = now
			c.tick(dt)
		}
	}
}

// tick runs the spec's 10-step per-tick pipeline once.
func (c *Core) tick(dt time.Duration) {
	c.drainCommands()
	c.pollDecks()

	rs := c.advanceRhythm(dt)

	state, _, _, _ := c.Cues.State()
	if state == cue.Playing {
		c.Cues.Update(dt)
	}

	c.applyStatics()
	fixtures := c.Fixtures.All()
	c.evaluateEffects(fixtures, rs)

	pixelBuffers := pixel.Render(fixtures, c.Tracking.PixelEffects(), rs)

	c.applyProgrammerOverrides()

	c.DMX.Compose(c.Fixtures.All(), pixelBuffers)

	c.drainModuleMessages()

	c.emitStateEvents(rs)
}

func (c *Core) drainCommands() {
	for {
		select {
		case cmd := <-c.commands:
			c.dispatch(cmd)
		default:
			return
		}
	}
}

// dispatch executes one command and always emits a completion or error
// event, per §4.10's command contract.
func (c *Core) dispatch(cmd Command) {
	if strings.HasPrefix(cmd.Name, "dj.") {
		c.dispatchDJ(cmd)
		return
	}

	var err error
	switch cmd.Name {
	case "cue.go":
		err = c.Cues.Go()
	case "cue.stop":
		c.Cues.Stop()
	case "cue.hold":
		c.Cues.Hold()
	case "programmer.preview":
		if enabled, ok := cmd.Payload.(bool); ok {
			c.Programmer.SetPreviewMode(enabled)
		}
	}
	if err != nil {
		c.Bus.Publish(events.EventModuleError, events.Payload{"command": cmd.Name, "error": err.Error()})
		return
	}
	c.Bus.Publish(events.EventCueAdvanced, events.Payload{"command": cmd.Name})
}

// dispatchDJ handles the dj.* command family, which all act on one of the
// two decks owned by the audio engine. Payload is always a DJCommand.
func (c *Core) dispatchDJ(cmd Command) {
	if c.Audio == nil {
		c.Bus.Publish(events.EventModuleError, events.Payload{"command": cmd.Name, "error": "audio engine not attached"})
		return
	}
	payload, ok := cmd.Payload.(DJCommand)
	if !ok || (payload.Deck != "a" && payload.Deck != "b") {
		c.Bus.Publish(events.EventModuleError, events.Payload{"command": cmd.Name, "error": "invalid or missing deck selector"})
		return
	}

	var errMsg string
	c.Audio.WithDeck(func(a, b *deck.Deck) {
		target := a
		if payload.Deck == "b" {
			target = b
		}
		if err := applyDJCommand(target, cmd.Name, payload); err != nil {
			errMsg = err.Error()
		}
	})

	if errMsg != "" {
		c.Bus.Publish(events.EventModuleError, events.Payload{"command": cmd.Name, "deck": payload.Deck, "error": errMsg})
		return
	}
	c.Bus.Publish(events.EventDeckState, events.Payload{"command": cmd.Name, "deck": payload.Deck})
}

// applyDJCommand mutates target per one dj.* command. Unknown command
// names return an error wrapping consoleerr.ErrInvalidInput.
func applyDJCommand(target *deck.Deck, name string, p DJCommand) error {
	switch name {
	case "dj.play":
		target.Play()
	case "dj.pause":
		target.Pause()
	case "dj.stop":
		target.Stop()
	case "dj.seek":
		target.Seek(p.PositionSeconds)
	case "dj.pitch":
		target.SetPitch(p.Pitch, deck.TempoRange(p.TempoRange))
	case "dj.tempo_range":
		target.SetPitch(p.Pitch, deck.TempoRange(p.TempoRange))
	case "dj.sync":
		if !target.SyncToBPM(p.TargetBPM, deck.TempoRange(p.TempoRange)) {
			return fmt.Errorf("target bpm %.2f outside tempo range: %w", p.TargetBPM, consoleerr.ErrInvalidInput)
		}
	case "dj.master_tempo":
		if p.Enabled {
			target.SetMasterTempo(deck.MasterTempoOn)
		} else {
			target.SetMasterTempo(deck.MasterTempoOff)
		}
	case "dj.nudge":
		target.Nudge(p.Amount)
	case "dj.hotcue.set":
		target.SetHotCue(p.Slot)
	case "dj.hotcue.trigger":
		target.TriggerHotCue(p.Slot)
	case "dj.hotcue.clear":
		target.ClearHotCue(p.Slot)
	case "dj.loop.set":
		target.SetLoop(p.LoopInSecs, p.LoopOutSecs)
	case "dj.loop.toggle":
		target.SetLoopActive(p.Enabled)
	case "dj.loop.clear":
		target.ClearLoop()
	case "dj.play_quantized":
		target.SchedulePlayAfter(p.DelaySeconds, p.FirstBeatTime)
	default:
		return fmt.Errorf("unknown dj command %q: %w", name, consoleerr.ErrInvalidInput)
	}
	return nil
}

// DJCommand is the payload shape for every dj.* command. Only the fields
// relevant to a given command name are read.
type DJCommand struct {
	Deck            string
	PositionSeconds float64
	Pitch           float64
	TempoRange      int
	TargetBPM       float64
	Enabled         bool
	Amount          float64
	Slot            int
	LoopInSecs      float64
	LoopOutSecs     float64
	DelaySeconds    float64
	FirstBeatTime   float64
}

// pollDecks runs once per tick: it feeds the live playing state of both
// decks to the rhythm clock, so a DjMaster tempo source falls back to
// Internal the moment neither deck is playing, and fires any deck whose
// quantized play deadline has passed.
func (c *Core) pollDecks() {
	if c.Audio == nil {
		return
	}

	var playing bool
	var fired []string
	c.Audio.WithDeck(func(a, b *deck.Deck) {
		if a.State() == deck.Playing || b.State() == deck.Playing {
			playing = true
		}
		if a.CheckQuantizedPlay() {
			fired = append(fired, "a")
		}
		if b.CheckQuantizedPlay() {
			fired = append(fired, "b")
		}
	})

	c.rhythmMu.Lock()
	c.rhythm.SetDjMasterDeckPlaying(playing)
	c.rhythmMu.Unlock()

	for _, id := range fired {
		c.Bus.Publish(events.EventDeckState, events.Payload{"command": "dj.play_quantized", "deck": id})
	}
}

// AdoptDjMasterBeat feeds a drained deck beat crossing into the rhythm
// clock, so a DjMaster tempo source tracks the beat position and BPM of
// whichever deck is currently playing. Called from the audio module's
// beat-drain loop.
func (c *Core) AdoptDjMasterBeat(beatNumber uint64, bpm float64) {
	c.rhythmMu.Lock()
	defer c.rhythmMu.Unlock()
	c.rhythm.AdoptBeatTime(float64(beatNumber))
	c.rhythm.SetBPM(bpm)
}

func (c *Core) advanceRhythm(dt time.Duration) rhythm.State {
	c.rhythmMu.Lock()
	defer c.rhythmMu.Unlock()
	return c.rhythm.Advance(dt.Seconds())
}

// SetTempoSource switches the rhythm clock's tempo source.
func (c *Core) SetTempoSource(src rhythm.TempoSource) {
	c.rhythmMu.Lock()
	defer c.rhythmMu.Unlock()
	c.rhythm.SetSource(src)
}

// SetBPM updates the driving tempo, e.g. from an external MIDI Clock
// estimate. Takes effect on the next tick.
func (c *Core) SetBPM(bpm float64) {
	c.rhythmMu.Lock()
	defer c.rhythmMu.Unlock()
	c.rhythm.SetBPM(bpm)
}

func (c *Core) applyStatics() {
	for k, v := range c.Tracking.Statics() {
		_ = c.Fixtures.SetChannelValue(k.FixtureID, k.Role, v)
	}
}

func (c *Core) evaluateEffects(fixtures []fixture.Fixture, rs rhythm.State) {
	byID := make(map[int]int, len(fixtures))
	for i, f := range fixtures {
		byID[f.ID] = i
	}

	for _, m := range c.Tracking.Effects() {
		for i, fid := range m.FixtureIDs {
			idx, ok := byID[fid]
			if !ok {
				continue
			}
			f := fixtures[idx]
			for _, role := range m.Roles {
				v := effect.Evaluate(rs, m.Params, m.Distribution, i)
				_ = c.Fixtures.SetChannelValue(f.ID, role, v)
			}
		}
	}
}

func (c *Core) applyProgrammerOverrides() {
	if !c.Programmer.PreviewMode() {
		return
	}
	values := c.Programmer.GetValues()
	for k, v := range values {
		_ = c.Fixtures.SetChannelValue(k.FixtureID, k.Role, v)
	}
}

func (c *Core) drainModuleMessages() {
	for {
		select {
		case msg := <-c.Scheduler.Events():
			c.translateModuleMessage(msg)
		default:
			return
		}
	}
}

func (c *Core) translateModuleMessage(msg scheduler.Message) {
	switch msg.Kind {
	case scheduler.KindError:
		errText := ""
		if msg.Err != nil {
			errText = msg.Err.Error()
		}
		c.Bus.Publish(events.EventModuleError, events.Payload{"module": string(msg.Module), "error": errText})
	case scheduler.KindStatus:
		c.Bus.Publish(events.EventModuleStatus, events.Payload{"module": string(msg.Module), "status": msg.Name})
	default:
		c.Bus.Publish(events.EventModuleStatus, events.Payload{"module": string(msg.Module), "event": msg.Name, "payload": msg.Payload})
	}
}

func (c *Core) emitStateEvents(rs rhythm.State) {
	c.Bus.Publish(events.EventRhythmTick, events.Payload{
		"beat_phase":   rs.BeatPhase,
		"bar_phase":    rs.BarPhase,
		"phrase_phase": rs.PhrasePhase,
		"bpm":          rs.BPM,
	})

	state, listID, cueID, elapsed := c.Cues.State()
	c.Bus.Publish(events.EventTimecode, events.Payload{
		"playback_state": state,
		"cue_list_id":    listID,
		"cue_id":         cueID,
		"elapsed_ms":     elapsed.Milliseconds(),
		"tracking_count": c.Tracking.Count(),
	})
}
