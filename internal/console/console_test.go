package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumentrack/console/internal/audio"
	"github.com/lumentrack/console/internal/cue"
	"github.com/lumentrack/console/internal/deck"
	"github.com/lumentrack/console/internal/dmx"
	"github.com/lumentrack/console/internal/events"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/programmer"
	"github.com/lumentrack/console/internal/rhythm"
	"github.com/lumentrack/console/internal/scheduler"
	"github.com/lumentrack/console/internal/tracking"
)

func newTestCore(t *testing.T) (*Core, int) {
	t.Helper()
	fixtures := fixture.NewState()
	id, err := fixtures.Patch(fixture.Fixture{
		Universe:     0,
		StartAddress: 1,
		Channels:     []fixture.Channel{{Role: fixture.RoleDimmer}},
	})
	if err != nil {
		t.Fatalf("unexpected patch error: %v", err)
	}

	track := tracking.NewState()
	cues := cue.NewManager(track)
	prog := programmer.NewState()
	renderer := dmx.NewRenderer(dmx.Config{Enabled: false}, zerolog.Nop())
	sched := scheduler.New(16)
	bus := events.NewBus()

	return New(fixtures, track, cues, prog, renderer, sched, bus, 120.0), id
}

func TestTickAppliesStaticsToFixtureChannels(t *testing.T) {
	core, id := newTestCore(t)

	listID := core.Cues.AddCueList("main")
	_, err := core.Cues.AddCue(listID, cue.Cue{
		IsBlocking: true,
		Statics:    map[tracking.ChannelKey]uint8{{FixtureID: id, Role: fixture.RoleDimmer}: 200},
	})
	if err != nil {
		t.Fatalf("unexpected add cue error: %v", err)
	}
	if err := core.Cues.GoToCue(listID, 0); err != nil {
		t.Fatalf("unexpected goto cue error: %v", err)
	}

	core.tick(20 * time.Millisecond)

	f, err := core.Fixtures.Get(id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if f.Channels[0].Value != 200 {
		t.Fatalf("expected dimmer value 200, got %d", f.Channels[0].Value)
	}
}

func TestTickAppliesProgrammerOverrideOnlyInPreviewMode(t *testing.T) {
	core, id := newTestCore(t)
	core.Programmer.AddValue(id, fixture.RoleDimmer, 50)

	core.tick(20 * time.Millisecond)
	f, _ := core.Fixtures.Get(id)
	if f.Channels[0].Value == 50 {
		t.Fatal("expected override not applied without preview mode")
	}

	core.Programmer.SetPreviewMode(true)
	core.tick(20 * time.Millisecond)
	f, _ = core.Fixtures.Get(id)
	if f.Channels[0].Value != 50 {
		t.Fatalf("expected override applied in preview mode, got %d", f.Channels[0].Value)
	}
}

func TestSubmitDispatchesCueGoOnNextTick(t *testing.T) {
	core, id := newTestCore(t)
	listID := core.Cues.AddCueList("main")
	_, _ = core.Cues.AddCue(listID, cue.Cue{IsBlocking: true, Statics: map[tracking.ChannelKey]uint8{{FixtureID: id, Role: fixture.RoleDimmer}: 10}})
	_, _ = core.Cues.AddCue(listID, cue.Cue{Statics: map[tracking.ChannelKey]uint8{{FixtureID: id, Role: fixture.RoleDimmer}: 20}})
	if err := core.Cues.GoToCue(listID, 0); err != nil {
		t.Fatalf("unexpected goto cue error: %v", err)
	}

	core.Submit(Command{Name: "cue.go"})
	core.tick(20 * time.Millisecond)

	f, _ := core.Fixtures.Get(id)
	if f.Channels[0].Value != 20 {
		t.Fatalf("expected second cue's value 20 after cue.go, got %d", f.Channels[0].Value)
	}
}

func TestEmitStateEventsPublishesRhythmTick(t *testing.T) {
	core, _ := newTestCore(t)
	sub := core.Bus.Subscribe(events.EventRhythmTick)

	core.tick(20 * time.Millisecond)

	select {
	case payload := <-sub:
		if _, ok := payload["bpm"]; !ok {
			t.Fatalf("expected bpm key in payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a rhythm tick event")
	}
}

// silentSource is a minimal deck.Source that always returns silence, enough
// to load a deck into a Ready state without a real audio file.
type silentSource struct{}

func (silentSource) Next() (float32, float32, bool)          { return 0, 0, true }
func (silentSource) SeekSample(index uint64) (uint64, error) { return index, nil }
func (silentSource) SampleRate() uint32                      { return 44100 }
func (silentSource) Channels() int                           { return 2 }
func (silentSource) TotalSamples() uint64                    { return 0 }

func TestPollDecksFiresQuantizedPlayAndUpdatesRhythmSource(t *testing.T) {
	core, _ := newTestCore(t)
	engine := audio.NewEngine()
	core.SetAudioEngine(engine)
	core.SetTempoSource(rhythm.DjMaster)

	engine.WithDeck(func(a, b *deck.Deck) {
		a.Load(silentSource{})
		a.SchedulePlayAfter(0, 0)
	})

	sub := core.Bus.Subscribe(events.EventDeckState)

	core.tick(20 * time.Millisecond)

	select {
	case payload := <-sub:
		if payload["deck"] != "a" {
			t.Fatalf("expected deck a quantized play event, got %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected deck state event for quantized play")
	}

	engine.WithDeck(func(a, b *deck.Deck) {
		if a.State() != deck.Playing {
			t.Fatalf("expected deck a to be Playing after its quantized deadline fired, got %v", a.State())
		}
	})

	rs := core.advanceRhythm(0)
	if rs.Source != rhythm.DjMaster {
		t.Fatalf("expected DjMaster source once a deck is playing, got %v", rs.Source)
	}
}

type oneShotModule struct {
	sent chan struct{}
}

func (m *oneShotModule) ID() scheduler.ModuleID               { return scheduler.ModuleDMX }
func (m *oneShotModule) Initialize(ctx context.Context) error { return nil }
func (m *oneShotModule) Shutdown(ctx context.Context) error   { return nil }
func (m *oneShotModule) Status() string                       { return "ok" }
func (m *oneShotModule) Run(ctx context.Context, commands <-chan scheduler.Command, out chan<- scheduler.Message) {
	out <- scheduler.Message{Module: scheduler.ModuleDMX, Kind: scheduler.KindError, Err: errTest}
	close(m.sent)
	<-ctx.Done()
}

var errTest = errors.New("artnet socket closed")

func TestDrainModuleMessagesTranslatesErrorToEvent(t *testing.T) {
	core, _ := newTestCore(t)
	sub := core.Bus.Subscribe(events.EventModuleError)

	m := &oneShotModule{sent: make(chan struct{})}
	core.Scheduler.Register(m, false)
	if err := core.Scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer core.Scheduler.Shutdown(time.Second)

	<-m.sent
	core.drainModuleMessages()

	select {
	case payload := <-sub:
		if payload["module"] != string(scheduler.ModuleDMX) {
			t.Fatalf("unexpected payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected module error event")
	}
}
