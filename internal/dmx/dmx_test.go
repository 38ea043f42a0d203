package dmx

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/pixel"
)

func TestComposeWritesNonPixelFixtureAtStartAddress(t *testing.T) {
	r := NewRenderer(Config{Enabled: false, RefreshRateHz: 44, IdleRateHz: 1}, zerolog.Nop())
	f := fixture.Fixture{
		ID:           1,
		Universe:     1,
		StartAddress: 5,
		Channels: []fixture.Channel{
			{Value: 10}, {Value: 20}, {Value: 30},
		},
	}
	r.Compose([]fixture.Fixture{f}, nil)

	snap := r.Snapshot()
	buf := snap[1]
	if buf == nil {
		t.Fatal("expected universe 1 composed")
	}
	if buf[4] != 10 || buf[5] != 20 || buf[6] != 30 {
		t.Fatalf("expected values at offset 4..6, got %v", buf[4:7])
	}
}

func TestComposeOverlaysOntoPixelEngineOutput(t *testing.T) {
	r := NewRenderer(Config{Enabled: false}, zerolog.Nop())
	pixelBuf := &pixel.Universe{}
	pixelBuf[0] = 99

	f := fixture.Fixture{ID: 1, Universe: 1, StartAddress: 10, Channels: []fixture.Channel{{Value: 7}}}
	r.Compose([]fixture.Fixture{f}, map[int]*pixel.Universe{1: pixelBuf})

	snap := r.Snapshot()
	if snap[1][0] != 99 {
		t.Fatal("expected pixel engine byte preserved")
	}
	if snap[1][9] != 7 {
		t.Fatal("expected fixture byte overlaid at its start address")
	}
}

func TestComposeSkipsPixelBarFixtures(t *testing.T) {
	r := NewRenderer(Config{Enabled: false}, zerolog.Nop())
	f := fixture.Fixture{ID: 1, Universe: 1, StartAddress: 1, IsPixelBar: true, Channels: []fixture.Channel{{Value: 200}}}
	r.Compose([]fixture.Fixture{f}, nil)

	snap := r.Snapshot()
	buf := snap[1]
	if buf == nil {
		t.Fatal("expected universe created even with only a pixel-bar fixture")
	}
	if buf[0] != 0 {
		t.Fatal("expected pixel-bar fixture not written by Compose")
	}
}

func TestComposeIgnoresChannelsPastUniverseEnd(t *testing.T) {
	r := NewRenderer(Config{Enabled: false}, zerolog.Nop())
	channels := make([]fixture.Channel, 5)
	f := fixture.Fixture{ID: 1, Universe: 1, StartAddress: 510, Channels: channels}
	r.Compose([]fixture.Fixture{f}, nil)
	// Should not panic despite overrunning index 511.
	snap := r.Snapshot()
	if snap[1] == nil {
		t.Fatal("expected universe composed without panic")
	}
}

func TestComposeMarksUniverseDirtyAndTriggersHighRate(t *testing.T) {
	r := NewRenderer(Config{Enabled: false, RefreshRateHz: 44, IdleRateHz: 1}, zerolog.Nop())
	f := fixture.Fixture{ID: 1, Universe: 1, StartAddress: 1, Channels: []fixture.Channel{{Value: 1}}}
	r.Compose([]fixture.Fixture{f}, nil)

	if r.CurrentRate() != 44 {
		t.Fatalf("expected rate switched to high rate 44, got %d", r.CurrentRate())
	}
}
