package pixel

import (
	"testing"

	"github.com/lumentrack/console/internal/effect"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/rhythm"
	"github.com/lumentrack/console/internal/tracking"
)

func pixelBar(id, universe, start, channelCount int) fixture.Fixture {
	channels := make([]fixture.Channel, channelCount)
	for i := range channels {
		channels[i] = fixture.Channel{Role: fixture.OtherRole("pixel")}
	}
	return fixture.Fixture{
		ID:           id,
		Universe:     universe,
		StartAddress: start,
		Channels:     channels,
		IsPixelBar:   true,
	}
}

func TestAssignSequentialUniversesPacksContiguously(t *testing.T) {
	bars := []fixture.Fixture{
		pixelBar(1, 1, 1, 300),
		pixelBar(2, 1, 301, 300), // does not fit remaining 212 slots, overflows
	}
	assignment := AssignSequentialUniverses(bars)
	if assignment[1] != 1 {
		t.Fatalf("expected fixture 1 in universe 1, got %d", assignment[1])
	}
	if assignment[2] != 2 {
		t.Fatalf("expected fixture 2 to overflow to universe 2, got %d", assignment[2])
	}
}

func TestAssignSequentialUniversesEmptyWhenNoPixelBars(t *testing.T) {
	fixtures := []fixture.Fixture{{ID: 1, IsPixelBar: false}}
	if got := AssignSequentialUniverses(fixtures); got != nil {
		t.Fatalf("expected nil assignment, got %v", got)
	}
}

func TestRenderWritesStaticChannelsAtStartAddress(t *testing.T) {
	f := pixelBar(1, 1, 10, 3)
	f.Channels[0].Value = 10
	f.Channels[1].Value = 20
	f.Channels[2].Value = 30

	out := Render([]fixture.Fixture{f}, nil, rhythm.State{})
	buf := out[1]
	if buf[9] != 10 || buf[10] != 20 || buf[11] != 30 {
		t.Fatalf("expected static values at offset 9..11, got %v", buf[9:12])
	}
}

func TestRenderAppliesEffectOverStatics(t *testing.T) {
	f := pixelBar(1, 1, 1, 1)
	f.Channels[0].Value = 5

	effects := []tracking.PixelEffectMapping{{
		FixtureIDs: []int{1},
		Effect: effect.Params{
			Waveform: effect.Square,
			Min:      0,
			Max:      255,
			Interval: effect.Beat,
		},
		Distribution: effect.Distribution{Kind: effect.DistAll},
	}}

	out := Render([]fixture.Fixture{f}, effects, rhythm.State{BeatPhase: 0.1, BeatsPerBar: 4, BarsPerPhrase: 4})
	if out[1][0] == 5 {
		t.Fatal("expected effect to override static value")
	}
}

func TestRenderSkipsNonPixelFixtures(t *testing.T) {
	f := fixture.Fixture{ID: 1, IsPixelBar: false, Universe: 1, StartAddress: 1, Channels: []fixture.Channel{{Value: 99}}}
	out := Render([]fixture.Fixture{f}, nil, rhythm.State{})
	if out != nil {
		t.Fatalf("expected no universes rendered for non-pixel fixtures, got %v", out)
	}
}
