package tracking

import (
	"testing"

	"github.com/lumentrack/console/internal/fixture"
)

// S5 — Blocking cue: tracking has {F1.Dimmer=100}. Apply cue B (blocking)
// with {F2.Dimmer=200}. After apply, tracking == {F2.Dimmer=200}.
func TestBlockingCueClearsBeforeApplying(t *testing.T) {
	s := NewState()
	s.ApplyCue(CueApplication{
		IsBlocking: false,
		Statics:    map[ChannelKey]uint8{{FixtureID: 1, Role: fixture.RoleDimmer}: 100},
	})

	s.ApplyCue(CueApplication{
		IsBlocking: true,
		Statics:    map[ChannelKey]uint8{{FixtureID: 2, Role: fixture.RoleDimmer}: 200},
	})

	got := s.Statics()
	if len(got) != 1 {
		t.Fatalf("expected exactly one static value after blocking cue, got %v", got)
	}
	if got[ChannelKey{FixtureID: 2, Role: fixture.RoleDimmer}] != 200 {
		t.Fatalf("expected F2.Dimmer=200, got %v", got)
	}
}

// Property 8 — Cue blocking: merge(B, N) after B (blocking) then N
// (non-blocking) equals the union with N's keys winning on overlap.
func TestNonBlockingCueMergesAndReplacesKeys(t *testing.T) {
	s := NewState()
	s.ApplyCue(CueApplication{
		IsBlocking: true,
		Statics: map[ChannelKey]uint8{
			{FixtureID: 1, Role: fixture.RoleDimmer}: 100,
			{FixtureID: 2, Role: fixture.RoleDimmer}: 50,
		},
	})
	s.ApplyCue(CueApplication{
		IsBlocking: false,
		Statics: map[ChannelKey]uint8{
			{FixtureID: 2, Role: fixture.RoleDimmer}: 200,
		},
	})

	got := s.Statics()
	if got[ChannelKey{FixtureID: 1, Role: fixture.RoleDimmer}] != 100 {
		t.Fatalf("expected F1 retained from blocking cue, got %v", got)
	}
	if got[ChannelKey{FixtureID: 2, Role: fixture.RoleDimmer}] != 200 {
		t.Fatalf("expected F2 replaced by non-blocking cue, got %v", got)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := NewState()
	s.ApplyCue(CueApplication{
		Statics: map[ChannelKey]uint8{{FixtureID: 1, Role: fixture.RoleDimmer}: 1},
		Effects: []EffectMapping{{Name: "pulse"}},
	})
	s.Clear()

	if s.Count() != 0 || len(s.Effects()) != 0 {
		t.Fatalf("expected empty tracking state after Clear")
	}
}
