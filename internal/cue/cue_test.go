package cue

import (
	"errors"
	"testing"
	"time"

	"github.com/lumentrack/console/internal/consoleerr"
	"github.com/lumentrack/console/internal/fixture"
	"github.com/lumentrack/console/internal/tracking"
)

func dur(ms int) *time.Duration {
	d := time.Duration(ms) * time.Millisecond
	return &d
}

func TestGoAdvancesThroughCuesInOrder(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{Name: "Cue 1", Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 1, Role: fixture.RoleDimmer}: 100,
	}})
	m.AddCue(listID, Cue{Name: "Cue 2", IsBlocking: true, Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 2, Role: fixture.RoleDimmer}: 200,
	}})

	if err := m.GoToCue(listID, 0); err != nil {
		t.Fatalf("GoToCue(0): %v", err)
	}
	if tr.Statics()[tracking.ChannelKey{FixtureID: 1, Role: fixture.RoleDimmer}] != 100 {
		t.Fatal("expected cue 1 applied")
	}

	if err := m.Go(); err != nil {
		t.Fatalf("Go: %v", err)
	}
	got := tr.Statics()
	if len(got) != 1 || got[tracking.ChannelKey{FixtureID: 2, Role: fixture.RoleDimmer}] != 200 {
		t.Fatalf("expected blocking cue 2 to replace tracking, got %v", got)
	}

	if err := m.Go(); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound past last cue, got %v", err)
	}
}

func TestStopClearsTrackingLayer(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 1, Role: fixture.RoleDimmer}: 1,
	}})
	m.GoToCue(listID, 0)

	m.Stop()

	if tr.Count() != 0 {
		t.Fatal("expected Stop to clear tracking layer")
	}
	state, _, _, _ := m.State()
	if state != Stopped {
		t.Fatalf("expected Stopped state, got %v", state)
	}
}

func TestHoldPausesWithoutClearing(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 1, Role: fixture.RoleDimmer}: 1,
	}})
	m.GoToCue(listID, 0)

	m.Hold()

	if tr.Count() != 1 {
		t.Fatal("expected Hold to preserve tracking layer")
	}
	state, _, _, _ := m.State()
	if state != Paused {
		t.Fatalf("expected Paused state, got %v", state)
	}
}

func TestJumpToCueOutOfRangeReturnsNotFound(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{})
	m.GoToCue(listID, 0)

	if err := m.JumpToCue(5); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGoToCueUnknownListReturnsNotFound(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	if err := m.GoToCue(999, 0); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveCueListClearsSelectionWhenActive(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{})
	m.GoToCue(listID, 0)

	if err := m.RemoveCueList(listID); err != nil {
		t.Fatalf("RemoveCueList: %v", err)
	}
	if err := m.JumpToCue(0); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected no active list after removal, got %v", err)
	}
}

func TestFindCueByTimecodeReturnsLatestQualifying(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	id1, _ := m.AddCue(listID, Cue{Name: "early", Timecode: dur(1000)})
	id2, _ := m.AddCue(listID, Cue{Name: "late", Timecode: dur(5000)})
	m.AddCue(listID, Cue{Name: "future", Timecode: dur(10000)})

	c, err := m.FindCueByTimecode(listID, 6*time.Second)
	if err != nil {
		t.Fatalf("FindCueByTimecode: %v", err)
	}
	if c.ID != id2 {
		t.Fatalf("expected cue %d (late), got %d", id2, c.ID)
	}

	c, err = m.FindCueByTimecode(listID, 2*time.Second)
	if err != nil || c.ID != id1 {
		t.Fatalf("expected cue %d (early), got %v / %v", id1, c, err)
	}

	if _, err := m.FindCueByTimecode(listID, 500*time.Millisecond); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first timecode, got %v", err)
	}
}

func TestUpdateAutoAdvancesOnTimecode(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{Name: "start", Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 1, Role: fixture.RoleDimmer}: 10,
	}})
	m.AddCue(listID, Cue{Name: "mid", Timecode: dur(2000), Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 2, Role: fixture.RoleDimmer}: 20,
	}})
	m.AddCue(listID, Cue{Name: "late", Timecode: dur(5000), Statics: map[tracking.ChannelKey]uint8{
		{FixtureID: 3, Role: fixture.RoleDimmer}: 30,
	}})

	m.GoToCue(listID, 0)
	m.Update(3 * time.Second)

	_, _, cueID, elapsed := m.State()
	if elapsed != 3*time.Second {
		t.Fatalf("expected elapsed 3s, got %v", elapsed)
	}
	list := m.lists[0]
	if list.Cues[1].ID != cueID {
		t.Fatalf("expected auto-advance to mid cue, got cue id %d", cueID)
	}
	if tr.Statics()[tracking.ChannelKey{FixtureID: 2, Role: fixture.RoleDimmer}] != 20 {
		t.Fatal("expected mid cue's statics applied by auto-advance")
	}
}

func TestUpdateDoesNothingWhenNotPlaying(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	m.AddCue(listID, Cue{Timecode: dur(100)})
	m.Update(time.Second)

	state, _, _, elapsed := m.State()
	if state != Stopped || elapsed != 0 {
		t.Fatalf("expected no state change while stopped, got state=%v elapsed=%v", state, elapsed)
	}
}

func TestSetAudioFileUnknownListReturnsNotFound(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	if err := m.SetAudioFile(42, "track.wav"); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCuePreservesID(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	id, _ := m.AddCue(listID, Cue{Name: "original"})

	if err := m.UpdateCue(listID, Cue{ID: id, Name: "renamed"}); err != nil {
		t.Fatalf("UpdateCue: %v", err)
	}
	if m.lists[0].Cues[0].Name != "renamed" {
		t.Fatal("expected cue renamed in place")
	}
}

func TestRemoveCueUnknownReturnsNotFound(t *testing.T) {
	tr := tracking.NewState()
	m := NewManager(tr)
	listID := m.AddCueList("Act 1")
	if err := m.RemoveCue(listID, 999); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
