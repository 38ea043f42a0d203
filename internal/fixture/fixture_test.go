package fixture

import (
	"errors"
	"testing"

	"github.com/lumentrack/console/internal/consoleerr"
)

func eightChannelProfile() []Channel {
	return []Channel{
		{Role: RoleDimmer}, {Role: RoleRed}, {Role: RoleGreen}, {Role: RoleBlue},
		{Role: RoleWhite}, {Role: RoleAmber}, {Role: RolePan}, {Role: RoleTilt},
	}
}

func TestPatchAssignsDeterministicID(t *testing.T) {
	s := NewState()
	id1, err := s.Patch(Fixture{Universe: 0, StartAddress: 1, Channels: eightChannelProfile()})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	id2, err := s.Patch(Fixture{Universe: 0, StartAddress: 9, Channels: eightChannelProfile()})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if id2 != id1+1 {
		t.Fatalf("expected sequential ids, got %d then %d", id1, id2)
	}
}

func TestPatchRejectsAddressOverrun(t *testing.T) {
	s := NewState()
	_, err := s.Patch(Fixture{Universe: 0, StartAddress: 510, Channels: eightChannelProfile()})
	if !errors.Is(err, consoleerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUnpatchUnknownFixtureReturnsNotFound(t *testing.T) {
	s := NewState()
	if err := s.Unpatch(99); !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// S1 — DMX addressing scenario (patch half; render half lives in internal/dmx).
func TestSetChannelValue(t *testing.T) {
	s := NewState()
	id, _ := s.Patch(Fixture{Universe: 0, StartAddress: 1, Channels: eightChannelProfile()})

	if err := s.SetChannelValue(id, RoleDimmer, 255); err != nil {
		t.Fatalf("set channel: %v", err)
	}
	f, _ := s.Get(id)
	if f.Channels[0].Value != 255 {
		t.Fatalf("expected dimmer=255, got %d", f.Channels[0].Value)
	}
}

func TestSetChannelValueUnknownRoleReturnsNotFound(t *testing.T) {
	s := NewState()
	id, _ := s.Patch(Fixture{Universe: 0, StartAddress: 1, Channels: eightChannelProfile()})

	err := s.SetChannelValue(id, RoleGobo, 10)
	if !errors.Is(err, consoleerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPanTiltLimitsClampValues(t *testing.T) {
	s := NewState()
	id, _ := s.Patch(Fixture{
		Universe: 0, StartAddress: 1, Channels: eightChannelProfile(),
		PanTiltLimits: PanTiltLimits{Enabled: true, PanMin: 20, PanMax: 200},
	})

	_ = s.SetChannelValue(id, RolePan, 255)
	f, _ := s.Get(id)
	if f.Channels[6].Value != 200 {
		t.Fatalf("expected pan clamped to 200, got %d", f.Channels[6].Value)
	}
}

func TestAllReturnsFixturesOrderedByID(t *testing.T) {
	s := NewState()
	idA, _ := s.Patch(Fixture{ID: 5, Universe: 0, StartAddress: 1, Channels: eightChannelProfile()})
	idB, _ := s.Patch(Fixture{ID: 2, Universe: 0, StartAddress: 9, Channels: eightChannelProfile()})

	all := s.All()
	if len(all) != 2 || all[0].ID != idB || all[1].ID != idA {
		t.Fatalf("expected fixtures ordered by id [2,5], got %+v", all)
	}
}
