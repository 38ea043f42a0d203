package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeModule struct {
	id         ModuleID
	initErr    error
	ranCh      chan struct{}
	shutdownCh chan struct{}
	status     string
}

func newFakeModule(id ModuleID) *fakeModule {
	return &fakeModule{id: id, ranCh: make(chan struct{}), shutdownCh: make(chan struct{}), status: "ready"}
}

func (f *fakeModule) ID() ModuleID { return f.id }

func (f *fakeModule) Initialize(ctx context.Context) error { return f.initErr }

func (f *fakeModule) Run(ctx context.Context, commands <-chan Command, events chan<- Message) {
	close(f.ranCh)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-commands:
			events <- Message{Module: f.id, Kind: KindEvent, Name: cmd.Name}
		}
	}
}

func (f *fakeModule) Shutdown(ctx context.Context) error {
	close(f.shutdownCh)
	return nil
}

func (f *fakeModule) Status() string { return f.status }

func TestStartRunsAllModules(t *testing.T) {
	s := New(16)
	a := newFakeModule(ModuleDMX)
	b := newFakeModule(ModuleAudio)
	s.Register(a, false)
	s.Register(b, false)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer s.Shutdown(time.Second)

	select {
	case <-a.ranCh:
	case <-time.After(time.Second):
		t.Fatal("expected module a to start running")
	}
	select {
	case <-b.ranCh:
	case <-time.After(time.Second):
		t.Fatal("expected module b to start running")
	}
}

func TestStartFailsFastOnRequiredModuleInitError(t *testing.T) {
	s := New(16)
	failing := newFakeModule(ModuleDMX)
	failing.initErr = errors.New("socket unavailable")
	s.Register(failing, false)

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail when a required module errors on initialize")
	}
}

func TestStartContinuesOnOptionalModuleInitError(t *testing.T) {
	s := New(16)
	failing := newFakeModule(ModuleMIDI)
	failing.initErr = errors.New("no controller attached")
	s.Register(failing, true)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("expected optional module failure to not abort start, got %v", err)
	}
	defer s.Shutdown(time.Second)

	select {
	case msg := <-s.Events():
		if msg.Kind != KindError {
			t.Fatalf("expected error message, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an error message for the failed optional module")
	}
}

func TestSendToUnknownModuleReturnsNotFound(t *testing.T) {
	s := New(16)
	if err := s.SendTo(ModuleDJ, Command{Name: "play"}); err == nil {
		t.Fatal("expected error for unregistered module")
	}
}

func TestSendToDispatchesCommandToModule(t *testing.T) {
	s := New(16)
	m := newFakeModule(ModuleDJ)
	s.Register(m, false)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer s.Shutdown(time.Second)

	if err := s.SendTo(ModuleDJ, Command{Name: "play"}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	select {
	case msg := <-s.Events():
		if msg.Name != "play" || msg.Module != ModuleDJ {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected command to produce an event")
	}
}

func TestShutdownStopsAllModules(t *testing.T) {
	s := New(16)
	m := newFakeModule(ModuleDMX)
	s.Register(m, false)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	select {
	case <-m.shutdownCh:
	default:
		t.Fatal("expected module Shutdown to be called")
	}
}

func TestStatusReturnsPerModuleString(t *testing.T) {
	s := New(16)
	m := newFakeModule(ModuleAudio)
	m.status = "running"
	s.Register(m, false)

	got := s.Status()
	if got[ModuleAudio] != "running" {
		t.Fatalf("unexpected status map: %v", got)
	}
}
