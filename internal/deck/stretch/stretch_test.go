package stretch

import (
	"math"
	"testing"
)

func TestNewDefaultsToUnityTempo(t *testing.T) {
	s := New(44100, 2)
	if s.Tempo() != 1.0 {
		t.Fatalf("expected tempo 1.0, got %f", s.Tempo())
	}
}

func TestSetTempoClampsToRange(t *testing.T) {
	s := New(44100, 2)
	s.SetTempo(5.0)
	if s.Tempo() != maxTempo {
		t.Fatalf("expected clamp to %f, got %f", maxTempo, s.Tempo())
	}
	s.SetTempo(-1.0)
	if s.Tempo() != minTempo {
		t.Fatalf("expected clamp to %f, got %f", minTempo, s.Tempo())
	}
}

func TestSetTempoIgnoresTinyChanges(t *testing.T) {
	s := New(44100, 2)
	s.SetTempo(1.0 + tempoChangeThresh/2)
	if s.Tempo() != 1.0 {
		t.Fatalf("expected tempo unchanged for sub-threshold delta, got %f", s.Tempo())
	}
}

func TestPushProducesOutputEventually(t *testing.T) {
	s := New(44100, 2)
	for i := 0; i < 4000; i++ {
		v := float32(math.Sin(float64(i) / 20.0))
		s.PushSample(v, v)
	}
	if !s.HasOutput() {
		t.Fatal("expected output after pushing several windows worth of samples")
	}
}

func TestFlushDrainsRemainingInput(t *testing.T) {
	s := New(44100, 2)
	for i := 0; i < 200; i++ {
		s.PushSample(0.5, -0.5)
	}
	s.Flush()
	if !s.HasOutput() {
		t.Fatal("expected flush to emit buffered partial-window input")
	}
}

func TestResetClearsState(t *testing.T) {
	s := New(44100, 2)
	for i := 0; i < 4000; i++ {
		s.PushSample(0.1, 0.1)
	}
	s.Reset()
	if s.HasOutput() || s.LatencySamples() != 0 {
		t.Fatal("expected reset to clear buffered and output state")
	}
}

func TestPopSampleDrainsInOrder(t *testing.T) {
	s := New(44100, 2)
	for i := 0; i < 4000; i++ {
		s.PushSample(1, 1)
	}
	n := s.OutputLen()
	if n == 0 {
		t.Fatal("expected some output ready")
	}
	for i := 0; i < n; i++ {
		if _, _, ok := s.PopSample(); !ok {
			t.Fatalf("expected pop %d to succeed", i)
		}
	}
	if _, _, ok := s.PopSample(); ok {
		t.Fatal("expected no more output after draining")
	}
}
