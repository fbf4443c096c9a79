package rdrr

import (
	"os"
	"testing"
	"time"

	"github.com/rchlumsk/RavenHydroFramework/gauge"
	"github.com/rchlumsk/RavenHydroFramework/options"
	"github.com/rchlumsk/RavenHydroFramework/subbasin"
)

func newSolutionTestModel() *Model {
	opt := &options.Options{Clock: options.Clock{ModelTime: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), Step: 5}}
	m := NewModel(opt, gauge.NewSet(nil))
	s := subbasin.New(subbasin.Topology{ID: 1, DownstreamID: -1}, subbasin.Channel{}, options.Methods{}, 3600)
	s.State.QIn = subbasin.NewRingBuffer(3)
	s.State.QLat = subbasin.NewRingBuffer(3)
	m.Subbasins[1] = s
	m.Downstream[1] = -1
	return m
}

// TestSaveGobLoadGobIntoRoundTripsRingBufferOrder checks that a
// subbasin's QIn/QLat convolution history survives a SaveGob/LoadGobInto
// round trip in the right order: At(0) must still be the most recent
// value pushed, not the oldest.
func TestSaveGobLoadGobIntoRoundTripsRingBufferOrder(t *testing.T) {
	m := newSolutionTestModel()
	s := m.Subbasins[1]
	// push distinct values so ordering errors are detectable: after this,
	// At(0)=30 (most recent), At(1)=20, At(2)=10 (oldest).
	for _, v := range []float64{10, 20, 30} {
		s.State.QIn.Push(v)
		s.State.QLat.Push(v * 0.1)
	}

	fp := t.TempDir() + "/solution.gob"
	if err := m.SaveGob(fp); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}
	defer os.Remove(fp)

	m2 := newSolutionTestModel()
	if err := m2.LoadGobInto(fp); err != nil {
		t.Fatalf("LoadGobInto: %v", err)
	}
	s2 := m2.Subbasins[1]

	wantQIn := []float64{30, 20, 10}
	for i, want := range wantQIn {
		if got := s2.State.QIn.At(i); got != want {
			t.Errorf("QIn.At(%d) = %v, want %v", i, got, want)
		}
	}
	wantQLat := []float64{3, 2, 1}
	for i, want := range wantQLat {
		if got := s2.State.QLat.At(i); got != want {
			t.Errorf("QLat.At(%d) = %v, want %v", i, got, want)
		}
	}
	if m2.Opt.Clock.Step != m.Opt.Clock.Step {
		t.Errorf("Step = %v, want %v", m2.Opt.Clock.Step, m.Opt.Clock.Step)
	}
}
