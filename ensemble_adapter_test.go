package rdrr

import (
	"math"
	"testing"

	"github.com/rchlumsk/RavenHydroFramework/gauge"
	"github.com/rchlumsk/RavenHydroFramework/internal/ensemble"
	"github.com/rchlumsk/RavenHydroFramework/options"
	"github.com/rchlumsk/RavenHydroFramework/transport"
)

// TestRunWithPerturbationScalesGaugeAndRetardation checks that a draw is
// applied to every gauge's undercatch correction and every finite
// connection's retardation before the run proceeds, and that an infinite
// retardation (a tracer that never transports) is left untouched.
func TestRunWithPerturbationScalesGaugeAndRetardation(t *testing.T) {
	g := &gauge.Gauge{ID: 1, Undercatch: gauge.UndercatchCorrection{SnowCorr: 1.1, RainCorr: 1.05}}
	opt := &options.Options{Clock: options.Clock{}} // DeltaT zero => NSteps()==0, no Step() call needed
	m := NewModel(opt, gauge.NewSet([]*gauge.Gauge{g}))
	m.Connections = []transport.Connection{
		{Retardation: 2.0},
		{Retardation: math.Inf(1)},
	}

	p := ensemble.Perturbation{GaugeCorrectionFactor: 1.5, RetardationFactor: 2.0}
	peak, err := m.RunWithPerturbation(p)
	if err != nil {
		t.Fatalf("RunWithPerturbation: %v", err)
	}
	if peak != 0 {
		t.Errorf("peak = %v, want 0 (zero-length run)", peak)
	}
	if got := g.Undercatch.SnowCorr; math.Abs(got-1.65) > 1e-9 {
		t.Errorf("SnowCorr = %v, want 1.65", got)
	}
	if got := g.Undercatch.RainCorr; math.Abs(got-1.575) > 1e-9 {
		t.Errorf("RainCorr = %v, want 1.575", got)
	}
	if got := m.Connections[0].Retardation; got != 4.0 {
		t.Errorf("Connections[0].Retardation = %v, want 4.0", got)
	}
	if !math.IsInf(m.Connections[1].Retardation, 1) {
		t.Errorf("Connections[1].Retardation = %v, want +Inf (unchanged)", m.Connections[1].Retardation)
	}
}
