package subbasin

import (
	"math"
	"testing"

	"github.com/rchlumsk/RavenHydroFramework/options"
)

func sum(u []float64) float64 {
	s := 0.0
	for _, v := range u {
		s += v
	}
	return s
}

func TestCatchmentUHNormalizesToOne(t *testing.T) {
	shapes := []options.CatchmentRouting{
		options.CatchDump, options.CatchDelayedFirstOrder, options.CatchGamma,
		options.CatchTriangular, options.CatchReservoirSeries,
	}
	for _, shape := range shapes {
		u := BuildCatchmentUH(shape, 1.0, 3600, 500)
		if got := sum(u); math.Abs(got-1) > unitHydrographTolerance {
			t.Errorf("shape %v: sum(U_cat) = %v, want 1 +/- %v", shape, got, unitHydrographTolerance)
		}
	}
}

func TestRoutingUHNormalizesToOne(t *testing.T) {
	ch := Channel{Length: 10000, RefFlow: 50, RefCelerity: 1.0, TopWidth: 20, Slope: 0.001, MuskingumX: 0.2}
	methods := []options.Routing{
		options.RoutePlugFlow, options.RouteDiffusiveWave,
		options.RouteMuskingum, options.RouteMuskingumCunge, options.RouteStorageCoeff,
	}
	for _, method := range methods {
		u, _ := BuildRoutingUH(method, ch, 50, 3600, 500)
		if got := sum(u); math.Abs(got-1) > unitHydrographTolerance {
			t.Errorf("method %v: sum(U_route) = %v, want 1 +/- %v", method, got, unitHydrographTolerance)
		}
	}
}

// TestPlugFlowDelaysPeakByTravelTime checks that a reach with known length
// and celerity places essentially all of the unit hydrograph's mass at the
// travel-time bin tau = L / c_ref.
func TestPlugFlowDelaysPeakByTravelTime(t *testing.T) {
	dt := 3600.0
	ch := Channel{Length: 36000, RefCelerity: 1.0} // tau = 10 h = 10 steps
	u := plugFlowUH(ch, dt, 100)
	peakIdx := 0
	for i, v := range u {
		if v > u[peakIdx] {
			peakIdx = i
		}
	}
	if peakIdx != 10 {
		t.Errorf("peak bin = %d, want 10 (tau/dt)", peakIdx)
	}
}

// TestMuskingumAttenuatesPeak checks that routing an impulse through a
// Muskingum cascade of more than one segment spreads (attenuates) the
// response relative to a single bin, i.e. the peak ordinate must be < 1.
func TestMuskingumAttenuatesPeak(t *testing.T) {
	ch := Channel{Length: 50000, RefCelerity: 0.5, TopWidth: 30, Slope: 0.0005, MuskingumX: 0.2}
	u, segs := muskingumUH(options.RouteMuskingum, ch, 40, 1800, 2000)
	if len(segs) < 1 {
		t.Fatal("expected at least one cascade segment")
	}
	peak := 0.0
	for _, v := range u {
		if v > peak {
			peak = v
		}
	}
	if peak >= 1.0 {
		t.Errorf("peak ordinate = %v, want < 1 (attenuated)", peak)
	}
}

func TestNoneRoutingIsIdentity(t *testing.T) {
	u, segs := BuildRoutingUH(options.RouteNone, Channel{}, 0, 3600, 10)
	if len(u) != 1 || u[0] != 1 {
		t.Errorf("RouteNone UH = %v, want [1]", u)
	}
	if segs != nil {
		t.Errorf("RouteNone segs = %v, want nil", segs)
	}
}
