package gauge

import (
	"math"
	"testing"
	"time"
)

func sumWeights(w map[int]float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// TestInverseDistanceWeightsIsConvexCombination checks that the weights
// always form a convex combination: sum(W) == 1 and every W >= 0.
func TestInverseDistanceWeightsIsConvexCombination(t *testing.T) {
	gauges := []*Gauge{
		{ID: 1, Loc: Location{Easting: 0, Northing: 0}},
		{ID: 2, Loc: Location{Easting: 1000, Northing: 0}},
		{ID: 3, Loc: Location{Easting: 0, Northing: 2000}},
	}
	hruLoc := Location{Easting: 400, Northing: 300}
	w := InverseDistanceWeights(hruLoc, gauges, 2.0)
	if got := sumWeights(w); math.Abs(got-1) > 1e-9 {
		t.Errorf("sum(W) = %v, want 1", got)
	}
	for id, v := range w {
		if v < 0 {
			t.Errorf("W[%d] = %v, want >= 0", id, v)
		}
	}
}

func TestInverseDistanceWeightsCoincidentGaugeTakesAll(t *testing.T) {
	gauges := []*Gauge{
		{ID: 1, Loc: Location{Easting: 0, Northing: 0}},
		{ID: 2, Loc: Location{Easting: 100, Northing: 100}},
	}
	hruLoc := Location{Easting: 0, Northing: 0}
	w := InverseDistanceWeights(hruLoc, gauges, 2.0)
	if w[1] != 1 {
		t.Errorf("W[1] = %v, want 1", w[1])
	}
	if w[2] != 0 {
		t.Errorf("W[2] = %v, want 0", w[2])
	}
}

func TestInverseDistanceWeightsNoGaugesIsEmpty(t *testing.T) {
	w := InverseDistanceWeights(Location{}, nil, 2.0)
	if len(w) != 0 {
		t.Errorf("len(w) = %d, want 0", len(w))
	}
}

func TestPlanarDistance(t *testing.T) {
	a := Location{Easting: 0, Northing: 0}
	b := Location{Easting: 3, Northing: 4}
	if got := PlanarDistance(a, b); got != 5 {
		t.Errorf("PlanarDistance = %v, want 5", got)
	}
}

func TestDailyMinMaxAveDoesNotWarnWithoutSeries(t *testing.T) {
	g := &Gauge{ID: 1, Series: map[Kind]*Series{}}
	_, _, _, warn := g.DailyMinMaxAve(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if warn {
		t.Errorf("warn = true with no series present, want false (nothing to contradict)")
	}
}

// TestGetForcingValueNegativePrecipIsWarnedNotClipped checks that a
// negative precipitation sample is passed through unchanged (the caller
// still sees it for weighted interpolation) rather than silently clipped
// or rejected; only a non-fatal warning is expected.
func TestGetForcingValueNegativePrecipIsWarnedNotClipped(t *testing.T) {
	begin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	g := &Gauge{ID: 1, Name: "bad-sensor", Series: map[Kind]*Series{
		Precip: {Begin: begin, Interval: time.Hour, Values: []float64{-2.5}},
	}}
	got := g.GetForcingValue(Precip, begin, 0)
	if got != -2.5 {
		t.Errorf("GetForcingValue(Precip) = %v, want -2.5 (unclipped, only warned)", got)
	}
}
