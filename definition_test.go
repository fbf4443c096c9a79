package rdrr

import "testing"

// TestCheckMonotoneTableDoesNotPanicOnViolation checks that a
// non-monotone stage table is only warned about, never rejected: the
// function must return normally for both a clean and a violating table.
func TestCheckMonotoneTableDoesNotPanicOnViolation(t *testing.T) {
	checkMonotoneTable("clean", []float64{0, 1, 2, 3})
	checkMonotoneTable("violating", []float64{0, 2, 1, 3})
}

// TestBuildReservoirStillBuildsUsableRelationsFromNonMonotoneTable
// checks that buildReservoir constructs a Reservoir even when a
// stage-discharge table is non-monotone: the DataError is warned, not
// fatal, so the resulting relation must still be callable.
func TestBuildReservoirStillBuildsUsableRelationsFromNonMonotoneTable(t *testing.T) {
	rd := &ReservoirDefinition{
		StageKnots:       []float64{0, 1, 2},
		VolumeKnots:      []float64{0, 10, 5}, // non-monotone: dips at stage 2
		RegimeNames:      []string{"weir"},
		RegimeThresholds: []float64{0},
		RegimeQKnots:     [][]float64{{0, 5, 3}}, // non-monotone too
	}
	res := buildReservoir(rd)
	if res == nil {
		t.Fatal("buildReservoir returned nil")
	}
	if got := res.Volume(1); got != 10 {
		t.Errorf("Volume(1) = %v, want 10", got)
	}
}
