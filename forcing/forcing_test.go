package forcing

import (
	"math"
	"testing"
	"time"

	"github.com/rchlumsk/RavenHydroFramework/gauge"
	"github.com/rchlumsk/RavenHydroFramework/options"
)

func newTestAssembler(o *options.Options) (*Assembler, HRUContext) {
	hctx := HRUContext{Loc: gauge.Location{Easting: 0, Northing: 0}, Latitude: 45.0}

	cloud := &gauge.Series{
		Begin:    time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		Interval: time.Hour,
		Values:   make([]float64, 48),
	}
	// distinct cloud cover at hour 6 (morning) vs hour 18 (evening) of day 1
	cloud.Values[6] = 0.1
	cloud.Values[18] = 0.9

	g := &gauge.Gauge{
		ID:     1,
		Loc:    gauge.Location{Easting: 0, Northing: 0},
		Series: map[gauge.Kind]*gauge.Series{gauge.CloudCover: cloud},
	}
	gauges := gauge.NewSet([]*gauge.Gauge{g})

	a := NewAssembler(gauges, o, map[int]HRUContext{1: hctx})
	return a, hctx
}

// TestAssembleLapseCorrectedDailyTempIsStableAcrossIntraDaySteps checks
// that repeated intra-day calls with a non-trivial elevation lapse
// correction do not compound: the daily temperature envelope must be
// corrected exactly once per day, not once per call.
func TestAssembleLapseCorrectedDailyTempIsStableAcrossIntraDaySteps(t *testing.T) {
	temp := &gauge.Series{
		Begin:    time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		Interval: time.Hour,
		Values:   make([]float64, 48),
	}
	for i := range temp.Values {
		temp.Values[i] = 20.0
	}
	g := &gauge.Gauge{
		ID:  1,
		Loc: gauge.Location{Elevation: 0},
		Series: map[gauge.Kind]*gauge.Series{
			gauge.TempAve: temp,
			gauge.TempMin: temp,
			gauge.TempMax: temp,
		},
	}
	gauges := gauge.NewSet([]*gauge.Gauge{g})

	o := &options.Options{
		Globals: options.GlobalParams{TempLapseRate: 6.5},
		Methods: options.Methods{OroCorrTemp: options.OroCorrTempSimpleLapse},
	}
	hctx := HRUContext{Loc: gauge.Location{Elevation: 1000}, Latitude: 45.0}
	a := NewAssembler(gauges, o, map[int]HRUContext{1: hctx})

	morning := time.Date(2020, 6, 1, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2020, 6, 1, 18, 0, 0, 0, time.UTC)

	f1 := a.Assemble(1, hctx, morning, nil)
	f2 := a.Assemble(1, hctx, evening, &f1)

	want := 13.5 // 20 - 6.5*(1000-0)/1000
	if math.Abs(f1.TempDailyAve-want) > 1e-9 {
		t.Fatalf("f1.TempDailyAve = %v, want %v", f1.TempDailyAve, want)
	}
	if math.Abs(f2.TempDailyAve-want) > 1e-9 {
		t.Errorf("f2.TempDailyAve = %v, want %v (lapse correction must not compound across intra-day calls)", f2.TempDailyAve, want)
	}
}

// TestAssembleCachesDailyRadiationAndPETAcrossIntraDaySteps verifies that SW
// radiation and PET, once computed for a Julian day, do not change on later
// calls for the same day even though a downstream input (cloud cover) does
// vary intra-day.
func TestAssembleCachesDailyRadiationAndPETAcrossIntraDaySteps(t *testing.T) {
	o := &options.Options{
		Methods: options.Methods{
			SWRadiation:      options.RadiationDefault,
			SWCloudCoverCorr: true,
			CloudCover:       options.CloudCoverData,
			Evaporation:      options.EvapHargreaves,
		},
	}
	a, hctx := newTestAssembler(o)

	morning := time.Date(2020, 6, 1, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2020, 6, 1, 18, 0, 0, 0, time.UTC)

	f1 := a.Assemble(1, hctx, morning, nil)
	f2 := a.Assemble(1, hctx, evening, &f1)

	if f2.CloudCover == f1.CloudCover {
		t.Fatalf("test setup invalid: cloud cover identical at both times (%v)", f1.CloudCover)
	}
	if f2.SWRadia != f1.SWRadia {
		t.Errorf("SWRadia changed within the same day: %v -> %v", f1.SWRadia, f2.SWRadia)
	}
	if f2.PET != f1.PET {
		t.Errorf("PET changed within the same day: %v -> %v", f1.PET, f2.PET)
	}
	if f2.TempDailyAve != f1.TempDailyAve {
		t.Errorf("TempDailyAve changed within the same day: %v -> %v", f1.TempDailyAve, f2.TempDailyAve)
	}
}

// TestAssembleRecomputesDayAngleOnNewDay verifies that the day-changed
// path recomputes the day angle when the Julian day advances.
func TestAssembleRecomputesDayAngleOnNewDay(t *testing.T) {
	o := &options.Options{
		Methods: options.Methods{
			SWRadiation:      options.RadiationDefault,
			SWCloudCoverCorr: true,
			Evaporation:      options.EvapHargreaves,
		},
	}
	a, hctx := newTestAssembler(o)

	day1 := time.Date(2020, 6, 1, 6, 0, 0, 0, time.UTC)
	day2 := time.Date(2020, 6, 2, 6, 0, 0, 0, time.UTC)

	f1 := a.Assemble(1, hctx, day1, nil)
	f2 := a.Assemble(1, hctx, day2, &f1)

	if f2.DayAngle == f1.DayAngle && f2.DayLength == f1.DayLength {
		// different days can coincidentally share day length at some
		// latitudes, but the day angle must always differ.
		t.Errorf("DayAngle did not change across a day boundary: %v", f1.DayAngle)
	}
}

// TestAssembleZeroForcingProducesZeroFields exercises an HRU with no gauge
// data at all: every accumulated field should stay at its zero value and
// Assemble must not panic.
func TestAssembleZeroForcingProducesZeroFields(t *testing.T) {
	o := &options.Options{}
	gauges := gauge.NewSet(nil)
	hctx := HRUContext{Loc: gauge.Location{}, Latitude: 0}
	a := NewAssembler(gauges, o, map[int]HRUContext{1: hctx})

	f := a.Assemble(1, hctx, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), nil)

	if f.Precip != 0 || f.TempAve != 0 || f.SWRadia != 0 || f.PET != 0 {
		t.Errorf("zero-forcing assembly produced nonzero fields: %+v", f)
	}
}
