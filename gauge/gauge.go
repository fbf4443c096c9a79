// Package gauge implements the gauge set: time series of observed or
// reconstructed forcings at fixed points, plus their monthly climatology and
// undercatch-correction parameters. Gauges are read-only after model
// assembly.
package gauge

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/im7mortal/UTM"
)

// Kind enumerates the forcing series a gauge may carry.
type Kind int

const (
	Precip Kind = iota
	TempAve
	TempMin
	TempMax
	SWRadia
	LWRadia
	PET
	PotentialMelt
	AirPressure
	RelHumidity
	CloudCover
	WindVel
)

// Series is a regular time series for one forcing Kind, sampled at a fixed
// interval. Gauges store one Series per Kind they carry; absent kinds have
// a nil Series and the forcing assembler falls back to a synthesis method.
type Series struct {
	Begin    time.Time
	Interval time.Duration
	Values   []float64
}

// at returns the value at or covering time t, or (0, false) if t predates
// the series or falls past its end.
func (s *Series) at(t time.Time) (float64, bool) {
	if s == nil || len(s.Values) == 0 {
		return 0, false
	}
	if t.Before(s.Begin) {
		return 0, false
	}
	idx := int(t.Sub(s.Begin) / s.Interval)
	if idx < 0 || idx >= len(s.Values) {
		return 0, false
	}
	return s.Values[idx], true
}

// MonthlyClimatology holds per-calendar-month normals, indexed 0=January .. 11=December.
type MonthlyClimatology struct {
	TempAveMonth [12]float64
	TempMinMonth [12]float64
	TempMaxMonth [12]float64
	PETAveMonth  [12]float64
}

// Location is a gauge's fixed position: elevation plus a geographic
// lat/lon pair. Planar (UTM) coordinates are derived once at construction
// for inverse-distance weighting, which is defined over a metric plane.
type Location struct {
	Elevation  float64
	Lat, Lon   float64
	Easting    float64
	Northing   float64
	UTMZone    int
	UTMIsNorth bool
}

// NewLocation projects (lat, lon) to UTM and returns a populated Location.
func NewLocation(elev, lat, lon float64) (Location, error) {
	e, n, zone, isNorth, err := UTM.FromLatLon(lat, lon)
	if err != nil {
		return Location{}, fmt.Errorf("gauge: UTM projection failed for (%.6f,%.6f): %w", lat, lon, err)
	}
	return Location{
		Elevation:  elev,
		Lat:        lat,
		Lon:        lon,
		Easting:    e,
		Northing:   n,
		UTMZone:    zone,
		UTMIsNorth: isNorth,
	}, nil
}

// PlanarDistance returns the Euclidean distance in metres between two
// gauge/HRU planar locations, used by inverse-distance interpolation.
func PlanarDistance(a, b Location) float64 {
	dx, dy := a.Easting-b.Easting, a.Northing-b.Northing
	return math.Sqrt(dx*dx + dy*dy)
}

// UndercatchCorrection holds the gauge-specific rain/snow undercatch
// correction multipliers applied during precip reassembly.
type UndercatchCorrection struct {
	SnowCorr float64 // multiplier on precip when snow_frac==1
	RainCorr float64 // multiplier on precip when snow_frac==0
}

// CloudRange bounds the daily temperature range used by the UBCWM
// cloud-cover normalization.
type CloudRange struct {
	Min, Max float64
}

// Gauge owns one regular series per Kind, a location, monthly climatology,
// undercatch corrections, and cloud-range parameters.
type Gauge struct {
	ID         int
	Name       string
	Loc        Location
	Series     map[Kind]*Series
	Climate    MonthlyClimatology
	Undercatch UndercatchCorrection
	CloudRange CloudRange
}

// GetForcingValue returns the value of Kind k at time t, aggregated over a
// trailing window if window > 0. A missing sample contributes 0 and is not an error: a
// gauge with gaps still participates in the weighted interpolation.
func (g *Gauge) GetForcingValue(k Kind, t time.Time, window time.Duration) float64 {
	s, ok := g.Series[k]
	if !ok {
		return 0
	}
	var v float64
	if window <= 0 {
		v, _ = s.at(t)
	} else {
		n := int(window / s.Interval)
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			vi, _ := s.at(t.Add(-time.Duration(i) * s.Interval))
			v += vi
		}
	}
	if k == Precip && v < 0 {
		log.Printf("gauge: DataError: negative precipitation %.4f at gauge %d (%s), %v", v, g.ID, g.Name, t)
	}
	return v
}

// DailyMinMaxAve returns the min/max/ave temperature for the calendar day
// containing t, reading from the TempMin/TempMax/TempAve series if present.
func (g *Gauge) DailyMinMaxAve(t time.Time) (min, max, ave float64, warn bool) {
	y, m, d := t.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	min = g.GetForcingValue(TempMin, dayStart, 0)
	max = g.GetForcingValue(TempMax, dayStart, 0)
	ave = g.GetForcingValue(TempAve, dayStart, 0)
	if max < min {
		warn = true // caller logs a warning, not an error
	}
	return
}

// Set is an immutable collection of gauges plus the HRU-to-gauge weight
// matrix.
type Set struct {
	Gauges []*Gauge
	byID   map[int]*Gauge
}

// NewSet indexes gauges by ID for O(1) lookup.
func NewSet(gauges []*Gauge) *Set {
	byID := make(map[int]*Gauge, len(gauges))
	for _, g := range gauges {
		byID[g.ID] = g
	}
	return &Set{Gauges: gauges, byID: byID}
}

// ByID looks up a gauge by its identifier.
func (s *Set) ByID(id int) (*Gauge, bool) {
	g, ok := s.byID[id]
	return g, ok
}

// InverseDistanceWeights computes normalized inverse-distance (IDW) weights
// from an HRU location to every gauge: the weights always form a convex
// combination (Σ W = 1, W ≥ 0). Gauges coincident with the HRU (distance <
// 1e-6) take weight 1 and every other gauge weight 0.
func InverseDistanceWeights(hru Location, gauges []*Gauge, power float64) map[int]float64 {
	w := make(map[int]float64, len(gauges))
	const eps = 1e-6
	for _, g := range gauges {
		d := PlanarDistance(hru, g.Loc)
		if d < eps {
			for id := range w {
				w[id] = 0
			}
			w[g.ID] = 1
			return w
		}
		w[g.ID] = 1 / math.Pow(d, power)
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		// degenerate configuration: with no gauges the map stays empty;
		// otherwise fall back to an equal split so Σ W = 1 still holds.
		n := float64(len(gauges))
		if n == 0 {
			return w
		}
		for _, g := range gauges {
			w[g.ID] = 1 / n
		}
		return w
	}
	for id := range w {
		w[id] /= sum
	}
	return w
}
