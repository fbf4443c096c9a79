// Package options holds the simulation clock and the closed set of method
// selectors that drive dispatch in forcing, routing, and transport. Every
// *_method field is a small enumeration: adding a method means adding a
// variant and its case in the relevant switch, never a runtime registration
// surface (per the core's no-plugin-registry design).
package options

import "time"

// Interp selects the gauge interpolation scheme used to build HRU weights.
type Interp int

const (
	InterpNearestNeighbour Interp = iota
	InterpInverseDistance
	InterpInverseDistanceElevation
	InterpVoronoi
	InterpFromFile
)

// Routing selects the channel-routing kernel.
type Routing int

const (
	RouteNone Routing = iota
	RoutePlugFlow
	RouteDiffusiveWave
	RouteMuskingum
	RouteMuskingumCunge
	RouteStorageCoeff
)

// CatchmentRouting selects the catchment (lateral) unit-hydrograph shape.
type CatchmentRouting int

const (
	CatchDump CatchmentRouting = iota // delta at t=0
	CatchDelayedFirstOrder
	CatchGamma
	CatchTriangular
	CatchReservoirSeries
)

// Evaporation selects the PET formulation, wired to an external kernel.
type Evaporation int

const (
	EvapNone Evaporation = iota
	EvapPenman
	EvapPriestlyTaylor
	EvapHargreaves
	EvapUBCWM
)

// OroCorrTemp selects the elevation lapse-rate scheme for temperature.
type OroCorrTemp int

const (
	OroCorrTempNone OroCorrTemp = iota
	OroCorrTempSimpleLapse
	OroCorrTempUBCWM
)

// OroCorrPrecip selects the orographic precipitation correction scheme.
type OroCorrPrecip int

const (
	OroCorrPrecipNone OroCorrPrecip = iota
	OroCorrPrecipHBV
	OroCorrPrecipSimpleLapse
	OroCorrPrecipUBCWM
	OroCorrPrecipUBCWM2
)

// OroCorrPET selects the orographic PET correction scheme.
type OroCorrPET int

const (
	OroCorrPETNone OroCorrPET = iota
	OroCorrPETSimpleLapse
)

// Radiation selects a shortwave or longwave radiation formulation.
type Radiation int

const (
	RadiationNone Radiation = iota
	RadiationData
	RadiationDefault
	RadiationUBCWM
)

// CloudCover selects the cloud-cover estimation scheme.
type CloudCover int

const (
	CloudCoverNone CloudCover = iota // always 0
	CloudCoverData
	CloudCoverUBCWM
)

// CanopyCorr selects the canopy shortwave-correction scheme.
type CanopyCorr int

const (
	CanopyCorrNone CanopyCorr = iota
	CanopyCorrStatic
	CanopyCorrDynamic
)

// RainSnow selects the rain/snow partitioning method.
type RainSnow int

const (
	RainSnowData RainSnow = iota
	RainSnowDingman
	RainSnowHBV
	RainSnowUBCWM
)

// PotMelt selects the potential-melt formulation, wired to an external kernel.
type PotMelt int

const (
	PotMeltNone PotMelt = iota
	PotMeltDegreeDay
	PotMeltUBCWM
)

// Subdaily selects the diurnal disaggregation weighting scheme.
type Subdaily int

const (
	SubdailyNone Subdaily = iota // corr == 1.0 always
	SubdailySimple
	SubdailyUBC
)

// WindVelocity selects the wind-speed estimation method.
type WindVelocity int

const (
	WindConstant WindVelocity = iota // 2 m/s
	WindData
	WindUBCWM
)

// RelHumidity selects the relative-humidity estimation method.
type RelHumidity int

const (
	HumidityConstant RelHumidity = iota // 0.5
	HumidityMinDewpoint
	HumidityData
)

// AirPressure selects the air-pressure estimation method.
type AirPressure int

const (
	PressureData AirPressure = iota
	PressureBasic
	PressureUBCWM
	PressureConst
)

// MonthInterp selects how monthly climate normals are interpolated to a date.
type MonthInterp int

const (
	MonthInterpConstant MonthInterp = iota // use the bracketing month unmodified
	MonthInterpLinear
)

// Global lapse-rate and threshold parameters consulted by forcing correction
// steps. These are immutable after model assembly.
type GlobalParams struct {
	TempLapseRate    float64 // [deg C / km], simple-lapse temperature correction
	PrecipLapseRate  float64 // [1/km], simple orographic precip correction
	RainSnowTemp     float64 // [deg C], RAINSNOW_TEMP
	RainSnowDelta    float64 // [deg C], RAINSNOW_DELTA half-width of transition band
	P0TEDL           float64 // UBC wind: lower-elevation TED lapse [deg C / 1000 m]
	P0TEDU           float64 // UBC wind: upper-elevation TED lapse [deg C / 1000 m]
	MaxRangeTemp     float64 // UBC wind: A0TERM, clamp on A1 [deg C]
	MaxWindSpeed     float64 // UBC wind: clamp upper bound before the documented "-1.0" quirk
	Albedo           float64 // default total albedo used when canopy/snow-specific values are absent
	StrictMassBalance bool   // if true, MassBalanceViolation aborts the run
}

// Methods bundles every closed-enumeration selector a model definition sets.
type Methods struct {
	Interpolation    Interp
	Routing          Routing
	CatchmentRouting CatchmentRouting
	Evaporation      Evaporation
	OWEvaporation    Evaporation
	OroCorrTemp      OroCorrTemp
	OroCorrPrecip    OroCorrPrecip
	OroCorrPET       OroCorrPET
	SWRadiation      Radiation
	LWRadiation      Radiation
	CloudCover       CloudCover
	SWCanopyCorr     CanopyCorr
	SWCloudCoverCorr bool
	RainSnow         RainSnow
	PotMelt          PotMelt
	Subdaily         Subdaily
	WindVelocity     WindVelocity
	RelHumidity      RelHumidity
	AirPressure      AirPressure
	MonthInterp      MonthInterp
}

// Clock is the simulation clock: start/end time, fixed timestep, and
// current step index. It is immutable after initialization except for
// ModelTime and Step, which the orchestrator alone advances.
type Clock struct {
	Begin, End time.Time
	DeltaT     time.Duration
	ModelTime  time.Time
	Step       int
}

// NSteps returns the total number of steps the clock will advance through,
// inclusive of both endpoints.
func (c *Clock) NSteps() int {
	if c.DeltaT <= 0 {
		return 0
	}
	return int(c.End.Sub(c.Begin)/c.DeltaT) + 1
}

// DeltaTSeconds returns the timestep length in seconds, the unit most
// routing and transport formulae are expressed in.
func (c *Clock) DeltaTSeconds() float64 {
	return c.DeltaT.Seconds()
}

// Advance moves the clock forward by one timestep. It is the only mutator
// the orchestrator is permitted to call.
func (c *Clock) Advance() {
	c.ModelTime = c.ModelTime.Add(c.DeltaT)
	c.Step++
}

// JulianDayChanged reports whether t1 falls on a different calendar day
// than t0, the trigger for the forcing assembler's day-changed path.
func JulianDayChanged(t0, t1 time.Time) bool {
	y0, m0, d0 := t0.Date()
	y1, m1, d1 := t1.Date()
	return y0 != y1 || m0 != m1 || d0 != d1
}

// Options bundles everything configuration-derived and immutable after
// init: the clock, the method selectors, and the global lapse/threshold
// parameters.
type Options struct {
	Clock   Clock
	Methods Methods
	Globals GlobalParams
}
