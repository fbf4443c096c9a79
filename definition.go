package rdrr

import (
	"encoding/gob"
	"fmt"
	"log"
	"os"

	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/gauge"
	"github.com/rchlumsk/RavenHydroFramework/hru"
	"github.com/rchlumsk/RavenHydroFramework/kernel"
	"github.com/rchlumsk/RavenHydroFramework/options"
	"github.com/rchlumsk/RavenHydroFramework/subbasin"
	"github.com/rchlumsk/RavenHydroFramework/transport"
)

// Definition is the gob-serializable model definition: the output of
// whatever external builder assembled topology, HRU properties, and gauge
// records from raw input files. The core only needs to decode this struct
// and wire it into a running Model; producing one from raw input files is
// an external concern this package does not implement.
type Definition struct {
	Clock   options.Clock
	Methods options.Methods
	Globals options.GlobalParams

	Gauges []*gauge.Gauge

	HRUs []HRUDefinition

	Subbasins []SubbasinDefinition

	Constituents []*transport.Constituent
	Sources      []SourceDefinition
	Connections  []transport.Connection

	LiveControlFile string // optional, empty disables ApplyLiveOverrides
}

// HRUDefinition is one HRU's static identity, property set, and owning
// subbasin.
type HRUDefinition struct {
	ID         int
	Props      hru.Properties
	Context    forcing.HRUContext
	SubbasinID int
}

// ReservoirDefinition is a gob-friendly reservoir description: StageRelation
// and Regime.Q are funcs, so both are reduced to piecewise-linear tables
// keyed by stage (parallel float slices), since closures cannot be gob-encoded.
type ReservoirDefinition struct {
	StageKnots  []float64
	VolumeKnots []float64 // V(h) at each StageKnots[i]

	RegimeNames      []string
	RegimeThresholds []float64
	RegimeQKnots     [][]float64 // Q(h) sampled at StageKnots for each regime

	ExtractionConstant float64 // [m3/s], constant extraction; 0 disables
}

// SubbasinDefinition is one subbasin's immutable topology/channel plus the
// precomputed unit hydrographs and optional reservoir/specified-inflow.
type SubbasinDefinition struct {
	Topology subbasin.Topology
	Channel  subbasin.Channel

	NSeg   int
	UCat   []float64
	URoute []float64
	Cascade []subbasin.MuskingumSegment

	Reservoir *ReservoirDefinition

	SpecifiedInflow []float64 // indexed by step, nil if not a specified-inflow basin
}

// SourceDefinition is a gob-friendly transport.Source: Value is a func, so
// it is reduced to either a constant or a step-indexed series.
type SourceDefinition struct {
	Kind     transport.SourceKind
	Storage  hru.StorageIndex
	HRUGroup []int
	Constant float64
	Series   []float64 // if non-nil, overrides Constant
}

// LoadDefinition decodes a Definition from fp.
func LoadDefinition(fp string) (*Definition, error) {
	f, err := os.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("rdrr: ConfigError: %w", err)
	}
	defer f.Close()
	var def Definition
	if err := gob.NewDecoder(f).Decode(&def); err != nil {
		return nil, fmt.Errorf("rdrr: ConfigError: malformed model definition: %w", err)
	}
	return &def, nil
}

// tableLookup performs piecewise-linear interpolation over a sorted
// (knots, values) table, clamping outside the table's range.
func tableLookup(knots, values []float64) subbasin.StageRelation {
	return func(h float64) float64 {
		if len(knots) == 0 {
			return 0
		}
		if h <= knots[0] {
			return values[0]
		}
		if h >= knots[len(knots)-1] {
			return values[len(values)-1]
		}
		for i := 1; i < len(knots); i++ {
			if h <= knots[i] {
				t := (h - knots[i-1]) / (knots[i] - knots[i-1])
				return values[i-1] + t*(values[i]-values[i-1])
			}
		}
		return values[len(values)-1]
	}
}

// checkMonotoneTable warns (does not reject) when a stage-keyed table is
// not non-decreasing in values as stage increases: Reservoir.Solve's
// bisection assumes V(h) and every regime's Q(h) are monotone, and a
// table violating that silently produces a wrong stage rather than a
// bisection failure.
func checkMonotoneTable(label string, values []float64) {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			log.Printf("rdrr: DataError: %s is not monotone non-decreasing in stage (values[%d]=%.6g < values[%d]=%.6g)", label, i, values[i], i-1, values[i-1])
			return
		}
	}
}

func buildReservoir(rd *ReservoirDefinition) *subbasin.Reservoir {
	if rd == nil {
		return nil
	}
	checkMonotoneTable("reservoir volume table", rd.VolumeKnots)
	res := &subbasin.Reservoir{
		Volume: tableLookup(rd.StageKnots, rd.VolumeKnots),
	}
	for i, name := range rd.RegimeNames {
		checkMonotoneTable(fmt.Sprintf("reservoir discharge table (regime %q)", name), rd.RegimeQKnots[i])
		res.Regimes = append(res.Regimes, subbasin.Regime{
			Name:      name,
			Threshold: rd.RegimeThresholds[i],
			Q:         tableLookup(rd.StageKnots, rd.RegimeQKnots[i]),
		})
	}
	if rd.ExtractionConstant != 0 {
		v := rd.ExtractionConstant
		res.Extraction = func(int) float64 { return v }
	}
	return res
}

func buildSource(sd SourceDefinition) *transport.Source {
	s := &transport.Source{Kind: sd.Kind, Storage: sd.Storage, HRUGroup: sd.HRUGroup}
	if sd.Series != nil {
		series := sd.Series
		s.Value = func(step int) float64 {
			if step < 0 || step >= len(series) {
				return 0
			}
			return series[step]
		}
	} else {
		v := sd.Constant
		s.Value = func(int) float64 { return v }
	}
	return s
}

// Build assembles a fully wired Model from a Definition. Process kernels
// are not part of the definition format — they are external collaborators
// selected by the Evaporation/PotMelt method enums and instantiated here.
func Build(def *Definition) (*Model, error) {
	opt := &options.Options{Clock: def.Clock, Methods: def.Methods, Globals: def.Globals}
	gauges := gauge.NewSet(def.Gauges)
	m := NewModel(opt, gauges)

	for _, hd := range def.HRUs {
		m.HRUs[hd.ID] = hru.New(hd.ID, hd.Props)
		m.HRUContext[hd.ID] = hd.Context
		m.HRUOwner[hd.ID] = HRUOwnership{SubbasinID: hd.SubbasinID}
	}

	for _, sd := range def.Subbasins {
		s := subbasin.New(sd.Topology, sd.Channel, def.Methods, def.Clock.DeltaTSeconds())
		s.State.NSeg = sd.NSeg
		s.State.UCat = sd.UCat
		s.State.URoute = sd.URoute
		s.State.Cascade = sd.Cascade
		s.State.QOut = make([]float64, sd.NSeg)
		s.State.QIn = subbasin.NewRingBuffer(len(sd.URoute))
		s.State.QLat = subbasin.NewRingBuffer(len(sd.UCat))
		s.Res = buildReservoir(sd.Reservoir)
		if sd.SpecifiedInflow != nil {
			series := sd.SpecifiedInflow
			s.SpecifiedInflow = func(step int) float64 {
				if step < 0 || step >= len(series) {
					return 0
				}
				return series[step]
			}
		}
		m.Subbasins[sd.Topology.ID] = s
		m.Downstream[sd.Topology.ID] = sd.Topology.DownstreamID
	}

	m.Constituents = def.Constituents
	for _, sd := range def.Sources {
		m.Sources = append(m.Sources, buildSource(sd))
	}
	m.Connections = def.Connections

	// MakkinkPET and CCFSnowmelt stand in for whichever concrete PET/melt
	// formulation the Evaporation/PotMelt selector names; the formulation
	// itself is the external kernel library's concern, not this
	// wiring step's.
	if def.Methods.Evaporation != options.EvapNone {
		m.Kernels = append(m.Kernels, &kernel.MakkinkPET{AirPressure: 101300.0})
	}
	if def.Methods.PotMelt != options.PotMeltNone {
		m.Kernels = append(m.Kernels, kernel.NewCCFSnowmelt())
	}

	if err := m.Assemble(); err != nil {
		return nil, err
	}
	if def.LiveControlFile != "" {
		m.LiveControlPath = def.LiveControlFile
		if err := m.ApplyLiveOverrides(def.LiveControlFile); err != nil {
			return nil, err
		}
	}
	return m, nil
}
