package rdrr

import (
	"fmt"
	"time"

	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/gauge"
	"github.com/rchlumsk/RavenHydroFramework/hru"
	"github.com/rchlumsk/RavenHydroFramework/internal/topo"
	"github.com/rchlumsk/RavenHydroFramework/kernel"
	"github.com/rchlumsk/RavenHydroFramework/options"
	"github.com/rchlumsk/RavenHydroFramework/subbasin"
	"github.com/rchlumsk/RavenHydroFramework/transport"
)

// NumericalErrorCounter accumulates run-level numerical error counts:
// reservoir non-convergence and storage-scaling deficits greater than 1
// (withdrawing more than available from a full bucket).
type NumericalErrorCounter struct {
	ReservoirNonConvergence int
	StorageOverdraft        int
}

// OutputSink receives per-step results; it is an external collaborator for
// writing run outputs. A nil sink silently drops output, which is useful
// for tests that only check state.
type OutputSink interface {
	WriteHydrographStep(subbasinID int, t time.Time, qOut float64)
	WritePollutographStep(subbasinID, constituentIndex int, t time.Time, conc float64)
}

// HRUOwnership records which subbasin an HRU's lateral runoff drains to.
type HRUOwnership struct {
	SubbasinID int
}

// Model is the orchestrator: it drives the global per-timestep schedule
// over every other component.
type Model struct {
	Opt       *options.Options
	Gauges    *gauge.Set
	Assembler *forcing.Assembler

	HRUs       map[int]*hru.HRU
	HRUContext map[int]forcing.HRUContext
	HRUOwner   map[int]HRUOwnership
	LastF      map[int]*forcing.F

	Kernels kernel.Set

	Subbasins   map[int]*subbasin.Subbasin
	Downstream  map[int]int // ID -> downstream ID, negative = outlet
	TopoOrder   []int

	Constituents []*transport.Constituent
	Sources      []*transport.Source
	Connections  []transport.Connection // shared connection table for all HRUs
	ChannelMass  map[int]map[int]*transport.ChannelMass // subbasinID -> constituentIndex -> state
	HRUMass      map[int]map[int]*transport.Mass        // hruID -> constituentIndex -> mass

	Sink OutputSink

	Errors NumericalErrorCounter

	// LiveControlPath, if set, is re-read once per step boundary so a
	// reservoir extraction target or Dirichlet source concentration can
	// change mid-run without restarting. Empty disables polling.
	LiveControlPath string

	live *liveOverrides
}

// NewModel allocates an empty model. Callers populate HRUs, Subbasins,
// Downstream, etc. directly (or via Build) and then call Assemble, which
// derives the topological order; it must be called again if the network
// changes.
func NewModel(opt *options.Options, gauges *gauge.Set) *Model {
	return &Model{
		Opt:         opt,
		Gauges:      gauges,
		HRUs:        make(map[int]*hru.HRU),
		HRUContext:  make(map[int]forcing.HRUContext),
		HRUOwner:    make(map[int]HRUOwnership),
		LastF:       make(map[int]*forcing.F),
		Subbasins:   make(map[int]*subbasin.Subbasin),
		Downstream:  make(map[int]int),
		ChannelMass: make(map[int]map[int]*transport.ChannelMass),
		HRUMass:     make(map[int]map[int]*transport.Mass),
	}
}

// Assemble finalizes topology and the forcing assembler's weight cache. Call once
// after HRUs, Subbasins, and Downstream are populated.
func (m *Model) Assemble() error {
	if err := m.checkTopology(); err != nil {
		return fmt.Errorf("rdrr: ConfigError: %w", err)
	}
	m.TopoOrder = topo.Order(m.Downstream, -1)
	m.Assembler = forcing.NewAssembler(m.Gauges, m.Opt, m.HRUContext)
	for sid, s := range m.Subbasins {
		if err := subbasin.ValidateHydrographs(s); err != nil {
			return fmt.Errorf("rdrr: ConfigError: subbasin %d: %w", sid, err)
		}
	}
	return nil
}

// checkTopology reports cycles and dangling downstream IDs other than the
// outlet sentinel as a ConfigError.
func (m *Model) checkTopology() error {
	for id, ds := range m.Downstream {
		if ds == id {
			return fmt.Errorf("subbasin %d: downstream ID points to itself", id)
		}
		if ds >= 0 {
			if _, ok := m.Subbasins[ds]; !ok {
				return fmt.Errorf("subbasin %d: dangling downstream ID %d", id, ds)
			}
		}
	}
	visited := make(map[int]int) // 0=unvisited,1=visiting,2=done
	var visit func(id int) error
	visit = func(id int) error {
		switch visited[id] {
		case 1:
			return fmt.Errorf("cycle detected at subbasin %d", id)
		case 2:
			return nil
		}
		visited[id] = 1
		if ds, ok := m.Downstream[id]; ok && ds >= 0 {
			if err := visit(ds); err != nil {
				return err
			}
		}
		visited[id] = 2
		return nil
	}
	for id := range m.Subbasins {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// dtDays returns the timestep in days, the unit constituent decay uses.
func (m *Model) dtDays() float64 {
	return m.Opt.Clock.DeltaTSeconds() / 86400.0
}

// ApplyLiveOverrides re-reads a small live-control file and patches the
// targeted reservoir extraction rates and Dirichlet source concentrations
// in place. It is only ever called at a step boundary, never mid-step.
func (m *Model) ApplyLiveOverrides(path string) error {
	ov, err := loadLiveOverrides(path)
	if err != nil {
		return err
	}
	m.live = ov
	for sid, target := range ov.ReservoirExtractionTarget {
		s, ok := m.Subbasins[sid]
		if !ok || s.Res == nil {
			continue
		}
		rate := target
		s.Res.Extraction = func(int) float64 { return rate }
	}
	for idx, conc := range ov.DirichletConcentration {
		if idx < 0 || idx >= len(m.Sources) {
			continue
		}
		val := conc
		m.Sources[idx].Value = func(int) float64 { return val }
	}
	return nil
}

// pollLiveOverrides re-reads LiveControlPath, if one is configured. Called
// once per step boundary, before subbasin routing and transport pick up
// the patched extraction rates and source concentrations.
func (m *Model) pollLiveOverrides() error {
	if m.LiveControlPath == "" {
		return nil
	}
	return m.ApplyLiveOverrides(m.LiveControlPath)
}

