// Package rdrr is the core simulation engine of a semi-distributed,
// process-based hydrological model: given a watershed discretized into
// hydrologic response units (HRUs) grouped into subbasins connected by a
// river network, Model advances the coupled water and constituent mass
// balances through time, producing per-timestep storages, fluxes, and
// outlet hydrographs (flow and solute concentrations).
//
// The package ties together four subpackages that each own one of the
// three hard subsystems plus their shared vocabulary: gauge and forcing
// (forcing assembly), subbasin (hydraulic routing and reservoirs),
// transport (constituent advection/decay), and hru (the per-column water
// state those subsystems all read and write). Process-kernel internals
// (evapotranspiration, snowmelt, infiltration) are external collaborators,
// pinned only by the kernel package's interface.
package rdrr
