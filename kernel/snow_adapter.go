package kernel

import (
	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/hru"
)

// CCFSnowmelt is a degree-day (cold-content-free) snowmelt kernel. It
// moves water from the snowpack storage to ponded storage at the melt
// rate the forcing assembler's PotentialMelt already derives (itself a
// degree-day calculation against the gauge temperature series), clipped
// to whatever snow is actually on the ground.
//
// This does not wrap goHydro/snowpack's CCF type: CCF keeps its own
// internal snowpack depth, a second, independent bookkeeping of the same
// quantity hru.HRU.V[StoSnow] already owns as this engine's sole
// storage ledger, and one kernel instance is shared across every HRU, so
// there is no single CCF value it could hold state for regardless.
type CCFSnowmelt struct{}

// NewCCFSnowmelt builds the kernel.
func NewCCFSnowmelt() *CCFSnowmelt {
	return &CCFSnowmelt{}
}

func (k *CCFSnowmelt) Name() string { return "snowmelt.ccf" }

func (k *CCFSnowmelt) ParticipatingStores() []hru.StorageIndex {
	return []hru.StorageIndex{hru.StoSnow, hru.StoPonded}
}

func (k *CCFSnowmelt) ToFromPairs() []FluxPair {
	return []FluxPair{{From: hru.StoSnow, To: hru.StoPonded}}
}

func (k *CCFSnowmelt) Rate(f forcing.F, h *hru.HRU, dtSeconds float64) []float64 {
	if h.V[hru.StoSnow] <= 0 || f.PotentialMelt <= 0 {
		return []float64{0}
	}
	melt := f.PotentialMelt
	if melt > h.V[hru.StoSnow] {
		melt = h.V[hru.StoSnow]
	}
	return []float64{melt}
}
