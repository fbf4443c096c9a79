package kernel

import (
	"github.com/maseology/goHydro/pet"

	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/hru"
)

// MakkinkPET is an example C4 kernel: it demonstrates that PET formulations
// are external collaborators by delegating to goHydro/pet's Makkink
// radiation-based estimate rather than reimplementing it. It withdraws
// from StoSoilTop to StoConvolution is not modelled here; PET is an
// atmosphere-facing loss, so its only pair targets ToAtmosphere.
type MakkinkPET struct {
	AirPressure float64 // station pressure [Pa], passed straight through to pet.Makkink
}

func (k *MakkinkPET) Name() string { return "pet.makkink" }

func (k *MakkinkPET) ParticipatingStores() []hru.StorageIndex {
	return []hru.StorageIndex{hru.StoSoilTop}
}

func (k *MakkinkPET) ToFromPairs() []FluxPair {
	return []FluxPair{{From: hru.StoSoilTop, ToAtmosphere: true}}
}

func (k *MakkinkPET) Rate(f forcing.F, h *hru.HRU, dtSeconds float64) []float64 {
	netRadiationMJ := f.SWRadiaNet * dtSeconds / 1e6
	ep := pet.Makkink(netRadiationMJ, f.TempDailyAve, k.AirPressure)
	return []float64{ep}
}
