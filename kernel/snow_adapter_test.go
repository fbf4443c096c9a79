package kernel

import (
	"testing"

	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/hru"
)

func TestCCFSnowmeltRateClipsToAvailableSnow(t *testing.T) {
	k := NewCCFSnowmelt()
	h := hru.New(1, hru.Properties{})
	h.V[hru.StoSnow] = 0.01

	rates := k.Rate(forcing.F{PotentialMelt: 0.05}, h, 3600)
	if len(rates) != 1 {
		t.Fatalf("len(rates) = %d, want 1", len(rates))
	}
	if rates[0] != 0.01 {
		t.Errorf("rates[0] = %v, want 0.01 (clipped to available snow)", rates[0])
	}
}

func TestCCFSnowmeltRateZeroWhenNoSnowOrNoMeltPotential(t *testing.T) {
	k := NewCCFSnowmelt()
	h := hru.New(1, hru.Properties{})

	if got := k.Rate(forcing.F{PotentialMelt: 0.05}, h, 3600)[0]; got != 0 {
		t.Errorf("rate with no snow on ground = %v, want 0", got)
	}

	h.V[hru.StoSnow] = 0.01
	if got := k.Rate(forcing.F{PotentialMelt: 0}, h, 3600)[0]; got != 0 {
		t.Errorf("rate with zero potential melt = %v, want 0", got)
	}
}
