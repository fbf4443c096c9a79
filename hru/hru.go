// Package hru implements the Hydrologic Response Unit: a point-column
// storage of water state, forcing, and cumulative fluxes. State is mutated
// only by the orchestrator within a timestep via process kernels;
// the clipping rule below is the one place HRU itself enforces an invariant.
package hru

import "fmt"

// Class references index into the external parameter catalog: the HRU
// itself carries only the reference, never the property values, keeping
// cell identity separate from the loaded parameter set.
type Class struct {
	LandUse  int
	Veg      int
	Soil     int
	Terrain  int
}

// Properties are the static geometric attributes of an HRU.
type Properties struct {
	AreaKM2  float64
	Elev     float64
	Lat, Lon float64
	Slope    float64
	Aspect   float64
	Class    Class
}

// StorageIndex names the dense water-storage compartments every HRU
// carries. Extra application-specific stores can be appended by widening
// this enum; kernels address stores by index, not by name, so transport's
// aIndexMapping stays a simple array.
type StorageIndex int

const (
	StoCanopy StorageIndex = iota
	StoCanopySnow
	StoSnow
	StoPonded
	StoSoilTop
	StoSoilDeep
	StoDepression
	StoConvolution // dummy HRU-local routing buffer, surface-to-channel lag
	nStorages
)

// NumStorages is the fixed number of water-storage compartments per HRU.
const NumStorages = int(nStorages)

// HRU is a single hydrologic response unit: area-weighted point column of
// storage state `{v_i}`, cumulative process fluxes, and the current
// forcing vector (forcing itself lives in package forcing; HRU only keeps
// the latest snapshot it was driven with).
type HRU struct {
	ID         int
	Props      Properties
	V          [NumStorages]float64 // storage depths [m]; invariant v_i >= 0
	CumFlux    map[string]float64    // cumulative flux by process name [m]
	ClippedSum float64               // running total of clipped (would-be-negative) depth, for the numerical-error counter
}

// New constructs an HRU with zeroed storages.
func New(id int, props Properties) *HRU {
	return &HRU{ID: id, Props: props, CumFlux: make(map[string]float64)}
}

// Storage returns the depth of storage i.
func (h *HRU) Storage(i StorageIndex) float64 { return h.V[i] }

// Add applies a signed flux to storage i, clipping at zero and reporting
// the clipped amount. A positive clip means the
// withdrawal exceeded what was available.
func (h *HRU) Add(i StorageIndex, delta float64) (clipped float64) {
	h.V[i] += delta
	if h.V[i] < 0 {
		clipped = -h.V[i]
		h.V[i] = 0
		h.ClippedSum += clipped
	}
	return
}

// ClipDeficitProportional redistributes a storage deficit among the
// step's withdrawing fluxes by scaling them all down equally. withdrawals maps a process name to the (negative) flux it
// attempted against storage i; it is mutated in place to the clipped
// values and the scale factor actually applied is returned.
func (h *HRU) ClipDeficitProportional(i StorageIndex, withdrawals map[string]float64) float64 {
	total := 0.0
	for _, d := range withdrawals {
		if d < 0 {
			total += -d
		}
	}
	if total <= h.V[i] || total == 0 {
		return 1.0
	}
	scale := h.V[i] / total
	for k, d := range withdrawals {
		if d < 0 {
			withdrawals[k] = d * scale
		}
	}
	return scale
}

// TotalStorage sums every compartment, the ΣSv_i term of the water balance.
func (h *HRU) TotalStorage() float64 {
	s := 0.0
	for _, v := range h.V {
		s += v
	}
	return s
}

// Validate checks the non-negativity invariant and returns a descriptive
// error rather than panicking: the orchestrator decides whether a
// violation is fatal.
func (h *HRU) Validate() error {
	for i, v := range h.V {
		if v < 0 {
			return fmt.Errorf("hru %d: storage %d negative: %.6e", h.ID, i, v)
		}
	}
	return nil
}
