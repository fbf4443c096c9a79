package rdrr

import (
	"strconv"

	"github.com/rchlumsk/RavenHydroFramework/internal/config"
)

// liveOverrides holds the handful of values a live-control file permits
// changing mid-run, without restarting the model.
type liveOverrides struct {
	ReservoirExtractionTarget map[int]float64 // subbasinID -> new constant extraction rate [m3/s]
	DirichletConcentration    map[int]float64 // source index -> new C_s [mg/L]
}

// loadLiveOverrides reads "extraction.<subbasinID>" and
// "dirichlet.<sourceIndex>" keys from the instruction file at path. Absent
// keys leave the corresponding target untouched by the caller.
func loadLiveOverrides(path string) (*liveOverrides, error) {
	ins, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	ov := &liveOverrides{
		ReservoirExtractionTarget: make(map[int]float64),
		DirichletConcentration:    make(map[int]float64),
	}
	for k, v := range ins.FloatsWithPrefix("extraction.") {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		ov.ReservoirExtractionTarget[id] = v
	}
	for k, v := range ins.FloatsWithPrefix("dirichlet.") {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		ov.DirichletConcentration[idx] = v
	}
	return ov, nil
}
