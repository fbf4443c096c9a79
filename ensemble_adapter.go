package rdrr

import (
	"math"

	"github.com/rchlumsk/RavenHydroFramework/internal/ensemble"
)

// RunWithPerturbation scales every gauge's undercatch correction and every
// transport connection's retardation by the sampled factors, then steps
// the model to completion and returns the peak outlet discharge observed
// over the run. It satisfies ensemble.Realization so a Model can be
// driven directly by ensemble.RunEnsemble.
func (m *Model) RunWithPerturbation(p ensemble.Perturbation) (outletPeak float64, err error) {
	for _, g := range m.Gauges.Gauges {
		g.Undercatch.SnowCorr *= p.GaugeCorrectionFactor
		g.Undercatch.RainCorr *= p.GaugeCorrectionFactor
	}
	for i := range m.Connections {
		if !math.IsInf(m.Connections[i].Retardation, 1) {
			m.Connections[i].Retardation *= p.RetardationFactor
		}
	}

	var outlets []int
	for id, ds := range m.Downstream {
		if ds < 0 {
			outlets = append(outlets, id)
		}
	}

	nt := m.Opt.Clock.NSteps()
	for i := 0; i < nt; i++ {
		if err := m.Step(); err != nil {
			return outletPeak, err
		}
		for _, id := range outlets {
			if q := m.Subbasins[id].State.QOutLast; q > outletPeak {
				outletPeak = q
			}
		}
	}
	return outletPeak, nil
}
