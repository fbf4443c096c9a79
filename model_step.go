package rdrr

import (
	"fmt"
	"log"
	"math"

	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/hru"
	"github.com/rchlumsk/RavenHydroFramework/transport"
)

const massBalanceEpsilon = 1e-9 // [m/step], per-HRU water balance residual tolerance

// kernelFlux is one kernel's computed flux for one HRU this step, kept so
// transport can advect along the same connection after clipping.
type kernelFlux struct {
	from, to                 hru.StorageIndex
	toSubbasin, toAtmosphere bool
	flux                     float64
	key                      string // unique per kernel+pair, for ClipDeficitProportional's withdrawal map
}

// Step advances the model by one timestep, implementing the orchestrator's
// six-stage per-step schedule. It returns an error only for a fatal condition
// (NumericalError on an unrecoverable HRU invariant break, a ConfigError
// from re-reading the live-control file, or a MassBalanceViolation when
// StrictMassBalance is set); most NumericalErrors are counted in m.Errors
// and the run continues.
func (m *Model) Step() error {
	t := m.Opt.Clock.ModelTime
	dt := m.Opt.Clock.DeltaTSeconds()

	// step 1: refresh HRU forcings.
	freshF := make(map[int]*forcing.F, len(m.HRUs))
	for id, hctx := range m.HRUContext {
		f := m.Assembler.Assemble(id, hctx, t, m.LastF[id])
		freshF[id] = &f
	}

	// step 2: apply every configured kernel to every HRU, accumulating
	// tentative fluxes and tracking per-connection water flux for
	// transport.
	lateralBySubbasin := make(map[int]float64, len(m.Subbasins))
	fluxesByHRU := make(map[int][]kernelFlux, len(m.HRUs))

	for id, h := range m.HRUs {
		f := *freshF[id]
		preStorage := h.TotalStorage()
		precipIn := f.Precip * dt / 86400.0 // forcing precip is a daily-rate depth; scale to this step
		var evapOut, lateralOut float64

		var fluxes []kernelFlux
		for _, k := range m.Kernels {
			rates := k.Rate(f, h, dt)
			for i, pair := range k.ToFromPairs() {
				if i >= len(rates) {
					break
				}
				key := fmt.Sprintf("%s#%d", k.Name(), i)
				fluxes = append(fluxes, kernelFlux{from: pair.From, to: pair.To, toSubbasin: pair.ToSubbasin, toAtmosphere: pair.ToAtmosphere, flux: rates[i], key: key})
			}
		}

		// Redistribute any storage deficit proportionally across every
		// withdrawing flux sharing that storage, before applying any of
		// them — rather than clipping whichever flux happens to be
		// processed first and starving the rest.
		byStorage := make(map[hru.StorageIndex]map[string]float64)
		for _, kf := range fluxes {
			if kf.flux <= 0 {
				continue
			}
			if byStorage[kf.from] == nil {
				byStorage[kf.from] = make(map[string]float64)
			}
			byStorage[kf.from][kf.key] = -kf.flux
		}
		for sto, withdrawals := range byStorage {
			available := h.Storage(sto)
			total := 0.0
			for _, d := range withdrawals {
				total += -d
			}
			scale := h.ClipDeficitProportional(sto, withdrawals)
			if scale < 1.0 && total-available > 1 {
				m.Errors.StorageOverdraft++
			}
			for idx, kf := range fluxes {
				if kf.from == sto && kf.flux > 0 {
					fluxes[idx].flux = -withdrawals[kf.key]
				}
			}
		}

		for idx, kf := range fluxes {
			var moved float64
			switch {
			case kf.toAtmosphere:
				h.Add(kf.from, -kf.flux)
				moved = kf.flux
				evapOut += moved
			case kf.toSubbasin:
				h.Add(kf.from, -kf.flux)
				moved = kf.flux
				lateralOut += moved
			default:
				h.Add(kf.from, -kf.flux)
				moved = kf.flux
				h.Add(kf.to, moved)
			}
			fluxes[idx].flux = moved // record the (possibly proportionally clipped) actual amount for transport
		}
		h.Add(hru.StoPonded, precipIn)

		// step 3: non-negativity is enforced at each Add call above
		// (HRU.Add clips and reports); here we only assert the invariant
		// holds as a defensive check.
		if err := h.Validate(); err != nil {
			return fmt.Errorf("rdrr: NumericalError: %w", err)
		}

		sid := m.HRUOwner[id].SubbasinID
		lateralBySubbasin[sid] += lateralOut * h.Props.AreaKM2
		fluxesByHRU[id] = fluxes

		postStorage := h.TotalStorage()
		wbal := (precipIn - evapOut - lateralOut) - (postStorage - preStorage)
		if math.Abs(wbal) > massBalanceEpsilon {
			log.Printf("rdrr: hru %d water-balance residual %.3e m at step %d", id, wbal, m.Opt.Clock.Step)
		}
	}

	if err := m.pollLiveOverrides(); err != nil {
		return fmt.Errorf("rdrr: ConfigError: %w", err)
	}

	// step 4: subbasin routing, strictly in topological order.
	qUpAccum := make(map[int]float64, len(m.Subbasins))
	outletQ := make(map[int]float64, len(m.Subbasins))
	for _, sid := range m.TopoOrder {
		s := m.Subbasins[sid]
		qLat := kmSqMToCubicMetresPerSecond(lateralBySubbasin[sid], dt)
		s.SetLateralInflow(qLat)
		s.SetInflow(qUpAccum[sid])
		s.UpdateFlowRules(m.Opt.Clock.Step)
		result := s.RouteWater(m.Opt.Clock.Step)
		if result.ResNonConverge {
			m.Errors.ReservoirNonConvergence++
		}
		s.UpdateOutflows(result, m.Opt.Clock.Step == 0)

		qOutFinal := result.QOutNew[len(result.QOutNew)-1]
		outletQ[sid] = qOutFinal
		if m.Downstream[sid] >= 0 {
			qUpAccum[m.Downstream[sid]] += qOutFinal
		}
		if m.Sink != nil {
			m.Sink.WriteHydrographStep(sid, t, qOutFinal)
		}
	}

	// step 5: route constituent mass through every subbasin, mirroring
	// the water routing just performed, and apply sources/advection/decay
	// within each HRU.
	for id, h := range m.HRUs {
		for ci, c := range m.Constituents {
			mass := m.massFor(id, ci)
			for _, src := range m.Sources {
				if src.AppliesToHRU(id) {
					v := h.Storage(src.Storage) * h.Props.AreaKM2 * 1e6
					src.Apply(c, mass, v, h.Props.AreaKM2*1e6, dt, m.Opt.Clock.Step)
				}
			}
			for _, conn := range m.Connections {
				vFrom := h.Storage(conn.From) * h.Props.AreaKM2 * 1e6
				transport.Advect(c, conn, mass, vFrom, qwForFluxes(fluxesByHRU[id], conn), dt)
			}
			transport.Decay(c, mass, nil, m.dtDays())
		}
	}

	for _, sid := range m.TopoOrder {
		s := m.Subbasins[sid]
		for ci, c := range m.Constituents {
			cm := m.channelMassFor(sid, ci)
			mLat := m.hruMassLateralFor(sid, ci, fluxesByHRU)
			mInUp := m.upstreamMassInflow(sid, ci)
			_, conc := transport.RouteMass(s, cm, c, mLat, mInUp, outletQ[sid], m.dtDays())
			if m.Sink != nil {
				m.Sink.WritePollutographStep(sid, ci, t, conc)
			}
		}
	}

	for ci, c := range m.Constituents {
		total := m.totalConstituentMass(ci)
		if err := transport.CheckMassBalance(c, total, c.InitialMass); err != nil {
			if m.Opt.Globals.StrictMassBalance {
				return fmt.Errorf("rdrr: MassBalanceViolation: %w", err)
			}
			log.Printf("rdrr: %v at step %d", err, m.Opt.Clock.Step)
		}
	}

	// step 6: commit.
	m.Opt.Clock.Advance()
	for id, f := range freshF {
		m.LastF[id] = f
	}
	return nil
}

// kmSqMToCubicMetresPerSecond converts an area-weighted depth*area sum
// (depth in metres, area in km^2, i.e. a volume in millions of m3) into an
// average discharge [m3/s] over the step.
func kmSqMToCubicMetresPerSecond(depthAreaKM2M, dtSeconds float64) float64 {
	if dtSeconds <= 0 {
		return 0
	}
	return depthAreaKM2M * 1e6 / dtSeconds
}

func qwForFluxes(fluxes []kernelFlux, conn transport.Connection) float64 {
	sum := 0.0
	for _, kf := range fluxes {
		if kf.from != conn.From {
			continue
		}
		if conn.ToAtmosphere && kf.toAtmosphere {
			sum += kf.flux
		} else if !conn.ToAtmosphere && !kf.toAtmosphere && kf.to == conn.To {
			sum += kf.flux
		}
	}
	return sum
}

func (m *Model) massFor(hruID, constituentIdx int) *transport.Mass {
	if m.HRUMass[hruID] == nil {
		m.HRUMass[hruID] = make(map[int]*transport.Mass)
	}
	if m.HRUMass[hruID][constituentIdx] == nil {
		m.HRUMass[hruID][constituentIdx] = &transport.Mass{}
	}
	return m.HRUMass[hruID][constituentIdx]
}

// totalConstituentMass sums one constituent's mass currently held across
// every HRU storage layer, the Σm term in the global mass-balance
// invariant (CumulInput/CumulOutput already account for everything that
// crossed a source, decay, or atmosphere boundary).
func (m *Model) totalConstituentMass(constituentIdx int) float64 {
	sum := 0.0
	for _, perC := range m.HRUMass {
		if mass, ok := perC[constituentIdx]; ok {
			for _, v := range mass.M {
				sum += v
			}
		}
	}
	return sum
}

func (m *Model) channelMassFor(subbasinID, constituentIdx int) *transport.ChannelMass {
	if m.ChannelMass[subbasinID] == nil {
		m.ChannelMass[subbasinID] = make(map[int]*transport.ChannelMass)
	}
	if m.ChannelMass[subbasinID][constituentIdx] == nil {
		m.ChannelMass[subbasinID][constituentIdx] = transport.NewChannelMass(m.Subbasins[subbasinID])
	}
	return m.ChannelMass[subbasinID][constituentIdx]
}

func (m *Model) hruMassLateralFor(subbasinID, constituentIdx int, fluxesByHRU map[int][]kernelFlux) float64 {
	sum := 0.0
	for id, owner := range m.HRUOwner {
		if owner.SubbasinID != subbasinID {
			continue
		}
		h := m.HRUs[id]
		mass := m.massFor(id, constituentIdx)
		for _, kf := range fluxesByHRU[id] {
			if kf.toSubbasin {
				conc := transport.Concentration(mass.M[kf.from], h.Storage(kf.from)*h.Props.AreaKM2*1e6)
				sum += conc * kf.flux
			}
		}
	}
	return sum
}

func (m *Model) upstreamMassInflow(subbasinID, constituentIdx int) float64 {
	sum := 0.0
	for id, ds := range m.Downstream {
		if ds != subbasinID {
			continue
		}
		if cm, ok := m.ChannelMass[id]; ok {
			if state, ok := cm[constituentIdx]; ok && len(state.MOut) > 0 {
				sum += state.MOut[len(state.MOut)-1]
			}
		}
	}
	return sum
}
