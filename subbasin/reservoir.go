package subbasin

import (
	"fmt"
	"math"
)

// MaxReservoirIterations bounds the implicit stage-solve iteration.
const MaxReservoirIterations = 50

const reservoirResidualTolerance = 1e-6

// StageRelation is a monotone non-decreasing function of stage, used for
// both V(h) and Q(h). A table-backed or parametric relation both
// satisfy this signature.
type StageRelation func(h float64) float64

// Regime lets a reservoir switch its Q(h) relation mid-run, e.g. a
// low-stage weir relation versus a high-stage free-outlet relation.
// Reservoir selects the regime itself on every evaluation, by stage alone
// (see dischargeAt); no regime state is kept between calls.
type Regime struct {
	Name      string
	Threshold float64 // stage above which this regime applies
	Q         StageRelation
}

// Reservoir is the stage-volume-discharge relation plus an optional
// extraction time series.
type Reservoir struct {
	Stage       float64
	Volume      StageRelation
	Regimes     []Regime // sorted ascending by Threshold; last applicable wins
	Extraction  func(stepIndex int) float64
	NonConverged int // running count of failed stage solves
}

// dischargeAt evaluates Q(h) using the highest-threshold regime whose
// Threshold <= h.
func (r *Reservoir) dischargeAt(h float64) float64 {
	if h <= 0 {
		return 0
	}
	q := 0.0
	for _, reg := range r.Regimes {
		if h >= reg.Threshold {
			q = reg.Q(h)
		}
	}
	return q
}

// Solve advances the reservoir one timestep, given inflow, the step
// length, and channel losses. It solves the implicit stage h such that
// V(h) + dt*Q(h) = V(h0) + dt*(inflow-extraction-losses), which is
// equivalent to the volume balance V(h)-V(h0) =
// dt*(inflow-Q(h)-extraction-losses) but combines V and Q into one
// function of h. Both V and Q are individually monotone non-decreasing,
// so their sum is too, and bisecting against that single combined
// function converges unconditionally regardless of how stiff the
// V/Q coupling is (dt*k/A >> 1 for a fast-draining linear reservoir, for
// instance) — unlike alternating an explicit evaluation of Q at the
// previous guess with a V-only bisection, which can cycle between two
// stages forever without ever satisfying the residual tolerance.
func (r *Reservoir) Solve(inflow, extraction, channelLosses, dt float64) (hNew, qOut float64, err error) {
	v0 := r.Volume(r.Stage)
	target := v0 + dt*(inflow-extraction-channelLosses)
	g := func(h float64) float64 { return r.Volume(h) + dt*r.dischargeAt(h) }
	if floor := g(0); target < floor {
		target = floor
	}
	h, converged := invert(g, target, r.Stage)
	r.Stage = h
	qOut = r.dischargeAt(h)
	if !converged {
		r.NonConverged++
		return h, qOut, fmt.Errorf("reservoir: stage solve failed to converge in %d iterations", MaxReservoirIterations)
	}
	return h, qOut, nil
}

// invert finds h such that f(h) ~= target via bisection, since f is only
// guaranteed monotone non-decreasing, not necessarily smoothly invertible
// (table-backed relations are piecewise linear). Doubles the upper
// bracket until it contains target, then bisects at most
// MaxReservoirIterations times, stopping once |f(h)-target| falls below
// reservoirResidualTolerance.
func invert(f StageRelation, target, guess float64) (h float64, converged bool) {
	lo, hi := 0.0, math.Max(guess*2, 1.0)
	for f(hi) < target {
		if hi >= 1e9 {
			return hi, false
		}
		hi *= 2
	}
	for i := 0; i < MaxReservoirIterations; i++ {
		mid := (lo + hi) / 2
		fm := f(mid)
		if math.Abs(fm-target) < reservoirResidualTolerance {
			return mid, true
		}
		if fm < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, false
}

// LinearReservoir builds a table-free Q(h)=k*h, V(h)=A*h pair, the simplest parametric regime.
func LinearReservoir(k, area float64) *Reservoir {
	return &Reservoir{
		Volume: func(h float64) float64 { return area * h },
		Regimes: []Regime{
			{Name: "linear", Threshold: 0, Q: func(h float64) float64 { return k * h }},
		},
	}
}
