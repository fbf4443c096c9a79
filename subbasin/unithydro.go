package subbasin

import (
	"math"

	"github.com/rchlumsk/RavenHydroFramework/options"
)

const tailEpsilon = 1e-6

// BuildCatchmentUH builds U_cat from average lateral flow and the
// configured catchment-routing shape. Length is chosen so the tail
// contribution falls below tailEpsilon of the peak, then the array is
// normalized to Σ=1.
func BuildCatchmentUH(shape options.CatchmentRouting, qLatAvg, dt float64, maxLen int) []float64 {
	switch shape {
	case options.CatchDump:
		return []float64{1.0}
	case options.CatchDelayedFirstOrder:
		tau := math.Max(dt, qLatAvg*dt) // simple scale: lag grows with average flow, floored at one step
		return normalizeTrim(impulseResponse(func(t float64) float64 {
			return math.Exp(-t / tau) / tau
		}, dt, maxLen))
	case options.CatchGamma:
		k, theta := 2.0, math.Max(dt, dt*2)
		return normalizeTrim(impulseResponse(func(t float64) float64 {
			if t <= 0 {
				return 0
			}
			return math.Pow(t, k-1) * math.Exp(-t/theta) / (gammaFunc(k) * math.Pow(theta, k))
		}, dt, maxLen))
	case options.CatchTriangular:
		return triangularUH(dt, maxLen)
	case options.CatchReservoirSeries:
		n, k := 3, dt
		return normalizeTrim(impulseResponse(func(t float64) float64 {
			if t <= 0 {
				return 0
			}
			fn := float64(n)
			return math.Pow(t/k, fn-1) * math.Exp(-t/k) / (k * gammaFunc(fn))
		}, dt, maxLen))
	default:
		return []float64{1.0}
	}
}

// impulseResponse samples a continuous kernel at each timestep's midpoint,
// taking within-step mass by simple midpoint quadrature, stopping once
// the tail drops below tailEpsilon of the observed peak (or maxLen bins).
func impulseResponse(kernel func(t float64) float64, dt float64, maxLen int) []float64 {
	out := make([]float64, 0, maxLen)
	peak := 0.0
	for i := 0; i < maxLen; i++ {
		t := (float64(i) + 0.5) * dt
		v := kernel(t) * dt
		if v > peak {
			peak = v
		}
		out = append(out, v)
		if i > 0 && peak > 0 && v < tailEpsilon*peak {
			break
		}
	}
	return out
}

func triangularUH(dt float64, maxLen int) []float64 {
	// triangular tri-convolution: self-convolve a single triangular pulse
	// (rise = fall = one timestep) twice to approximate a smoother shape.
	base := []float64{0.5, 1.0, 0.5}
	u := convolveSlices(base, base)
	u = convolveSlices(u, base)
	if len(u) > maxLen {
		u = u[:maxLen]
	}
	return normalizeTrim(u)
}

func convolveSlices(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

func normalizeTrim(u []float64) []float64 {
	if len(u) == 0 {
		return []float64{1.0}
	}
	sum := 0.0
	for _, v := range u {
		sum += v
	}
	if sum <= 0 {
		return []float64{1.0}
	}
	for i := range u {
		u[i] /= sum
	}
	return u
}

// gammaFunc returns Γ(x): (x-1)! computed exactly for positive integers,
// math.Gamma otherwise.
func gammaFunc(x float64) float64 {
	if x == math.Trunc(x) && x > 0 {
		n := int(x)
		f := 1.0
		for i := 2; i < n; i++ {
			f *= float64(i)
		}
		return f
	}
	return math.Gamma(x)
}

// BuildRoutingUH builds U_route from the reference inflow and channel
// geometry, dispatching on the routing method.
func BuildRoutingUH(method options.Routing, ch Channel, qInAvg, dt float64, maxLen int) ([]float64, []MuskingumSegment) {
	switch method {
	case options.RouteNone:
		return []float64{1.0}, nil
	case options.RoutePlugFlow:
		return plugFlowUH(ch, dt, maxLen), nil
	case options.RouteDiffusiveWave:
		return diffusiveWaveUH(ch, qInAvg, dt, maxLen), nil
	case options.RouteMuskingum, options.RouteMuskingumCunge:
		return muskingumUH(method, ch, qInAvg, dt, maxLen)
	case options.RouteStorageCoeff:
		return storageCoeffUH(ch, dt, maxLen), nil
	default:
		return []float64{1.0}, nil
	}
}

// plugFlowUH implements pure translation by tau = L / c_ref, quantized
// onto the timestep grid with a mass-preserving linear split between the
// two bins straddling tau.
func plugFlowUH(ch Channel, dt float64, maxLen int) []float64 {
	if ch.RefCelerity <= 0 {
		return []float64{1.0}
	}
	tau := ch.Length / ch.RefCelerity
	nFloat := tau / dt
	n := int(math.Floor(nFloat))
	frac := nFloat - float64(n)
	if n+1 >= maxLen {
		u := make([]float64, maxLen)
		u[maxLen-1] = 1.0
		return u
	}
	u := make([]float64, n+2)
	u[n] = 1 - frac
	u[n+1] = frac
	return u
}

// diffusiveWaveUH implements the Hayami advection-dispersion Green's
// function over (L, c_ref, D), with D derived from top width, slope, and
// Q_ref.
func diffusiveWaveUH(ch Channel, qRef, dt float64, maxLen int) []float64 {
	if ch.RefCelerity <= 0 || ch.Length <= 0 {
		return []float64{1.0}
	}
	d := diffusivity(ch, qRef)
	if d <= 0 {
		return plugFlowUH(ch, dt, maxLen)
	}
	L, c := ch.Length, ch.RefCelerity
	return normalizeTrim(impulseResponse(func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		// Hayami (1951) solution of the linearized advection-diffusion eq.
		num := L / (2 * math.Sqrt(math.Pi*d*t*t*t))
		return num * math.Exp(-(L-c*t)*(L-c*t)/(4*d*t))
	}, dt, maxLen))
}

// diffusivity derives the hydraulic diffusivity D from top width, slope,
// and reference discharge: D = Q_ref / (2 * w_ref * S).
func diffusivity(ch Channel, qRef float64) float64 {
	if ch.TopWidth <= 0 || ch.Slope <= 0 {
		return 0
	}
	return qRef / (2 * ch.TopWidth * ch.Slope)
}

// muskingumUH computes K = L/c, X from the Cunge relation or the
// configured constant, subdivides the reach into segments so stability
// bounds hold (0<=X<=0.5, 2KX<=dt<=2K(1-X)), and returns the cascade
// response to a unit-width pulse along with the per-segment parameters
// for the parametric step-by-step router.
func muskingumUH(method options.Routing, ch Channel, qRef, dt float64, maxLen int) ([]float64, []MuskingumSegment) {
	if ch.RefCelerity <= 0 {
		return []float64{1.0}, nil
	}
	k := ch.Length / ch.RefCelerity
	var x float64
	if method == options.RouteMuskingumCunge && ch.TopWidth > 0 && ch.Slope > 0 && qRef > 0 {
		x = 1 - qRef/(ch.TopWidth*ch.RefCelerity*ch.Slope*ch.Length)
	} else {
		x = ch.MuskingumX
	}
	x = math.Max(0, math.Min(0.5, x))

	nSeg := 1
	for {
		ks := k / float64(nSeg)
		if 2*ks*x <= dt && dt <= 2*ks*(1-x) {
			break
		}
		nSeg++
		if nSeg > 50 {
			break // stability bounds not attainable; proceed best-effort
		}
	}
	ks := k / float64(nSeg)
	segs := make([]MuskingumSegment, nSeg)
	for i := range segs {
		segs[i] = MuskingumSegment{K: ks, X: x}
	}

	// unit-pulse response of the cascade, sampled by stepping the segments.
	u := make([]float64, 0, maxLen)
	state := make([]MuskingumSegment, nSeg)
	for i := range state {
		state[i] = MuskingumSegment{K: ks, X: x}
	}
	inflow := 1.0 / dt // unit-volume pulse over one step
	peak := 0.0
	for i := 0; i < maxLen; i++ {
		in := 0.0
		if i == 0 {
			in = inflow
		}
		out := stepMuskingumCascade(state, in, dt)
		v := out * dt
		if v > peak {
			peak = v
		}
		u = append(u, v)
		if i > 2 && peak > 0 && v < tailEpsilon*peak {
			break
		}
	}
	return normalizeTrim(u), segs
}

// stepMuskingumCascade advances each Muskingum segment one timestep using
// the standard coefficients of S = K[XI + (1-X)O].
func stepMuskingumCascade(segs []MuskingumSegment, inflow, dt float64) float64 {
	in := inflow
	for i := range segs {
		s := &segs[i]
		c0 := (dt - 2*s.K*s.X) / (2*s.K*(1-s.X) + dt)
		c1 := (dt + 2*s.K*s.X) / (2*s.K*(1-s.X) + dt)
		c2 := (2*s.K*(1-s.X) - dt) / (2*s.K*(1-s.X) + dt)
		out := c0*in + c1*s.InflowLast + c2*s.Storage
		s.InflowLast = in
		s.Storage = out
		in = out
	}
	return in
}

// storageCoeffUH implements the single-parameter linear channel response
// (1 - e^(-dt/K)) * e^(-n*dt/K).
func storageCoeffUH(ch Channel, dt float64, maxLen int) []float64 {
	k := ch.Length / math.Max(ch.RefCelerity, 1e-9)
	if k <= 0 {
		return []float64{1.0}
	}
	u := make([]float64, 0, maxLen)
	peak := 0.0
	factor := 1 - math.Exp(-dt/k)
	for n := 0; n < maxLen; n++ {
		v := factor * math.Exp(-float64(n)*dt/k)
		if v > peak {
			peak = v
		}
		u = append(u, v)
		if n > 0 && peak > 0 && v < tailEpsilon*peak {
			break
		}
	}
	return normalizeTrim(u)
}
