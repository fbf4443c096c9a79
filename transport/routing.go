package transport

import (
	"math"

	"github.com/rchlumsk/RavenHydroFramework/subbasin"
)

const dischargeEpsilon = 1e-9

// ChannelMass is the per-subbasin, per-constituent in-channel mass state:
// M_in/M_lat histories and M_out per segment, routed with the same unit
// hydrographs used for water by design.
type ChannelMass struct {
	MIn, MLat *subbasin.RingBuffer
	MOut      []float64
}

// NewChannelMass sizes the mass histories to match a subbasin's water
// histories, so the same unit hydrographs can be convolved against both.
func NewChannelMass(s *subbasin.Subbasin) *ChannelMass {
	return &ChannelMass{
		MIn:  subbasin.NewRingBuffer(s.State.QIn.Len()),
		MLat: subbasin.NewRingBuffer(s.State.QLat.Len()),
		MOut: make([]float64, s.State.NSeg),
	}
}

// RouteMass convolves mass loads with the subbasin's water unit
// hydrographs, applies in-reach decay, and returns the outlet load plus
// outlet concentration (safe-divide when Q < epsilon).
func RouteMass(s *subbasin.Subbasin, cm *ChannelMass, c *Constituent, mLatCandidate, mInUpstream float64, qOutFinal float64, dtDays float64) (outletLoad, outletConc float64) {
	mLatConv := convolveMass(s.State.UCat, cm.MLat, mLatCandidate)
	mInCandidate := mInUpstream + mLatConv
	outletLoad = convolveMass(s.State.URoute, cm.MIn, mInCandidate)

	if c.DecayRate > 0 {
		decayFactor := math.Exp(-c.DecayRate * dtDays)
		decayed := outletLoad * (1 - decayFactor)
		outletLoad -= decayed
		c.CumulOutput += decayed
	}

	cm.MIn.Push(mInCandidate)
	cm.MLat.Push(mLatCandidate)
	cm.MOut[len(cm.MOut)-1] = outletLoad

	if qOutFinal < dischargeEpsilon {
		outletConc = 0
	} else {
		outletConc = outletLoad / qOutFinal
	}
	return
}

func convolveMass(u []float64, hist *subbasin.RingBuffer, current float64) float64 {
	if len(u) == 0 {
		return current
	}
	sum := u[0] * current
	for i := 1; i < len(u) && i-1 < hist.Len(); i++ {
		sum += u[i] * hist.At(i - 1)
	}
	return sum
}
