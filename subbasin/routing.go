package subbasin

// Init sizes the routing state, builds both unit hydrographs, and zeros
// histories. qLatAvg and qInAvg are reference (average) flows used to
// parameterize the hydrograph shapes.
func (s *Subbasin) Init(qLatAvg, qInAvg float64, maxHistLen int) {
	uCat := BuildCatchmentUH(s.methods.CatchmentRouting, qLatAvg, s.dt, maxHistLen)
	uRoute, cascade := BuildRoutingUH(s.methods.Routing, s.Channel, qInAvg, s.dt, maxHistLen)

	s.State.UCat = uCat
	s.State.URoute = uRoute
	s.State.Cascade = cascade
	s.State.QLat = NewRingBuffer(len(uCat))
	s.State.QIn = NewRingBuffer(len(uRoute))
	nSeg := 1
	if len(cascade) > 0 {
		nSeg = len(cascade)
	}
	s.State.NSeg = nSeg
	s.State.QOut = make([]float64, nSeg)
}

// SetInflow records this step's upstream inflow: the sum of all upstream
// subbasin outlet outflows, accumulated by the caller.
func (s *Subbasin) SetInflow(qUp float64) { s.pendingQUp = qUp }

// SetLateralInflow records this step's total lateral runoff from HRUs,
// averaged over the step.
func (s *Subbasin) SetLateralInflow(qLat float64) { s.pendingQLat = qLat }

// UpdateFlowRules refreshes any rating-curve or reservoir flow-rule state
// ahead of RouteWater. The base implementation is a no-op: rating curves
// are static tables unless a caller swaps the reservoir's Regimes.
func (s *Subbasin) UpdateFlowRules(stepIndex int) {}

// RouteResult carries RouteWater's pure-function output, applied later by
// UpdateOutflows.
type RouteResult struct {
	QOutNew       []float64
	ResStage      float64
	ResNonConverge bool
	QInTotal      float64 // upstream + lateral-via-UCat + specified, this step's Q_in[0] candidate
	QLatConv      float64
}

// RouteWater is a pure function of current state producing next-step
// outflows; its one side effect is a failed reservoir solve being counted
// in Res.NonConverged. It implements the per-step algorithm:
//  1. convolve lateral history through U_cat
//  2. prepend Q_up + Q_lat_conv + specified inflow into the inflow history
//     (read-only here; the value is only committed in UpdateOutflows)
//  3. route via convolution or the Muskingum cascade
//  4. if a reservoir exists, solve its continuity for the new stage
func (s *Subbasin) RouteWater(stepIndex int) RouteResult {
	qLatConv := convolve(s.State.UCat, s.State.QLat, s.pendingQLat)

	specified := 0.0
	if s.SpecifiedInflow != nil {
		specified = s.SpecifiedInflow(stepIndex)
	}
	qInCandidate := s.pendingQUp + qLatConv + specified

	var qOutFinal []float64
	if len(s.State.Cascade) > 0 {
		// parametric: step the cascade directly from the candidate inflow,
		// using a scratch copy so RouteWater stays pure.
		scratch := make([]MuskingumSegment, len(s.State.Cascade))
		copy(scratch, s.State.Cascade)
		out := stepMuskingumCascade(scratch, qInCandidate, s.dt)
		qOutFinal = make([]float64, s.State.NSeg)
		qOutFinal[s.State.NSeg-1] = out
	} else {
		qOutFinal = make([]float64, s.State.NSeg)
		qOutFinal[s.State.NSeg-1] = convolveHistoryWithCandidate(s.State.URoute, s.State.QIn, qInCandidate)
	}

	result := RouteResult{QOutNew: qOutFinal, QInTotal: qInCandidate, QLatConv: qLatConv}

	if s.Res != nil {
		extraction := 0.0
		if s.Res.Extraction != nil {
			extraction = s.Res.Extraction(stepIndex)
		}
		losses := s.Channel.TransmissionLossRate * s.Channel.Length * qOutFinal[s.State.NSeg-1]
		h0 := s.Res.Stage
		h, q, err := s.Res.Solve(qOutFinal[s.State.NSeg-1], extraction, losses, s.dt)
		s.Res.Stage = h0 // the new stage is committed by UpdateOutflows
		result.ResStage = h
		result.ResNonConverge = err != nil
		result.QOutNew[s.State.NSeg-1] = q
	}
	return result
}

// UpdateOutflows commits a RouteResult: shifts histories, updates V_ch,
// V_riv, Q_outLast, Q_latLast, and reservoir stage. When
// initialize is true, histories are seeded rather than shifted
// (Model.Step passes true on the run's first step, step index 0).
func (s *Subbasin) UpdateOutflows(r RouteResult, initialize bool) {
	qOutNewFinal := r.QOutNew[s.State.NSeg-1]

	if initialize {
		for i := 0; i < s.State.QIn.Len(); i++ {
			s.State.QIn.Push(r.QInTotal)
		}
		for i := 0; i < s.State.QLat.Len(); i++ {
			s.State.QLat.Push(s.pendingQLat)
		}
	} else {
		s.State.QIn.Push(r.QInTotal)
		s.State.QLat.Push(s.pendingQLat)
	}

	s.State.VCh += s.dt * (s.pendingQUp - qOutNewFinal)
	s.State.VRiv += s.dt * (s.pendingQLat - r.QLatConv)

	if len(s.State.Cascade) > 0 {
		stepMuskingumCascade(s.State.Cascade, r.QInTotal, s.dt)
	}

	copy(s.State.QOut, r.QOutNew)
	s.State.QOutLast = qOutNewFinal
	s.State.QLatLast = s.pendingQLat
	if s.Res != nil {
		s.Res.Stage = r.ResStage
	}
}

// convolve computes Σ U[i+1]*hist[i] plus the current-step value at index
// 0 treated as not-yet-pushed (the history ring buffer holds only past
// steps; the current lateral inflow is convolved separately at U[0]).
func convolve(u []float64, hist *RingBuffer, current float64) float64 {
	if len(u) == 0 {
		return current
	}
	sum := u[0] * current
	for i := 1; i < len(u) && i-1 < hist.Len(); i++ {
		sum += u[i] * hist.At(i - 1)
	}
	return sum
}

// convolveHistoryWithCandidate is convolve specialized for the inflow
// history, where index 0 is the new candidate value about to be pushed.
func convolveHistoryWithCandidate(u []float64, hist *RingBuffer, candidate float64) float64 {
	return convolve(u, hist, candidate)
}
