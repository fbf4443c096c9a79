// Package subbasin implements subbasin hydraulic routing and the reservoir
// stage-volume-discharge relation: convolution-based in-catchment lateral
// routing, channel routing by six selectable methods, reach-segment state,
// and reservoir handling.
package subbasin

import (
	"fmt"
	"math"

	"github.com/rchlumsk/RavenHydroFramework/options"
)

const unitHydrographTolerance = 1e-6

// Channel is the immutable cross-section/reach geometry a subbasin routes
// through.
type Channel struct {
	Length       float64 // reach length L [m]
	RefFlow      float64 // reference/bankfull discharge Q_ref [m3/s]
	RefCelerity  float64 // wave celerity c_ref [m/s] at Q_ref
	TopWidth     float64 // top width at Q_ref [m]
	Slope        float64 // bed slope [-]
	MuskingumX   float64 // configured X when not Cunge-derived
	TransmissionLossRate float64 // fractional loss per unit reach length [1/m]
}

// Topology is a subbasin's immutable identity and network position.
type Topology struct {
	ID             int
	DownstreamID   int // negative => outlet
	ContributingKM2 float64
	DrainageKM2    float64
	Gauged         bool
}

// RoutingState is the mutable per-step state of a subbasin: segmented
// outflows, inflow/lateral histories, unit
// hydrographs, channel/rivulet storage, and last-step values.
type RoutingState struct {
	NSeg int

	QOut []float64 // Q_out[1..nSeg], index 0..nSeg-1 here
	QIn  *RingBuffer
	QLat *RingBuffer

	URoute []float64 // routing unit hydrograph, Σ=1
	UCat   []float64 // catchment unit hydrograph, Σ=1

	VCh, VRiv float64
	QOutLast  float64
	QLatLast  float64

	// cascade holds per-segment storage for parametric (Muskingum-family)
	// routing; unused (len 0) for convolution methods.
	Cascade []MuskingumSegment
}

// MuskingumSegment is one reach subdivision's running storage for the
// Muskingum/Muskingum-Cunge cascade.
type MuskingumSegment struct {
	K, X     float64
	Storage  float64
	InflowLast float64
}

// Subbasin groups HRUs (owned elsewhere; referenced here only by total
// lateral contribution), a channel, an optional reservoir, and routing
// state.
type Subbasin struct {
	Topology
	Channel Channel
	State   RoutingState
	Res     *Reservoir // nil if this subbasin has no reservoir

	SpecifiedInflow func(stepIndex int) float64 // optional specified-inflow hydrograph

	methods options.Methods
	dt      float64 // seconds

	// pendingQUp/pendingQLat hold the values set by SetInflow/
	// SetLateralInflow ahead of RouteWater, a two-phase set-then-evaluate
	// pattern that keeps RouteWater itself side-effect-free until commit.
	pendingQUp  float64
	pendingQLat float64
}

// New constructs a subbasin with empty routing state; Init (or the
// caller) sizes its histories and hydrographs.
func New(topo Topology, ch Channel, methods options.Methods, dtSeconds float64) *Subbasin {
	return &Subbasin{
		Topology: topo,
		Channel:  ch,
		methods:  methods,
		dt:       dtSeconds,
	}
}

// IsHeadwater reports whether this subbasin is headwater: no other
// subbasin targets it as downstream, and it has no specified inflow.
func IsHeadwater(s *Subbasin, allDownstream map[int]int) bool {
	for _, ds := range allDownstream {
		if ds == s.ID {
			return false
		}
	}
	return s.SpecifiedInflow == nil
}

// ValidateHydrographs checks |ΣU - 1| < tolerance, for both the catchment
// and routing unit hydrographs.
func ValidateHydrographs(s *Subbasin) error {
	if err := checkSum(s.State.UCat, "U_cat"); err != nil {
		return err
	}
	if err := checkSum(s.State.URoute, "U_route"); err != nil {
		return err
	}
	if s.State.NSeg < 1 {
		return fmt.Errorf("subbasin %d: nSeg must be >= 1, got %d", s.ID, s.State.NSeg)
	}
	return nil
}

func checkSum(u []float64, name string) error {
	sum := 0.0
	for _, v := range u {
		sum += v
	}
	if len(u) > 0 && math.Abs(sum-1) > unitHydrographTolerance {
		return fmt.Errorf("%s does not sum to 1: got %.9f", name, sum)
	}
	return nil
}

// RingBuffer is a fixed-length history with a head index, avoiding
// per-step slice shifting. Index 0 always
// names the logically "current" (most recent) entry regardless of where
// it physically sits in the backing array.
type RingBuffer struct {
	buf  []float64
	head int
}

// NewRingBuffer allocates a zero-filled ring of the given length.
func NewRingBuffer(n int) *RingBuffer {
	return &RingBuffer{buf: make([]float64, n)}
}

// Len returns the number of entries.
func (r *RingBuffer) Len() int { return len(r.buf) }

// At returns the entry i steps back from the current head (0 = current).
func (r *RingBuffer) At(i int) float64 {
	n := len(r.buf)
	if n == 0 {
		return 0
	}
	idx := (r.head - i%n + n) % n
	return r.buf[idx]
}

// Push prepends a new current value, evicting the oldest entry.
func (r *RingBuffer) Push(v float64) {
	n := len(r.buf)
	if n == 0 {
		return
	}
	r.head = (r.head + 1) % n
	r.buf[r.head] = v
}
