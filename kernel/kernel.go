// Package kernel defines the process-kernel capability set. Kernels move
// water between HRU storages; the orchestrator applies each configured
// kernel to every HRU without knowing the kernel's identity or internals.
// This package only pins the interface and provides example adapters over
// real external kernel libraries.
package kernel

import (
	"github.com/rchlumsk/RavenHydroFramework/forcing"
	"github.com/rchlumsk/RavenHydroFramework/hru"
)

// FluxPair names one directed water movement a kernel may produce, from
// one HRU storage to another (or to "outside" via ToSubbasin/ToAtmosphere).
type FluxPair struct {
	From, To hru.StorageIndex
	// ToSubbasin marks a flux that leaves the HRU as lateral runoff rather
	// than moving to another storage; To is ignored when this is true.
	ToSubbasin bool
	// ToAtmosphere marks an evaporative flux; can_evaporate constituents
	// may be transported along it, conservative ones never are.
	ToAtmosphere bool
}

// Kernel is the capability every process kernel exposes: the storages it
// reads/writes (ParticipatingStores), the connections it may move water
// along (ToFromPairs), and its rate law.
type Kernel interface {
	Name() string
	ParticipatingStores() []hru.StorageIndex
	ToFromPairs() []FluxPair
	// Rate computes, for the given forcing and HRU state, the flux along
	// each pair returned by ToFromPairs, in the same order. Positive values
	// move water from From to To (or out, for ToSubbasin/ToAtmosphere
	// pairs). Rate must not itself mutate h; the orchestrator applies the
	// returned fluxes and performs clipping.
	Rate(f forcing.F, h *hru.HRU, dtSeconds float64) []float64
}

// Set is an ordered, configured list of kernels the orchestrator applies
// to every HRU each step, in order. Later kernels do not observe the
// tentative state left by earlier ones within the same step: Model.Step
// evaluates every kernel against the same start-of-step state and
// accumulates all kernel fluxes before clipping once per step.
type Set []Kernel
