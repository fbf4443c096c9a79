// Package diagnostics wires github.com/maseology/objfunc's goodness-of-fit
// statistics into an optional end-of-run summary against an observed
// hydrograph.
package diagnostics

import "github.com/maseology/objfunc"

// Summary is a simple observed-vs-simulated goodness-of-fit report.
type Summary struct {
	KGE  float64
	Bias float64
}

// Compare returns KGE and bias for two equal-length float64 series. A nil
// or empty observed series yields a zero Summary rather than an error:
// goodness-of-fit reporting is optional diagnostics, not part of the
// mass-balance contract.
func Compare(observed, simulated []float64) Summary {
	if len(observed) == 0 || len(observed) != len(simulated) {
		return Summary{}
	}
	return Summary{
		KGE:  objfunc.KGE(observed, simulated),
		Bias: objfunc.Bias(observed, simulated),
	}
}
