package train

import (
	"fmt"
	"math"
)

// baselineLogProbability sums a per-sample evaluation into the session
// baseline, enforcing the fitter output contract.
func baselineLogProbability(sampleCount int, logProbs []float64) (float64, error) {
	if len(logProbs) != sampleCount {
		return 0, fmt.Errorf(
			"%w: invariant=evaluation_length samples=%d got=%d",
			ErrFitterContract,
			sampleCount,
			len(logProbs),
		)
	}
	var sum float64
	for _, lp := range logProbs {
		sum += lp
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, fmt.Errorf(
			"%w: invariant=baseline_finite value=%g",
			ErrFitterContract,
			sum,
		)
	}
	return sum, nil
}

// validateStepOutput rejects step results the loop cannot reason about.
// Finite decreases are allowed: improvement is an expectation, not a
// guarantee.
func validateStepOutput(epoch int, logProb float64) error {
	if math.IsNaN(logProb) {
		return fmt.Errorf(
			"%w: invariant=step_log_probability reason=nan epoch=%d",
			ErrFitterContract,
			epoch,
		)
	}
	return nil
}
