package callback

import (
	"fmt"
	"math"
)

// ValidateLogs checks record invariants before hook dispatch boundaries.
func ValidateLogs(logs Logs) error {
	if logs.Epoch < 0 {
		return fmt.Errorf("%w: field=epoch reason=negative value=%d", ErrInvalidLogs, logs.Epoch)
	}
	if logs.Duration < 0 {
		return fmt.Errorf(
			"%w: field=duration reason=negative value=%g epoch=%d",
			ErrInvalidLogs,
			logs.Duration,
			logs.Epoch,
		)
	}
	if logs.Batches < 0 {
		return fmt.Errorf(
			"%w: field=n_seen_batches reason=negative value=%d epoch=%d",
			ErrInvalidLogs,
			logs.Batches,
			logs.Epoch,
		)
	}
	if !logs.EpochStart.IsZero() && !logs.EpochEnd.IsZero() && logs.EpochEnd.Before(logs.EpochStart) {
		return fmt.Errorf(
			"%w: field=epoch_end_time reason=before_start epoch=%d",
			ErrInvalidLogs,
			logs.Epoch,
		)
	}
	if math.IsNaN(logs.LogProbability) {
		return fmt.Errorf("%w: field=log_probability reason=nan epoch=%d", ErrInvalidLogs, logs.Epoch)
	}
	return nil
}
