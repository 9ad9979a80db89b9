package train

import "errors"

var (
	// ErrContextNil is returned when Fit is invoked without a context.
	ErrContextNil = errors.New("context is nil")
	// ErrNilFitter is returned when Fit is invoked without a fitter.
	ErrNilFitter = errors.New("fitter is nil")
	// ErrNoData is returned when the training dataset is empty.
	ErrNoData = errors.New("training dataset is empty")
	// ErrNilCallback is returned when the callback list contains a nil entry.
	ErrNilCallback = errors.New("callback is nil")
	// ErrFitterContract is returned when a fitter evaluation violates its
	// output contract (non-finite baseline, NaN step log-probability,
	// mismatched evaluation length).
	ErrFitterContract = errors.New("fitter output contract violation")
)
