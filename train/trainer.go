package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tankgauravgt/pomegranate/callback"
)

const (
	// DefaultMaxEpochs bounds sessions whose options leave MaxEpochs unset.
	DefaultMaxEpochs = 100
	// DefaultStopThreshold is the minimum per-epoch improvement below which
	// the session stops early.
	DefaultStopThreshold = 0.1
)

// Dependencies wires ambient services into the trainer. Every field is
// optional; New fills in defaults.
type Dependencies struct {
	Logger      *slog.Logger
	IDGenerator IDGenerator
	Now         func() time.Time
}

// Options configures one training session.
type Options struct {
	// MaxEpochs caps the number of fitting iterations; <= 0 selects
	// DefaultMaxEpochs.
	MaxEpochs int
	// StopThreshold stops the session once per-epoch improvement falls
	// below it; 0 selects DefaultStopThreshold, negative disables early
	// stopping.
	StopThreshold float64
	// LearningRate is copied verbatim into every logs record for schema
	// compatibility. The trainer assigns it no meaning.
	LearningRate float64
	// Params is handed to callbacks through their Binding, cloned so the
	// caller's map stays untouched.
	Params callback.Params
	// Callbacks observe the session in list order. The trainer prepends
	// its own History.
	Callbacks []callback.Callback
}

// Result is returned by Fit.
type Result struct {
	SessionID        SessionID
	Epochs           int
	LogProbability   float64
	TotalImprovement float64
	// History is the trainer-owned per-epoch record sequence, populated
	// even when the caller registered no callbacks.
	History *callback.History
}

// Trainer owns the iterative fitting loop and the hook dispatch contract.
type Trainer struct {
	logger *slog.Logger
	idGen  IDGenerator
	now    func() time.Time
}

func New(deps Dependencies) *Trainer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuidIDGenerator{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Trainer{
		logger: deps.Logger,
		idGen:  deps.IDGenerator,
		now:    deps.Now,
	}
}

// Fit runs the fitting loop to completion, invoking every callback's hooks
// synchronously and in registration order: OnTrainingBegin once before the
// first epoch, OnEpochEnd once per epoch, OnTrainingEnd once after the
// final epoch or early stop. The first hook or fitter error aborts the
// session; OnTrainingEnd is skipped on abort, but callbacks implementing
// io.Closer are closed on every exit path.
func (t *Trainer) Fit(ctx context.Context, fitter Fitter, X [][]float64, opts Options) (_ Result, err error) {
	if ctx == nil {
		return Result{}, ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if fitter == nil {
		return Result{}, ErrNilFitter
	}
	if len(X) == 0 {
		return Result{}, ErrNoData
	}
	for i, cb := range opts.Callbacks {
		if cb == nil {
			return Result{}, fmt.Errorf("%w: index=%d", ErrNilCallback, i)
		}
	}

	maxEpochs := opts.MaxEpochs
	if maxEpochs <= 0 {
		maxEpochs = DefaultMaxEpochs
	}
	stopThreshold := opts.StopThreshold
	if stopThreshold == 0 {
		stopThreshold = DefaultStopThreshold
	}

	history := callback.NewHistory()
	callbacks := make([]callback.Callback, 0, len(opts.Callbacks)+1)
	callbacks = append(callbacks, history)
	callbacks = append(callbacks, opts.Callbacks...)
	defer func() {
		err = errors.Join(err, closeCallbacks(callbacks))
	}()

	sessionID, err := t.idGen.NewSessionID(ctx)
	if err != nil {
		return Result{}, err
	}
	logger := t.logger.With(slog.String("session_id", string(sessionID)))

	binding := callback.Binding{
		Model:  fitter,
		Params: callback.CloneParams(opts.Params),
	}
	for _, cb := range callbacks {
		if binder, ok := cb.(callback.Binder); ok {
			binder.Bind(binding)
		}
	}

	logProbs, err := fitter.LogProbability(X)
	if err != nil {
		return Result{}, fmt.Errorf("baseline evaluation: %w", err)
	}
	lastLogProb, err := baselineLogProbability(len(X), logProbs)
	if err != nil {
		return Result{}, err
	}

	logger.Info("training session started",
		slog.Int("max_epochs", maxEpochs),
		slog.Float64("stop_threshold", stopThreshold),
		slog.Int("samples", len(X)),
		slog.Float64("log_probability", lastLogProb),
	)

	for i, cb := range callbacks {
		if hookErr := cb.OnTrainingBegin(ctx); hookErr != nil {
			return Result{}, fmt.Errorf("callback[%d] hook=on_training_begin: %w", i, hookErr)
		}
	}

	var (
		epochs           int
		totalImprovement float64
		lastLogs         callback.Logs
	)
	for epoch := 1; epoch <= maxEpochs; epoch++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}

		start := t.now()
		logProb, stepErr := fitter.Step(ctx, X)
		end := t.now()
		if stepErr != nil {
			return Result{}, fmt.Errorf("fitter step epoch=%d: %w", epoch, stepErr)
		}
		if contractErr := validateStepOutput(epoch, logProb); contractErr != nil {
			return Result{}, contractErr
		}

		improvement := logProb - lastLogProb
		totalImprovement += improvement
		logs := callback.Logs{
			Epoch:              epoch,
			Duration:           end.Sub(start).Seconds(),
			TotalImprovement:   totalImprovement,
			Improvement:        improvement,
			LogProbability:     logProb,
			LastLogProbability: lastLogProb,
			EpochStart:         start,
			EpochEnd:           end,
			Batches:            1,
			LearningRate:       opts.LearningRate,
		}
		if validateErr := callback.ValidateLogs(logs); validateErr != nil {
			return Result{}, validateErr
		}
		lastLogProb = logProb
		lastLogs = logs
		epochs = epoch

		for i, cb := range callbacks {
			if hookErr := cb.OnEpochEnd(ctx, logs); hookErr != nil {
				return Result{}, fmt.Errorf(
					"callback[%d] hook=on_epoch_end epoch=%d: %w",
					i,
					epoch,
					hookErr,
				)
			}
		}

		logger.Debug("epoch finished",
			slog.Int("epoch", epoch),
			slog.Float64("improvement", improvement),
			slog.Float64("log_probability", logProb),
			slog.Float64("duration", logs.Duration),
		)

		if improvement < stopThreshold {
			logger.Info("improvement below threshold, stopping",
				slog.Int("epoch", epoch),
				slog.Float64("improvement", improvement),
				slog.Float64("stop_threshold", stopThreshold),
			)
			break
		}
	}

	finalLogs := lastLogs
	finalLogs.TotalImprovement = totalImprovement
	for i, cb := range callbacks {
		if hookErr := cb.OnTrainingEnd(ctx, finalLogs); hookErr != nil {
			return Result{}, fmt.Errorf("callback[%d] hook=on_training_end: %w", i, hookErr)
		}
	}

	logger.Info("training session finished",
		slog.Int("epochs", epochs),
		slog.Float64("total_improvement", totalImprovement),
		slog.Float64("log_probability", lastLogProb),
	)

	return Result{
		SessionID:        sessionID,
		Epochs:           epochs,
		LogProbability:   lastLogProb,
		TotalImprovement: totalImprovement,
		History:          history,
	}, nil
}

// closeCallbacks releases file-backed callbacks on every exit path,
// joining close failures into the session error.
func closeCallbacks(callbacks []callback.Callback) error {
	var errs []error
	for i, cb := range callbacks {
		closer, ok := cb.(io.Closer)
		if !ok {
			continue
		}
		if closeErr := closer.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("callback[%d] close: %w", i, closeErr))
		}
	}
	return errors.Join(errs...)
}
