package train_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/tankgauravgt/pomegranate/adapters/callbacktest"
	"github.com/tankgauravgt/pomegranate/adapters/fittertest"
	"github.com/tankgauravgt/pomegranate/callback"
	"github.com/tankgauravgt/pomegranate/train"
)

func testDataset(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i)}
	}
	return out
}

// tickClock returns a deterministic Now that advances one second per call.
func tickClock() func() time.Time {
	base := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
}

func newTestTrainer() *train.Trainer {
	return train.New(train.Dependencies{
		IDGenerator: callbacktest.NewCounterIDGenerator("sess"),
		Now:         tickClock(),
	})
}

func TestFit_HookCallOrderConformance(t *testing.T) {
	t.Parallel()

	const epochs = 4

	recorders := []*callbacktest.Recorder{
		callbacktest.NewRecorder(),
		callbacktest.NewRecorder(),
		callbacktest.NewRecorder(),
	}
	callbacks := make([]callback.Callback, len(recorders))
	for i, recorder := range recorders {
		callbacks[i] = recorder
	}

	fitter := fittertest.NewScriptedFitter(-100,
		fittertest.Step{LogProbability: -80},
		fittertest.Step{LogProbability: -70},
		fittertest.Step{LogProbability: -65},
		fittertest.Step{LogProbability: -62},
	)

	result, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(10), train.Options{
		MaxEpochs:     epochs,
		StopThreshold: -1,
		Callbacks:     callbacks,
	})
	if err != nil {
		t.Fatalf("fit returned error: %v", err)
	}
	if result.Epochs != epochs {
		t.Fatalf("unexpected epochs: got=%d want=%d", result.Epochs, epochs)
	}

	for i, recorder := range recorders {
		calls := recorder.Calls()
		if len(calls) != epochs+2 {
			t.Fatalf("recorder %d: unexpected call count %d", i, len(calls))
		}
		if calls[0].Hook != callbacktest.HookTrainingBegin {
			t.Fatalf("recorder %d: first call %q", i, calls[0].Hook)
		}
		if calls[len(calls)-1].Hook != callbacktest.HookTrainingEnd {
			t.Fatalf("recorder %d: last call %q", i, calls[len(calls)-1].Hook)
		}
		for epoch := 1; epoch <= epochs; epoch++ {
			call := calls[epoch]
			if call.Hook != callbacktest.HookEpochEnd {
				t.Fatalf("recorder %d call %d: hook %q", i, epoch, call.Hook)
			}
			if call.Logs.Epoch != epoch {
				t.Fatalf("recorder %d call %d: epoch %d", i, epoch, call.Logs.Epoch)
			}
		}
	}
}

func TestFit_HistoryMatchesDispatchedLogs(t *testing.T) {
	t.Parallel()

	recorder := callbacktest.NewRecorder()
	fitter := fittertest.NewScriptedFitter(-100,
		fittertest.Step{LogProbability: -80},
		fittertest.Step{LogProbability: -70},
		fittertest.Step{LogProbability: -65},
	)

	result, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(5), train.Options{
		MaxEpochs:     3,
		StopThreshold: -1,
		Callbacks:     []callback.Callback{recorder},
	})
	if err != nil {
		t.Fatalf("fit returned error: %v", err)
	}

	if result.History == nil {
		t.Fatalf("missing history")
	}
	if got := result.History.Epochs(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("unexpected epoch sequence: %v", got)
	}

	epochCalls := recorder.EpochCalls()
	records := result.History.Records()
	if len(epochCalls) != len(records) {
		t.Fatalf("call/record count mismatch: %d vs %d", len(epochCalls), len(records))
	}
	for i := range records {
		if !reflect.DeepEqual(records[i], epochCalls[i].Logs) {
			t.Fatalf("record %d transformed: %+v vs %+v", i, records[i], epochCalls[i].Logs)
		}
	}

	wantImprovements := []float64{20, 10, 5}
	if got := result.History.Improvements(); !reflect.DeepEqual(got, wantImprovements) {
		t.Fatalf("unexpected improvements: %v", got)
	}
	if result.LogProbability != -65 {
		t.Fatalf("unexpected final log probability: %v", result.LogProbability)
	}
	if result.TotalImprovement != 35 {
		t.Fatalf("unexpected total improvement: %v", result.TotalImprovement)
	}
	if result.SessionID != train.SessionID("sess-000001") {
		t.Fatalf("unexpected session id: %q", result.SessionID)
	}
}

func TestFit_EarlyStopOnImprovementThreshold(t *testing.T) {
	t.Parallel()

	fitter := fittertest.NewScriptedFitter(-100,
		fittertest.Step{LogProbability: -80},
		fittertest.Step{LogProbability: -79.95},
		fittertest.Step{LogProbability: -60},
	)

	result, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(5), train.Options{
		MaxEpochs:     10,
		StopThreshold: 0.1,
	})
	if err != nil {
		t.Fatalf("fit returned error: %v", err)
	}
	if result.Epochs != 2 {
		t.Fatalf("unexpected epochs: got=%d want=2", result.Epochs)
	}
	if fitter.Steps() != 2 {
		t.Fatalf("fitter kept stepping after stop: %d", fitter.Steps())
	}
}

func TestFit_AbortAtEpochHaltsLaterCallbacksAndEpochs(t *testing.T) {
	t.Parallel()

	hookErr := errors.New("disk full")
	before := callbacktest.NewRecorder()
	failing := callbacktest.NewRecorder()
	failing.FailOn(callbacktest.HookEpochEnd, 2, hookErr)
	after := callbacktest.NewRecorder()

	fitter := fittertest.NewScriptedFitter(-100,
		fittertest.Step{LogProbability: -80},
		fittertest.Step{LogProbability: -70},
		fittertest.Step{LogProbability: -60},
	)

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(5), train.Options{
		MaxEpochs:     3,
		StopThreshold: -1,
		Callbacks:     []callback.Callback{before, failing, after},
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(before.EpochCalls()); got != 2 {
		t.Fatalf("callback before failer: epoch calls %d", got)
	}
	if got := len(failing.EpochCalls()); got != 2 {
		t.Fatalf("failing callback: epoch calls %d", got)
	}
	if got := len(after.EpochCalls()); got != 1 {
		t.Fatalf("callback after failer: epoch calls %d", got)
	}
	if fitter.Steps() != 2 {
		t.Fatalf("fitter stepped past abort: %d", fitter.Steps())
	}

	for i, recorder := range []*callbacktest.Recorder{before, failing, after} {
		for _, call := range recorder.Calls() {
			if call.Hook == callbacktest.HookTrainingEnd {
				t.Fatalf("recorder %d: training end ran on abort", i)
			}
		}
		if recorder.Closed() != 1 {
			t.Fatalf("recorder %d: closed %d times", i, recorder.Closed())
		}
	}
}

func TestFit_BeginFailureAbortsBeforeAnyEpoch(t *testing.T) {
	t.Parallel()

	hookErr := errors.New("cannot open target")
	failing := callbacktest.NewRecorder()
	failing.FailOn(callbacktest.HookTrainingBegin, 0, hookErr)

	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -80})

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(5), train.Options{
		MaxEpochs: 3,
		Callbacks: []callback.Callback{failing},
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if fitter.Steps() != 0 {
		t.Fatalf("fitter stepped despite begin failure: %d", fitter.Steps())
	}
	if failing.Closed() != 1 {
		t.Fatalf("failing callback not closed: %d", failing.Closed())
	}
}

func TestFit_EndFailurePropagates(t *testing.T) {
	t.Parallel()

	hookErr := errors.New("flush failed")
	failing := callbacktest.NewRecorder()
	failing.FailOn(callbacktest.HookTrainingEnd, 0, hookErr)

	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -99.99})

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(5), train.Options{
		MaxEpochs: 1,
		Callbacks: []callback.Callback{failing},
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if failing.Closed() != 1 {
		t.Fatalf("failing callback not closed: %d", failing.Closed())
	}
}

func TestFit_InputValidation(t *testing.T) {
	t.Parallel()

	trainer := newTestTrainer()
	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -80})

	cases := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "nil context",
			run: func() error {
				_, err := trainer.Fit(nil, fitter, testDataset(1), train.Options{})
				return err
			},
			wantErr: train.ErrContextNil,
		},
		{
			name: "nil fitter",
			run: func() error {
				_, err := trainer.Fit(context.Background(), nil, testDataset(1), train.Options{})
				return err
			},
			wantErr: train.ErrNilFitter,
		},
		{
			name: "empty dataset",
			run: func() error {
				_, err := trainer.Fit(context.Background(), fitter, nil, train.Options{})
				return err
			},
			wantErr: train.ErrNoData,
		},
		{
			name: "nil callback entry",
			run: func() error {
				_, err := trainer.Fit(context.Background(), fitter, testDataset(1), train.Options{
					Callbacks: []callback.Callback{callbacktest.NewRecorder(), nil},
				})
				return err
			},
			wantErr: train.ErrNilCallback,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if err := tc.run(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFit_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder := callbacktest.NewRecorder()
	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -80})

	_, err := newTestTrainer().Fit(ctx, fitter, testDataset(1), train.Options{
		Callbacks: []callback.Callback{recorder},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recorder.Calls()) != 0 {
		t.Fatalf("hooks ran on cancelled context: %v", recorder.Calls())
	}
}

func TestFit_BindingInjectedBeforeBegin(t *testing.T) {
	t.Parallel()

	recorder := callbacktest.NewRecorder()
	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -99})
	params := callback.Params{"stop_threshold": 0.1}

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(4), train.Options{
		MaxEpochs: 1,
		Params:    params,
		Callbacks: []callback.Callback{recorder},
	})
	if err != nil {
		t.Fatalf("fit returned error: %v", err)
	}

	binding, bound := recorder.Bound()
	if !bound {
		t.Fatalf("binding not injected")
	}
	if binding.Model == nil {
		t.Fatalf("binding has no model")
	}

	// Held-out evaluation through the binding must work and must not
	// disturb fitted state.
	logProbs, err := binding.Model.LogProbability(testDataset(4))
	if err != nil {
		t.Fatalf("held-out evaluation: %v", err)
	}
	var sum float64
	for _, lp := range logProbs {
		sum += lp
	}
	if math.Abs(sum-(-99)) > 1e-9 {
		t.Fatalf("unexpected held-out log probability: %v", sum)
	}

	if binding.Params["stop_threshold"] != 0.1 {
		t.Fatalf("unexpected params: %v", binding.Params)
	}
	binding.Params["stop_threshold"] = 99.0
	if params["stop_threshold"] != 0.1 {
		t.Fatalf("binding params alias the caller's map")
	}
}

func TestFit_LearningRatePassthrough(t *testing.T) {
	t.Parallel()

	recorder := callbacktest.NewRecorder()
	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -99.99})

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(2), train.Options{
		MaxEpochs:    1,
		LearningRate: 0.5,
		Callbacks:    []callback.Callback{recorder},
	})
	if err != nil {
		t.Fatalf("fit returned error: %v", err)
	}

	epochCalls := recorder.EpochCalls()
	if len(epochCalls) != 1 {
		t.Fatalf("unexpected epoch calls: %d", len(epochCalls))
	}
	if epochCalls[0].Logs.LearningRate != 0.5 {
		t.Fatalf("learning rate not passed through: %v", epochCalls[0].Logs.LearningRate)
	}
}

func TestFit_EpochTimestampsFromClock(t *testing.T) {
	t.Parallel()

	recorder := callbacktest.NewRecorder()
	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: -99.99})

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(2), train.Options{
		MaxEpochs: 1,
		Callbacks: []callback.Callback{recorder},
	})
	if err != nil {
		t.Fatalf("fit returned error: %v", err)
	}

	logs := recorder.EpochCalls()[0].Logs
	if !logs.EpochEnd.After(logs.EpochStart) {
		t.Fatalf("epoch end not after start: %v %v", logs.EpochStart, logs.EpochEnd)
	}
	if logs.Duration != logs.EpochEnd.Sub(logs.EpochStart).Seconds() {
		t.Fatalf("duration disagrees with timestamps: %v", logs.Duration)
	}
}

func TestFit_StepErrorPropagates(t *testing.T) {
	t.Parallel()

	stepErr := errors.New("summarize failed")
	recorder := callbacktest.NewRecorder()
	fitter := fittertest.NewScriptedFitter(-100,
		fittertest.Step{LogProbability: -80},
		fittertest.Step{Err: stepErr},
	)

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(2), train.Options{
		MaxEpochs:     5,
		StopThreshold: -1,
		Callbacks:     []callback.Callback{recorder},
	})
	if !errors.Is(err, stepErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(recorder.EpochCalls()); got != 1 {
		t.Fatalf("unexpected epoch calls after step failure: %d", got)
	}
	if recorder.Closed() != 1 {
		t.Fatalf("recorder not closed on step failure: %d", recorder.Closed())
	}
}

func TestFit_NaNStepViolatesContract(t *testing.T) {
	t.Parallel()

	fitter := fittertest.NewScriptedFitter(-100, fittertest.Step{LogProbability: math.NaN()})

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(2), train.Options{
		MaxEpochs: 1,
	})
	if !errors.Is(err, train.ErrFitterContract) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFit_CSVLoggerClosedOnFitterFailure(t *testing.T) {
	t.Parallel()

	stepErr := errors.New("step failed")
	fitter := fittertest.NewScriptedFitter(-100,
		fittertest.Step{LogProbability: -80},
		fittertest.Step{Err: stepErr},
	)

	dir := t.TempDir()
	logger := callback.NewCSVLogger(dir + "/logs.csv")

	_, err := newTestTrainer().Fit(context.Background(), fitter, testDataset(2), train.Options{
		MaxEpochs:     5,
		StopThreshold: -1,
		Callbacks:     []callback.Callback{logger},
	})
	if !errors.Is(err, stepErr) {
		t.Fatalf("unexpected error: %v", err)
	}

	// The abort path must have released the file: a follow-up hook hits
	// the closed-logger guard instead of a leaked handle.
	hookErr := logger.OnEpochEnd(context.Background(), callback.Logs{Epoch: 9})
	if !errors.Is(hookErr, callback.ErrLoggerClosed) {
		t.Fatalf("logger still open after abort: %v", hookErr)
	}
}
