package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/tankgauravgt/pomegranate/callback"
	"github.com/tankgauravgt/pomegranate/train"
)

// validationLogger is the user-defined callback from the tutorial flow: it
// holds out a validation set and evaluates the in-progress model's
// log-probability over it at every epoch end.
type validationLogger struct {
	callback.Base

	logger *slog.Logger
	valid  [][]float64
}

func (v *validationLogger) OnEpochEnd(_ context.Context, logs callback.Logs) error {
	logProbs, err := v.Model.LogProbability(v.valid)
	if err != nil {
		return fmt.Errorf("validation evaluation epoch=%d: %w", logs.Epoch, err)
	}
	var sum float64
	for _, lp := range logProbs {
		sum += lp
	}
	v.logger.Info("validation",
		slog.Int("epoch", logs.Epoch),
		slog.Float64("validation_log_probability", sum),
	)
	return nil
}

func sampleNormal(rng *rand.Rand, n int, mu, sigma float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{rng.NormFloat64()*sigma + mu}
	}
	return out
}

func run(ctx context.Context) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.LogLevel)

	rng := rand.New(rand.NewSource(cfg.Seed))
	data := sampleNormal(rng, cfg.Samples, 3.0, 1.5)
	valid := sampleNormal(rng, cfg.Samples/5, 3.0, 1.5)

	// Start deliberately far from the data so the damped fit takes
	// several epochs to converge.
	fitter := newDampedNormalFitter(0.0, 4.0, cfg.Damping)

	trainer := train.New(train.Dependencies{Logger: logger})
	result, err := trainer.Fit(ctx, fitter, data, train.Options{
		MaxEpochs:     cfg.MaxEpochs,
		StopThreshold: cfg.StopThreshold,
		Params: callback.Params{
			"samples": cfg.Samples,
			"seed":    cfg.Seed,
		},
		Callbacks: []callback.Callback{
			callback.NewCSVLogger(cfg.CSVPath),
			&validationLogger{logger: logger, valid: valid},
			callback.NewLambda(callback.LambdaHooks{
				OnEnd: func(_ context.Context, logs callback.Logs) error {
					logger.Info("final epoch",
						slog.Int("epoch", logs.Epoch),
						slog.Float64("total_improvement", logs.TotalImprovement),
					)
					return nil
				},
			}),
		},
	})
	if err != nil {
		return err
	}

	logger.Info("fit complete",
		slog.String("session_id", string(result.SessionID)),
		slog.Int("epochs", result.Epochs),
		slog.Float64("log_probability", result.LogProbability),
		slog.String("csv_path", cfg.CSVPath),
	)
	for _, record := range result.History.Records() {
		fmt.Printf(
			"epoch=%d improvement=%.4f log_probability=%.4f duration=%.4fs\n",
			record.Epoch,
			record.Improvement,
			record.LogProbability,
			record.Duration,
		)
	}
	return nil
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "pomegranate-train: %v\n", err)
		os.Exit(1)
	}
}
