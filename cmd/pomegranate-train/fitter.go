package main

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// dampedNormalFitter fits a univariate normal by moving its parameters a
// fixed fraction toward the maximum-likelihood estimate each step. The
// damping makes the fit genuinely iterative, so the callback hooks see a
// multi-epoch, improving session like the mixture fits this tool stands
// in for.
type dampedNormalFitter struct {
	mu      float64
	sigma   float64
	damping float64
}

func newDampedNormalFitter(mu, sigma, damping float64) *dampedNormalFitter {
	return &dampedNormalFitter{
		mu:      mu,
		sigma:   sigma,
		damping: damping,
	}
}

func flatten(X [][]float64) ([]float64, error) {
	out := make([]float64, 0, len(X))
	for i, row := range X {
		if len(row) != 1 {
			return nil, fmt.Errorf("sample %d: want 1 feature, got %d", i, len(row))
		}
		out = append(out, row[0])
	}
	return out, nil
}

func (f *dampedNormalFitter) LogProbability(X [][]float64) ([]float64, error) {
	values, err := flatten(X)
	if err != nil {
		return nil, err
	}
	dist := distuv.Normal{Mu: f.mu, Sigma: f.sigma}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = dist.LogProb(v)
	}
	return out, nil
}

func (f *dampedNormalFitter) Step(_ context.Context, X [][]float64) (float64, error) {
	values, err := flatten(X)
	if err != nil {
		return 0, err
	}

	targetMu := stat.Mean(values, nil)
	targetSigma := stat.StdDev(values, nil)
	f.mu += f.damping * (targetMu - f.mu)
	f.sigma += f.damping * (targetSigma - f.sigma)

	dist := distuv.Normal{Mu: f.mu, Sigma: f.sigma}
	var sum float64
	for _, v := range values {
		sum += dist.LogProb(v)
	}
	return sum, nil
}
